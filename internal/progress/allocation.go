package progress

import (
	"math"

	"sitetrack/internal/model"
)

// DefaultFloorPenalty is how many percentage points each later floor loses
// from its achievable ceiling.
const DefaultFloorPenalty = 15

// Schedule is the input of one floor allocation pass.
type Schedule struct {
	TimelineDays  int
	ElapsedDays   float64
	TotalProgress float64
	Penalty       int
}

// Complete reports whether the whole timeline has been consumed.
func (s Schedule) Complete() bool {
	return s.ElapsedDays >= float64(s.TimelineDays) || s.TotalProgress >= 100
}

// Ceiling is the highest value floor i can reach automatically.
func (s Schedule) Ceiling(i int) int {
	c := 100 - s.Penalty*i
	if c < 0 {
		return 0
	}
	return c
}

// FloorProgress computes the automatic value of floor i out of n.
// Floors own equal, consecutive slices of the timeline: floor i accrues
// only inside [share*i, share*(i+1)) and holds its ceiling afterwards.
func FloorProgress(i, n int, s Schedule) int {
	if n <= 0 || i < 0 || i >= n {
		return 0
	}
	if s.Complete() {
		return 100
	}
	if s.TimelineDays <= 0 {
		return 0
	}

	share := float64(s.TimelineDays) / float64(n)
	ceiling := float64(s.Ceiling(i))
	start := share * float64(i)

	var v float64
	switch {
	case s.ElapsedDays >= share*float64(i+1):
		v = ceiling
	case s.ElapsedDays >= start:
		v = math.Min((s.ElapsedDays-start)/share*ceiling, ceiling)
	default:
		v = 0
	}
	return int(math.Round(v))
}

// AllocateFloors writes the waterfall schedule into every automatic floor.
// Manual floors keep their stored value.
func AllocateFloors(floors []model.Floor, s Schedule) {
	n := len(floors)
	for i := range floors {
		if floors[i].Progress.IsManual() {
			continue
		}
		floors[i].Progress = model.Auto(FloorProgress(i, n, s))
	}
}

// AllocateTasks splits the floor's value evenly across its automatic tasks.
// Once the project is complete every automatic task reads 100.
func AllocateTasks(f *model.Floor, complete bool) {
	auto := 0
	for _, t := range f.Tasks {
		if !t.Progress.IsManual() {
			auto++
		}
	}
	if auto == 0 {
		return
	}

	v := int(math.Round(float64(f.Progress.Value()) / float64(auto)))
	if complete {
		v = 100
	}
	for j := range f.Tasks {
		if f.Tasks[j].Progress.IsManual() {
			continue
		}
		f.Tasks[j].Progress = model.Auto(v)
	}
}

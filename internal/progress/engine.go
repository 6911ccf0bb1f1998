package progress

import (
	"math"
	"time"

	"sitetrack/internal/model"
)

// Result describes what one Recompute pass did.
type Result struct {
	Frozen        bool
	ElapsedDays   int
	TotalProgress float64
	Complete      bool
	AutoFinished  bool
}

// Engine holds the tunables of the automatic schedule.
type Engine struct {
	floorPenalty int
}

func NewEngine(floorPenalty int) *Engine {
	if floorPenalty < 0 {
		floorPenalty = DefaultFloorPenalty
	}
	return &Engine{floorPenalty: floorPenalty}
}

// Recompute re-derives every automatic node of p as of now. Postponed
// projects are frozen. Calling it twice with the same now is a no-op the
// second time.
func (e *Engine) Recompute(p *model.Project, now time.Time) Result {
	if p.Status == model.StatusPostponed {
		return Result{Frozen: true, TotalProgress: float64(p.Progress.Value())}
	}

	timelineDays := TimelineDays(p.Timeline)
	if timelineDays <= 0 {
		// Malformed timelines never reach the store; stay put rather than divide by zero.
		return Result{Frozen: true, TotalProgress: float64(p.Progress.Value())}
	}

	elapsed := ElapsedDays(p.ReferenceDate, now)
	total := aggregate(elapsed, timelineDays, p.ProgressOffset)

	// The floor waterfall follows the timeline only. Pins on the aggregate
	// move ProgressOffset but never ScheduleOffset.
	position := float64(elapsed) + p.ScheduleOffset/100*float64(timelineDays)

	sched := Schedule{
		TimelineDays:  timelineDays,
		ElapsedDays:   position,
		TotalProgress: total,
		Penalty:       e.floorPenalty,
	}
	res := Result{
		ElapsedDays:   elapsed,
		TotalProgress: total,
		Complete:      sched.Complete(),
	}

	if res.Complete && p.Status == model.StatusOngoing {
		End(p, now)
		res.AutoFinished = true
	}

	if !p.Progress.IsManual() {
		p.Progress = model.Auto(int(math.Round(total)))
	}

	AllocateFloors(p.Floors, sched)
	for i := range p.Floors {
		if p.Floors[i].Progress.IsManual() {
			continue
		}
		AllocateTasks(&p.Floors[i], res.Complete)
	}

	return res
}

// RebaseAggregate makes the automatic aggregate read value at now and keep
// accruing at the timeline rate from there. ReferenceDate is left alone so
// the floor waterfall does not move.
func RebaseAggregate(p *model.Project, value int, now time.Time) {
	timelineDays := TimelineDays(p.Timeline)
	if timelineDays <= 0 {
		p.ProgressOffset = float64(value)
		return
	}
	elapsed := ElapsedDays(p.ReferenceDate, now)
	p.ProgressOffset = float64(value) - float64(elapsed)/float64(timelineDays)*100
}

func aggregate(elapsed, timelineDays int, offset float64) float64 {
	return math.Max(0, math.Min(float64(elapsed)/float64(timelineDays)*100+offset, 100))
}

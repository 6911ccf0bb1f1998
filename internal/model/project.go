package model

import (
	"slices"
	"time"
)

type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusOngoing    Status = "ongoing"
	StatusPostponed  Status = "postponed"
	StatusFinished   Status = "finished"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusOngoing, StatusPostponed, StatusFinished:
		return true
	}
	return false
}

type TimeUnit string

const (
	UnitWeeks  TimeUnit = "weeks"
	UnitMonths TimeUnit = "months"
)

// Timeline is the planned project length. BaseDuration keeps the duration
// as originally planned so postponement extensions are never applied twice.
type Timeline struct {
	Duration     int      `json:"duration"`
	Unit         TimeUnit `json:"unit"`
	BaseDuration int      `json:"base_duration,omitempty"`
}

// Project is the root of the progress tree. It is stored as one document.
type Project struct {
	ID             int64       `json:"id"`
	ContractorID   int         `json:"contractor_id"`
	OwnerID        int         `json:"owner_id"`
	Name           string      `json:"name"`
	TemplateTier   string      `json:"template_tier"`
	Status         Status      `json:"status"`
	Timeline       Timeline    `json:"timeline"`
	ReferenceDate  time.Time   `json:"reference_date"`
	ProgressOffset float64     `json:"progress_offset"` // percent accrued before ReferenceDate
	ScheduleOffset float64     `json:"schedule_offset"` // percent of the timeline consumed before ReferenceDate
	Progress       Progress    `json:"progress"`
	StartDate      *time.Time  `json:"start_date,omitempty"`
	EndDate        *time.Time  `json:"end_date,omitempty"`
	PostponedDates []time.Time `json:"postponed_dates"`
	ResumedDates   []time.Time `json:"resumed_dates"`
	Floors         []Floor     `json:"floors"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Floor position in Project.Floors decides its slot in the automatic schedule.
type Floor struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Progress Progress `json:"progress"`
	Tasks    []Task   `json:"tasks"`
}

type Task struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Progress Progress `json:"progress"`
}

// FloorIndex returns the position of the floor with the given id, or -1.
func (p *Project) FloorIndex(id string) int {
	for i := range p.Floors {
		if p.Floors[i].ID == id {
			return i
		}
	}
	return -1
}

// TaskIndex returns the position of the task with the given id, or -1.
func (f *Floor) TaskIndex(id string) int {
	for i := range f.Tasks {
		if f.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// HasParticipant reports whether the user is the contractor or the owner.
func (p *Project) HasParticipant(userID int) bool {
	return userID != 0 && (p.ContractorID == userID || p.OwnerID == userID)
}

// Clone returns a deep copy so a failed mutation never leaks into the
// caller's value.
func (p *Project) Clone() *Project {
	c := *p
	c.StartDate = cloneTime(p.StartDate)
	c.EndDate = cloneTime(p.EndDate)
	c.PostponedDates = slices.Clone(p.PostponedDates)
	c.ResumedDates = slices.Clone(p.ResumedDates)
	c.Floors = slices.Clone(p.Floors)
	for i := range c.Floors {
		c.Floors[i].Tasks = slices.Clone(c.Floors[i].Tasks)
	}
	return &c
}

// PinAll pins every floor and task at its current value.
func (p *Project) PinAll() {
	for i := range p.Floors {
		p.Floors[i].Progress = p.Floors[i].Progress.Pinned()
		for j := range p.Floors[i].Tasks {
			p.Floors[i].Tasks[j].Progress = p.Floors[i].Tasks[j].Progress.Pinned()
		}
	}
}

// PinAllAt pins every floor and task at v.
func (p *Project) PinAllAt(v int) {
	for i := range p.Floors {
		p.Floors[i].Progress = Manual(v)
		for j := range p.Floors[i].Tasks {
			p.Floors[i].Tasks[j].Progress = Manual(v)
		}
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

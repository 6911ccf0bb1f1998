package progress

import (
	"fmt"
	"math"
	"time"

	"sitetrack/internal/model"
)

// Start moves a not-started or finished project to ongoing and restarts
// elapsed-time accounting from now.
func Start(p *model.Project, now time.Time) error {
	if p.Status != model.StatusNotStarted && p.Status != model.StatusFinished {
		return transitionError(p.Status, model.StatusOngoing)
	}
	p.Status = model.StatusOngoing
	p.StartDate = &now
	p.EndDate = nil
	p.ReferenceDate = now
	p.ProgressOffset = 0
	p.ScheduleOffset = 0
	return nil
}

// Postpone freezes an ongoing project and records when it happened.
func Postpone(p *model.Project, now time.Time) error {
	if p.Status != model.StatusOngoing {
		return transitionError(p.Status, model.StatusPostponed)
	}
	p.Status = model.StatusPostponed
	p.PostponedDates = append(p.PostponedDates, now)
	return nil
}

// Resume moves a postponed project back to ongoing and stretches its
// timeline by every day spent postponed. The project is left untouched
// when there is no unmatched postponement.
func Resume(p *model.Project, now time.Time) error {
	if p.Status != model.StatusPostponed {
		return transitionError(p.Status, model.StatusOngoing)
	}
	if len(p.PostponedDates) <= len(p.ResumedDates) {
		return fmt.Errorf("%w: no postponement to resume from (%d postponed, %d resumed)",
			ErrInvalidTransition, len(p.PostponedDates), len(p.ResumedDates))
	}

	pausedAt := p.PostponedDates[len(p.ResumedDates)]
	if planned := TimelineDays(p.Timeline); planned > 0 {
		consumed := float64(ElapsedDays(p.ReferenceDate, pausedAt))/float64(planned)*100 + p.ScheduleOffset
		p.ScheduleOffset = math.Min(consumed, 100)
	}

	p.ResumedDates = append(p.ResumedDates, now)
	p.Timeline = ExtendTimeline(p.Timeline, PausedDays(p.PostponedDates, p.ResumedDates))
	p.Status = model.StatusOngoing
	p.ReferenceDate = now
	p.ProgressOffset = float64(p.Progress.Value())
	return nil
}

// End finishes a project from any status.
func End(p *model.Project, now time.Time) {
	p.Status = model.StatusFinished
	p.EndDate = &now
}

// PausedDays sums ceil(resumed-postponed) in days over matched pairs.
func PausedDays(postponed, resumed []time.Time) int {
	total := 0
	for i := 0; i < len(resumed) && i < len(postponed); i++ {
		total += ceilDays(postponed[i], resumed[i])
	}
	return total
}

// ExtendTimeline re-expresses base length + paused days in the timeline's
// own unit, rounding up.
func ExtendTimeline(t model.Timeline, pausedDays int) model.Timeline {
	unit := UnitDays(t.Unit)
	if unit == 0 {
		return t
	}
	base := t.BaseDuration
	if base <= 0 {
		base = t.Duration
	}
	days := base*unit + pausedDays
	t.BaseDuration = base
	t.Duration = (days + unit - 1) / unit
	return t
}

func transitionError(from, to model.Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

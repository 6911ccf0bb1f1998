package progress

import (
	"fmt"
	"math"
	"time"

	"sitetrack/internal/model"
)

const (
	daysPerWeek  = 7
	daysPerMonth = 30

	day = 24 * time.Hour
)

// UnitDays returns the day length of one timeline unit, or 0 for an unknown unit.
func UnitDays(u model.TimeUnit) int {
	switch u {
	case model.UnitWeeks:
		return daysPerWeek
	case model.UnitMonths:
		return daysPerMonth
	}
	return 0
}

// TimelineDays converts a duration+unit pair into days.
func TimelineDays(t model.Timeline) int {
	return t.Duration * UnitDays(t.Unit)
}

// ElapsedDays counts whole days between ref and now. It never goes negative.
func ElapsedDays(ref, now time.Time) int {
	d := now.Sub(ref)
	if d <= 0 {
		return 0
	}
	return int(d / day)
}

// ceilDays counts started days between two instants.
func ceilDays(from, to time.Time) int {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(day)))
}

func ValidateTimeline(t model.Timeline) error {
	if t.Duration <= 0 {
		return fmt.Errorf("%w: timeline duration must be positive, got %d", ErrValidation, t.Duration)
	}
	if UnitDays(t.Unit) == 0 {
		return fmt.Errorf("%w: timeline unit must be %q or %q, got %q",
			ErrValidation, model.UnitWeeks, model.UnitMonths, t.Unit)
	}
	return nil
}

func ValidatePercent(v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%w: progress must be between 0 and 100, got %d", ErrValidation, v)
	}
	return nil
}

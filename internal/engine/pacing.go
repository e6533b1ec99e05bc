package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"cloud.google.com/go/civil"
)

// ErrInvalidQuarter is returned when quarter bounds are missing or inverted.
var ErrInvalidQuarter = errors.New("invalid quarter bounds")

// Quarter is the reporting period, both ends inclusive.
type Quarter struct {
	Start civil.Date `json:"start"`
	End   civil.Date `json:"end"`
}

// Validate requires both bounds and Start strictly before End.
func (q Quarter) Validate() error {
	if !q.Start.IsValid() || !q.End.IsValid() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidQuarter)
	}
	if !q.Start.Before(q.End) {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidQuarter, q.Start, q.End)
	}
	return nil
}

// Contains reports whether d falls inside the quarter.
func (q Quarter) Contains(d civil.Date) bool {
	return !d.Before(q.Start) && !d.After(q.End)
}

// PacingBaseline returns the whole percentage of the quarter elapsed on today,
// at day granularity, clamped to [0, 100].
func PacingBaseline(q Quarter, today civil.Date) int {
	if today.Before(q.Start) {
		return 0
	}
	if today.After(q.End) {
		return 100
	}
	span := q.End.DaysSince(q.Start)
	if span <= 0 {
		return 100
	}
	elapsed := today.DaysSince(q.Start)
	return int(math.Round(100 * float64(elapsed) / float64(span)))
}

// PacingAt is PacingBaseline for an instant, read as a calendar date in loc.
func PacingAt(q Quarter, now time.Time, loc *time.Location) int {
	return PacingBaseline(q, DateIn(now, loc))
}

// DateIn converts an instant to the calendar date observed in loc.
func DateIn(now time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(now.In(loc))
}

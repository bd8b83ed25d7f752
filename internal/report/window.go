package report

import (
	"fmt"
	"math"
	"time"

	"shopfloor/internal/engine"
)

// Window is a half-open reporting interval [Start,End). Facts count when
// their timestamp is inside it; downtime counts by clipped overlap.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Validate() error {
	if !w.End.After(w.Start) {
		return fmt.Errorf("%w: window end must be after start", engine.ErrValidation)
	}
	return nil
}

func (w Window) Minutes() float64 {
	return w.End.Sub(w.Start).Minutes()
}

// Days is the window length in whole days for daily-target scaling,
// rounded up, minimum one. A night shift that wraps midnight is still a
// one-day period even though it touches two calendar dates.
func (w Window) Days() int {
	d := int(math.Ceil(w.End.Sub(w.Start).Hours() / 24))
	if d < 1 {
		d = 1
	}
	return d
}

// DayRange returns the first and last calendar day the window touches as
// YYYY-MM-DD strings, for matching day-granularity facts.
func (w Window) DayRange() (string, string) {
	last := w.End.Add(-time.Nanosecond)
	return w.Start.Format("2006-01-02"), last.Format("2006-01-02")
}

// Day returns the full-day window for a calendar date.
func Day(t time.Time) Window {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.Add(24 * time.Hour)}
}

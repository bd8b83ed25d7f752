package report_test

import (
	"testing"
	"time"

	"shopfloor/internal/report"
)

func TestWindowDays(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{
			name:  "full day",
			start: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			want:  1,
		},
		{
			name:  "shift inside one day",
			start: time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC),
			want:  1,
		},
		{
			name:  "night shift wrapping midnight is one period day",
			start: time.Date(2024, 3, 4, 22, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 3, 5, 6, 0, 0, 0, time.UTC),
			want:  1,
		},
		{
			name:  "week ending at midnight",
			start: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
			want:  7,
		},
		{
			name:  "day and a half rounds up",
			start: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
			want:  2,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := report.Window{Start: tc.start, End: tc.end}
			if got := w.Days(); got != tc.want {
				t.Fatalf("Days() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestWindowDayRange(t *testing.T) {
	w := report.Window{
		Start: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
	}
	first, last := w.DayRange()
	if first != "2024-03-04" || last != "2024-03-10" {
		t.Fatalf("DayRange() = %s..%s, want 2024-03-04..2024-03-10", first, last)
	}
}

func TestWindowValidate(t *testing.T) {
	at := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	if err := (report.Window{Start: at, End: at}).Validate(); err == nil {
		t.Fatalf("empty window validated")
	}
	if err := (report.Window{Start: at, End: at.Add(-time.Hour)}).Validate(); err == nil {
		t.Fatalf("inverted window validated")
	}
	if err := (report.Window{Start: at, End: at.Add(time.Hour)}).Validate(); err != nil {
		t.Fatalf("valid window rejected: %v", err)
	}
}

func TestDay(t *testing.T) {
	w := report.Day(time.Date(2024, 3, 4, 15, 42, 7, 0, time.UTC))
	if !w.Start.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", w.Start)
	}
	if w.Minutes() != 24*60 {
		t.Fatalf("minutes = %v, want 1440", w.Minutes())
	}
	if w.Days() != 1 {
		t.Fatalf("days = %d, want 1", w.Days())
	}
}

package report

import (
	"context"
	"time"

	"shopfloor/internal/repo"
)

// MachineMetrics is the per-machine rollup over one window.
type MachineMetrics struct {
	MachineID       string  `json:"machine_id"`
	LineID          string  `json:"line_id"`
	DowntimeMinutes float64 `json:"downtime_minutes"`
	DowntimeEvents  int     `json:"downtime_events"`
	GoodQuantity    int64   `json:"good_quantity"`
	ScrapQuantity   int64   `json:"scrap_quantity"`
	DefectQuantity  int64   `json:"defect_quantity"`
}

// LineMetrics is the per-line rollup, the machine figures summed plus the
// line-scoped safety count.
type LineMetrics struct {
	LineID          string  `json:"line_id"`
	DowntimeMinutes float64 `json:"downtime_minutes"`
	DowntimeEvents  int     `json:"downtime_events"`
	GoodQuantity    int64   `json:"good_quantity"`
	ScrapQuantity   int64   `json:"scrap_quantity"`
	DefectQuantity  int64   `json:"defect_quantity"`
	SafetyIncidents int     `json:"safety_incidents"`
}

// WindowMetrics is a complete aggregation over one window.
type WindowMetrics struct {
	Start    string                    `json:"start" format:"date-time"`
	End      string                    `json:"end" format:"date-time"`
	Machines map[string]MachineMetrics `json:"machines"`
	Lines    map[string]LineMetrics    `json:"lines"`
}

// Aggregator folds stored facts into window metrics. Now bounds the
// effective end of still-open downtime events.
type Aggregator struct {
	Repo repo.Repo
	Now  func() time.Time
}

func (a Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// ClippedMinutes is the downtime contribution of one event to a window:
// the length of the overlap between the event's effective span and the
// window, never negative. An open event runs until now, capped at the
// window end.
func ClippedMinutes(start time.Time, end *time.Time, w Window, now time.Time) float64 {
	effEnd := now
	if effEnd.After(w.End) {
		effEnd = w.End
	}
	if end != nil {
		effEnd = *end
	}
	lo := start
	if w.Start.After(lo) {
		lo = w.Start
	}
	hi := effEnd
	if w.End.Before(hi) {
		hi = w.End
	}
	if !hi.After(lo) {
		return 0
	}
	return hi.Sub(lo).Minutes()
}

// Compute aggregates all facts for the window into per-machine and
// per-line metrics. Lines and machines with no activity are absent.
func (a Aggregator) Compute(ctx context.Context, w Window) (WindowMetrics, error) {
	if err := w.Validate(); err != nil {
		return WindowMetrics{}, err
	}
	m := WindowMetrics{
		Start:    w.Start.UTC().Format(time.RFC3339),
		End:      w.End.UTC().Format(time.RFC3339),
		Machines: map[string]MachineMetrics{},
		Lines:    map[string]LineMetrics{},
	}
	now := a.now().UTC()

	startStr := w.Start.UTC().Format(time.RFC3339)
	endStr := w.End.UTC().Format(time.RFC3339)

	downtime, err := a.Repo.DowntimeIntersecting(ctx, startStr, endStr)
	if err != nil {
		return WindowMetrics{}, err
	}
	for _, d := range downtime {
		start, err := time.Parse(time.RFC3339, d.StartTime)
		if err != nil {
			return WindowMetrics{}, err
		}
		var end *time.Time
		if d.EndTime != nil {
			t, err := time.Parse(time.RFC3339, *d.EndTime)
			if err != nil {
				return WindowMetrics{}, err
			}
			end = &t
		}
		minutes := ClippedMinutes(start, end, w, now)
		if minutes <= 0 {
			continue
		}
		mm := m.Machines[d.MachineID]
		mm.MachineID = d.MachineID
		mm.LineID = d.LineID
		mm.DowntimeMinutes += minutes
		mm.DowntimeEvents++
		m.Machines[d.MachineID] = mm

		lm := m.Lines[d.LineID]
		lm.LineID = d.LineID
		lm.DowntimeMinutes += minutes
		lm.DowntimeEvents++
		m.Lines[d.LineID] = lm
	}

	counts, err := a.Repo.ProductionCountsBetween(ctx, startStr, endStr)
	if err != nil {
		return WindowMetrics{}, err
	}
	for _, p := range counts {
		mm := m.Machines[p.MachineID]
		mm.MachineID = p.MachineID
		mm.LineID = p.LineID
		mm.GoodQuantity += p.GoodQuantity
		mm.ScrapQuantity += p.ScrapQuantity
		m.Machines[p.MachineID] = mm

		lm := m.Lines[p.LineID]
		lm.LineID = p.LineID
		lm.GoodQuantity += p.GoodQuantity
		lm.ScrapQuantity += p.ScrapQuantity
		m.Lines[p.LineID] = lm
	}

	quality, err := a.Repo.QualityEventsBetween(ctx, startStr, endStr)
	if err != nil {
		return WindowMetrics{}, err
	}
	for _, q := range quality {
		mm := m.Machines[q.MachineID]
		mm.MachineID = q.MachineID
		mm.LineID = q.LineID
		mm.DefectQuantity += q.Quantity
		m.Machines[q.MachineID] = mm

		lm := m.Lines[q.LineID]
		lm.LineID = q.LineID
		lm.DefectQuantity += q.Quantity
		m.Lines[q.LineID] = lm
	}

	firstDay, lastDay := w.DayRange()
	incidents, err := a.Repo.SafetyIncidentsBetween(ctx, firstDay, lastDay)
	if err != nil {
		return WindowMetrics{}, err
	}
	for _, s := range incidents {
		lm := m.Lines[s.LineID]
		lm.LineID = s.LineID
		lm.SafetyIncidents++
		m.Lines[s.LineID] = lm
	}

	return m, nil
}

// LineFor returns the line rollup, zero-valued when the line saw no
// activity in the window.
func (m WindowMetrics) LineFor(lineID string) LineMetrics {
	lm, ok := m.Lines[lineID]
	if !ok {
		return LineMetrics{LineID: lineID}
	}
	return lm
}

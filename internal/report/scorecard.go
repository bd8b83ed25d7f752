package report

import (
	"fmt"

	"shopfloor/internal/config"
	"shopfloor/internal/domain"
	"shopfloor/internal/engine"
)

// Fallback targets when a line has no stored row and no config override.
const (
	DefaultSafetyTarget   = 0.0
	DefaultQualityTarget  = 95.0
	DefaultDeliveryTarget = 100.0
	DefaultCostTarget     = 30.0
)

// Metric is one scorecard cell: observed value against resolved target.
type Metric struct {
	Value    float64 `json:"value"`
	Target   float64 `json:"target"`
	OnTarget bool    `json:"on_target"`
}

// Scorecard is the SQDC view for one line over one period.
type Scorecard struct {
	LineID     string   `json:"line_id"`
	LineName   string   `json:"line_name"`
	PeriodDays int      `json:"period_days"`
	Safety     Metric   `json:"safety"`
	Quality    Metric   `json:"quality"`
	Delivery   Metric   `json:"delivery"`
	Cost       Metric   `json:"cost"`
	Alerts     []string `json:"alerts,omitempty"`
}

// ResolveTargets merges stored per-line targets over config defaults over
// the built-in fallbacks, keyed by metric name.
func ResolveTargets(stored map[string]domain.Target, cfg *config.Config) map[string]float64 {
	res := map[string]float64{
		domain.MetricSafety:   DefaultSafetyTarget,
		domain.MetricQuality:  DefaultQualityTarget,
		domain.MetricDelivery: DefaultDeliveryTarget,
		domain.MetricCost:     DefaultCostTarget,
	}
	if cfg != nil {
		res[domain.MetricSafety] = cfg.Targets.Safety
		res[domain.MetricQuality] = cfg.Targets.Quality
		res[domain.MetricDelivery] = cfg.Targets.Delivery
		res[domain.MetricCost] = cfg.Targets.Cost
	}
	for metric, t := range stored {
		res[metric] = t.Value
	}
	return res
}

// ComputeScorecard evaluates one line's metrics against its targets.
// Delivery and cost targets are daily figures scaled by the period
// length; the safety target is an absolute count and never scales.
// FPY with zero output counts as 100.
func ComputeScorecard(lineID, lineName string, periodDays int, lm LineMetrics, targets map[string]float64) (Scorecard, error) {
	if periodDays < 1 {
		return Scorecard{}, fmt.Errorf("%w: period must cover at least one day", engine.ErrValidation)
	}
	days := float64(periodDays)

	// Scrap against yield is production-count scrap plus logged quality
	// events; both are failed first passes.
	fpy := 100.0
	scrap := lm.ScrapQuantity + lm.DefectQuantity
	if total := lm.GoodQuantity + scrap; total > 0 {
		fpy = float64(lm.GoodQuantity) / float64(total) * 100
	}

	sc := Scorecard{
		LineID:     lineID,
		LineName:   lineName,
		PeriodDays: periodDays,
	}
	sc.Safety = Metric{
		Value:  float64(lm.SafetyIncidents),
		Target: targets[domain.MetricSafety],
	}
	sc.Safety.OnTarget = sc.Safety.Value <= sc.Safety.Target

	sc.Quality = Metric{
		Value:  fpy,
		Target: targets[domain.MetricQuality],
	}
	sc.Quality.OnTarget = sc.Quality.Value >= sc.Quality.Target

	sc.Delivery = Metric{
		Value:  float64(lm.GoodQuantity),
		Target: targets[domain.MetricDelivery] * days,
	}
	sc.Delivery.OnTarget = sc.Delivery.Value >= sc.Delivery.Target

	sc.Cost = Metric{
		Value:  lm.DowntimeMinutes,
		Target: targets[domain.MetricCost] * days,
	}
	sc.Cost.OnTarget = sc.Cost.Value <= sc.Cost.Target

	if !sc.Safety.OnTarget {
		sc.Alerts = append(sc.Alerts, fmt.Sprintf("%s: Safety Incident Reported", lineName))
	}
	if !sc.Quality.OnTarget {
		sc.Alerts = append(sc.Alerts, fmt.Sprintf("%s: Quality FPY Below Target", lineName))
	}
	if !sc.Delivery.OnTarget {
		sc.Alerts = append(sc.Alerts, fmt.Sprintf("%s: Delivery Target Missed", lineName))
	}
	if !sc.Cost.OnTarget {
		sc.Alerts = append(sc.Alerts, fmt.Sprintf("%s: High Downtime", lineName))
	}
	return sc, nil
}

// MatrixCell is one line/metric status in the board view.
type MatrixCell struct {
	Metric   string `json:"metric" enum:"safety,quality,delivery,cost"`
	OnTarget bool   `json:"on_target"`
}

// MatrixRow is one line's row of SQDC statuses.
type MatrixRow struct {
	LineID   string       `json:"line_id"`
	LineName string       `json:"line_name"`
	Cells    []MatrixCell `json:"cells"`
}

// StatusMatrix flattens scorecards into the lines-by-metrics board.
func StatusMatrix(cards []Scorecard) []MatrixRow {
	rows := make([]MatrixRow, 0, len(cards))
	for _, sc := range cards {
		rows = append(rows, MatrixRow{
			LineID:   sc.LineID,
			LineName: sc.LineName,
			Cells: []MatrixCell{
				{Metric: domain.MetricSafety, OnTarget: sc.Safety.OnTarget},
				{Metric: domain.MetricQuality, OnTarget: sc.Quality.OnTarget},
				{Metric: domain.MetricDelivery, OnTarget: sc.Delivery.OnTarget},
				{Metric: domain.MetricCost, OnTarget: sc.Cost.OnTarget},
			},
		})
	}
	return rows
}

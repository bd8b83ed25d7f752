package report

import (
	"context"
	"time"

	"shopfloor/internal/config"
	"shopfloor/internal/repo"
)

// Reporter ties the aggregator to target resolution so callers get
// finished scorecards instead of raw rollups.
type Reporter struct {
	Repo   repo.Repo
	Config *config.Config
	Now    func() time.Time
}

func (r Reporter) Metrics(ctx context.Context, w Window) (WindowMetrics, error) {
	return Aggregator{Repo: r.Repo, Now: r.Now}.Compute(ctx, w)
}

// Scorecard builds the SQDC card for one line over the window.
func (r Reporter) Scorecard(ctx context.Context, w Window, lineID string) (Scorecard, error) {
	line, err := r.Repo.GetLine(ctx, lineID)
	if err != nil {
		return Scorecard{}, err
	}
	m, err := r.Metrics(ctx, w)
	if err != nil {
		return Scorecard{}, err
	}
	stored, err := r.Repo.TargetsForLine(ctx, line.ID)
	if err != nil {
		return Scorecard{}, err
	}
	return ComputeScorecard(line.ID, line.Name, w.Days(), m.LineFor(line.ID), ResolveTargets(stored, r.Config))
}

// Scorecards builds cards for every line, in line-name order. Lines with
// no activity still get a card so the board shows them.
func (r Reporter) Scorecards(ctx context.Context, w Window) ([]Scorecard, error) {
	lines, err := r.Repo.ListLines(ctx)
	if err != nil {
		return nil, err
	}
	m, err := r.Metrics(ctx, w)
	if err != nil {
		return nil, err
	}
	var cards []Scorecard
	for _, line := range lines {
		stored, err := r.Repo.TargetsForLine(ctx, line.ID)
		if err != nil {
			return nil, err
		}
		sc, err := ComputeScorecard(line.ID, line.Name, w.Days(), m.LineFor(line.ID), ResolveTargets(stored, r.Config))
		if err != nil {
			return nil, err
		}
		cards = append(cards, sc)
	}
	return cards, nil
}

// Matrix builds the lines-by-metrics status board over the window.
func (r Reporter) Matrix(ctx context.Context, w Window) ([]MatrixRow, error) {
	cards, err := r.Scorecards(ctx, w)
	if err != nil {
		return nil, err
	}
	return StatusMatrix(cards), nil
}

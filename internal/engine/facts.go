package engine

import (
	"context"
	"fmt"
	"time"

	"shopfloor/internal/domain"
	"shopfloor/internal/events"
)

// QualityEventOptions are parameters for logging a scrap or defect fact.
type QualityEventOptions struct {
	MachineID   string
	ReasonID    string
	WorkOrderID string
	OperatorID  string
	Quantity    int64
	Timestamp   string
	Notes       string
	ActorID     string
}

func (e Engine) LogQualityEvent(ctx context.Context, opts QualityEventOptions) (domain.QualityEvent, error) {
	if opts.Quantity <= 0 {
		return domain.QualityEvent{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	ts, err := e.parseTS(opts.Timestamp)
	if err != nil {
		return domain.QualityEvent{}, err
	}
	m, err := e.Repo.GetMachine(ctx, opts.MachineID)
	if err != nil {
		return domain.QualityEvent{}, fmt.Errorf("machine %s: %w", opts.MachineID, err)
	}
	rs, err := e.Repo.GetReason(ctx, opts.ReasonID)
	if err != nil {
		return domain.QualityEvent{}, fmt.Errorf("reason %s: %w", opts.ReasonID, err)
	}
	if rs.Kind != "quality" {
		return domain.QualityEvent{}, fmt.Errorf("%w: reason %s is a %s reason", ErrValidation, rs.Code, rs.Kind)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.QualityEvent{}, err
	}
	defer tx.Rollback()

	q := domain.QualityEvent{
		ID:          newID(),
		MachineID:   m.ID,
		LineID:      m.LineID,
		WorkOrderID: optionalString(opts.WorkOrderID),
		OperatorID:  optionalString(opts.OperatorID),
		ReasonID:    rs.ID,
		Quantity:    opts.Quantity,
		Timestamp:   ts.Format(time.RFC3339),
		Notes:       opts.Notes,
	}
	if err := e.Repo.InsertQualityEvent(ctx, tx, q); err != nil {
		return domain.QualityEvent{}, fmt.Errorf("insert quality event: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "quality.logged", "quality_event", q.ID, opts.ActorID, events.EventPayload{
		"machine_id": q.MachineID,
		"reason_id":  q.ReasonID,
		"quantity":   q.Quantity,
	}); err != nil {
		return domain.QualityEvent{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.QualityEvent{}, err
	}
	return q, nil
}

// ProductionCountOptions are parameters for logging an output fact.
type ProductionCountOptions struct {
	MachineID     string
	WorkOrderID   string
	OperatorID    string
	GoodQuantity  int64
	ScrapQuantity int64
	Timestamp     string
	ActorID       string
}

func (e Engine) LogProductionCount(ctx context.Context, opts ProductionCountOptions) (domain.ProductionCount, error) {
	if opts.GoodQuantity < 0 || opts.ScrapQuantity < 0 {
		return domain.ProductionCount{}, fmt.Errorf("%w: quantities must not be negative", ErrValidation)
	}
	ts, err := e.parseTS(opts.Timestamp)
	if err != nil {
		return domain.ProductionCount{}, err
	}
	m, err := e.Repo.GetMachine(ctx, opts.MachineID)
	if err != nil {
		return domain.ProductionCount{}, fmt.Errorf("machine %s: %w", opts.MachineID, err)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ProductionCount{}, err
	}
	defer tx.Rollback()

	p := domain.ProductionCount{
		ID:            newID(),
		MachineID:     m.ID,
		LineID:        m.LineID,
		WorkOrderID:   optionalString(opts.WorkOrderID),
		OperatorID:    optionalString(opts.OperatorID),
		GoodQuantity:  opts.GoodQuantity,
		ScrapQuantity: opts.ScrapQuantity,
		Timestamp:     ts.Format(time.RFC3339),
	}
	if err := e.Repo.InsertProductionCount(ctx, tx, p); err != nil {
		return domain.ProductionCount{}, fmt.Errorf("insert production count: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "production.logged", "production_count", p.ID, opts.ActorID, events.EventPayload{
		"machine_id": p.MachineID,
		"good":       p.GoodQuantity,
		"scrap":      p.ScrapQuantity,
	}); err != nil {
		return domain.ProductionCount{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ProductionCount{}, err
	}
	return p, nil
}

// LogSafetyIncident records an incident at day granularity. An empty date
// defaults to today on the engine clock.
func (e Engine) LogSafetyIncident(ctx context.Context, lineID, date, description, actorID string) (domain.SafetyIncident, error) {
	if description == "" {
		return domain.SafetyIncident{}, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if date == "" {
		date = e.now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return domain.SafetyIncident{}, fmt.Errorf("%w: invalid date %q (want YYYY-MM-DD)", ErrValidation, date)
	}
	if _, err := e.Repo.GetLine(ctx, lineID); err != nil {
		return domain.SafetyIncident{}, fmt.Errorf("line %s: %w", lineID, err)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SafetyIncident{}, err
	}
	defer tx.Rollback()

	s := domain.SafetyIncident{
		ID:          newID(),
		LineID:      lineID,
		Date:        date,
		Description: description,
	}
	if err := e.Repo.InsertSafetyIncident(ctx, tx, s); err != nil {
		return domain.SafetyIncident{}, fmt.Errorf("insert safety incident: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "safety.logged", "safety_incident", s.ID, actorID, events.EventPayload{
		"line_id": s.LineID,
		"date":    s.Date,
	}); err != nil {
		return domain.SafetyIncident{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SafetyIncident{}, err
	}
	return s, nil
}

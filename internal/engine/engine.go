package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shopfloor/internal/config"
	"shopfloor/internal/domain"
	"shopfloor/internal/events"
	"shopfloor/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowRFC3339() string {
	return e.now().UTC().Format(time.RFC3339)
}

// parseTS accepts an RFC3339 timestamp or, when empty, substitutes the
// engine clock. All stored instants are UTC.
func (e Engine) parseTS(v string) (time.Time, error) {
	if v == "" {
		return e.now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid timestamp %q", ErrValidation, v)
	}
	return t.UTC(), nil
}

func newID() string { return uuid.NewString() }

func (e Engine) CreateLine(ctx context.Context, name, description, actorID string) (domain.Line, error) {
	if name == "" {
		return domain.Line{}, fmt.Errorf("%w: line name is required", ErrValidation)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Line{}, err
	}
	defer tx.Rollback()

	l := domain.Line{
		ID:          newID(),
		Name:        name,
		Description: description,
		CreatedAt:   e.nowRFC3339(),
	}
	if err := e.Repo.InsertLine(ctx, tx, l); err != nil {
		return domain.Line{}, fmt.Errorf("insert line: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "line.created", "line", l.ID, actorID, events.EventPayload{"name": l.Name}); err != nil {
		return domain.Line{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Line{}, err
	}
	return l, nil
}

func (e Engine) CreateMachine(ctx context.Context, lineID, name, description, actorID string) (domain.Machine, error) {
	if name == "" {
		return domain.Machine{}, fmt.Errorf("%w: machine name is required", ErrValidation)
	}
	if _, err := e.Repo.GetLine(ctx, lineID); err != nil {
		return domain.Machine{}, fmt.Errorf("line %s: %w", lineID, err)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Machine{}, err
	}
	defer tx.Rollback()

	m := domain.Machine{
		ID:          newID(),
		LineID:      lineID,
		Name:        name,
		Description: description,
		CreatedAt:   e.nowRFC3339(),
	}
	if err := e.Repo.InsertMachine(ctx, tx, m); err != nil {
		return domain.Machine{}, fmt.Errorf("insert machine: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "machine.created", "machine", m.ID, actorID, events.EventPayload{"name": m.Name, "line_id": m.LineID}); err != nil {
		return domain.Machine{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Machine{}, err
	}
	return m, nil
}

func (e Engine) CreateOperator(ctx context.Context, name, badgeID, actorID string) (domain.Operator, error) {
	if name == "" {
		return domain.Operator{}, fmt.Errorf("%w: operator name is required", ErrValidation)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Operator{}, err
	}
	defer tx.Rollback()

	o := domain.Operator{
		ID:        newID(),
		Name:      name,
		BadgeID:   badgeID,
		CreatedAt: e.nowRFC3339(),
	}
	if err := e.Repo.InsertOperator(ctx, tx, o); err != nil {
		return domain.Operator{}, fmt.Errorf("insert operator: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "operator.created", "operator", o.ID, actorID, events.EventPayload{"name": o.Name}); err != nil {
		return domain.Operator{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Operator{}, err
	}
	return o, nil
}

func (e Engine) CreateReason(ctx context.Context, kind, code, description, category, actorID string) (domain.Reason, error) {
	if kind != "downtime" && kind != "quality" {
		return domain.Reason{}, fmt.Errorf("%w: reason kind must be downtime or quality", ErrValidation)
	}
	if code == "" || description == "" {
		return domain.Reason{}, fmt.Errorf("%w: reason code and description are required", ErrValidation)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Reason{}, err
	}
	defer tx.Rollback()

	rs := domain.Reason{
		ID:          newID(),
		Kind:        kind,
		Code:        code,
		Description: description,
		Category:    category,
	}
	if err := e.Repo.InsertReason(ctx, tx, rs); err != nil {
		return domain.Reason{}, fmt.Errorf("insert reason: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "reason.created", "reason", rs.ID, actorID, events.EventPayload{"kind": rs.Kind, "code": rs.Code}); err != nil {
		return domain.Reason{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Reason{}, err
	}
	return rs, nil
}

// SetTarget stores or replaces the per-line goal for one metric.
func (e Engine) SetTarget(ctx context.Context, lineID, metric string, value float64, actorID string) (domain.Target, error) {
	if !domain.ValidMetric(metric) {
		return domain.Target{}, fmt.Errorf("%w: unknown metric %q", ErrValidation, metric)
	}
	if value < 0 {
		return domain.Target{}, fmt.Errorf("%w: target value must not be negative", ErrValidation)
	}
	if _, err := e.Repo.GetLine(ctx, lineID); err != nil {
		return domain.Target{}, fmt.Errorf("line %s: %w", lineID, err)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Target{}, err
	}
	defer tx.Rollback()

	t := domain.Target{
		LineID:    lineID,
		Metric:    metric,
		Value:     value,
		UpdatedAt: e.nowRFC3339(),
	}
	if err := e.Repo.UpsertTarget(ctx, tx, t); err != nil {
		return domain.Target{}, fmt.Errorf("upsert target: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "target.set", "target", lineID+"/"+metric, actorID, events.EventPayload{"metric": metric, "value": value}); err != nil {
		return domain.Target{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Target{}, err
	}
	return t, nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

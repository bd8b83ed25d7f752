package engine

import (
	"context"
	"fmt"
	"time"

	"shopfloor/internal/domain"
	"shopfloor/internal/events"
)

// WorkOrderOptions are parameters for scheduling a work order.
type WorkOrderOptions struct {
	Number         string
	PartNumber     string
	TargetQuantity int64
	DueDate        string
	LineID         string
	ActorID        string
}

func (e Engine) CreateWorkOrder(ctx context.Context, opts WorkOrderOptions) (domain.WorkOrder, error) {
	if opts.Number == "" {
		return domain.WorkOrder{}, fmt.Errorf("%w: work order number is required", ErrValidation)
	}
	if opts.TargetQuantity < 0 {
		return domain.WorkOrder{}, fmt.Errorf("%w: target quantity must not be negative", ErrValidation)
	}
	if opts.DueDate != "" {
		if _, err := time.Parse("2006-01-02", opts.DueDate); err != nil {
			return domain.WorkOrder{}, fmt.Errorf("%w: invalid due date %q (want YYYY-MM-DD)", ErrValidation, opts.DueDate)
		}
	}
	if _, err := e.Repo.GetLine(ctx, opts.LineID); err != nil {
		return domain.WorkOrder{}, fmt.Errorf("line %s: %w", opts.LineID, err)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	defer tx.Rollback()

	w := domain.WorkOrder{
		ID:             newID(),
		Number:         opts.Number,
		PartNumber:     opts.PartNumber,
		TargetQuantity: opts.TargetQuantity,
		DueDate:        opts.DueDate,
		LineID:         opts.LineID,
		Status:         "scheduled",
	}
	if err := e.Repo.InsertWorkOrder(ctx, tx, w); err != nil {
		return domain.WorkOrder{}, fmt.Errorf("insert work order: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "workorder.created", "work_order", w.ID, opts.ActorID, events.EventPayload{
		"number":  w.Number,
		"line_id": w.LineID,
	}); err != nil {
		return domain.WorkOrder{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkOrder{}, err
	}
	return w, nil
}

// workOrderTransitions lists the allowed status moves. Completed and
// canceled are terminal.
var workOrderTransitions = map[string][]string{
	"scheduled": {"active", "canceled"},
	"active":    {"completed", "canceled"},
}

func ensureWorkOrderTransition(from, to string) error {
	for _, allowed := range workOrderTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: work order cannot move from %s to %s", ErrInvalidTransition, from, to)
}

// SetWorkOrderStatus moves a work order through its lifecycle, stamping
// started_at on activation and completed_at on completion.
func (e Engine) SetWorkOrderStatus(ctx context.Context, id, status, actorID string) (domain.WorkOrder, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	defer tx.Rollback()

	w, err := e.Repo.GetWorkOrderTx(ctx, tx, id)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	if err := ensureWorkOrderTransition(w.Status, status); err != nil {
		return domain.WorkOrder{}, err
	}
	now := e.nowRFC3339()
	var startedAt, completedAt *string
	if status == "active" {
		startedAt = &now
	}
	if status == "completed" {
		completedAt = &now
	}
	if err := e.Repo.UpdateWorkOrderStatus(ctx, tx, id, status, startedAt, completedAt); err != nil {
		return domain.WorkOrder{}, err
	}
	if err := e.Events.Append(ctx, tx, "workorder."+status, "work_order", id, actorID, events.EventPayload{
		"from": w.Status,
		"to":   status,
	}); err != nil {
		return domain.WorkOrder{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkOrder{}, err
	}
	w.Status = status
	if startedAt != nil {
		w.StartedAt = startedAt
	}
	if completedAt != nil {
		w.CompletedAt = completedAt
	}
	return w, nil
}

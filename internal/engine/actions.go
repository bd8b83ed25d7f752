package engine

import (
	"context"
	"fmt"

	"shopfloor/internal/domain"
	"shopfloor/internal/events"
)

// ActionOptions are parameters for raising a corrective action.
type ActionOptions struct {
	LineID      string
	Category    string
	Description string
	AssigneeID  string
	ActorID     string
}

func (e Engine) CreateAction(ctx context.Context, opts ActionOptions) (domain.Action, error) {
	if !domain.ValidMetric(opts.Category) {
		return domain.Action{}, fmt.Errorf("%w: action category must be an SQDC metric name", ErrValidation)
	}
	if opts.Description == "" {
		return domain.Action{}, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if _, err := e.Repo.GetLine(ctx, opts.LineID); err != nil {
		return domain.Action{}, fmt.Errorf("line %s: %w", opts.LineID, err)
	}
	if opts.AssigneeID != "" {
		if _, err := e.Repo.GetOperator(ctx, opts.AssigneeID); err != nil {
			return domain.Action{}, fmt.Errorf("assignee %s: %w", opts.AssigneeID, err)
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Action{}, err
	}
	defer tx.Rollback()

	a := domain.Action{
		ID:          newID(),
		Timestamp:   e.nowRFC3339(),
		LineID:      opts.LineID,
		Category:    opts.Category,
		Description: opts.Description,
		AssigneeID:  optionalString(opts.AssigneeID),
		Status:      "open",
	}
	if err := e.Repo.InsertAction(ctx, tx, a); err != nil {
		return domain.Action{}, fmt.Errorf("insert action: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "action.created", "action", a.ID, opts.ActorID, events.EventPayload{
		"line_id":  a.LineID,
		"category": a.Category,
	}); err != nil {
		return domain.Action{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Action{}, err
	}
	return a, nil
}

// CloseAction resolves a corrective action. Closing twice is rejected.
func (e Engine) CloseAction(ctx context.Context, id, resolutionNotes, actorID string) (domain.Action, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Action{}, err
	}
	defer tx.Rollback()

	a, err := e.Repo.GetActionTx(ctx, tx, id)
	if err != nil {
		return domain.Action{}, err
	}
	if a.Status == "closed" {
		return domain.Action{}, fmt.Errorf("%w: action %s is already closed", ErrInvalidTransition, id)
	}
	notes := optionalString(resolutionNotes)
	if err := e.Repo.CloseAction(ctx, tx, id, notes); err != nil {
		return domain.Action{}, err
	}
	if err := e.Events.Append(ctx, tx, "action.closed", "action", id, actorID, events.EventPayload{}); err != nil {
		return domain.Action{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Action{}, err
	}
	a.Status = "closed"
	a.ResolutionNotes = notes
	return a, nil
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopfloor/internal/domain"
	"shopfloor/internal/events"
	"shopfloor/internal/repo"
)

// StartDowntimeOptions are parameters for reporting a stoppage.
type StartDowntimeOptions struct {
	MachineID   string
	ReasonID    string
	WorkOrderID string
	OperatorID  string
	StartTime   string
	Notes       string
	ActorID     string
}

// StartDowntime opens a downtime event for a machine. A machine with an
// open event rejects a second start; the partial unique index backs the
// in-transaction check so concurrent starts cannot both commit.
func (e Engine) StartDowntime(ctx context.Context, opts StartDowntimeOptions) (domain.DowntimeEvent, error) {
	start, err := e.parseTS(opts.StartTime)
	if err != nil {
		return domain.DowntimeEvent{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DowntimeEvent{}, err
	}
	defer tx.Rollback()

	m, err := e.Repo.GetMachineTx(ctx, tx, opts.MachineID)
	if err != nil {
		return domain.DowntimeEvent{}, fmt.Errorf("machine %s: %w", opts.MachineID, err)
	}
	rs, err := e.Repo.GetReasonTx(ctx, tx, opts.ReasonID)
	if err != nil {
		return domain.DowntimeEvent{}, fmt.Errorf("reason %s: %w", opts.ReasonID, err)
	}
	if rs.Kind != "downtime" {
		return domain.DowntimeEvent{}, fmt.Errorf("%w: reason %s is a %s reason", ErrValidation, rs.Code, rs.Kind)
	}
	if active, err := e.Repo.ActiveDowntimeForMachineTx(ctx, tx, m.ID); err == nil {
		return domain.DowntimeEvent{}, fmt.Errorf("%w: machine %s already down since %s", ErrInvalidTransition, m.Name, active.StartTime)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.DowntimeEvent{}, err
	}

	d := domain.DowntimeEvent{
		ID:          newID(),
		MachineID:   m.ID,
		LineID:      m.LineID,
		WorkOrderID: optionalString(opts.WorkOrderID),
		OperatorID:  optionalString(opts.OperatorID),
		ReasonID:    rs.ID,
		StartTime:   start.Format(time.RFC3339),
		Notes:       opts.Notes,
	}
	if err := e.Repo.InsertDowntime(ctx, tx, d); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return domain.DowntimeEvent{}, fmt.Errorf("%w: machine %s already down", ErrInvalidTransition, m.Name)
		}
		return domain.DowntimeEvent{}, fmt.Errorf("insert downtime: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "downtime.started", "downtime", d.ID, opts.ActorID, events.EventPayload{
		"machine_id": d.MachineID,
		"reason_id":  d.ReasonID,
		"start_time": d.StartTime,
	}); err != nil {
		return domain.DowntimeEvent{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DowntimeEvent{}, err
	}
	return d, nil
}

// AcknowledgeDowntime records a technician claiming an open stoppage.
// Repeated acknowledgements are allowed; the latest technician and time
// win. A closed event rejects acknowledgement.
func (e Engine) AcknowledgeDowntime(ctx context.Context, id, technicianID, actorID string) (domain.DowntimeEvent, error) {
	if technicianID == "" {
		return domain.DowntimeEvent{}, fmt.Errorf("%w: technician is required", ErrValidation)
	}
	if _, err := e.Repo.GetOperator(ctx, technicianID); err != nil {
		return domain.DowntimeEvent{}, fmt.Errorf("technician %s: %w", technicianID, err)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DowntimeEvent{}, err
	}
	defer tx.Rollback()

	d, err := e.Repo.GetDowntimeTx(ctx, tx, id)
	if err != nil {
		return domain.DowntimeEvent{}, err
	}
	if d.Closed() {
		return domain.DowntimeEvent{}, fmt.Errorf("%w: downtime %s is closed", ErrInvalidTransition, id)
	}
	ackAt := e.nowRFC3339()
	if err := e.Repo.AcknowledgeDowntime(ctx, tx, id, technicianID, ackAt); err != nil {
		return domain.DowntimeEvent{}, err
	}
	if err := e.Events.Append(ctx, tx, "downtime.acknowledged", "downtime", id, actorID, events.EventPayload{
		"technician_id": technicianID,
	}); err != nil {
		return domain.DowntimeEvent{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DowntimeEvent{}, err
	}
	d.TechnicianID = &technicianID
	d.AcknowledgedAt = &ackAt
	return d, nil
}

// CloseDowntime ends a stoppage without resolution notes.
func (e Engine) CloseDowntime(ctx context.Context, id, endTime, actorID string) (domain.DowntimeEvent, error) {
	return e.closeDowntime(ctx, id, endTime, nil, actorID, "downtime.closed")
}

// ResolveDowntime ends a stoppage with the technician's resolution notes.
// Close and resolve are the two terminal paths; an event takes exactly one.
func (e Engine) ResolveDowntime(ctx context.Context, id, endTime, resolutionNotes, actorID string) (domain.DowntimeEvent, error) {
	if resolutionNotes == "" {
		return domain.DowntimeEvent{}, fmt.Errorf("%w: resolution notes are required", ErrValidation)
	}
	return e.closeDowntime(ctx, id, endTime, &resolutionNotes, actorID, "downtime.resolved")
}

func (e Engine) closeDowntime(ctx context.Context, id, endTime string, resolutionNotes *string, actorID, evtType string) (domain.DowntimeEvent, error) {
	end, err := e.parseTS(endTime)
	if err != nil {
		return domain.DowntimeEvent{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DowntimeEvent{}, err
	}
	defer tx.Rollback()

	d, err := e.Repo.GetDowntimeTx(ctx, tx, id)
	if err != nil {
		return domain.DowntimeEvent{}, err
	}
	if d.Closed() {
		return domain.DowntimeEvent{}, fmt.Errorf("%w: downtime %s is already closed", ErrInvalidTransition, id)
	}
	start, err := time.Parse(time.RFC3339, d.StartTime)
	if err != nil {
		return domain.DowntimeEvent{}, fmt.Errorf("stored start_time: %w", err)
	}
	if end.Before(start) {
		return domain.DowntimeEvent{}, fmt.Errorf("%w: end %s precedes start %s", ErrValidation, end.Format(time.RFC3339), d.StartTime)
	}
	// Duration is frozen here and never recomputed from the interval.
	minutes := end.Sub(start).Minutes()
	endStr := end.Format(time.RFC3339)
	if err := e.Repo.CloseDowntime(ctx, tx, id, endStr, minutes, resolutionNotes); err != nil {
		return domain.DowntimeEvent{}, err
	}
	payload := events.EventPayload{"end_time": endStr, "duration_minutes": minutes}
	if resolutionNotes != nil {
		payload["resolution_notes"] = *resolutionNotes
	}
	if err := e.Events.Append(ctx, tx, evtType, "downtime", id, actorID, payload); err != nil {
		return domain.DowntimeEvent{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DowntimeEvent{}, err
	}
	d.EndTime = &endStr
	d.DurationMinutes = &minutes
	d.ResolutionNotes = resolutionNotes
	return d, nil
}

// ActiveDowntime lists open events, optionally scoped to one line.
func (e Engine) ActiveDowntime(ctx context.Context, lineID string) ([]domain.DowntimeEvent, error) {
	return e.Repo.ListActiveDowntime(ctx, lineID)
}

// ActiveDowntimeForMachine returns the machine's single open event, or
// ErrNotFound when the machine is running.
func (e Engine) ActiveDowntimeForMachine(ctx context.Context, machineID string) (domain.DowntimeEvent, error) {
	if _, err := e.Repo.GetMachine(ctx, machineID); err != nil {
		return domain.DowntimeEvent{}, fmt.Errorf("machine %s: %w", machineID, err)
	}
	return e.Repo.ActiveDowntimeForMachine(ctx, machineID)
}

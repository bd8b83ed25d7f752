package repo

import (
	"context"
	"database/sql"

	"shopfloor/internal/domain"
)

const downtimeColumns = `id,machine_id,line_id,work_order_id,operator_id,reason_id,start_time,end_time,duration_minutes,notes,technician_id,acknowledged_at,resolution_notes`

func scanDowntime(scan func(dest ...any) error) (domain.DowntimeEvent, error) {
	var e domain.DowntimeEvent
	var workOrderID, operatorID, endTime, technicianID, acknowledgedAt, resolutionNotes, notes sql.NullString
	var duration sql.NullFloat64
	err := scan(&e.ID, &e.MachineID, &e.LineID, &workOrderID, &operatorID, &e.ReasonID,
		&e.StartTime, &endTime, &duration, &notes, &technicianID, &acknowledgedAt, &resolutionNotes)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if workOrderID.Valid {
		e.WorkOrderID = &workOrderID.String
	}
	if operatorID.Valid {
		e.OperatorID = &operatorID.String
	}
	if endTime.Valid {
		e.EndTime = &endTime.String
	}
	if duration.Valid {
		e.DurationMinutes = &duration.Float64
	}
	if notes.Valid {
		e.Notes = notes.String
	}
	if technicianID.Valid {
		e.TechnicianID = &technicianID.String
	}
	if acknowledgedAt.Valid {
		e.AcknowledgedAt = &acknowledgedAt.String
	}
	if resolutionNotes.Valid {
		e.ResolutionNotes = &resolutionNotes.String
	}
	return e, nil
}

func (r Repo) InsertDowntime(ctx context.Context, tx *sql.Tx, e domain.DowntimeEvent) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO downtime_events(`+downtimeColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.MachineID, e.LineID, nullableStringPtr(e.WorkOrderID), nullableStringPtr(e.OperatorID), e.ReasonID,
		e.StartTime, nullableStringPtr(e.EndTime), nullableFloatPtr(e.DurationMinutes), nullable(e.Notes),
		nullableStringPtr(e.TechnicianID), nullableStringPtr(e.AcknowledgedAt), nullableStringPtr(e.ResolutionNotes))
	return err
}

func (r Repo) GetDowntime(ctx context.Context, id string) (domain.DowntimeEvent, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+downtimeColumns+` FROM downtime_events WHERE id=?`, id)
	return scanDowntime(row.Scan)
}

func (r Repo) GetDowntimeTx(ctx context.Context, tx *sql.Tx, id string) (domain.DowntimeEvent, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+downtimeColumns+` FROM downtime_events WHERE id=?`, id)
	return scanDowntime(row.Scan)
}

// ActiveDowntimeForMachine finds the machine's open event. The partial
// unique index guarantees at most one row qualifies.
func (r Repo) ActiveDowntimeForMachine(ctx context.Context, machineID string) (domain.DowntimeEvent, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+downtimeColumns+` FROM downtime_events WHERE machine_id=? AND end_time IS NULL`, machineID)
	return scanDowntime(row.Scan)
}

func (r Repo) ActiveDowntimeForMachineTx(ctx context.Context, tx *sql.Tx, machineID string) (domain.DowntimeEvent, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+downtimeColumns+` FROM downtime_events WHERE machine_id=? AND end_time IS NULL`, machineID)
	return scanDowntime(row.Scan)
}

// ListActiveDowntime returns all open events, optionally for one line.
func (r Repo) ListActiveDowntime(ctx context.Context, lineID string) ([]domain.DowntimeEvent, error) {
	query := `SELECT ` + downtimeColumns + ` FROM downtime_events WHERE end_time IS NULL`
	var args []any
	if lineID != "" {
		query += ` AND line_id=?`
		args = append(args, lineID)
	}
	query += ` ORDER BY start_time`
	return r.queryDowntime(ctx, query, args...)
}

// DowntimeIntersecting returns events whose span may overlap the half-open
// interval [start,end): started before the end and not ended at or before
// the start. Open events always pass the end-side test.
func (r Repo) DowntimeIntersecting(ctx context.Context, start, end string) ([]domain.DowntimeEvent, error) {
	query := `SELECT ` + downtimeColumns + ` FROM downtime_events
WHERE start_time < ? AND (end_time IS NULL OR end_time > ?) ORDER BY start_time`
	return r.queryDowntime(ctx, query, end, start)
}

func (r Repo) RecentDowntime(ctx context.Context, limit int) ([]domain.DowntimeEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + downtimeColumns + ` FROM downtime_events ORDER BY start_time DESC, id DESC LIMIT ?`
	return r.queryDowntime(ctx, query, limit)
}

func (r Repo) queryDowntime(ctx context.Context, query string, args ...any) ([]domain.DowntimeEvent, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DowntimeEvent
	for rows.Next() {
		e, err := scanDowntime(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) AcknowledgeDowntime(ctx context.Context, tx *sql.Tx, id, technicianID, acknowledgedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE downtime_events SET technician_id=?, acknowledged_at=? WHERE id=?`,
		technicianID, acknowledgedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CloseDowntime stamps the end time and frozen duration. Resolution notes
// stay NULL on the plain close path.
func (r Repo) CloseDowntime(ctx context.Context, tx *sql.Tx, id, endTime string, durationMinutes float64, resolutionNotes *string) error {
	res, err := tx.ExecContext(ctx, `UPDATE downtime_events SET end_time=?, duration_minutes=?, resolution_notes=? WHERE id=?`,
		endTime, durationMinutes, nullableStringPtr(resolutionNotes), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

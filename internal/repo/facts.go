package repo

import (
	"context"
	"database/sql"

	"shopfloor/internal/domain"
)

func (r Repo) InsertQualityEvent(ctx context.Context, tx *sql.Tx, q domain.QualityEvent) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO quality_events(id,machine_id,line_id,work_order_id,operator_id,reason_id,quantity,ts,notes) VALUES (?,?,?,?,?,?,?,?,?)`,
		q.ID, q.MachineID, q.LineID, nullableStringPtr(q.WorkOrderID), nullableStringPtr(q.OperatorID), q.ReasonID,
		q.Quantity, q.Timestamp, nullable(q.Notes))
	return err
}

// QualityEventsBetween returns scrap facts with ts in [start,end).
func (r Repo) QualityEventsBetween(ctx context.Context, start, end string) ([]domain.QualityEvent, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,machine_id,line_id,work_order_id,operator_id,reason_id,quantity,ts,notes
FROM quality_events WHERE ts >= ? AND ts < ? ORDER BY ts`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.QualityEvent
	for rows.Next() {
		var q domain.QualityEvent
		var workOrderID, operatorID, notes sql.NullString
		if err := rows.Scan(&q.ID, &q.MachineID, &q.LineID, &workOrderID, &operatorID, &q.ReasonID, &q.Quantity, &q.Timestamp, &notes); err != nil {
			return nil, err
		}
		if workOrderID.Valid {
			q.WorkOrderID = &workOrderID.String
		}
		if operatorID.Valid {
			q.OperatorID = &operatorID.String
		}
		if notes.Valid {
			q.Notes = notes.String
		}
		res = append(res, q)
	}
	return res, rows.Err()
}

func (r Repo) InsertProductionCount(ctx context.Context, tx *sql.Tx, p domain.ProductionCount) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO production_counts(id,machine_id,line_id,work_order_id,operator_id,good_quantity,scrap_quantity,ts) VALUES (?,?,?,?,?,?,?,?)`,
		p.ID, p.MachineID, p.LineID, nullableStringPtr(p.WorkOrderID), nullableStringPtr(p.OperatorID),
		p.GoodQuantity, p.ScrapQuantity, p.Timestamp)
	return err
}

// ProductionCountsBetween returns output facts with ts in [start,end).
func (r Repo) ProductionCountsBetween(ctx context.Context, start, end string) ([]domain.ProductionCount, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,machine_id,line_id,work_order_id,operator_id,good_quantity,scrap_quantity,ts
FROM production_counts WHERE ts >= ? AND ts < ? ORDER BY ts`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ProductionCount
	for rows.Next() {
		var p domain.ProductionCount
		var workOrderID, operatorID sql.NullString
		if err := rows.Scan(&p.ID, &p.MachineID, &p.LineID, &workOrderID, &operatorID, &p.GoodQuantity, &p.ScrapQuantity, &p.Timestamp); err != nil {
			return nil, err
		}
		if workOrderID.Valid {
			p.WorkOrderID = &workOrderID.String
		}
		if operatorID.Valid {
			p.OperatorID = &operatorID.String
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) InsertSafetyIncident(ctx context.Context, tx *sql.Tx, s domain.SafetyIncident) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO safety_incidents(id,line_id,date,description) VALUES (?,?,?,?)`,
		s.ID, s.LineID, s.Date, s.Description)
	return err
}

// SafetyIncidentsBetween returns incidents whose calendar day falls in
// [firstDay,lastDay], both inclusive, as YYYY-MM-DD strings.
func (r Repo) SafetyIncidentsBetween(ctx context.Context, firstDay, lastDay string) ([]domain.SafetyIncident, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,line_id,date,description FROM safety_incidents
WHERE date >= ? AND date <= ? ORDER BY date`, firstDay, lastDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SafetyIncident
	for rows.Next() {
		var s domain.SafetyIncident
		if err := rows.Scan(&s.ID, &s.LineID, &s.Date, &s.Description); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

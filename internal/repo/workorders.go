package repo

import (
	"context"
	"database/sql"

	"shopfloor/internal/domain"
)

const workOrderColumns = `id,number,part_number,target_quantity,due_date,line_id,status,started_at,completed_at`

func scanWorkOrder(scan func(dest ...any) error) (domain.WorkOrder, error) {
	var w domain.WorkOrder
	var partNumber, dueDate, startedAt, completedAt sql.NullString
	err := scan(&w.ID, &w.Number, &partNumber, &w.TargetQuantity, &dueDate, &w.LineID, &w.Status, &startedAt, &completedAt)
	if err == sql.ErrNoRows {
		return w, ErrNotFound
	}
	if err != nil {
		return w, err
	}
	if partNumber.Valid {
		w.PartNumber = partNumber.String
	}
	if dueDate.Valid {
		w.DueDate = dueDate.String
	}
	if startedAt.Valid {
		w.StartedAt = &startedAt.String
	}
	if completedAt.Valid {
		w.CompletedAt = &completedAt.String
	}
	return w, nil
}

func (r Repo) InsertWorkOrder(ctx context.Context, tx *sql.Tx, w domain.WorkOrder) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO work_orders(`+workOrderColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		w.ID, w.Number, nullable(w.PartNumber), w.TargetQuantity, nullable(w.DueDate), w.LineID, w.Status,
		nullableStringPtr(w.StartedAt), nullableStringPtr(w.CompletedAt))
	return err
}

func (r Repo) GetWorkOrder(ctx context.Context, id string) (domain.WorkOrder, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE id=?`, id)
	return scanWorkOrder(row.Scan)
}

func (r Repo) GetWorkOrderTx(ctx context.Context, tx *sql.Tx, id string) (domain.WorkOrder, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE id=?`, id)
	return scanWorkOrder(row.Scan)
}

func (r Repo) ListWorkOrders(ctx context.Context, lineID, status string) ([]domain.WorkOrder, error) {
	query := `SELECT ` + workOrderColumns + ` FROM work_orders WHERE 1=1`
	var args []any
	if lineID != "" {
		query += ` AND line_id=?`
		args = append(args, lineID)
	}
	if status != "" {
		query += ` AND status=?`
		args = append(args, status)
	}
	query += ` ORDER BY number`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkOrder
	for rows.Next() {
		w, err := scanWorkOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, rows.Err()
}

func (r Repo) UpdateWorkOrderStatus(ctx context.Context, tx *sql.Tx, id, status string, startedAt, completedAt *string) error {
	res, err := tx.ExecContext(ctx, `UPDATE work_orders SET status=?,
started_at=COALESCE(?, started_at), completed_at=COALESCE(?, completed_at) WHERE id=?`,
		status, nullableStringPtr(startedAt), nullableStringPtr(completedAt), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

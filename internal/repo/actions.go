package repo

import (
	"context"
	"database/sql"

	"shopfloor/internal/domain"
)

const actionColumns = `id,ts,line_id,category,description,assignee_id,status,resolution_notes`

func scanAction(scan func(dest ...any) error) (domain.Action, error) {
	var a domain.Action
	var assigneeID, resolutionNotes sql.NullString
	err := scan(&a.ID, &a.Timestamp, &a.LineID, &a.Category, &a.Description, &assigneeID, &a.Status, &resolutionNotes)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if assigneeID.Valid {
		a.AssigneeID = &assigneeID.String
	}
	if resolutionNotes.Valid {
		a.ResolutionNotes = &resolutionNotes.String
	}
	return a, nil
}

func (r Repo) InsertAction(ctx context.Context, tx *sql.Tx, a domain.Action) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO actions(`+actionColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		a.ID, a.Timestamp, a.LineID, a.Category, a.Description, nullableStringPtr(a.AssigneeID), a.Status,
		nullableStringPtr(a.ResolutionNotes))
	return err
}

func (r Repo) GetAction(ctx context.Context, id string) (domain.Action, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM actions WHERE id=?`, id)
	return scanAction(row.Scan)
}

func (r Repo) GetActionTx(ctx context.Context, tx *sql.Tx, id string) (domain.Action, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM actions WHERE id=?`, id)
	return scanAction(row.Scan)
}

func (r Repo) ListActions(ctx context.Context, lineID, status string) ([]domain.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE 1=1`
	var args []any
	if lineID != "" {
		query += ` AND line_id=?`
		args = append(args, lineID)
	}
	if status != "" {
		query += ` AND status=?`
		args = append(args, status)
	}
	query += ` ORDER BY ts DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Action
	for rows.Next() {
		a, err := scanAction(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) CloseAction(ctx context.Context, tx *sql.Tx, id string, resolutionNotes *string) error {
	res, err := tx.ExecContext(ctx, `UPDATE actions SET status='closed', resolution_notes=? WHERE id=?`,
		nullableStringPtr(resolutionNotes), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

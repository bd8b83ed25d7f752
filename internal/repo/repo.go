package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"shopfloor/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) InsertLine(ctx context.Context, tx *sql.Tx, l domain.Line) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO lines(id,name,description,created_at) VALUES (?,?,?,?)`,
		l.ID, l.Name, nullable(l.Description), l.CreatedAt)
	return err
}

func (r Repo) GetLine(ctx context.Context, id string) (domain.Line, error) {
	var l domain.Line
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,COALESCE(description,''),created_at FROM lines WHERE id=?`, id).
		Scan(&l.ID, &l.Name, &l.Description, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	return l, err
}

// GetLineByName resolves a line by its unique name, for CLI convenience.
func (r Repo) GetLineByName(ctx context.Context, name string) (domain.Line, error) {
	var l domain.Line
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,COALESCE(description,''),created_at FROM lines WHERE name=?`, name).
		Scan(&l.ID, &l.Name, &l.Description, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	return l, err
}

func (r Repo) ListLines(ctx context.Context) ([]domain.Line, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,COALESCE(description,''),created_at FROM lines ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Line
	for rows.Next() {
		var l domain.Line
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

func (r Repo) InsertMachine(ctx context.Context, tx *sql.Tx, m domain.Machine) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO machines(id,line_id,name,description,created_at) VALUES (?,?,?,?,?)`,
		m.ID, m.LineID, m.Name, nullable(m.Description), m.CreatedAt)
	return err
}

func (r Repo) GetMachine(ctx context.Context, id string) (domain.Machine, error) {
	var m domain.Machine
	err := r.DB.QueryRowContext(ctx, `SELECT id,line_id,name,COALESCE(description,''),created_at FROM machines WHERE id=?`, id).
		Scan(&m.ID, &m.LineID, &m.Name, &m.Description, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	return m, err
}

func (r Repo) GetMachineTx(ctx context.Context, tx *sql.Tx, id string) (domain.Machine, error) {
	var m domain.Machine
	err := tx.QueryRowContext(ctx, `SELECT id,line_id,name,COALESCE(description,''),created_at FROM machines WHERE id=?`, id).
		Scan(&m.ID, &m.LineID, &m.Name, &m.Description, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	return m, err
}

func (r Repo) ListMachines(ctx context.Context, lineID string) ([]domain.Machine, error) {
	query := `SELECT id,line_id,name,COALESCE(description,''),created_at FROM machines`
	var args []any
	if lineID != "" {
		query += ` WHERE line_id=?`
		args = append(args, lineID)
	}
	query += ` ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Machine
	for rows.Next() {
		var m domain.Machine
		if err := rows.Scan(&m.ID, &m.LineID, &m.Name, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r Repo) InsertOperator(ctx context.Context, tx *sql.Tx, o domain.Operator) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO operators(id,name,badge_id,created_at) VALUES (?,?,?,?)`,
		o.ID, o.Name, nullable(o.BadgeID), o.CreatedAt)
	return err
}

func (r Repo) GetOperator(ctx context.Context, id string) (domain.Operator, error) {
	var o domain.Operator
	var badge sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,badge_id,created_at FROM operators WHERE id=?`, id).
		Scan(&o.ID, &o.Name, &badge, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	if badge.Valid {
		o.BadgeID = badge.String
	}
	return o, err
}

func (r Repo) ListOperators(ctx context.Context) ([]domain.Operator, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,badge_id,created_at FROM operators ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Operator
	for rows.Next() {
		var o domain.Operator
		var badge sql.NullString
		if err := rows.Scan(&o.ID, &o.Name, &badge, &o.CreatedAt); err != nil {
			return nil, err
		}
		if badge.Valid {
			o.BadgeID = badge.String
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func (r Repo) InsertReason(ctx context.Context, tx *sql.Tx, rs domain.Reason) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO reasons(id,kind,code,description,category) VALUES (?,?,?,?,?)`,
		rs.ID, rs.Kind, rs.Code, rs.Description, nullable(rs.Category))
	return err
}

func (r Repo) GetReason(ctx context.Context, id string) (domain.Reason, error) {
	var rs domain.Reason
	var cat sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,kind,code,description,category FROM reasons WHERE id=?`, id).
		Scan(&rs.ID, &rs.Kind, &rs.Code, &rs.Description, &cat)
	if err == sql.ErrNoRows {
		return rs, ErrNotFound
	}
	if cat.Valid {
		rs.Category = cat.String
	}
	return rs, err
}

func (r Repo) GetReasonTx(ctx context.Context, tx *sql.Tx, id string) (domain.Reason, error) {
	var rs domain.Reason
	var cat sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT id,kind,code,description,category FROM reasons WHERE id=?`, id).
		Scan(&rs.ID, &rs.Kind, &rs.Code, &rs.Description, &cat)
	if err == sql.ErrNoRows {
		return rs, ErrNotFound
	}
	if cat.Valid {
		rs.Category = cat.String
	}
	return rs, err
}

func (r Repo) ListReasons(ctx context.Context, kind string) ([]domain.Reason, error) {
	query := `SELECT id,kind,code,description,category FROM reasons`
	var args []any
	if kind != "" {
		query += ` WHERE kind=?`
		args = append(args, kind)
	}
	query += ` ORDER BY kind, code`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Reason
	for rows.Next() {
		var rs domain.Reason
		var cat sql.NullString
		if err := rows.Scan(&rs.ID, &rs.Kind, &rs.Code, &rs.Description, &cat); err != nil {
			return nil, err
		}
		if cat.Valid {
			rs.Category = cat.String
		}
		res = append(res, rs)
	}
	return res, rows.Err()
}

func (r Repo) UpsertTarget(ctx context.Context, tx *sql.Tx, t domain.Target) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO targets(line_id,metric,value,updated_at) VALUES (?,?,?,?)
ON CONFLICT(line_id,metric) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		t.LineID, t.Metric, t.Value, t.UpdatedAt)
	return err
}

// TargetsForLine returns the stored targets keyed by metric name. Metrics
// without a stored row are absent; callers apply defaults.
func (r Repo) TargetsForLine(ctx context.Context, lineID string) (map[string]domain.Target, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT line_id,metric,value,updated_at FROM targets WHERE line_id=?`, lineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]domain.Target{}
	for rows.Next() {
		var t domain.Target
		if err := rows.Scan(&t.LineID, &t.Metric, &t.Value, &t.UpdatedAt); err != nil {
			return nil, err
		}
		res[t.Metric] = t
	}
	return res, rows.Err()
}

func (r Repo) ListTargets(ctx context.Context, lineID string) ([]domain.Target, error) {
	query := `SELECT line_id,metric,value,updated_at FROM targets`
	var args []any
	if lineID != "" {
		query += ` WHERE line_id=?`
		args = append(args, lineID)
	}
	query += ` ORDER BY line_id, metric`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Target
	for rows.Next() {
		var t domain.Target
		if err := rows.Scan(&t.LineID, &t.Metric, &t.Value, &t.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// LatestEvents returns the newest audit-log rows, optionally filtered.
func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var entity sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entity, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		if entity.Valid {
			e.EntityID = entity.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

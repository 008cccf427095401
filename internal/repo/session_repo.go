package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/readiness/internal/model"
	"github.com/xxxsen/readiness/internal/pkg/dbutil"
	appErr "github.com/xxxsen/readiness/internal/pkg/errors"
)

const sessionTable = "assessment_sessions"

// SessionRepo stores the whole session as a JSON payload next to the few
// columns eviction filters on.
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	data := map[string]interface{}{
		"id":                s.ID,
		"organisation_name": s.OrganisationName,
		"status":            string(s.Status),
		"progress_pct":      s.ProgressPct,
		"payload":           string(payload),
		"ctime":             s.Ctime,
		"mtime":             s.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert(sessionTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *SessionRepo) Update(ctx context.Context, s *model.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	where := map[string]interface{}{"id": s.ID}
	update := map[string]interface{}{
		"status":       string(s.Status),
		"progress_pct": s.ProgressPct,
		"payload":      string(payload),
		"mtime":        s.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate(sessionTable, where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	sqlStr, args, err := builder.BuildSelect(sessionTable, map[string]interface{}{"id": id}, []string{"payload"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var payload string
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	var s model.Session
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	sqlStr, args, err := builder.BuildDelete(sessionTable, map[string]interface{}{"id": id})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// ListIDsBefore returns the ids of sessions in one of the given statuses that
// were last modified before cutoff.
func (r *SessionRepo) ListIDsBefore(ctx context.Context, statuses []model.Status, cutoff int64, limit uint) ([]string, error) {
	in := make([]interface{}, 0, len(statuses))
	for _, st := range statuses {
		in = append(in, string(st))
	}
	where := map[string]interface{}{
		"status in": in,
		"mtime <":   cutoff,
		"_orderby":  "mtime asc",
		"_limit":    []uint{0, limit},
	}
	sqlStr, args, err := builder.BuildSelect(sessionTable, where, []string{"id"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SessionRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+sessionTable).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

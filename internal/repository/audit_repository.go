package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
)

// AuditRepo appends immutable audit rows. Writes are best-effort at the
// call site; a failed audit insert is logged by the caller and never
// fails the request it describes.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo returns a new AuditRepo bound to the given database.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// Insert appends one audit row.
func (r *AuditRepo) Insert(ctx context.Context, a *model.AuditLog) error {
	const q = `INSERT INTO audit_logs (user_id, service, action, resource_type, resource_id, success, error_message, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		a.UserID, a.Service, a.Action, a.ResourceType, a.ResourceID, a.Success, a.ErrorMessage, a.IPAddress, a.UserAgent)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// AuditFilter narrows List results for the auditor view.
type AuditFilter struct {
	UserID  uint64
	Service string
	Action  string
	Limit   int
	Offset  int
}

// List returns audit rows matching the filter, newest first.
func (r *AuditRepo) List(ctx context.Context, f AuditFilter) ([]model.AuditLog, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Service != "" {
		where = append(where, "service = ?")
		args = append(args, f.Service)
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, f.Action)
	}

	q := `SELECT id, user_id, service, action, resource_type, resource_id, success, error_message, ip_address, user_agent, created_at FROM audit_logs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuditLog
	for rows.Next() {
		var (
			a          model.AuditLog
			userID     sql.NullInt64
			resourceID sql.NullInt64
			errMsg     sql.NullString
		)
		if err := rows.Scan(&a.ID, &userID, &a.Service, &a.Action, &a.ResourceType, &resourceID,
			&a.Success, &errMsg, &a.IPAddress, &a.UserAgent, &a.CreatedAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			v := uint64(userID.Int64)
			a.UserID = &v
		}
		if resourceID.Valid {
			v := uint64(resourceID.Int64)
			a.ResourceID = &v
		}
		if errMsg.Valid {
			v := errMsg.String
			a.ErrorMessage = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
	"github.com/ahmadyateem/meeting-room-reservation/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var (
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")
)

const userColumns = "id,username,email,password_hash,full_name,role,is_active,last_login,failed_login_attempts,locked_until,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u           model.User
		lastLogin   sql.NullTime
		lockedUntil sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.IsActive,
		&lastLogin, &u.FailedLoginAttempts, &lockedUntil, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time
		u.LockedUntil = &t
	}
	return u, nil
}

// Create inserts a user and returns its ID. Username and email are both
// unique; a duplicate-key failure is mapped to the offending column.
func (r *UserRepo) Create(ctx context.Context, username, email, password, fullName, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, full_name, role) VALUES (?,?,?,?,?)",
		username, email, hash, fullName, role)
	if err != nil {
		if msg := strings.ToLower(err.Error()); strings.Contains(msg, "1062") {
			if strings.Contains(msg, "username") {
				return 0, ErrUsernameExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// RecordFailedLogin increments the failure counter and, once maxAttempts is
// reached, locks the account until now+lockFor. Returns the new counter value.
func (r *UserRepo) RecordFailedLogin(ctx context.Context, id uint64, maxAttempts int, lockFor time.Duration) (int, error) {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET failed_login_attempts = failed_login_attempts + 1 WHERE id=?", id)
	if err != nil {
		return 0, err
	}
	var attempts int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT failed_login_attempts FROM users WHERE id=?", id).Scan(&attempts); err != nil {
		return 0, err
	}
	if attempts >= maxAttempts {
		until := time.Now().UTC().Add(lockFor)
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE users SET locked_until=? WHERE id=?", until, id); err != nil {
			return attempts, err
		}
	}
	return attempts, nil
}

// RecordLogin stamps last_login and clears the failure counter and any
// lock after a successful authentication.
func (r *UserRepo) RecordLogin(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_login=?, failed_login_attempts=0, locked_until=NULL WHERE id=?", at, id)
	return err
}

// UpdateProfile updates the mutable profile fields of a user.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, fullName string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET full_name=? WHERE id=?", fullName, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a page of users ordered by id. Admin-only callers.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var (
			u           model.User
			lastLogin   sql.NullTime
			lockedUntil sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.IsActive,
			&lastLogin, &u.FailedLoginAttempts, &lockedUntil, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if lastLogin.Valid {
			t := lastLogin.Time
			u.LastLogin = &t
		}
		if lockedUntil.Valid {
			t := lockedUntil.Time
			u.LockedUntil = &t
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Deactivate soft-disables a user account. Their history is preserved.
func (r *UserRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=0 WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

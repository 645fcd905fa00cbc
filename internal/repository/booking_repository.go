package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ahmadyateem/meeting-room-reservation/internal/booking"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
)

// BookingRepo is the MySQL implementation of booking.Store. Admission
// is serialized per room: the transaction takes a FOR UPDATE lock on
// the room row before running the conflict query and inserting, so two
// concurrent admissions for the same room execute one after the other
// and at most one can win an overlapping window. All timestamps are
// stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

var _ booking.Store = (*BookingRepo)(nil)

const bookingColumns = `id, user_id, room_id, title, description, start_time, end_time, status,
	attendees, is_recurring, recurrence_pattern, recurrence_end_date,
	cancellation_reason, cancelled_at, cancelled_by, created_at, updated_at`

func scanBooking(scan func(dest ...any) error) (model.Booking, error) {
	var (
		b          model.Booking
		attendees  sql.NullInt64
		pattern    sql.NullString
		recurEnd   sql.NullTime
		cancReason sql.NullString
		cancAt     sql.NullTime
		cancBy     sql.NullInt64
	)
	err := scan(&b.ID, &b.UserID, &b.RoomID, &b.Title, &b.Description, &b.StartTime, &b.EndTime, &b.Status,
		&attendees, &b.IsRecurring, &pattern, &recurEnd,
		&cancReason, &cancAt, &cancBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return b, err
	}
	if attendees.Valid {
		a := int(attendees.Int64)
		b.Attendees = &a
	}
	if pattern.Valid {
		p := pattern.String
		b.RecurrencePattern = &p
	}
	if recurEnd.Valid {
		t := recurEnd.Time
		b.RecurrenceEndDate = &t
	}
	if cancReason.Valid {
		r := cancReason.String
		b.CancellationReason = &r
	}
	if cancAt.Valid {
		t := cancAt.Time
		b.CancelledAt = &t
	}
	if cancBy.Valid {
		u := uint64(cancBy.Int64)
		b.CancelledBy = &u
	}
	return b, nil
}

// retryable reports whether the error is a MySQL deadlock (1213) or
// lock wait timeout (1205), which a serialized admission may hit once
// under contention and can safely retry.
func retryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	return false
}

// Admit implements the at-most-one-winner admission protocol. The
// conflict query and the insert run inside one transaction that first
// locks the room row, so concurrent admissions for the same room are
// strictly ordered.
func (r *BookingRepo) Admit(ctx context.Context, b *model.Booking) (*model.Booking, error) {
	conflict, err := r.admitOnce(ctx, b, 0, b.StartTime, b.EndTime, true)
	if retryable(err) {
		conflict, err = r.admitOnce(ctx, b, 0, b.StartTime, b.EndTime, true)
	}
	return conflict, err
}

// Reschedule moves an existing booking under the same protocol,
// excluding the booking's own row from the conflict query.
func (r *BookingRepo) Reschedule(ctx context.Context, id uint64, start, end time.Time) (*model.Booking, error) {
	b := &model.Booking{ID: id}
	conflict, err := r.admitOnce(ctx, b, id, start, end, false)
	if retryable(err) {
		conflict, err = r.admitOnce(ctx, b, id, start, end, false)
	}
	return conflict, err
}

func (r *BookingRepo) admitOnce(ctx context.Context, b *model.Booking, excludeID uint64, start, end time.Time, insert bool) (_ *model.Booking, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Serialize admissions on this room. The room row acts as the
	// single-writer arbitration point across service instances.
	var roomID uint64
	if insert {
		roomID = b.RoomID
	} else {
		if err := tx.QueryRowContext(ctx, "SELECT room_id FROM bookings WHERE id=?", b.ID).Scan(&roomID); err != nil {
			if err == sql.ErrNoRows {
				return nil, booking.ErrNotFound
			}
			return nil, err
		}
	}
	var lockedID uint64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM rooms WHERE id=? FOR UPDATE", roomID).Scan(&lockedID); err != nil {
		if err == sql.ErrNoRows {
			return nil, booking.ErrNotFound
		}
		return nil, err
	}

	// Half-open overlap: existing.start < end AND existing.end > start.
	q := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE room_id=? AND status IN ('pending','confirmed')
		AND start_time < ? AND end_time > ?`
	args := []any{roomID, end, start}
	if excludeID != 0 {
		q += " AND id <> ?"
		args = append(args, excludeID)
	}
	q += " ORDER BY start_time LIMIT 1"
	row := tx.QueryRowContext(ctx, q, args...)
	conflict, err := scanBooking(row.Scan)
	if err == nil {
		return &conflict, nil // nothing written, tx rolls back
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	if insert {
		const ins = `INSERT INTO bookings (user_id, room_id, title, description, start_time, end_time, status,
			attendees, is_recurring, recurrence_pattern, recurrence_end_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		res, err := tx.ExecContext(ctx, ins,
			b.UserID, b.RoomID, b.Title, b.Description, b.StartTime, b.EndTime, b.Status,
			b.Attendees, b.IsRecurring, b.RecurrencePattern, b.RecurrenceEndDate)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		b.ID = uint64(id)
		// Query back timestamps populated by column defaults.
		sel := `SELECT created_at, updated_at FROM bookings WHERE id=?`
		if err := tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			"UPDATE bookings SET start_time=?, end_time=? WHERE id=?", start, end, b.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return nil, nil
}

// GetByID fetches a booking by id.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id=? LIMIT 1", id)
	b, err := scanBooking(row.Scan)
	if err == sql.ErrNoRows {
		return b, booking.ErrNotFound
	}
	return b, err
}

// ActiveByRoom returns pending/confirmed bookings of a room whose
// interval overlaps [from, to), ordered by start time.
func (r *BookingRepo) ActiveByRoom(ctx context.Context, roomID uint64, from, to time.Time) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
		WHERE room_id=? AND status IN ('pending','confirmed')
		AND start_time < ? AND end_time > ?
		ORDER BY start_time`
	rows, err := r.db.QueryContext(ctx, q, roomID, to, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

// List returns bookings matching the filter, newest first.
func (r *BookingRepo) List(ctx context.Context, f booking.Filter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.RoomID != 0 {
		where = append(where, "room_id = ?")
		args = append(args, f.RoomID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.ActiveOnly {
		where = append(where, "status IN ('pending','confirmed')")
	}
	if !f.From.IsZero() {
		where = append(where, "end_time > ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "start_time < ?")
		args = append(args, f.To)
	}

	q := "SELECT " + bookingColumns + " FROM bookings"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY start_time DESC"
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
	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateFields persists the scalar fields of an existing booking.
func (r *BookingRepo) UpdateFields(ctx context.Context, b *model.Booking) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE bookings SET title=?, description=?, attendees=? WHERE id=?",
		b.Title, b.Description, b.Attendees, b.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, b.ID); err != nil {
			return err
		}
	}
	return nil
}

// Cancel marks a booking cancelled and records the actor, reason and
// timestamp. The WHERE clause excludes already-cancelled rows so
// cancelled_at is written exactly once.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64, by uint64, reason *string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status='cancelled', cancellation_reason=?, cancelled_at=?, cancelled_by=?
		WHERE id=? AND status <> 'cancelled'`,
		reason, at, by, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrNotFound
	}
	return nil
}

// SetStatus updates the status field alone.
func (r *BookingRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE bookings SET status=? WHERE id=?", status, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SweepFinished closes out active bookings whose end time has passed:
// confirmed rows become completed and pending rows become no_show.
// Returns how many rows each pass touched.
func (r *BookingRepo) SweepFinished(ctx context.Context, now time.Time) (completed, noShow int64, err error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE bookings SET status='completed' WHERE status='confirmed' AND end_time <= ?", now)
	if err != nil {
		return 0, 0, err
	}
	completed, _ = res.RowsAffected()

	res, err = r.db.ExecContext(ctx,
		"UPDATE bookings SET status='no_show' WHERE status='pending' AND end_time <= ?", now)
	if err != nil {
		return completed, 0, err
	}
	noShow, _ = res.RowsAffected()
	return completed, noShow, nil
}

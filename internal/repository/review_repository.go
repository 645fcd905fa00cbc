package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
)

// ReviewRepo provides CRUD, moderation and vote operations for room
// reviews. A UNIQUE(user_id, booking_id) index enforces at most one
// review per booking per user; duplicate inserts map to
// ErrDuplicateReview.
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo returns a new ReviewRepo bound to the given database.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// ReviewFilter narrows List results.
type ReviewFilter struct {
	RoomID        uint64
	UserID        uint64
	FlaggedOnly   bool
	IncludeHidden bool   // moderators only
	MinRating     int
	Sort          string // newest, oldest, rating_high, rating_low, helpful
	Limit         int
	Offset        int
}

const reviewColumns = `id, user_id, room_id, booking_id, rating, title, comment, pros, cons,
	is_flagged, flag_reason, flagged_by, flagged_at, is_hidden, hidden_reason,
	helpful_count, unhelpful_count, edited_at, created_at, updated_at`

func scanReview(scan func(dest ...any) error) (model.Review, error) {
	var (
		rv           model.Review
		bookingID    sql.NullInt64
		title        sql.NullString
		comment      sql.NullString
		pros         sql.NullString
		cons         sql.NullString
		flagReason   sql.NullString
		flaggedBy    sql.NullInt64
		flaggedAt    sql.NullTime
		hiddenReason sql.NullString
		editedAt     sql.NullTime
	)
	err := scan(&rv.ID, &rv.UserID, &rv.RoomID, &bookingID, &rv.Rating, &title, &comment, &pros, &cons,
		&rv.IsFlagged, &flagReason, &flaggedBy, &flaggedAt, &rv.IsHidden, &hiddenReason,
		&rv.HelpfulCount, &rv.UnhelpfulCount, &editedAt, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return rv, err
	}
	if bookingID.Valid {
		v := uint64(bookingID.Int64)
		rv.BookingID = &v
	}
	if title.Valid {
		v := title.String
		rv.Title = &v
	}
	if comment.Valid {
		v := comment.String
		rv.Comment = &v
	}
	if pros.Valid {
		v := pros.String
		rv.Pros = &v
	}
	if cons.Valid {
		v := cons.String
		rv.Cons = &v
	}
	if flagReason.Valid {
		v := flagReason.String
		rv.FlagReason = &v
	}
	if flaggedBy.Valid {
		v := uint64(flaggedBy.Int64)
		rv.FlaggedBy = &v
	}
	if flaggedAt.Valid {
		v := flaggedAt.Time
		rv.FlaggedAt = &v
	}
	if hiddenReason.Valid {
		v := hiddenReason.String
		rv.HiddenReason = &v
	}
	if editedAt.Valid {
		v := editedAt.Time
		rv.EditedAt = &v
	}
	return rv, nil
}

// Create inserts a review and populates the generated ID.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	const q = `INSERT INTO reviews (user_id, room_id, booking_id, rating, title, comment, pros, cons)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		rv.UserID, rv.RoomID, rv.BookingID, rv.Rating, rv.Title, rv.Comment, rv.Pros, rv.Cons)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicateReview
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	got, err := r.GetByID(ctx, rv.ID)
	if err != nil {
		return err
	}
	*rv = got
	return nil
}

// GetByID fetches a review by id.
func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (model.Review, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE id=? LIMIT 1", id)
	rv, err := scanReview(row.Scan)
	if err == sql.ErrNoRows {
		return rv, ErrNotFound
	}
	return rv, err
}

// ExistsForBooking reports whether the user already reviewed the booking.
func (r *ReviewRepo) ExistsForBooking(ctx context.Context, userID, bookingID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reviews WHERE user_id=? AND booking_id=?", userID, bookingID).Scan(&n)
	return n > 0, err
}

// List returns reviews matching the filter. Hidden reviews are excluded
// unless IncludeHidden is set.
func (r *ReviewRepo) List(ctx context.Context, f ReviewFilter) ([]model.Review, error) {
	var (
		where []string
		args  []any
	)
	if f.RoomID != 0 {
		where = append(where, "room_id = ?")
		args = append(args, f.RoomID)
	}
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.FlaggedOnly {
		where = append(where, "is_flagged = 1")
	}
	if !f.IncludeHidden {
		where = append(where, "is_hidden = 0")
	}
	if f.MinRating > 0 {
		where = append(where, "rating >= ?")
		args = append(args, f.MinRating)
	}

	order := "created_at DESC"
	switch f.Sort {
	case "oldest":
		order = "created_at ASC"
	case "rating_high":
		order = "rating DESC"
	case "rating_low":
		order = "rating ASC"
	case "helpful":
		order = "helpful_count DESC"
	}
	if f.FlaggedOnly {
		order = "flagged_at DESC"
	}

	q := "SELECT " + reviewColumns + " FROM reviews"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + order
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	q += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		rv, err := scanReview(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// UpdateContent overwrites the author-editable fields and stamps edited_at.
func (r *ReviewRepo) UpdateContent(ctx context.Context, rv *model.Review) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"UPDATE reviews SET rating=?, title=?, comment=?, pros=?, cons=?, edited_at=? WHERE id=?",
		rv.Rating, rv.Title, rv.Comment, rv.Pros, rv.Cons, now, rv.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, rv.ID); err != nil {
			return err
		}
	}
	rv.EditedAt = &now
	return nil
}

// Delete removes a review permanently.
func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reviews WHERE id=?", id)
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

// Flag marks a review for moderation.
func (r *ReviewRepo) Flag(ctx context.Context, id, by uint64, reason string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE reviews SET is_flagged=1, flag_reason=?, flagged_by=?, flagged_at=? WHERE id=?",
		reason, by, time.Now().UTC(), id)
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

// Approve clears the flag and unhides the review.
func (r *ReviewRepo) Approve(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE reviews SET is_flagged=0, flag_reason=NULL, is_hidden=0, hidden_reason=NULL WHERE id=?", id)
	return err
}

// Hide makes the review invisible to non-moderators.
func (r *ReviewRepo) Hide(ctx context.Context, id uint64, reason string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE reviews SET is_hidden=1, hidden_reason=? WHERE id=?", reason, id)
	return err
}

// Vote increments the helpful or unhelpful counter.
func (r *ReviewRepo) Vote(ctx context.Context, id uint64, helpful bool) error {
	col := "unhelpful_count"
	if helpful {
		col = "helpful_count"
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE reviews SET "+col+" = "+col+" + 1 WHERE id=?", id)
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

// RoomSummary aggregates visible reviews of a room.
type RoomSummary struct {
	ReviewCount   int         `json:"review_count"`
	AverageRating float64     `json:"average_rating"`
	Distribution  map[int]int `json:"rating_distribution"`
}

// SummaryByRoom computes the count, average and per-star distribution
// of a room's visible reviews.
func (r *ReviewRepo) SummaryByRoom(ctx context.Context, roomID uint64) (RoomSummary, error) {
	s := RoomSummary{Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	rows, err := r.db.QueryContext(ctx,
		"SELECT rating, COUNT(*) FROM reviews WHERE room_id=? AND is_hidden=0 GROUP BY rating", roomID)
	if err != nil {
		return s, err
	}
	defer rows.Close()

	total := 0
	sum := 0
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return s, err
		}
		s.Distribution[rating] = count
		total += count
		sum += rating * count
	}
	if err := rows.Err(); err != nil {
		return s, err
	}
	s.ReviewCount = total
	if total > 0 {
		s.AverageRating = float64(sum) / float64(total)
	}
	return s, nil
}

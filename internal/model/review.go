package model

import "time"

// Review mirrors the `reviews` table. A review is tied to a room and,
// optionally, to a specific completed booking of that room; at most
// one review exists per (user, booking) pair. Moderation state
// (flagged, hidden) is orthogonal to the content fields and mutable
// only by moderators.
type Review struct {
	ID             uint64     // reviews.id
	UserID         uint64     // reviews.user_id
	RoomID         uint64     // reviews.room_id
	BookingID      *uint64    // reviews.booking_id (nullable)
	Rating         int        // reviews.rating, integer in [1,5]
	Title          *string    // reviews.title (nullable)
	Comment        *string    // reviews.comment (nullable)
	Pros           *string    // reviews.pros (nullable)
	Cons           *string    // reviews.cons (nullable)
	IsFlagged      bool       // reviews.is_flagged
	FlagReason     *string    // reviews.flag_reason (nullable)
	FlaggedBy      *uint64    // reviews.flagged_by (nullable)
	FlaggedAt      *time.Time // reviews.flagged_at (nullable)
	IsHidden       bool       // reviews.is_hidden
	HiddenReason   *string    // reviews.hidden_reason (nullable)
	HelpfulCount   int        // reviews.helpful_count
	UnhelpfulCount int        // reviews.unhelpful_count
	EditedAt       *time.Time // reviews.edited_at (nullable)
	CreatedAt      time.Time  // reviews.created_at
	UpdatedAt      time.Time  // reviews.updated_at
}

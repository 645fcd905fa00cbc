package model

import "time"

// Valid booking statuses. A booking is "active", and participates in
// conflict checks, while its status is pending or confirmed. The
// cancelled, completed and no_show states are terminal.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
	BookingNoShow    = "no_show"
)

// Valid recurrence patterns for recurring bookings.
const (
	RecurDaily   = "daily"
	RecurWeekly  = "weekly"
	RecurMonthly = "monthly"
)

// Booking records a user's reservation of a room for a half-open
// interval [StartTime, EndTime). Rows are never deleted by normal
// flow: cancellation flips the status and records the actor, reason
// and timestamp.
//
// Fields:
//  ID                – primary key identifier.
//  UserID            – user who made the booking.
//  RoomID            – booked room.
//  Title             – booking title/subject.
//  Description       – detailed description.
//  StartTime         – start of the interval, UTC.
//  EndTime           – end of the interval, UTC, strictly after StartTime.
//  Status            – one of the Booking* constants.
//  Attendees         – expected head count (nullable).
//  IsRecurring       – whether this booking repeats.
//  RecurrencePattern – daily/weekly/monthly when IsRecurring (nullable).
//  RecurrenceEndDate – last date of the recurrence (nullable). The series
//                      is metadata on this row only; occurrences are not
//                      materialized.
//  CancellationReason, CancelledAt, CancelledBy – cancellation audit trail.
type Booking struct {
	ID                 uint64     // bookings.id
	UserID             uint64     // bookings.user_id
	RoomID             uint64     // bookings.room_id
	Title              string     // bookings.title
	Description        string     // bookings.description
	StartTime          time.Time  // bookings.start_time
	EndTime            time.Time  // bookings.end_time
	Status             string     // bookings.status
	Attendees          *int       // bookings.attendees (nullable)
	IsRecurring        bool       // bookings.is_recurring
	RecurrencePattern  *string    // bookings.recurrence_pattern (nullable)
	RecurrenceEndDate  *time.Time // bookings.recurrence_end_date (nullable)
	CancellationReason *string    // bookings.cancellation_reason (nullable)
	CancelledAt        *time.Time // bookings.cancelled_at (nullable)
	CancelledBy        *uint64    // bookings.cancelled_by (nullable)
	CreatedAt          time.Time  // bookings.created_at
	UpdatedAt          time.Time  // bookings.updated_at
}

// IsActive reports whether the booking participates in conflict checks.
func (b *Booking) IsActive() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

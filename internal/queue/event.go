// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names. All queues are durable; delivery is at-least-once and
// consumers are expected to be idempotent.
const (
	BookingNotifications = "booking_notifications"
	BookingCancellations = "booking_cancellations"
	ReviewNotifications  = "review_notifications"
	SystemAlerts         = "system_alerts"
)

// Event types carried in the Type field.
const (
	TypeBookingConfirmed = "booking_confirmation"
	TypeBookingCancelled = "booking_cancellation"
	TypeReviewCreated    = "review_created"
	TypeReviewFlagged    = "review_flagged"
	TypeSystemAlert      = "system_alert"
)

// Event is the fire-and-forget notification emitted after a mutation
// commits. It contains enough information for downstream consumers to
// notify users or feed analytics without querying the primary
// database.
type Event struct {
	ID        string  `json:"id"` // uuid, lets consumers deduplicate
	Type      string  `json:"type"`
	BookingID *uint64 `json:"booking_id,omitempty"`
	ReviewID  *uint64 `json:"review_id,omitempty"`
	UserID    uint64  `json:"user_id"`
	RoomID    *uint64 `json:"room_id,omitempty"`
	Title     string  `json:"title,omitempty"`
	StartTime string  `json:"start_time,omitempty"`
	EndTime   string  `json:"end_time,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	Rating    int     `json:"rating,omitempty"`
	Message   string  `json:"message,omitempty"`
	Timestamp string  `json:"timestamp"`
}

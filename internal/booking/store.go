// Package booking implements the reservation conflict engine. The
// engine owns the overlap semantics and the admission protocol; the
// Store interface abstracts persistence so the engine can run against
// MySQL in production and an in-memory store in tests.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
)

// ErrNotFound is returned by Store implementations when the requested
// booking does not exist.
var ErrNotFound = errors.New("booking not found")

// Filter narrows List results. Zero values mean "no filter".
type Filter struct {
	UserID     uint64
	RoomID     uint64
	Status     string
	ActiveOnly bool // pending or confirmed
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// Store is the persistence contract of the engine.
//
// Admit and Reschedule are the only mutation points that may create an
// active interval, and both must be atomic with respect to each other:
// when two calls race over overlapping windows for the same room, at
// most one may succeed and the other must observe the winner as its
// conflict. The MySQL implementation serializes admissions per room
// with a row lock; the in-memory implementation uses a per-room mutex.
type Store interface {
	// Admit atomically checks the room for active overlapping bookings
	// and inserts b when none exist. On success b.ID and timestamps are
	// populated and Admit returns (nil, nil). When an overlap exists the
	// earliest-starting conflicting booking is returned and nothing is
	// written.
	Admit(ctx context.Context, b *model.Booking) (*model.Booking, error)

	// Reschedule atomically moves an existing booking to a new window,
	// excluding the booking itself from the conflict check. Semantics
	// mirror Admit.
	Reschedule(ctx context.Context, id uint64, start, end time.Time) (*model.Booking, error)

	// GetByID fetches a booking or ErrNotFound.
	GetByID(ctx context.Context, id uint64) (model.Booking, error)

	// ActiveByRoom returns pending/confirmed bookings of a room whose
	// interval overlaps [from, to), ordered by start time.
	ActiveByRoom(ctx context.Context, roomID uint64, from, to time.Time) ([]model.Booking, error)

	// List returns bookings matching the filter, newest first.
	List(ctx context.Context, f Filter) ([]model.Booking, error)

	// UpdateFields persists the scalar fields (title, description,
	// attendees) of an existing booking.
	UpdateFields(ctx context.Context, b *model.Booking) error

	// Cancel marks a booking cancelled with an audit trail. It is only
	// called on active bookings.
	Cancel(ctx context.Context, id uint64, by uint64, reason *string, at time.Time) error

	// SetStatus updates the status field alone. Used for confirmation
	// and the completion sweep.
	SetStatus(ctx context.Context, id uint64, status string) error
}

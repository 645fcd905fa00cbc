package booking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/logger"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
	"github.com/ahmadyateem/meeting-room-reservation/internal/queue"
	"github.com/ahmadyateem/meeting-room-reservation/internal/validator"
)

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// conflict. Touching boundaries (one ends exactly when the other
// starts) do not conflict.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// RoomDirectory resolves rooms. In production this is the rooms
// service reached over HTTP behind a circuit breaker; tests supply a
// stub.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id uint64) (model.Room, error)
	ListAvailableRooms(ctx context.Context) ([]model.Room, error)
}

// Invalidator drops derived cache entries after a successful mutation.
type Invalidator interface {
	InvalidatePrefix(ctx context.Context, scope string)
}

// Notifier enqueues fire-and-forget notifications. Failures are logged
// by the implementation and never fail the request.
type Notifier interface {
	BookingConfirmed(ctx context.Context, ev queue.Event)
	BookingCancelled(ctx context.Context, ev queue.Event)
}

// Engine coordinates validation, conflict detection and persistence
// for booking mutations. All reads of the wall clock go through the
// injected now func.
type Engine struct {
	store  Store
	rooms  RoomDirectory
	cache  Invalidator
	notify Notifier
	now    func() time.Time
}

// New constructs an Engine. cache and notify may be nil, in which case
// the corresponding side effects are skipped.
func New(store Store, rooms RoomDirectory, cache Invalidator, notify Notifier) *Engine {
	return &Engine{
		store:  store,
		rooms:  rooms,
		cache:  cache,
		notify: notify,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the engine clock. Tests only.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// CreateInput carries the fields of a creation request after transport
// decoding. Times are UTC.
type CreateInput struct {
	UserID            uint64
	RoomID            uint64
	Title             string
	Description       string
	StartTime         time.Time
	EndTime           time.Time
	Attendees         *int
	IsRecurring       bool
	RecurrencePattern *string
	RecurrenceEndDate *time.Time
}

// UpdateInput carries a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	Attendees   *int
	Status      *string
}

// conflictError builds the 409 returned when an interval is rejected,
// naming the winning booking and its window.
func conflictError(c *model.Booking, detail bool) *apperror.AppError {
	msg := fmt.Sprintf("Time slot conflicts with existing booking (ID: %d)", c.ID)
	if detail {
		msg = fmt.Sprintf("Time slot conflicts with existing booking (ID: %d). Conflicting booking: %s - %s",
			c.ID, c.StartTime.Format(time.RFC3339), c.EndTime.Format(time.RFC3339))
	}
	return apperror.Conflict(msg).WithDetails(map[string]any{
		"conflicting_booking_id": c.ID,
		"conflict_start_time":    c.StartTime.Format(time.RFC3339),
		"conflict_end_time":      c.EndTime.Format(time.RFC3339),
	})
}

// CheckConflict scans the room's active bookings and returns the first
// one overlapping [start, end), or nil. excludeID skips a booking so an
// update never conflicts with its own prior state.
func (e *Engine) CheckConflict(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) (*model.Booking, error) {
	active, err := e.store.ActiveByRoom(ctx, roomID, start, end)
	if err != nil {
		return nil, apperror.Internal("conflict check failed", err)
	}
	for i := range active {
		b := &active[i]
		if b.ID == excludeID {
			continue
		}
		if Overlaps(b.StartTime, b.EndTime, start, end) {
			return b, nil
		}
	}
	return nil, nil
}

// Create validates the request and atomically admits the booking. Two
// concurrent creates with overlapping windows on the same room cannot
// both succeed; the loser receives a conflict naming the winner.
func (e *Engine) Create(ctx context.Context, in CreateInput) (model.Booking, error) {
	var b model.Booking
	if verr := validator.BookingWindow(in.StartTime, in.EndTime, e.now()); verr != nil {
		return b, verr
	}
	if in.IsRecurring {
		if in.RecurrencePattern == nil {
			return b, apperror.Validation("recurrence_pattern is required for recurring bookings")
		}
		if verr := validator.RecurrencePattern(*in.RecurrencePattern); verr != nil {
			return b, verr
		}
		if verr := validator.RecurrenceEnd(in.StartTime, in.RecurrenceEndDate); verr != nil {
			return b, verr
		}
	}

	room, err := e.rooms.GetRoom(ctx, in.RoomID)
	if err != nil {
		return b, err
	}
	if !room.IsAvailable() {
		return b, apperror.Conflict(fmt.Sprintf("Room is currently %s", room.Status))
	}
	if in.Attendees != nil && *in.Attendees > room.Capacity {
		return b, apperror.Validation(fmt.Sprintf("Number of attendees (%d) exceeds room capacity (%d)", *in.Attendees, room.Capacity))
	}

	// Reservations take effect immediately; the pending state exists
	// only for rows awaiting explicit approval via Confirm.
	b = model.Booking{
		UserID:            in.UserID,
		RoomID:            in.RoomID,
		Title:             in.Title,
		Description:       in.Description,
		StartTime:         in.StartTime,
		EndTime:           in.EndTime,
		Status:            model.BookingConfirmed,
		Attendees:         in.Attendees,
		IsRecurring:       in.IsRecurring,
		RecurrencePattern: in.RecurrencePattern,
		RecurrenceEndDate: in.RecurrenceEndDate,
	}
	conflict, err := e.store.Admit(ctx, &b)
	if err != nil {
		return b, apperror.Internal("booking admission failed", err)
	}
	if conflict != nil {
		return b, conflictError(conflict, true)
	}

	e.invalidate(ctx, &b)
	if e.notify != nil {
		roomID := b.RoomID
		bookingID := b.ID
		e.notify.BookingConfirmed(ctx, queue.Event{
			BookingID: &bookingID,
			UserID:    b.UserID,
			RoomID:    &roomID,
			Title:     b.Title,
			StartTime: b.StartTime.Format(time.RFC3339),
			EndTime:   b.EndTime.Format(time.RFC3339),
		})
	}
	logger.Info("booking created", map[string]any{
		"booking_id": b.ID, "room_id": b.RoomID, "user_id": b.UserID,
		"start_time": b.StartTime.Format(time.RFC3339), "end_time": b.EndTime.Format(time.RFC3339),
	})
	return b, nil
}

// Get fetches a booking, enforcing that non-privileged users only see
// their own.
func (e *Engine) Get(ctx context.Context, id, actorID uint64, role string) (model.Booking, error) {
	b, err := e.store.GetByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return b, apperror.NotFound("Booking")
		}
		return b, apperror.Internal("booking lookup failed", err)
	}
	if b.UserID != actorID && !privileged(role) {
		return b, apperror.Forbidden("You can only view your own bookings")
	}
	return b, nil
}

// List returns bookings matching the filter. Non-privileged callers
// are pinned to their own bookings by the handler.
func (e *Engine) List(ctx context.Context, f Filter) ([]model.Booking, error) {
	out, err := e.store.List(ctx, f)
	if err != nil {
		return nil, apperror.Internal("booking list failed", err)
	}
	return out, nil
}

// Update applies a partial update. Window changes re-run the conflict
// discipline excluding the booking's own id. Cancelled bookings are
// immutable.
func (e *Engine) Update(ctx context.Context, id, actorID uint64, role string, in UpdateInput) (model.Booking, error) {
	b, err := e.store.GetByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return b, apperror.NotFound("Booking")
		}
		return b, apperror.Internal("booking lookup failed", err)
	}
	if b.UserID != actorID && !privileged(role) {
		return b, apperror.Forbidden("You can only update your own bookings")
	}
	if b.Status == model.BookingCancelled {
		return b, apperror.Conflict("Cannot update cancelled booking")
	}

	if in.StartTime != nil || in.EndTime != nil {
		start, end := b.StartTime, b.EndTime
		if in.StartTime != nil {
			start = *in.StartTime
		}
		if in.EndTime != nil {
			end = *in.EndTime
		}
		if verr := validator.BookingWindow(start, end, e.now()); verr != nil {
			return b, verr
		}
		conflict, err := e.store.Reschedule(ctx, b.ID, start, end)
		if err != nil {
			return b, apperror.Internal("booking reschedule failed", err)
		}
		if conflict != nil {
			return b, conflictError(conflict, false)
		}
		b.StartTime, b.EndTime = start, end
	}

	if in.Attendees != nil {
		room, err := e.rooms.GetRoom(ctx, b.RoomID)
		if err != nil {
			return b, err
		}
		if *in.Attendees > room.Capacity {
			return b, apperror.Validation(fmt.Sprintf("Number of attendees (%d) exceeds room capacity (%d)", *in.Attendees, room.Capacity))
		}
	}

	changed := false
	if in.Title != nil {
		b.Title = *in.Title
		changed = true
	}
	if in.Description != nil {
		b.Description = *in.Description
		changed = true
	}
	if in.Attendees != nil {
		b.Attendees = in.Attendees
		changed = true
	}
	if changed {
		if err := e.store.UpdateFields(ctx, &b); err != nil {
			return b, apperror.Internal("booking update failed", err)
		}
	}

	if in.Status != nil && *in.Status != b.Status {
		if verr := validator.BookingStatus(*in.Status); verr != nil {
			return b, verr
		}
		switch *in.Status {
		case model.BookingCompleted, model.BookingNoShow:
			// Time-based states belong to the completion sweeper.
			return b, apperror.Validation("Status completed and no_show are set automatically and cannot be requested")
		case model.BookingCancelled:
			// Cancellation must record reason, actor and timestamp, so
			// it goes through the full cancel protocol.
			return e.Cancel(ctx, id, actorID, role, nil)
		default:
			if verr := validator.StatusTransition(b.Status, *in.Status); verr != nil {
				return b, verr
			}
			if err := e.store.SetStatus(ctx, b.ID, *in.Status); err != nil {
				return b, apperror.Internal("status update failed", err)
			}
			b.Status = *in.Status
		}
	}

	e.invalidate(ctx, &b)
	logger.Info("booking updated", map[string]any{"booking_id": b.ID, "user_id": actorID})
	return b, nil
}

// Cancel marks a booking cancelled with a reason and actor. Cancelling
// an already-cancelled booking is rejected with a conflict and never
// touches cancelled_at again.
func (e *Engine) Cancel(ctx context.Context, id, actorID uint64, role string, reason *string) (model.Booking, error) {
	b, err := e.store.GetByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return b, apperror.NotFound("Booking")
		}
		return b, apperror.Internal("booking lookup failed", err)
	}
	if b.UserID != actorID && !privileged(role) {
		return b, apperror.Forbidden("You can only cancel your own bookings")
	}
	if b.Status == model.BookingCancelled {
		return b, apperror.Conflict("Booking is already cancelled")
	}
	if verr := validator.StatusTransition(b.Status, model.BookingCancelled); verr != nil {
		return b, verr
	}

	at := e.now()
	if err := e.store.Cancel(ctx, b.ID, actorID, reason, at); err != nil {
		return b, apperror.Internal("booking cancellation failed", err)
	}
	b.Status = model.BookingCancelled
	b.CancellationReason = reason
	b.CancelledAt = &at
	b.CancelledBy = &actorID

	e.invalidate(ctx, &b)
	if e.notify != nil {
		roomID := b.RoomID
		bookingID := b.ID
		ev := queue.Event{
			BookingID: &bookingID,
			UserID:    b.UserID,
			RoomID:    &roomID,
			Title:     b.Title,
			StartTime: b.StartTime.Format(time.RFC3339),
			EndTime:   b.EndTime.Format(time.RFC3339),
		}
		if reason != nil {
			ev.Reason = *reason
		}
		e.notify.BookingCancelled(ctx, ev)
	}
	logger.Info("booking cancelled", map[string]any{"booking_id": b.ID, "cancelled_by": actorID})
	return b, nil
}

// Confirm promotes a pending booking to confirmed.
func (e *Engine) Confirm(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := e.store.GetByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return b, apperror.NotFound("Booking")
		}
		return b, apperror.Internal("booking lookup failed", err)
	}
	if verr := validator.StatusTransition(b.Status, model.BookingConfirmed); verr != nil {
		return b, verr
	}
	if err := e.store.SetStatus(ctx, b.ID, model.BookingConfirmed); err != nil {
		return b, apperror.Internal("status update failed", err)
	}
	b.Status = model.BookingConfirmed
	e.invalidate(ctx, &b)
	return b, nil
}

// RoomAvailability is the result of a single-room availability check.
type RoomAvailability struct {
	RoomID      uint64         `json:"room_id"`
	RoomName    string         `json:"room_name,omitempty"`
	Capacity    int            `json:"capacity,omitempty"`
	IsAvailable bool           `json:"is_available"`
	Conflict    *model.Booking `json:"-"`
}

// CheckAvailability reports whether the room is free over [start, end).
// The window must be a legal booking window.
func (e *Engine) CheckAvailability(ctx context.Context, roomID uint64, start, end time.Time) (RoomAvailability, error) {
	res := RoomAvailability{RoomID: roomID}
	if verr := validator.BookingWindow(start, end, e.now()); verr != nil {
		return res, verr
	}
	room, err := e.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return res, err
	}
	conflict, err := e.CheckConflict(ctx, roomID, start, end, 0)
	if err != nil {
		return res, err
	}
	res.RoomName = room.Name
	res.Capacity = room.Capacity
	res.Conflict = conflict
	res.IsAvailable = conflict == nil && room.IsAvailable()
	return res, nil
}

// CheckFleetAvailability reports the availability flag of every
// available room over [start, end).
func (e *Engine) CheckFleetAvailability(ctx context.Context, start, end time.Time) ([]RoomAvailability, error) {
	if verr := validator.BookingWindow(start, end, e.now()); verr != nil {
		return nil, verr
	}
	rooms, err := e.rooms.ListAvailableRooms(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoomAvailability, 0, len(rooms))
	for _, room := range rooms {
		conflict, err := e.CheckConflict(ctx, room.ID, start, end, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, RoomAvailability{
			RoomID:      room.ID,
			RoomName:    room.Name,
			Capacity:    room.Capacity,
			Conflict:    conflict,
			IsAvailable: conflict == nil,
		})
	}
	return out, nil
}

// ConflictPair names two overlapping active bookings on the same room.
type ConflictPair struct {
	RoomID   uint64        `json:"room_id"`
	Booking1 model.Booking `json:"booking1"`
	Booking2 model.Booking `json:"booking2"`
}

// maxConflictScan bounds the pairwise report. The scan is O(n^2) over
// active bookings; an interval tree per room would make it O(n log n)
// if volume ever warrants it.
const maxConflictScan = 5000

// ListConflicts reports every overlapping pair of active bookings,
// grouped by room and sorted by start time. Privileged callers only.
func (e *Engine) ListConflicts(ctx context.Context) ([]ConflictPair, error) {
	active, err := e.store.List(ctx, Filter{ActiveOnly: true, Limit: maxConflictScan})
	if err != nil {
		return nil, apperror.Internal("conflict report failed", err)
	}
	sort.Slice(active, func(i, j int) bool { return active[i].StartTime.Before(active[j].StartTime) })
	var pairs []ConflictPair
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			if active[i].RoomID != active[j].RoomID {
				continue
			}
			if Overlaps(active[i].StartTime, active[i].EndTime, active[j].StartTime, active[j].EndTime) {
				pairs = append(pairs, ConflictPair{
					RoomID:   active[i].RoomID,
					Booking1: active[i],
					Booking2: active[j],
				})
			}
		}
	}
	return pairs, nil
}

// invalidate drops the cached booking listings the mutation can have
// changed: the owner's listings and the room's listings.
func (e *Engine) invalidate(ctx context.Context, b *model.Booking) {
	if e.cache == nil {
		return
	}
	e.cache.InvalidatePrefix(ctx, fmt.Sprintf("room_bookings:%d", b.RoomID))
	e.cache.InvalidatePrefix(ctx, fmt.Sprintf("user_bookings:%d", b.UserID))
}

func privileged(role string) bool {
	return role == model.RoleAdmin || role == model.RoleFacilityManager
}

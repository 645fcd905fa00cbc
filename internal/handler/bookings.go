package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/booking"
	"github.com/ahmadyateem/meeting-room-reservation/internal/cache"
	"github.com/ahmadyateem/meeting-room-reservation/internal/client"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
	"github.com/ahmadyateem/meeting-room-reservation/internal/queue"
	queue_publisher "github.com/ahmadyateem/meeting-room-reservation/internal/service"
	"github.com/ahmadyateem/meeting-room-reservation/internal/validator"
)

// QueueNotifier publishes booking events to the message broker. It
// satisfies the engine's notifier contract; publish failures are logged
// by the publisher and deliberately discarded here, since a broker
// outage must never fail a committed booking.
type QueueNotifier struct{}

func (QueueNotifier) BookingConfirmed(ctx context.Context, ev queue.Event) {
	_ = queue_publisher.PublishBookingConfirmed(ctx, ev)
}

func (QueueNotifier) BookingCancelled(ctx context.Context, ev queue.Event) {
	_ = queue_publisher.PublishBookingCancelled(ctx, ev)
}

// BookingHandler exposes the booking engine over HTTP. Users is
// consulted on create to reject deactivated accounts whose access
// tokens have not yet expired; nil skips that check. Listings are
// cached under the room_bookings/user_bookings scopes the engine
// invalidates on every mutation.
type BookingHandler struct {
	Engine *booking.Engine
	Users  *client.UserClient
	Cache  *cache.Cache
}

func NewBookingHandler(e *booking.Engine, users *client.UserClient, c *cache.Cache) *BookingHandler {
	return &BookingHandler{Engine: e, Users: users, Cache: c}
}

type bookingListResp struct {
	Bookings []bookingResp `json:"bookings"`
	Count    int           `json:"count"`
}

// listCacheKey keys a booking listing under the scope whose mutations
// invalidate it: per room when the filter names one, otherwise per
// user. Unscoped listings are not cached.
func listCacheKey(f booking.Filter) (string, bool) {
	switch {
	case f.RoomID != 0:
		return cache.Key("room_bookings", f.RoomID, f.UserID, f.Status, f.From.Unix(), f.To.Unix(), f.Limit, f.Offset), true
	case f.UserID != 0:
		return cache.Key("user_bookings", f.UserID, f.Status, f.From.Unix(), f.To.Unix(), f.Limit, f.Offset), true
	}
	return "", false
}

type createBookingReq struct {
	RoomID            uint64  `json:"room_id" validate:"required"`
	Title             string  `json:"title" validate:"required,max=200"`
	Description       string  `json:"description" validate:"max=1000"`
	StartTime         string  `json:"start_time" validate:"required"`
	EndTime           string  `json:"end_time" validate:"required"`
	Attendees         *int    `json:"attendees"`
	IsRecurring       bool    `json:"is_recurring"`
	RecurrencePattern *string `json:"recurrence_pattern"`
	RecurrenceEndDate *string `json:"recurrence_end_date"`
}

type updateBookingReq struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Attendees   *int    `json:"attendees"`
	Status      *string `json:"status"`
}

type cancelBookingReq struct {
	Reason *string `json:"cancellation_reason" validate:"omitempty,max=500"`
}

type bookingResp struct {
	ID                 uint64  `json:"id"`
	UserID             uint64  `json:"user_id"`
	RoomID             uint64  `json:"room_id"`
	Title              string  `json:"title"`
	Description        string  `json:"description,omitempty"`
	StartTime          string  `json:"start_time"`
	EndTime            string  `json:"end_time"`
	Status             string  `json:"status"`
	Attendees          *int    `json:"attendees,omitempty"`
	IsRecurring        bool    `json:"is_recurring"`
	RecurrencePattern  *string `json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate  *string `json:"recurrence_end_date,omitempty"`
	CancellationReason *string `json:"cancellation_reason,omitempty"`
	CancelledAt        *string `json:"cancelled_at,omitempty"`
	CancelledBy        *uint64 `json:"cancelled_by,omitempty"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

func rfc3339Ptr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func toBookingResp(b model.Booking) bookingResp {
	return bookingResp{
		ID:                 b.ID,
		UserID:             b.UserID,
		RoomID:             b.RoomID,
		Title:              b.Title,
		Description:        b.Description,
		StartTime:          b.StartTime.UTC().Format(time.RFC3339),
		EndTime:            b.EndTime.UTC().Format(time.RFC3339),
		Status:             b.Status,
		Attendees:          b.Attendees,
		IsRecurring:        b.IsRecurring,
		RecurrencePattern:  b.RecurrencePattern,
		RecurrenceEndDate:  rfc3339Ptr(b.RecurrenceEndDate),
		CancellationReason: b.CancellationReason,
		CancelledAt:        rfc3339Ptr(b.CancelledAt),
		CancelledBy:        b.CancelledBy,
		CreatedAt:          b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Create reserves a room for a half-open interval. Returns 409 when an
// active booking already claims any part of the window.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, _ := identity(c)

	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	if h.Users != nil {
		u, err := h.Users.GetUser(c.Request().Context(), userID)
		if err != nil {
			return err
		}
		if !u.IsActive {
			return apperror.Forbidden("Account is deactivated")
		}
	}

	start, verr := validator.ParseTimestamp(req.StartTime)
	if verr != nil {
		return verr
	}
	end, verr := validator.ParseTimestamp(req.EndTime)
	if verr != nil {
		return verr
	}
	in := booking.CreateInput{
		UserID:            userID,
		RoomID:            req.RoomID,
		Title:             req.Title,
		Description:       req.Description,
		StartTime:         start,
		EndTime:           end,
		Attendees:         req.Attendees,
		IsRecurring:       req.IsRecurring,
		RecurrencePattern: req.RecurrencePattern,
	}
	if req.RecurrenceEndDate != nil {
		d, verr := validator.ParseTimestamp(*req.RecurrenceEndDate)
		if verr != nil {
			return verr
		}
		in.RecurrenceEndDate = &d
	}

	b, err := h.Engine.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// Get returns one booking. Non-privileged callers may only read their own.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, role := identity(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	b, err := h.Engine.Get(c.Request().Context(), id, userID, role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// List returns bookings matching the query filters. Non-privileged
// callers are pinned to their own bookings regardless of user_id.
func (h *BookingHandler) List(c echo.Context) error {
	userID, role := identity(c)
	limit, offset := pagination(c)

	f := booking.Filter{
		Status: c.QueryParam("status"),
		Limit:  limit,
		Offset: offset,
	}
	if f.Status != "" {
		if verr := validator.BookingStatus(f.Status); verr != nil {
			return verr
		}
	}
	if raw := c.QueryParam("room_id"); raw != "" {
		id, verr := parseUint(raw, "room_id")
		if verr != nil {
			return verr
		}
		f.RoomID = id
	}
	if raw := c.QueryParam("user_id"); raw != "" {
		id, verr := parseUint(raw, "user_id")
		if verr != nil {
			return verr
		}
		f.UserID = id
	}
	if raw := c.QueryParam("from"); raw != "" {
		t, verr := validator.ParseTimestamp(raw)
		if verr != nil {
			return verr
		}
		f.From = t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, verr := validator.ParseTimestamp(raw)
		if verr != nil {
			return verr
		}
		f.To = t
	}
	if !privileged(role) {
		f.UserID = userID
	}

	ctx := c.Request().Context()
	key, cacheable := listCacheKey(f)
	var resp bookingListResp
	if cacheable && h.Cache.Get(ctx, key, &resp) {
		return c.JSON(http.StatusOK, resp)
	}

	bookings, err := h.Engine.List(ctx, f)
	if err != nil {
		return err
	}
	out := make([]bookingResp, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResp(b))
	}
	resp = bookingListResp{Bookings: out, Count: len(out)}
	if cacheable {
		h.Cache.Set(ctx, key, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// Update applies a partial update. Rescheduling re-runs conflict
// detection against every other active booking on the room.
func (h *BookingHandler) Update(c echo.Context) error {
	userID, role := identity(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateBookingReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	in := booking.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Attendees:   req.Attendees,
		Status:      req.Status,
	}
	if req.StartTime != nil {
		t, verr := validator.ParseTimestamp(*req.StartTime)
		if verr != nil {
			return verr
		}
		in.StartTime = &t
	}
	if req.EndTime != nil {
		t, verr := validator.ParseTimestamp(*req.EndTime)
		if verr != nil {
			return verr
		}
		in.EndTime = &t
	}

	b, err := h.Engine.Update(c.Request().Context(), id, userID, role, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Cancel marks a booking cancelled. Cancelling an already cancelled
// booking is rejected with 409 so the audit trail is written once.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, role := identity(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req cancelBookingReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	b, err := h.Engine.Cancel(c.Request().Context(), id, userID, role, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Booking cancelled successfully",
		"booking": toBookingResp(b),
	})
}

// Confirm moves a pending booking to confirmed. Privileged callers only.
func (h *BookingHandler) Confirm(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	b, err := h.Engine.Confirm(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Booking confirmed",
		"booking": toBookingResp(b),
	})
}

type availabilityReq struct {
	RoomID    *uint64 `json:"room_id"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
}

// CheckAvailability reports whether a window is free. With room_id it
// answers for that room, naming the blocking booking when occupied;
// without it, it surveys every available room.
func (h *BookingHandler) CheckAvailability(c echo.Context) error {
	var req availabilityReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	start, verr := validator.ParseTimestamp(req.StartTime)
	if verr != nil {
		return verr
	}
	end, verr := validator.ParseTimestamp(req.EndTime)
	if verr != nil {
		return verr
	}

	ctx := c.Request().Context()
	if req.RoomID != nil {
		res, err := h.Engine.CheckAvailability(ctx, *req.RoomID, start, end)
		if err != nil {
			return err
		}
		body := echo.Map{
			"room_id":      res.RoomID,
			"room_name":    res.RoomName,
			"is_available": res.IsAvailable,
			"start_time":   start.Format(time.RFC3339),
			"end_time":     end.Format(time.RFC3339),
		}
		if res.Conflict != nil {
			body["conflict"] = echo.Map{
				"booking_id": res.Conflict.ID,
				"start_time": res.Conflict.StartTime.Format(time.RFC3339),
				"end_time":   res.Conflict.EndTime.Format(time.RFC3339),
			}
		}
		return c.JSON(http.StatusOK, body)
	}

	fleet, err := h.Engine.CheckFleetAvailability(ctx, start, end)
	if err != nil {
		return err
	}
	available := 0
	rooms := make([]echo.Map, 0, len(fleet))
	for _, r := range fleet {
		if r.IsAvailable {
			available++
		}
		rooms = append(rooms, echo.Map{
			"room_id":      r.RoomID,
			"room_name":    r.RoomName,
			"capacity":     r.Capacity,
			"is_available": r.IsAvailable,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"start_time":            start.Format(time.RFC3339),
		"end_time":              end.Format(time.RFC3339),
		"total_rooms":           len(fleet),
		"available_rooms_count": available,
		"rooms":                 rooms,
	})
}

// Conflicts reports every pair of overlapping active bookings, for
// operators diagnosing double-booking claims. Privileged callers only.
func (h *BookingHandler) Conflicts(c echo.Context) error {
	pairs, err := h.Engine.ListConflicts(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]echo.Map, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, echo.Map{
			"room_id":  p.RoomID,
			"booking1": toBookingResp(p.Booking1),
			"booking2": toBookingResp(p.Booking2),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"conflicts_count": len(out), "conflicts": out})
}

// Package validator holds the pure domain validation rules shared by
// the services. Every function is deterministic given the supplied
// clock and performs no I/O; violations come back as validation errors
// with stable, human-readable reasons.
package validator

import (
	"fmt"
	"strings"
	"time"

	playground "github.com/go-playground/validator/v10"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
)

// Booking window bounds.
const (
	MinBookingDuration = 30 * time.Minute
	MaxBookingDuration = 7 * 24 * time.Hour
)

var (
	validRoles = []string{
		model.RoleAdmin, model.RoleUser, model.RoleFacilityManager,
		model.RoleModerator, model.RoleAuditor, model.RoleService,
	}
	validRoomStatuses = []string{
		model.RoomAvailable, model.RoomBooked, model.RoomMaintenance, model.RoomOutOfService,
	}
	validBookingStatuses = []string{
		model.BookingPending, model.BookingConfirmed, model.BookingCancelled,
		model.BookingCompleted, model.BookingNoShow,
	}
	validRecurrencePatterns = []string{model.RecurDaily, model.RecurWeekly, model.RecurMonthly}
)

// BookingWindow checks interval legality for a candidate [start, end)
// against the supplied current time: end strictly after start, start
// not in the past, duration within [30 minutes, 7 days].
func BookingWindow(start, end, now time.Time) *apperror.AppError {
	if !end.After(start) {
		return apperror.Validation("End time must be after start time")
	}
	if start.Before(now) {
		return apperror.Validation("Booking start time cannot be in the past")
	}
	d := end.Sub(start)
	if d < MinBookingDuration {
		return apperror.Validation("Booking duration must be at least 30 minutes")
	}
	if d > MaxBookingDuration {
		return apperror.Validation("Booking duration cannot exceed 7 days")
	}
	return nil
}

// BookingStatus checks membership in the booking status enumeration.
func BookingStatus(status string) *apperror.AppError {
	return oneOf("status", status, validBookingStatuses)
}

// StatusTransition enforces the booking lifecycle: only active
// bookings may be cancelled by callers, and only active bookings may
// be closed out as completed or no_show by the sweeper. Everything
// else is terminal.
func StatusTransition(from, to string) *apperror.AppError {
	if from == to {
		return nil
	}
	active := from == model.BookingPending || from == model.BookingConfirmed
	switch to {
	case model.BookingCancelled, model.BookingCompleted, model.BookingNoShow:
		if active {
			return nil
		}
	case model.BookingConfirmed:
		if from == model.BookingPending {
			return nil
		}
	}
	return apperror.Conflict(fmt.Sprintf("Cannot transition booking from %s to %s", from, to))
}

// RecurrencePattern checks membership in the recurrence enumeration.
func RecurrencePattern(pattern string) *apperror.AppError {
	return oneOf("recurrence pattern", pattern, validRecurrencePatterns)
}

// RecurrenceEnd checks that a recurring series does not end before its
// first occurrence starts. A nil end date means the series is open.
func RecurrenceEnd(start time.Time, end *time.Time) *apperror.AppError {
	if end != nil && end.Before(start) {
		return apperror.Validation("Recurrence end date cannot be before the booking start time")
	}
	return nil
}

// Role checks membership in the role enumeration.
func Role(role string) *apperror.AppError {
	return oneOf("role", role, validRoles)
}

// RoomStatus checks membership in the room status enumeration.
func RoomStatus(status string) *apperror.AppError {
	return oneOf("status", status, validRoomStatuses)
}

// RoomCapacity checks the (0, 1000] capacity bound.
func RoomCapacity(capacity int) *apperror.AppError {
	if capacity <= 0 {
		return apperror.Validation("Room capacity must be a positive integer")
	}
	if capacity > 1000 {
		return apperror.Validation("Room capacity cannot exceed 1000")
	}
	return nil
}

// Rating checks the [1,5] review rating bound.
func Rating(rating int) *apperror.AppError {
	if rating < 1 || rating > 5 {
		return apperror.Validation("Rating must be an integer between 1 and 5")
	}
	return nil
}

// Username checks the login-name format: 3 to 50 characters drawn from
// letters, digits, underscore and hyphen.
func Username(username string) *apperror.AppError {
	if len(username) < 3 {
		return apperror.Validation("Username must be at least 3 characters long")
	}
	if len(username) > 50 {
		return apperror.Validation("Username must not exceed 50 characters")
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return apperror.Validation("Username may only contain letters, digits, underscores and hyphens")
		}
	}
	return nil
}

// Password enforces the minimum credential policy for registration.
func Password(password string) *apperror.AppError {
	if len(password) < 8 {
		return apperror.Validation("Password must be at least 8 characters long")
	}
	if len(password) > 128 {
		return apperror.Validation("Password must not exceed 128 characters")
	}
	return nil
}

// ParseTimestamp parses an ISO-8601 timestamp and normalizes it to UTC.
func ParseTimestamp(value string) (time.Time, *apperror.AppError) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperror.Validation("Invalid date format. Use ISO 8601 format (YYYY-MM-DDTHH:MM:SSZ)")
	}
	return t.UTC(), nil
}

func oneOf(field, value string, allowed []string) *apperror.AppError {
	for _, v := range allowed {
		if value == v {
			return nil
		}
	}
	return apperror.Validation(fmt.Sprintf("Invalid %s. Must be one of: %s", field, strings.Join(allowed, ", ")))
}

// Request adapts go-playground/validator to echo's Validator interface
// so handlers can declare structural constraints on request DTOs with
// struct tags and keep the domain rules above for everything the tags
// cannot express.
type Request struct {
	validate *playground.Validate
}

// NewRequest constructs the request validator used by every service.
func NewRequest() *Request {
	return &Request{validate: playground.New()}
}

// Validate implements echo.Validator.
func (r *Request) Validate(i any) error {
	if err := r.validate.Struct(i); err != nil {
		if errs, ok := err.(playground.ValidationErrors); ok && len(errs) > 0 {
			f := errs[0]
			return apperror.Validation(fmt.Sprintf("%s failed validation on '%s'", f.Field(), f.Tag()))
		}
		return apperror.Validation(err.Error())
	}
	return nil
}

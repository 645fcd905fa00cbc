package validator

import (
	"strings"
	"testing"
	"time"

	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
)

var now = time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)

func TestBookingWindow(t *testing.T) {
	start := time.Date(2025, 11, 25, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		start, end time.Time
		now        time.Time
		wantMsg    string // empty means accepted
	}{
		{"valid one hour", start, start.Add(time.Hour), now, ""},
		{"exactly 30 minutes", start, start.Add(30 * time.Minute), now, ""},
		{"exactly 7 days", start, start.Add(7 * 24 * time.Hour), now, ""},
		{"starts right now", now, now.Add(time.Hour), now, ""},
		{"end equals start", start, start, now, "End time must be after start time"},
		{"end before start", start, start.Add(-time.Hour), now, "End time must be after start time"},
		{"one second in the past", now.Add(-time.Second), now.Add(time.Hour), now, "Booking start time cannot be in the past"},
		{"29m59s", start, start.Add(30*time.Minute - time.Second), now, "Booking duration must be at least 30 minutes"},
		{"7 days and a second", start, start.Add(7*24*time.Hour + time.Second), now, "Booking duration cannot exceed 7 days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := BookingWindow(tt.start, tt.end, tt.now)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("rejected: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("accepted, want rejection")
			}
			if err.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Message, tt.wantMsg)
			}
		})
	}
}

func TestStatusTransition(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{model.BookingPending, model.BookingConfirmed, true},
		{model.BookingPending, model.BookingCancelled, true},
		{model.BookingPending, model.BookingNoShow, true},
		{model.BookingConfirmed, model.BookingCancelled, true},
		{model.BookingConfirmed, model.BookingCompleted, true},
		{model.BookingPending, model.BookingPending, true},
		{model.BookingCancelled, model.BookingConfirmed, false},
		{model.BookingCancelled, model.BookingCancelled, true}, // no-op
		{model.BookingCompleted, model.BookingCancelled, false},
		{model.BookingNoShow, model.BookingConfirmed, false},
		{model.BookingConfirmed, model.BookingPending, false},
	}
	for _, tt := range tests {
		err := StatusTransition(tt.from, tt.to)
		if tt.ok && err != nil {
			t.Errorf("%s -> %s rejected: %v", tt.from, tt.to, err)
		}
		if !tt.ok {
			if err == nil {
				t.Errorf("%s -> %s accepted", tt.from, tt.to)
			} else if !strings.Contains(err.Message, "Cannot transition booking") {
				t.Errorf("%s -> %s message = %q", tt.from, tt.to, err.Message)
			}
		}
	}
}

func TestRecurrenceEnd(t *testing.T) {
	start := time.Date(2025, 11, 25, 10, 0, 0, 0, time.UTC)

	if err := RecurrenceEnd(start, nil); err != nil {
		t.Errorf("open-ended series rejected: %v", err)
	}
	after := start.Add(14 * 24 * time.Hour)
	if err := RecurrenceEnd(start, &after); err != nil {
		t.Errorf("end after start rejected: %v", err)
	}
	same := start
	if err := RecurrenceEnd(start, &same); err != nil {
		t.Errorf("end equal to start rejected: %v", err)
	}
	before := start.Add(-24 * time.Hour)
	err := RecurrenceEnd(start, &before)
	if err == nil {
		t.Fatal("end before start accepted")
	}
	if err.Message != "Recurrence end date cannot be before the booking start time" {
		t.Errorf("message = %q", err.Message)
	}
}

func TestUsername(t *testing.T) {
	for _, u := range []string{"bob", "john_doe", "room-admin42", strings.Repeat("a", 50)} {
		if err := Username(u); err != nil {
			t.Errorf("%q rejected: %v", u, err)
		}
	}
	tests := []struct {
		username string
		wantMsg  string
	}{
		{"ab", "Username must be at least 3 characters long"},
		{strings.Repeat("a", 51), "Username must not exceed 50 characters"},
		{"john doe", "Username may only contain letters, digits, underscores and hyphens"},
		{"jo@hn", "Username may only contain letters, digits, underscores and hyphens"},
	}
	for _, tt := range tests {
		err := Username(tt.username)
		if err == nil {
			t.Errorf("%q accepted", tt.username)
			continue
		}
		if err.Message != tt.wantMsg {
			t.Errorf("%q message = %q, want %q", tt.username, err.Message, tt.wantMsg)
		}
	}
}

func TestRoomCapacity(t *testing.T) {
	if err := RoomCapacity(0); err == nil || err.Message != "Room capacity must be a positive integer" {
		t.Errorf("capacity 0: %v", err)
	}
	if err := RoomCapacity(-3); err == nil {
		t.Error("negative capacity accepted")
	}
	if err := RoomCapacity(1001); err == nil || err.Message != "Room capacity cannot exceed 1000" {
		t.Errorf("capacity 1001: %v", err)
	}
	if err := RoomCapacity(1); err != nil {
		t.Errorf("capacity 1 rejected: %v", err)
	}
	if err := RoomCapacity(1000); err != nil {
		t.Errorf("capacity 1000 rejected: %v", err)
	}
}

func TestRating(t *testing.T) {
	for _, r := range []int{1, 2, 3, 4, 5} {
		if err := Rating(r); err != nil {
			t.Errorf("rating %d rejected: %v", r, err)
		}
	}
	for _, r := range []int{0, 6, -1} {
		err := Rating(r)
		if err == nil || err.Message != "Rating must be an integer between 1 and 5" {
			t.Errorf("rating %d: %v", r, err)
		}
	}
}

func TestEnumerations(t *testing.T) {
	if err := Role("admin"); err != nil {
		t.Errorf("admin rejected: %v", err)
	}
	if err := Role("superuser"); err == nil || !strings.HasPrefix(err.Message, "Invalid role. Must be one of:") {
		t.Errorf("superuser: %v", err)
	}
	if err := RoomStatus("maintenance"); err != nil {
		t.Errorf("maintenance rejected: %v", err)
	}
	if err := RoomStatus("closed"); err == nil {
		t.Error("unknown room status accepted")
	}
	if err := RecurrencePattern("weekly"); err != nil {
		t.Errorf("weekly rejected: %v", err)
	}
	if err := RecurrencePattern("fortnightly"); err == nil {
		t.Error("unknown recurrence pattern accepted")
	}
	if err := BookingStatus("no_show"); err != nil {
		t.Errorf("no_show rejected: %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2025-11-25T10:00:00+02:00")
	if err != nil {
		t.Fatalf("rejected: %v", err)
	}
	if ts.Location() != time.UTC || ts.Hour() != 8 {
		t.Errorf("not normalized to UTC: %v", ts)
	}
	if _, err := ParseTimestamp("2025-11-25 10:00"); err == nil {
		t.Error("non-ISO timestamp accepted")
	} else if err.Message != "Invalid date format. Use ISO 8601 format (YYYY-MM-DDTHH:MM:SSZ)" {
		t.Errorf("message = %q", err.Message)
	}
}

func TestRequestValidator(t *testing.T) {
	type dto struct {
		Email string `validate:"required,email"`
	}
	v := NewRequest()
	if err := v.Validate(dto{Email: "a@b.example"}); err != nil {
		t.Errorf("valid dto rejected: %v", err)
	}
	if err := v.Validate(dto{Email: "nope"}); err == nil {
		t.Error("invalid email accepted")
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/booking"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
	"github.com/ahmadyateem/meeting-room-reservation/internal/validator"
)

// fleetStore serves a fixed set of bookings; only the read paths the
// availability endpoints touch are exercised.
type fleetStore struct {
	bookings []model.Booking
}

func (s *fleetStore) Admit(context.Context, *model.Booking) (*model.Booking, error) {
	return nil, nil
}

func (s *fleetStore) Reschedule(context.Context, uint64, time.Time, time.Time) (*model.Booking, error) {
	return nil, nil
}

func (s *fleetStore) GetByID(context.Context, uint64) (model.Booking, error) {
	return model.Booking{}, booking.ErrNotFound
}

func (s *fleetStore) ActiveByRoom(_ context.Context, roomID uint64, from, to time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range s.bookings {
		if b.RoomID == roomID && b.IsActive() && booking.Overlaps(b.StartTime, b.EndTime, from, to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fleetStore) List(context.Context, booking.Filter) ([]model.Booking, error) {
	return nil, nil
}

func (s *fleetStore) UpdateFields(context.Context, *model.Booking) error { return nil }

func (s *fleetStore) Cancel(context.Context, uint64, uint64, *string, time.Time) error {
	return nil
}

func (s *fleetStore) SetStatus(context.Context, uint64, string) error { return nil }

type fleetRooms struct {
	rooms map[uint64]model.Room
}

func (s *fleetRooms) GetRoom(_ context.Context, id uint64) (model.Room, error) {
	return s.rooms[id], nil
}

func (s *fleetRooms) ListAvailableRooms(context.Context) ([]model.Room, error) {
	var out []model.Room
	for _, r := range s.rooms {
		if r.IsAvailable() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Listing cache keys must live under the scope the engine invalidates
// on mutations, otherwise cached listings would outlive the data.
func TestListCacheKeyScopes(t *testing.T) {
	key, ok := listCacheKey(booking.Filter{RoomID: 42, Limit: 20})
	if !ok || !strings.HasPrefix(key, "room_bookings:42:") {
		t.Errorf("room-filtered key = %q, want room_bookings:42 scope", key)
	}
	key, ok = listCacheKey(booking.Filter{UserID: 7, Limit: 20})
	if !ok || !strings.HasPrefix(key, "user_bookings:7:") {
		t.Errorf("user-filtered key = %q, want user_bookings:7 scope", key)
	}
	if _, ok := listCacheKey(booking.Filter{Status: model.BookingConfirmed}); ok {
		t.Error("unscoped listing reported cacheable")
	}
}

// TestCheckAvailabilityFleetIncludesBusyRooms verifies the fleet survey
// reports every available room, flagging the occupied ones instead of
// omitting them, alongside the totals.
func TestCheckAvailabilityFleetIncludesBusyRooms(t *testing.T) {
	now := time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)
	store := &fleetStore{bookings: []model.Booking{{
		ID: 1, UserID: 1, RoomID: 2, Title: "busy", Status: model.BookingConfirmed,
		StartTime: time.Date(2025, 11, 25, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 11, 25, 11, 0, 0, 0, time.UTC),
	}}}
	rooms := &fleetRooms{rooms: map[uint64]model.Room{
		1: {ID: 1, Name: "Boardroom", Capacity: 10, Status: model.RoomAvailable},
		2: {ID: 2, Name: "Huddle", Capacity: 4, Status: model.RoomAvailable},
	}}
	eng := booking.New(store, rooms, nil, nil).WithClock(func() time.Time { return now })
	h := NewBookingHandler(eng, nil, nil)

	e := echo.New()
	e.Validator = validator.NewRequest()
	body := `{"start_time":"2025-11-25T10:00:00Z","end_time":"2025-11-25T11:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/bookings/check-availability", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CheckAvailability(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		TotalRooms          int `json:"total_rooms"`
		AvailableRoomsCount int `json:"available_rooms_count"`
		Rooms               []struct {
			RoomID      uint64 `json:"room_id"`
			IsAvailable bool   `json:"is_available"`
		} `json:"rooms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalRooms != 2 || resp.AvailableRoomsCount != 1 {
		t.Errorf("totals = %d/%d, want 2 rooms with 1 available", resp.TotalRooms, resp.AvailableRoomsCount)
	}
	flags := map[uint64]bool{}
	for _, r := range resp.Rooms {
		flags[r.RoomID] = r.IsAvailable
	}
	if got, ok := flags[2]; !ok {
		t.Error("busy room omitted from the survey")
	} else if got {
		t.Error("busy room reported available")
	}
	if !flags[1] {
		t.Error("free room reported unavailable")
	}
}

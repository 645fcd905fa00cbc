package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/breaker"
)

func TestGetRoom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rooms/42" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"name":"Boardroom","capacity":10,"status":"available"}`))
	}))
	defer srv.Close()

	c := NewRoomClient(srv.URL, time.Second, breaker.NewRegistry(5, time.Minute))
	room, err := c.GetRoom(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if room.ID != 42 || room.Name != "Boardroom" || !room.IsAvailable() {
		t.Errorf("room = %+v", room)
	}

	_, err = c.GetRoom(context.Background(), 99)
	appErr := apperror.As(err)
	if appErr.Code != apperror.CodeNotFound || appErr.Message != "Room not found" {
		t.Errorf("missing room: %q (%s)", appErr.Message, appErr.Code)
	}
}

// A 404 is a normal answer from a healthy dependency and must not count
// toward opening the circuit.
func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	reg := breaker.NewRegistry(3, time.Minute)
	c := NewRoomClient(srv.URL, time.Second, reg)
	for i := 0; i < 10; i++ {
		_, _ = c.GetRoom(context.Background(), uint64(i))
	}
	if got := reg.Get("rooms-service").State(); got != breaker.Closed {
		t.Errorf("breaker state = %v, want Closed", got)
	}
}

func TestServerErrorsOpenBreakerAndFailFast(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := breaker.NewRegistry(3, time.Minute)
	c := NewRoomClient(srv.URL, time.Second, reg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.GetRoom(ctx, 1)
		if apperror.As(err).Code != apperror.CodeUnavailable {
			t.Fatalf("call %d: code = %s, want DEPENDENCY_UNAVAILABLE", i, apperror.As(err).Code)
		}
	}
	if got := reg.Get("rooms-service").State(); got != breaker.Open {
		t.Fatalf("breaker state = %v, want Open", got)
	}

	// Subsequent calls are rejected without reaching the server.
	before := hits.Load()
	_, err := c.GetRoom(ctx, 1)
	if apperror.As(err).Code != apperror.CodeUnavailable {
		t.Fatalf("fast-fail code = %s", apperror.As(err).Code)
	}
	if hits.Load() != before {
		t.Error("request reached the server while the circuit was open")
	}
}

func TestListAvailableRooms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") != "available" {
			t.Errorf("status query = %q", r.URL.Query().Get("status"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rooms":[{"id":1,"name":"A","capacity":4,"status":"available"},{"id":2,"name":"B","capacity":8,"status":"available"}]}`))
	}))
	defer srv.Close()

	c := NewRoomClient(srv.URL, time.Second, breaker.NewRegistry(5, time.Minute))
	rooms, err := c.ListAvailableRooms(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 2 || rooms[0].Name != "A" || rooms[1].Capacity != 8 {
		t.Errorf("rooms = %+v", rooms)
	}
}

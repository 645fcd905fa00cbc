package booking

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
	"github.com/ahmadyateem/meeting-room-reservation/internal/queue"
)

// memStore is an in-memory Store. Admissions are serialized with a
// per-room mutex, mirroring the row lock the MySQL implementation
// takes on the room row.
type memStore struct {
	mu     sync.Mutex
	locks  map[uint64]*sync.Mutex
	rows   map[uint64]*model.Booking
	nextID uint64
}

func newMemStore() *memStore {
	return &memStore{
		locks: make(map[uint64]*sync.Mutex),
		rows:  make(map[uint64]*model.Booking),
	}
}

func (s *memStore) roomLock(roomID uint64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[roomID] = l
	}
	return l
}

func (s *memStore) findConflict(roomID uint64, start, end time.Time, excludeID uint64) *model.Booking {
	var winner *model.Booking
	for _, b := range s.rows {
		if b.RoomID != roomID || b.ID == excludeID || !b.IsActive() {
			continue
		}
		if Overlaps(b.StartTime, b.EndTime, start, end) {
			if winner == nil || b.StartTime.Before(winner.StartTime) {
				winner = b
			}
		}
	}
	if winner == nil {
		return nil
	}
	cp := *winner
	return &cp
}

func (s *memStore) Admit(_ context.Context, b *model.Booking) (*model.Booking, error) {
	l := s.roomLock(b.RoomID)
	l.Lock()
	defer l.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.findConflict(b.RoomID, b.StartTime, b.EndTime, 0); c != nil {
		return c, nil
	}
	s.nextID++
	b.ID = s.nextID
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	s.rows[b.ID] = &cp
	return nil, nil
}

func (s *memStore) Reschedule(_ context.Context, id uint64, start, end time.Time) (*model.Booking, error) {
	s.mu.Lock()
	row, ok := s.rows[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	l := s.roomLock(row.RoomID)
	l.Lock()
	defer l.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.findConflict(row.RoomID, start, end, id); c != nil {
		return c, nil
	}
	row.StartTime, row.EndTime = start, end
	return nil, nil
}

func (s *memStore) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[id]
	if !ok {
		return model.Booking{}, ErrNotFound
	}
	return *b, nil
}

func (s *memStore) ActiveByRoom(_ context.Context, roomID uint64, from, to time.Time) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.rows {
		if b.RoomID == roomID && b.IsActive() && Overlaps(b.StartTime, b.EndTime, from, to) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *memStore) List(_ context.Context, f Filter) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.rows {
		if f.UserID != 0 && b.UserID != f.UserID {
			continue
		}
		if f.RoomID != 0 && b.RoomID != f.RoomID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.ActiveOnly && !b.IsActive() {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (s *memStore) UpdateFields(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[b.ID]
	if !ok {
		return ErrNotFound
	}
	row.Title, row.Description, row.Attendees = b.Title, b.Description, b.Attendees
	return nil
}

func (s *memStore) Cancel(_ context.Context, id uint64, by uint64, reason *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.Status == model.BookingCancelled {
		return ErrNotFound
	}
	row.Status = model.BookingCancelled
	row.CancellationReason = reason
	row.CancelledAt = &at
	row.CancelledBy = &by
	return nil
}

func (s *memStore) SetStatus(_ context.Context, id uint64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return ErrNotFound
	}
	row.Status = status
	return nil
}

// stubRooms is a fixed in-memory room directory.
type stubRooms struct {
	rooms map[uint64]model.Room
}

func (s *stubRooms) GetRoom(_ context.Context, id uint64) (model.Room, error) {
	r, ok := s.rooms[id]
	if !ok {
		return model.Room{}, apperror.NotFound("Room")
	}
	return r, nil
}

func (s *stubRooms) ListAvailableRooms(_ context.Context) ([]model.Room, error) {
	var out []model.Room
	for _, r := range s.rooms {
		if r.IsAvailable() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// recordingNotifier counts emitted events.
type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []queue.Event
	cancelled []queue.Event
}

func (n *recordingNotifier) BookingConfirmed(_ context.Context, ev queue.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, ev)
}

func (n *recordingNotifier) BookingCancelled(_ context.Context, ev queue.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, ev)
}

func testEngine(t *testing.T, now time.Time) (*Engine, *memStore, *recordingNotifier) {
	t.Helper()
	store := newMemStore()
	rooms := &stubRooms{rooms: map[uint64]model.Room{
		1: {ID: 1, Name: "Boardroom", Capacity: 10, Status: model.RoomAvailable},
		2: {ID: 2, Name: "Huddle", Capacity: 4, Status: model.RoomAvailable},
		3: {ID: 3, Name: "Workshop", Capacity: 30, Status: model.RoomMaintenance},
	}}
	notify := &recordingNotifier{}
	eng := New(store, rooms, nil, notify).WithClock(func() time.Time { return now })
	return eng, store, notify
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts.UTC()
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2025, 11, 25, 10, 0, 0, 0, time.UTC)
	hour := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	tests := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		want           bool
	}{
		{"identical", hour(0), hour(1), hour(0), hour(1), true},
		{"partial overlap", hour(0), hour(2), hour(1), hour(3), true},
		{"containment", hour(0), hour(4), hour(1), hour(2), true},
		{"contained by", hour(1), hour(2), hour(0), hour(4), true},
		{"touching end to start", hour(0), hour(1), hour(1), hour(2), false},
		{"touching start to end", hour(1), hour(2), hour(0), hour(1), false},
		{"disjoint before", hour(0), hour(1), hour(2), hour(3), false},
		{"disjoint after", hour(2), hour(3), hour(0), hour(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.s1, tt.e1, tt.s2, tt.e2); got != tt.want {
				t.Errorf("Overlaps(%v,%v,%v,%v) = %v, want %v", tt.s1, tt.e1, tt.s2, tt.e2, got, tt.want)
			}
		})
	}
}

// TestOverlapsRandomized checks the predicate against the definitional
// formula s1 < e2 && e1 > s2 over random interval pairs.
func TestOverlapsRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := time.Date(2025, 11, 25, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2000; i++ {
		s1 := base.Add(time.Duration(rng.Intn(1440)) * time.Minute)
		e1 := s1.Add(time.Duration(1+rng.Intn(480)) * time.Minute)
		s2 := base.Add(time.Duration(rng.Intn(1440)) * time.Minute)
		e2 := s2.Add(time.Duration(1+rng.Intn(480)) * time.Minute)
		want := s1.Before(e2) && e1.After(s2)
		if got := Overlaps(s1, e1, s2, e2); got != want {
			t.Fatalf("Overlaps(%v,%v,%v,%v) = %v, want %v", s1, e1, s2, e2, got, want)
		}
	}
}

func TestCreateRejectsIllegalWindows(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	eng, _, _ := testEngine(t, now)
	ctx := context.Background()

	tests := []struct {
		name       string
		start, end time.Time
		wantMsg    string
	}{
		{"end before start", at(t, "2025-11-25T11:00:00Z"), at(t, "2025-11-25T10:00:00Z"), "End time must be after start time"},
		{"start in past", at(t, "2025-11-19T10:00:00Z"), at(t, "2025-11-19T11:00:00Z"), "Booking start time cannot be in the past"},
		{"too short", at(t, "2025-11-25T10:00:00Z"), at(t, "2025-11-25T10:29:00Z"), "Booking duration must be at least 30 minutes"},
		{"too long", at(t, "2025-11-25T10:00:00Z"), at(t, "2025-12-03T10:00:00Z"), "Booking duration cannot exceed 7 days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.Create(ctx, CreateInput{
				UserID: 1, RoomID: 1, Title: "standup",
				StartTime: tt.start, EndTime: tt.end,
			})
			appErr := apperror.As(err)
			if appErr.Code != apperror.CodeValidation {
				t.Fatalf("code = %s, want %s (err: %v)", appErr.Code, apperror.CodeValidation, err)
			}
			if appErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", appErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestCreateRejectsUnavailableRoomAndCapacity(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	eng, _, _ := testEngine(t, now)
	ctx := context.Background()
	start, end := at(t, "2025-11-25T10:00:00Z"), at(t, "2025-11-25T11:00:00Z")

	_, err := eng.Create(ctx, CreateInput{UserID: 1, RoomID: 99, Title: "x", StartTime: start, EndTime: end})
	if apperror.As(err).Code != apperror.CodeNotFound {
		t.Errorf("unknown room: code = %s, want NOT_FOUND", apperror.As(err).Code)
	}

	_, err = eng.Create(ctx, CreateInput{UserID: 1, RoomID: 3, Title: "x", StartTime: start, EndTime: end})
	appErr := apperror.As(err)
	if appErr.Code != apperror.CodeConflict || appErr.Message != "Room is currently maintenance" {
		t.Errorf("maintenance room: got %q (%s)", appErr.Message, appErr.Code)
	}

	attendees := 20
	_, err = eng.Create(ctx, CreateInput{UserID: 1, RoomID: 1, Title: "x", StartTime: start, EndTime: end, Attendees: &attendees})
	appErr = apperror.As(err)
	if appErr.Code != apperror.CodeValidation || !strings.Contains(appErr.Message, "exceeds room capacity") {
		t.Errorf("over capacity: got %q (%s)", appErr.Message, appErr.Code)
	}
}

func TestAtMostOneWinner(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	eng, store, _ := testEngine(t, now)
	ctx := context.Background()

	const n = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Pairwise-overlapping windows shifted by a minute each.
			start := at(t, "2025-11-25T10:00:00Z").Add(time.Duration(i) * time.Minute)
			_, err := eng.Create(ctx, CreateInput{
				UserID: uint64(i + 1), RoomID: 1, Title: "race",
				StartTime: start, EndTime: start.Add(2 * time.Hour),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			appErr := apperror.As(err)
			if appErr.Code != apperror.CodeConflict {
				t.Errorf("loser got %s, want CONFLICT: %v", appErr.Code, err)
				return
			}
			if _, ok := appErr.Details["conflicting_booking_id"]; !ok {
				t.Errorf("conflict details missing winner id: %v", appErr.Details)
			}
			conflicts++
		}(i)
	}
	wg.Wait()

	if successes != 1 || conflicts != n-1 {
		t.Fatalf("successes = %d, conflicts = %d, want 1 and %d", successes, conflicts, n-1)
	}
	active, err := store.List(ctx, Filter{RoomID: 1, ActiveOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Fatalf("active bookings after race = %d, want exactly 1", len(active))
	}
}

// recordingInvalidator captures the cache scopes dropped by mutations.
type recordingInvalidator struct {
	mu     sync.Mutex
	scopes []string
}

func (r *recordingInvalidator) InvalidatePrefix(_ context.Context, scope string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes = append(r.scopes, scope)
}

func (r *recordingInvalidator) has(scope string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func TestCreateTakesEffectImmediately(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	eng, store, _ := testEngine(t, now)
	ctx := context.Background()

	b, err := eng.Create(ctx, CreateInput{
		UserID: 5, RoomID: 1, Title: "demo",
		StartTime: at(t, "2025-11-25T10:00:00Z"), EndTime: at(t, "2025-11-25T11:00:00Z"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != model.BookingConfirmed {
		t.Errorf("returned status = %q, want %q", b.Status, model.BookingConfirmed)
	}
	got, err := store.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.BookingConfirmed {
		t.Errorf("persisted status = %q, want %q", got.Status, model.BookingConfirmed)
	}
}

func TestCreateRejectsRecurrenceEndBeforeStart(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	eng, _, _ := testEngine(t, now)
	ctx := context.Background()

	pattern := "weekly"
	endDate := at(t, "2025-11-24T00:00:00Z")
	_, err := eng.Create(ctx, CreateInput{
		UserID: 1, RoomID: 1, Title: "standup",
		StartTime: at(t, "2025-11-25T10:00:00Z"), EndTime: at(t, "2025-11-25T11:00:00Z"),
		IsRecurring: true, RecurrencePattern: &pattern, RecurrenceEndDate: &endDate,
	})
	appErr := apperror.As(err)
	if appErr.Code != apperror.CodeValidation {
		t.Fatalf("code = %s, want %s (err: %v)", appErr.Code, apperror.CodeValidation, err)
	}
	if appErr.Message != "Recurrence end date cannot be before the booking start time" {
		t.Errorf("message = %q", appErr.Message)
	}
}

// TestUpdateStatusCancelledRecordsAuditTrail covers the status field of
// a partial update: requesting cancelled must leave the same audit
// trail as the cancel endpoint, and the sweeper-owned terminal states
// cannot be requested at all.
func TestUpdateStatusCancelledRecordsAuditTrail(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	eng, store, notify := testEngine(t, now)
	ctx := context.Background()

	b, err := eng.Create(ctx, CreateInput{
		UserID: 7, RoomID: 1, Title: "sync",
		StartTime: at(t, "2025-11-25T10:00:00Z"), EndTime: at(t, "2025-11-25T11:00:00Z"),
	})
	if err != nil {
		t.Fatal(err)
	}

	status := model.BookingCancelled
	updated, err := eng.Update(ctx, b.ID, 7, model.RoleUser, UpdateInput{Status: &status})
	if err != nil {
		t.Fatalf("update to cancelled: %v", err)
	}
	if updated.Status != model.BookingCancelled {
		t.Errorf("status = %q, want cancelled", updated.Status)
	}
	if updated.CancelledAt == nil || updated.CancelledBy == nil || *updated.CancelledBy != 7 {
		t.Errorf("audit trail not recorded: cancelled_at=%v cancelled_by=%v", updated.CancelledAt, updated.CancelledBy)
	}
	got, err := store.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CancelledAt == nil || got.CancelledBy == nil {
		t.Errorf("persisted audit trail missing: %+v", got)
	}
	notify.mu.Lock()
	cancelledEvents := len(notify.cancelled)
	notify.mu.Unlock()
	if cancelledEvents != 1 {
		t.Errorf("cancellation events = %d, want 1", cancelledEvents)
	}
}

func TestUpdateStatusSweeperStatesAreRejected(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	eng, _, _ := testEngine(t, now)
	ctx := context.Background()

	b, err := eng.Create(ctx, CreateInput{
		UserID: 7, RoomID: 1, Title: "sync",
		StartTime: at(t, "2025-11-25T10:00:00Z"), EndTime: at(t, "2025-11-25T11:00:00Z"),
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, status := range []string{model.BookingCompleted, model.BookingNoShow} {
		s := status
		_, err := eng.Update(ctx, b.ID, 7, model.RoleUser, UpdateInput{Status: &s})
		appErr := apperror.As(err)
		if appErr.Code != apperror.CodeValidation {
			t.Errorf("status %q: code = %s, want %s", status, appErr.Code, apperror.CodeValidation)
		}
	}
}

func TestMutationsInvalidateListingScopes(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	store := newMemStore()
	rooms := &stubRooms{rooms: map[uint64]model.Room{
		1: {ID: 1, Name: "Boardroom", Capacity: 10, Status: model.RoomAvailable},
	}}
	inv := &recordingInvalidator{}
	eng := New(store, rooms, inv, nil).WithClock(func() time.Time { return now })
	ctx := context.Background()

	b, err := eng.Create(ctx, CreateInput{
		UserID: 7, RoomID: 1, Title: "sync",
		StartTime: at(t, "2025-11-25T10:00:00Z"), EndTime: at(t, "2025-11-25T11:00:00Z"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !inv.has("room_bookings:1") || !inv.has("user_bookings:7") {
		t.Fatalf("create invalidated %v, want room_bookings:1 and user_bookings:7", inv.scopes)
	}

	inv.mu.Lock()
	inv.scopes = nil
	inv.mu.Unlock()

	if _, err := eng.Cancel(ctx, b.ID, 7, model.RoleUser, nil); err != nil {
		t.Fatal(err)
	}
	if !inv.has("room_bookings:1") || !inv.has("user_bookings:7") {
		t.Fatalf("cancel invalidated %v, want room_bookings:1 and user_bookings:7", inv.scopes)
	}
}

func TestCancelIsRejectedWhenAlreadyCancelled(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	eng, store, _ := testEngine(t, now)
	ctx := context.Background()

	b, err := eng.Create(ctx, CreateInput{
		UserID: 7, RoomID: 1, Title: "retro",
		StartTime: at(t, "2025-11-25T10:00:00Z"), EndTime: at(t, "2025-11-25T11:00:00Z"),
	})
	if err != nil {
		t.Fatal(err)
	}

	reason := "plans changed"
	cancelled, err := eng.Cancel(ctx, b.ID, 7, model.RoleUser, &reason)
	if err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if cancelled.CancelledAt == nil || cancelled.CancelledBy == nil || *cancelled.CancelledBy != 7 {
		t.Fatalf("cancellation audit trail not recorded: %+v", cancelled)
	}
	firstCancelledAt := *cancelled.CancelledAt

	_, err = eng.Cancel(ctx, b.ID, 7, model.RoleUser, &reason)
	appErr := apperror.As(err)
	if appErr.Code != apperror.CodeConflict || appErr.Message != "Booking is already cancelled" {
		t.Fatalf("second cancel: got %q (%s), want conflict", appErr.Message, appErr.Code)
	}

	got, err := store.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CancelledAt == nil || !got.CancelledAt.Equal(firstCancelledAt) {
		t.Errorf("cancelled_at mutated by rejected second cancel: %v vs %v", got.CancelledAt, firstCancelledAt)
	}
}

func TestCancelOwnership(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	eng, _, _ := testEngine(t, now)
	ctx := context.Background()

	b, err := eng.Create(ctx, CreateInput{
		UserID: 7, RoomID: 1, Title: "1:1",
		StartTime: at(t, "2025-11-25T10:00:00Z"), EndTime: at(t, "2025-11-25T11:00:00Z"),
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = eng.Cancel(ctx, b.ID, 8, model.RoleUser, nil)
	if apperror.As(err).Code != apperror.CodeForbidden {
		t.Errorf("other user cancel: code = %s, want FORBIDDEN", apperror.As(err).Code)
	}
	if _, err := eng.Cancel(ctx, b.ID, 8, model.RoleAdmin, nil); err != nil {
		t.Errorf("admin cancel: %v", err)
	}
}

func TestUpdateCancelledBookingIsImmutable(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	eng, _, _ := testEngine(t, now)
	ctx := context.Background()

	b, err := eng.Create(ctx, CreateInput{
		UserID: 7, RoomID: 1, Title: "sync",
		StartTime: at(t, "2025-11-25T10:00:00Z"), EndTime: at(t, "2025-11-25T11:00:00Z"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Cancel(ctx, b.ID, 7, model.RoleUser, nil); err != nil {
		t.Fatal(err)
	}

	title := "renamed"
	_, err = eng.Update(ctx, b.ID, 7, model.RoleUser, UpdateInput{Title: &title})
	appErr := apperror.As(err)
	if appErr.Code != apperror.CodeConflict || appErr.Message != "Cannot update cancelled booking" {
		t.Fatalf("got %q (%s)", appErr.Message, appErr.Code)
	}
}

func TestUpdateRescheduleExcludesSelf(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	eng, _, _ := testEngine(t, now)
	ctx := context.Background()

	b, err := eng.Create(ctx, CreateInput{
		UserID: 7, RoomID: 1, Title: "planning",
		StartTime: at(t, "2025-11-25T10:00:00Z"), EndTime: at(t, "2025-11-25T11:00:00Z"),
	})
	if err != nil {
		t.Fatal(err)
	}

	// Shift within its own window: must not conflict with itself.
	newStart := at(t, "2025-11-25T10:30:00Z")
	newEnd := at(t, "2025-11-25T11:30:00Z")
	updated, err := eng.Update(ctx, b.ID, 7, model.RoleUser, UpdateInput{StartTime: &newStart, EndTime: &newEnd})
	if err != nil {
		t.Fatalf("self-overlapping reschedule: %v", err)
	}
	if !updated.StartTime.Equal(newStart) || !updated.EndTime.Equal(newEnd) {
		t.Errorf("window not moved: %v - %v", updated.StartTime, updated.EndTime)
	}

	// A second booking blocks further moves into its window.
	other, err := eng.Create(ctx, CreateInput{
		UserID: 8, RoomID: 1, Title: "other",
		StartTime: at(t, "2025-11-25T12:00:00Z"), EndTime: at(t, "2025-11-25T13:00:00Z"),
	})
	if err != nil {
		t.Fatal(err)
	}
	blockedStart := at(t, "2025-11-25T12:30:00Z")
	blockedEnd := at(t, "2025-11-25T13:30:00Z")
	_, err = eng.Update(ctx, b.ID, 7, model.RoleUser, UpdateInput{StartTime: &blockedStart, EndTime: &blockedEnd})
	appErr := apperror.As(err)
	if appErr.Code != apperror.CodeConflict {
		t.Fatalf("move onto other booking: code = %s, want CONFLICT", appErr.Code)
	}
	if id, ok := appErr.Details["conflicting_booking_id"].(uint64); !ok || id != other.ID {
		t.Errorf("conflict names %v, want booking %d", appErr.Details["conflicting_booking_id"], other.ID)
	}
}

// TestBookingLifecycleScenario walks the end-to-end sequence: create,
// overlapping create rejected naming the winner, boundary-touching
// create admitted, cancel frees the slot.
func TestBookingLifecycleScenario(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	eng, _, notify := testEngine(t, now)
	ctx := context.Background()

	first, err := eng.Create(ctx, CreateInput{
		UserID: 1, RoomID: 1, Title: "kickoff",
		StartTime: at(t, "2025-11-25T10:00:00Z"), EndTime: at(t, "2025-11-25T11:00:00Z"),
	})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err = eng.Create(ctx, CreateInput{
		UserID: 2, RoomID: 1, Title: "overlap",
		StartTime: at(t, "2025-11-25T10:30:00Z"), EndTime: at(t, "2025-11-25T11:30:00Z"),
	})
	appErr := apperror.As(err)
	if appErr.Code != apperror.CodeConflict {
		t.Fatalf("overlapping create: code = %s, want CONFLICT", appErr.Code)
	}
	if id, _ := appErr.Details["conflicting_booking_id"].(uint64); id != first.ID {
		t.Fatalf("conflict references booking %v, want %d", appErr.Details["conflicting_booking_id"], first.ID)
	}

	if _, err := eng.Create(ctx, CreateInput{
		UserID: 3, RoomID: 1, Title: "back to back",
		StartTime: at(t, "2025-11-25T11:00:00Z"), EndTime: at(t, "2025-11-25T12:00:00Z"),
	}); err != nil {
		t.Fatalf("boundary-touching create: %v", err)
	}

	if _, err := eng.Cancel(ctx, first.ID, 1, model.RoleUser, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	avail, err := eng.CheckAvailability(ctx, 1, at(t, "2025-11-25T10:00:00Z"), at(t, "2025-11-25T11:00:00Z"))
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if !avail.IsAvailable {
		t.Fatal("slot of cancelled booking reported unavailable")
	}

	notify.mu.Lock()
	defer notify.mu.Unlock()
	if len(notify.confirmed) != 2 || len(notify.cancelled) != 1 {
		t.Errorf("events: %d confirmed, %d cancelled, want 2 and 1", len(notify.confirmed), len(notify.cancelled))
	}
}

func TestCheckFleetAvailability(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	eng, _, _ := testEngine(t, now)
	ctx := context.Background()

	if _, err := eng.Create(ctx, CreateInput{
		UserID: 1, RoomID: 1, Title: "busy",
		StartTime: at(t, "2025-11-25T10:00:00Z"), EndTime: at(t, "2025-11-25T11:00:00Z"),
	}); err != nil {
		t.Fatal(err)
	}

	out, err := eng.CheckFleetAvailability(ctx, at(t, "2025-11-25T10:00:00Z"), at(t, "2025-11-25T11:00:00Z"))
	if err != nil {
		t.Fatal(err)
	}
	// Room 3 is in maintenance and excluded from the fleet entirely.
	if len(out) != 2 {
		t.Fatalf("fleet size = %d, want 2", len(out))
	}
	byRoom := map[uint64]bool{}
	for _, r := range out {
		byRoom[r.RoomID] = r.IsAvailable
	}
	if byRoom[1] || !byRoom[2] {
		t.Errorf("availability flags = %v, want room 1 busy and room 2 free", byRoom)
	}
}

func TestListConflictsReportsOverlappingPairs(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	eng, store, _ := testEngine(t, now)
	ctx := context.Background()

	// Seed overlapping rows directly; the admission path would refuse
	// them, but drift can happen out of band and the report must see it.
	seed := []model.Booking{
		{UserID: 1, RoomID: 1, Title: "a", Status: model.BookingConfirmed,
			StartTime: at(t, "2025-11-25T10:00:00Z"), EndTime: at(t, "2025-11-25T12:00:00Z")},
		{UserID: 2, RoomID: 1, Title: "b", Status: model.BookingPending,
			StartTime: at(t, "2025-11-25T11:00:00Z"), EndTime: at(t, "2025-11-25T13:00:00Z")},
		{UserID: 3, RoomID: 2, Title: "c", Status: model.BookingConfirmed,
			StartTime: at(t, "2025-11-25T11:00:00Z"), EndTime: at(t, "2025-11-25T13:00:00Z")},
		{UserID: 4, RoomID: 1, Title: "cancelled", Status: model.BookingCancelled,
			StartTime: at(t, "2025-11-25T10:00:00Z"), EndTime: at(t, "2025-11-25T14:00:00Z")},
	}
	for i := range seed {
		store.mu.Lock()
		store.nextID++
		seed[i].ID = store.nextID
		cp := seed[i]
		store.rows[cp.ID] = &cp
		store.mu.Unlock()
	}

	pairs, err := eng.ListConflicts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(pairs))
	}
	p := pairs[0]
	if p.RoomID != 1 {
		t.Errorf("room = %d, want 1", p.RoomID)
	}
	if p.Booking1.Title != "a" || p.Booking2.Title != "b" {
		t.Errorf("pair = %q/%q, want sorted by start time a/b", p.Booking1.Title, p.Booking2.Title)
	}
}

func TestGetNotFound(t *testing.T) {
	now := at(t, "2025-11-20T00:00:00Z")
	eng, _, _ := testEngine(t, now)
	_, err := eng.Get(context.Background(), 12345, 1, model.RoleAdmin)
	if apperror.As(err).Code != apperror.CodeNotFound {
		t.Errorf("code = %s, want NOT_FOUND", apperror.As(err).Code)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Error("error does not unwrap to *apperror.AppError")
	}
}

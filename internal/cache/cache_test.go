package cache

import (
	"context"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	tests := []struct {
		scope string
		args  []any
		want  string
	}{
		{"room_bookings", []any{uint64(42)}, "room_bookings:42"},
		{"user_bookings", []any{7, "page", 2}, "user_bookings:7:page:2"},
		{"room_reviews", []any{3, "newest", 0, 20, 0}, "room_reviews:3:newest:0:20:0"},
		{"rooms", nil, "rooms"},
		{"availability", []any{1, "2025-11-25T10:00:00Z"}, "availability:1:2025-11-25T10:00:00Z"},
	}
	for _, tt := range tests {
		if got := Key(tt.scope, tt.args...); got != tt.want {
			t.Errorf("Key(%q, %v) = %q, want %q", tt.scope, tt.args, got, tt.want)
		}
	}
}

// A nil client must behave as a permanent miss and never panic.
func TestDisabledCacheDegradesToMiss(t *testing.T) {
	ctx := context.Background()

	var c *Cache
	var out int
	if c.Get(ctx, "k", &out) {
		t.Error("nil *Cache reported a hit")
	}
	c.Set(ctx, "k", 1)
	c.InvalidatePrefix(ctx, "k")

	c = New(nil, time.Minute)
	if c.Get(ctx, "k", &out) {
		t.Error("client-less cache reported a hit")
	}
	c.Set(ctx, "k", 1)
	c.InvalidatePrefix(ctx, "k")
}

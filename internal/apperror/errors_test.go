package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructorsMapToHTTPStatuses(t *testing.T) {
	tests := []struct {
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{Validation("bad input"), CodeValidation, http.StatusBadRequest},
		{NotFound("Room"), CodeNotFound, http.StatusNotFound},
		{Conflict("overlap"), CodeConflict, http.StatusConflict},
		{Forbidden("nope"), CodeForbidden, http.StatusForbidden},
		{Unauthorized("who"), CodeUnauthorized, http.StatusUnauthorized},
		{Unavailable("rooms-service"), CodeUnavailable, http.StatusServiceUnavailable},
		{Internal("boom", errors.New("x")), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if tt.err.Code != tt.wantCode {
			t.Errorf("code = %s, want %s", tt.err.Code, tt.wantCode)
		}
		if tt.err.HTTPStatus != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.err.Code, tt.err.HTTPStatus, tt.wantStatus)
		}
	}
}

func TestNotFoundMessage(t *testing.T) {
	if got := NotFound("Booking").Message; got != "Booking not found" {
		t.Errorf("message = %q", got)
	}
}

func TestAsNormalizesUnknownErrors(t *testing.T) {
	plain := errors.New("driver: bad connection")
	appErr := As(plain)
	if appErr.Code != CodeInternal {
		t.Fatalf("code = %s, want INTERNAL_ERROR", appErr.Code)
	}
	if !errors.Is(appErr, plain) {
		t.Error("original error lost from the chain")
	}
	if appErr.Message == plain.Error() {
		t.Error("internal details leaked into the message")
	}
}

func TestAsExtractsWrappedAppError(t *testing.T) {
	orig := Conflict("Booking is already cancelled")
	wrapped := fmt.Errorf("cancel failed: %w", orig)
	if got := As(wrapped); got != orig {
		t.Errorf("As did not unwrap to the original AppError: %v", got)
	}
}

func TestWithDetails(t *testing.T) {
	err := Conflict("overlap").WithDetails(map[string]any{"conflicting_booking_id": uint64(9)})
	if err.Details["conflicting_booking_id"] != uint64(9) {
		t.Errorf("details = %v", err.Details)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/utils"
)

const testSecret = "test-secret"

func runGuarded(t *testing.T, authHeader string, mw ...echo.MiddlewareFunc) (uint64, string, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotID uint64
	var gotRole string
	h := func(c echo.Context) error {
		gotID, gotRole = Identity(c)
		return c.NoContent(http.StatusOK)
	}
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return gotID, gotRole, h(c)
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, "user", 15)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	id, role, herr := runGuarded(t, "Bearer "+tok.Token, JWTAuth(testSecret))
	if herr != nil {
		t.Fatalf("unexpected error: %v", herr)
	}
	if id != 42 || role != "user" {
		t.Fatalf("identity = (%d, %q), want (42, user)", id, role)
	}
}

func TestJWTAuthRejectsMissingAndMalformed(t *testing.T) {
	for _, header := range []string{"", "Basic abc", "Bearer not-a-jwt"} {
		_, _, err := runGuarded(t, header, JWTAuth(testSecret))
		appErr := apperror.As(err)
		if appErr.HTTPStatus != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, appErr.HTTPStatus)
		}
	}
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", 42, "user", 15)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	_, _, herr := runGuarded(t, "Bearer "+tok.Token, JWTAuth(testSecret))
	if apperror.As(herr).HTTPStatus != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", herr)
	}
}

func TestJWTAuthRejectsUnsignedToken(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":  float64(42),
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, _, herr := runGuarded(t, "Bearer "+raw, JWTAuth(testSecret))
	if apperror.As(herr).HTTPStatus != http.StatusUnauthorized {
		t.Fatalf("expected 401 for alg=none, got %v", herr)
	}
}

func TestRequireRole(t *testing.T) {
	issue := func(role string) string {
		tok, err := utils.NewAccessToken(testSecret, 7, role, 15)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		return "Bearer " + tok.Token
	}

	_, _, err := runGuarded(t, issue("admin"), JWTAuth(testSecret), RequireRole("admin", "facility_manager"))
	if err != nil {
		t.Fatalf("admin should pass: %v", err)
	}

	_, _, err = runGuarded(t, issue("user"), JWTAuth(testSecret), RequireRole("admin"))
	appErr := apperror.As(err)
	if appErr.HTTPStatus != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", appErr.HTTPStatus)
	}
	if appErr.Message != "Insufficient permissions" {
		t.Fatalf("message = %q", appErr.Message)
	}
}

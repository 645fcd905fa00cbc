package middleware // contains reusable HTTP middleware shared by the services

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
)

// Context keys populated by JWTAuth for downstream middleware and handlers.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject and role claims into the request context. The
// provided secret must match the one used when issuing tokens. This
// middleware wraps protected routes so handlers can access the authenticated
// user via `c.Get(CtxUserID)` and `c.Get(CtxRole)`.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return apperror.Unauthorized("missing bearer token")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse with HS256 and our secret; reject any other signing
			// method so an attacker cannot downgrade to "none".
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return apperror.Unauthorized("invalid token")
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return apperror.Unauthorized("invalid claims")
			}

			// Subject carries the user id as a float64 after JSON decoding.
			sub, ok := claims["sub"].(float64)
			if !ok {
				return apperror.Unauthorized("invalid subject claim")
			}
			role, _ := claims["role"].(string)

			c.Set(CtxUserID, uint64(sub))
			c.Set(CtxRole, role)
			return next(c)
		}
	}
}

// Identity reads the authenticated user id and role stored by JWTAuth.
// Zero values mean the request was not authenticated.
func Identity(c echo.Context) (userID uint64, role string) {
	if v, ok := c.Get(CtxUserID).(uint64); ok {
		userID = v
	}
	if v, ok := c.Get(CtxRole).(string); ok {
		role = v
	}
	return userID, role
}

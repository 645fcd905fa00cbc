package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
)

// RequireRole returns a middleware that enforces that the authenticated
// user holds one of the given roles. The roles correspond to the values
// stored in the JWT's "role" claim. It assumes JWTAuth already ran and
// stored the role in the context.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allowed[role] {
				return apperror.Forbidden("Insufficient permissions")
			}
			return next(c)
		}
	}
}

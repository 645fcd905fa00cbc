package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/breaker"
)

// Health reports liveness plus the state of every circuit breaker the
// service holds, so operators can see a stuck-open circuit from the
// monitoring probe without log diving.
func Health(service string, registry *breaker.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		body := echo.Map{
			"status":  "healthy",
			"service": service,
		}
		if registry != nil {
			if states := registry.States(); len(states) > 0 {
				body["circuit_breakers"] = states
			}
		}
		return c.JSON(http.StatusOK, body)
	}
}

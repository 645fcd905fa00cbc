// Package router registers each service's HTTP routes. Route
// registration owns the guard order: authentication, then role
// enforcement, then audit logging, then the handler.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/breaker"
	"github.com/ahmadyateem/meeting-room-reservation/internal/handler"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
)

// allRoles lists every role the platform issues tokens for. Groups
// that only need "a valid authenticated caller" use this set so a new
// role cannot slip past RequireRole unnamed.
var allRoles = []string{
	model.RoleAdmin,
	model.RoleUser,
	model.RoleFacilityManager,
	model.RoleModerator,
	model.RoleAuditor,
	model.RoleService,
}

// RegisterHealth exposes the liveness endpoint, including circuit
// breaker states when a registry is supplied.
func RegisterHealth(e *echo.Echo, service string, registry *breaker.Registry) {
	e.GET("/health", handler.Health(service, registry))
}

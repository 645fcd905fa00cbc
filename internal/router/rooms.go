package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/handler"
	"github.com/ahmadyateem/meeting-room-reservation/internal/middleware"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
)

// RegisterRooms registers the room catalog endpoints. Reads are open to
// every authenticated role (the bookings service calls them with a
// service token); mutations require a facility manager or admin.
func RegisterRooms(e *echo.Echo, h *handler.RoomHandler, audit *middleware.Auditor, jwtSecret string) {
	g := e.Group("/api/rooms", middleware.JWTAuth(jwtSecret))

	read := g.Group("", middleware.RequireRole(allRoles...))
	read.GET("", h.List)
	read.GET("/:id", h.Get)

	manage := g.Group("", middleware.RequireRole(model.RoleFacilityManager, model.RoleAdmin))
	manage.POST("", h.Create, audit.Log("create", "room"))
	manage.PUT("/:id", h.Update, audit.Log("update", "room"))
	manage.PATCH("/:id/status", h.UpdateStatus, audit.Log("update_status", "room"))
	manage.DELETE("/:id", h.Delete, audit.Log("delete", "room"))
}

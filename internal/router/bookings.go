package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/handler"
	"github.com/ahmadyateem/meeting-room-reservation/internal/middleware"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
)

// RegisterBookings registers the reservation endpoints. Confirmation
// and the conflict report are limited to facility managers and admins;
// per-booking ownership is enforced inside the engine, not here.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, audit *middleware.Auditor, jwtSecret string) {
	g := e.Group("/api/bookings", middleware.JWTAuth(jwtSecret))

	user := g.Group("", middleware.RequireRole(allRoles...))
	user.POST("", h.Create, audit.Log("create", "booking"))
	user.GET("", h.List)
	user.GET("/:id", h.Get)
	user.PUT("/:id", h.Update, audit.Log("update", "booking"))
	user.POST("/:id/cancel", h.Cancel, audit.Log("cancel", "booking"))
	user.DELETE("/:id", h.Cancel, audit.Log("cancel", "booking"))
	user.POST("/check-availability", h.CheckAvailability)

	manage := g.Group("", middleware.RequireRole(model.RoleFacilityManager, model.RoleAdmin))
	manage.POST("/:id/confirm", h.Confirm, audit.Log("confirm", "booking"))
	manage.GET("/conflicts", h.Conflicts)
}

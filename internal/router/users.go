package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/handler"
	"github.com/ahmadyateem/meeting-room-reservation/internal/middleware"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
)

// RegisterAuth registers the unauthenticated session endpoints.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, audit *middleware.Auditor) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register, audit.Log("register", "user"))
	g.POST("/login", a.Login, audit.Log("login", "user"))
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, audit.Log("logout", "user"))
}

// RegisterUsers registers the account endpoints. Every route requires a
// valid access token; listing and deactivation are admin only.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, audit *middleware.Auditor, jwtSecret string) {
	g := e.Group("/api/users", middleware.JWTAuth(jwtSecret))

	me := g.Group("", middleware.RequireRole(allRoles...))
	me.GET("/profile", u.Profile)
	me.PUT("/profile", u.UpdateProfile, audit.Log("update_profile", "user"))
	me.GET("/:id", u.Get)
	me.GET("/:id/bookings", u.UserBookings)

	admin := g.Group("", middleware.RequireRole(model.RoleAdmin))
	admin.GET("", u.List)
	admin.POST("/:id/deactivate", u.Deactivate, audit.Log("deactivate", "user"))
}

// RegisterAudit exposes the audit trail to admins and auditors.
func RegisterAudit(e *echo.Echo, a *handler.AuditHandler, jwtSecret string) {
	g := e.Group("/api/audit-logs",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleAuditor),
	)
	g.GET("", a.List)
}

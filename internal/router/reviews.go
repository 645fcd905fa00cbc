package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/handler"
	"github.com/ahmadyateem/meeting-room-reservation/internal/middleware"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
)

// RegisterReviews registers review endpoints. The per-room listing is
// cached inside the handler under the room's review scope so review
// mutations can invalidate it; moderation endpoints require the
// moderator or admin role.
func RegisterReviews(e *echo.Echo, h *handler.ReviewHandler, audit *middleware.Auditor, jwtSecret string) {
	auth := middleware.JWTAuth(jwtSecret)

	e.GET("/api/rooms/:id/reviews", h.ListByRoom, auth, middleware.RequireRole(allRoles...))

	g := e.Group("/api/reviews", auth)

	user := g.Group("", middleware.RequireRole(allRoles...))
	user.POST("", h.Create, audit.Log("create", "review"))
	user.GET("/:id", h.Get)
	user.PUT("/:id", h.Update, audit.Log("update", "review"))
	user.DELETE("/:id", h.Delete, audit.Log("delete", "review"))
	user.POST("/:id/flag", h.Flag, audit.Log("flag", "review"))
	user.POST("/:id/vote", h.Vote)

	mod := g.Group("", middleware.RequireRole(model.RoleModerator, model.RoleAdmin))
	mod.GET("/flagged", h.Flagged)
	mod.POST("/:id/moderate", h.Moderate, audit.Log("moderate", "review"))
}

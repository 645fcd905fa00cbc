package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/logger"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
	"github.com/ahmadyateem/meeting-room-reservation/internal/repository"
)

// Auditor records one audit row per mutating request, successful or
// not. The write is best-effort: a failed insert is logged and never
// fails the request it describes.
type Auditor struct {
	repo    *repository.AuditRepo
	service string
}

// NewAuditor builds the audit middleware factory for one service.
func NewAuditor(repo *repository.AuditRepo, service string) *Auditor {
	return &Auditor{repo: repo, service: service}
}

// Log wraps a handler with audit recording for the named action. The
// resource id is read from the `id` path parameter when present. This
// middleware must run after JWTAuth and RequireRole so the row carries
// the authenticated user and only records attempts that passed the
// access checks.
func (a *Auditor) Log(action, resourceType string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			row := model.AuditLog{
				Service:      a.service,
				Action:       action,
				ResourceType: resourceType,
				Success:      err == nil,
				IPAddress:    c.RealIP(),
				UserAgent:    c.Request().UserAgent(),
			}
			if userID, _ := Identity(c); userID != 0 {
				uid := userID
				row.UserID = &uid
			}
			if raw := c.Param("id"); raw != "" {
				if id, perr := strconv.ParseUint(raw, 10, 64); perr == nil {
					row.ResourceID = &id
				}
			}
			if err != nil {
				msg := apperror.As(err).Message
				row.ErrorMessage = &msg
			}

			// Detached context: the audit write should survive a client
			// that hangs up right after the response.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if ierr := a.repo.Insert(ctx, &row); ierr != nil {
				logger.Warn("audit insert failed", map[string]any{
					"action": action, "error": ierr.Error(),
				})
			}
			return err
		}
	}
}

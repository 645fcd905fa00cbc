package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/repository"
)

// AuditHandler serves the audit trail to admins and auditors.
type AuditHandler struct {
	Audits *repository.AuditRepo
}

func NewAuditHandler(a *repository.AuditRepo) *AuditHandler {
	return &AuditHandler{Audits: a}
}

// List returns audit rows, newest first, filterable by user, service
// and action.
func (h *AuditHandler) List(c echo.Context) error {
	limit, offset := pagination(c)
	f := repository.AuditFilter{
		Service: c.QueryParam("service"),
		Action:  c.QueryParam("action"),
		Limit:   limit,
		Offset:  offset,
	}
	if raw := c.QueryParam("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return apperror.Validation("invalid user_id")
		}
		f.UserID = id
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	logs, err := h.Audits.List(ctx, f)
	if err != nil {
		return apperror.Internal("audit list failed", err)
	}
	out := make([]auditResp, 0, len(logs))
	for _, a := range logs {
		out = append(out, auditResp{
			ID:           a.ID,
			UserID:       a.UserID,
			Service:      a.Service,
			Action:       a.Action,
			ResourceType: a.ResourceType,
			ResourceID:   a.ResourceID,
			Success:      a.Success,
			ErrorMessage: a.ErrorMessage,
			IPAddress:    a.IPAddress,
			UserAgent:    a.UserAgent,
			CreatedAt:    a.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"audit_logs": out, "count": len(out)})
}

type auditResp struct {
	ID           uint64    `json:"id"`
	UserID       *uint64   `json:"user_id,omitempty"`
	Service      string    `json:"service"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   *uint64   `json:"resource_id,omitempty"`
	Success      bool      `json:"success"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	CreatedAt    time.Time `json:"created_at"`
}

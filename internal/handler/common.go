// Package handler contains the HTTP handlers of all four services.
// Handlers bind and validate the request, call into repositories or
// the booking engine, and return either JSON or an error from the
// shared taxonomy; the central error handler renders failures.
package handler

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/middleware"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
)

// identity reads the authenticated caller from the request context.
func identity(c echo.Context) (userID uint64, role string) {
	return middleware.Identity(c)
}

// privileged reports whether the role may act on resources it does not own.
func privileged(role string) bool {
	return role == model.RoleAdmin || role == model.RoleFacilityManager
}

// pathID parses the numeric `id` path parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid id")
	}
	return id, nil
}

// pagination reads page/per_page query parameters into limit and
// offset. Pages are 1-based; per_page is capped at 100.
func pagination(c echo.Context) (limit, offset int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return perPage, (page - 1) * perPage
}

// parseUint parses a numeric query parameter.
func parseUint(raw, field string) (uint64, *apperror.AppError) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperror.Validation("invalid " + field)
	}
	return id, nil
}

// splitCommaList parses a comma separated query value, trimming blanks.
func splitCommaList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

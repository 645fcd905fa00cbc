package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/logger"
)

// HTTPErrorHandler is the outermost request boundary. Every error
// escaping a handler is normalized into the shared taxonomy and
// rendered as a uniform JSON body; unclassified failures are logged
// with full context and surfaced as a generic internal error so
// nothing leaks and nothing crashes the process.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	// Echo's own errors (404 route miss, 405) keep their status.
	if he, ok := err.(*echo.HTTPError); ok {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		_ = c.JSON(he.Code, echo.Map{"error": echo.Map{"code": http.StatusText(he.Code), "message": msg}})
		return
	}

	appErr := apperror.As(err)
	if appErr.Code == apperror.CodeInternal {
		logger.Error("unhandled error", map[string]any{
			"method": c.Request().Method,
			"path":   c.Path(),
			"error":  err.Error(),
		})
	}

	body := echo.Map{"error": echo.Map{"code": appErr.Code, "message": appErr.Message}}
	if len(appErr.Details) > 0 {
		body["error"].(echo.Map)["details"] = appErr.Details
	}
	_ = c.JSON(appErr.HTTPStatus, body)
}

// RequestLogger emits one structured log line per request.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			fields := map[string]any{
				"method": c.Request().Method,
				"path":   c.Request().URL.Path,
				"status": c.Response().Status,
				"ip":     c.RealIP(),
			}
			if userID, _ := Identity(c); userID != 0 {
				fields["user_id"] = userID
			}
			if err != nil {
				fields["error"] = apperror.As(err).Message
				logger.Warn("request failed", fields)
				return err
			}
			logger.Info("request", fields)
			return nil
		}
	}
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
)

// HealthReporter reports the last known database health
type HealthReporter interface {
	IsHealthy() bool
}

// RequireDatabase fails requests fast with 503 while monitor reports the
// database unhealthy, without touching the database
func RequireDatabase(monitor HealthReporter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if monitor != nil && !monitor.IsHealthy() {
				return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
					"success": false,
					"error":   apperrors.ErrDatabaseUnavailable.Error(),
					"code":    apperrors.CodeDatabaseUnavailable,
				})
			}
			return next(c)
		}
	}
}

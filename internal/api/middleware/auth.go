// Package middleware provides HTTP middleware for the mailsync API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/helpdesk-mailsync/internal/logger"
)

// isPublicPath reports paths served without an API key
func isPublicPath(path string) bool {
	return strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/ready")
}

// APIKeyAuth validates the bearer token in the Authorization header against
// apiKey using a constant-time comparison. An empty apiKey disables the check.
func APIKeyAuth(apiKey string, audit *logger.AuditLogger) echo.MiddlewareFunc {
	if audit == nil {
		audit = logger.NewAuditLogger(nil)
	}
	if apiKey == "" {
		audit.Logger().Warn("API_KEY not set - API is UNSECURED")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if apiKey == "" || isPublicPath(path) {
				return next(c)
			}

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				audit.AuthFailure(c.RealIP(), path, "missing authorization header")
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
					"error": "missing authorization header",
					"code":  "UNAUTHORIZED",
				})
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				audit.AuthFailure(c.RealIP(), path, "invalid API key")
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
					"error": "invalid API key",
					"code":  "UNAUTHORIZED",
				})
			}

			return next(c)
		}
	}
}

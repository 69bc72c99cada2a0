package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const defaultOrigin = "http://localhost:3000"

// SecureCORS returns CORS middleware for the given origins. An empty list
// allows only the local dashboard. The wildcard is dropped in production.
func SecureCORS(origins []string, env string) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     corsOrigins(origins, env),
		AllowMethods:     []string{echo.GET, echo.POST, echo.PUT, echo.PATCH, echo.DELETE, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

func corsOrigins(origins []string, env string) []string {
	filtered := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin == "*" && env == "production" {
			continue
		}
		filtered = append(filtered, origin)
	}
	if len(filtered) == 0 {
		return []string{defaultOrigin}
	}
	return filtered
}

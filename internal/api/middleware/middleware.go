package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// quietPaths are polled by orchestrators every few seconds and only logged at
// debug level.
var quietPaths = map[string]bool{
	"/health": true,
	"/ready":  true,
}

// RequestLogger logs one line per request. Handler errors are resolved
// through echo's error handler first so the logged status is the one the
// client saw. 5xx responses log at error level and 4xx at warn.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("route", c.Path()),
				slog.Int("status", res.Status),
				slog.Int64("bytes_out", res.Size),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote_ip", c.RealIP()),
			}
			if slug := c.Param("slug"); slug != "" {
				attrs = append(attrs, slog.String("company", slug))
			}

			logger.LogAttrs(req.Context(), requestLevel(req.URL.Path, res.Status), "request", attrs...)
			return nil
		}
	}
}

func requestLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case quietPaths[path]:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Recover turns handler panics into 500 responses and logs the stack.
func Recover(logger *slog.Logger) echo.MiddlewareFunc {
	cfg := middleware.DefaultRecoverConfig
	if logger != nil {
		cfg.LogErrorFunc = func(c echo.Context, err error, stack []byte) error {
			logger.Error("handler panic",
				slog.String("path", c.Request().URL.Path),
				slog.Any("error", err),
				slog.String("stack", string(stack)))
			return err
		}
	}
	return middleware.RecoverWithConfig(cfg)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthChecker is the database liveness check consulted by the health routes
type HealthChecker interface {
	IsHealthy() bool
	LastError() string
	LastCheck() time.Time
	Check(ctx context.Context) bool
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	monitor HealthChecker
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(monitor HealthChecker) *HealthHandler {
	return &HealthHandler{monitor: monitor}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Error     string            `json:"error,omitempty"`
	CheckedAt *time.Time        `json:"checked_at,omitempty"`
}

// Health handles GET /health. It reports the cached check result and never
// queries the database itself.
func (h *HealthHandler) Health(c echo.Context) error {
	resp := HealthResponse{
		Status:   "healthy",
		Services: map[string]string{"database": "healthy"},
	}
	if at := h.monitor.LastCheck(); !at.IsZero() {
		resp.CheckedAt = &at
	}

	if !h.monitor.IsHealthy() {
		resp.Status = "unhealthy"
		resp.Services["database"] = "unhealthy"
		resp.Error = h.monitor.LastError()
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// Ready handles GET /ready. It forces a fresh check.
func (h *HealthHandler) Ready(c echo.Context) error {
	if !h.monitor.Check(c.Request().Context()) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database ping failed",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
	})
}

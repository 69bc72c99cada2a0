package handlers

import (
	"log/slog"
	"strconv"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/helpdesk-mailsync/internal/api/response"
	"github.com/welldanyogia/helpdesk-mailsync/internal/logger"
	"github.com/welldanyogia/helpdesk-mailsync/internal/websocket"
)

// WebSocketHandler upgrades dashboard connections and subscribes them to
// a company's realtime events
type WebSocketHandler struct {
	hub      *websocket.Hub
	origins  *websocket.OriginPolicy
	upgrader gorillaws.Upgrader
	audit    *logger.AuditLogger
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler. The origin list follows
// the CORS rules for env.
func NewWebSocketHandler(hub *websocket.Hub, allowedOrigins []string, env string, audit *logger.AuditLogger, log *slog.Logger) *WebSocketHandler {
	if log == nil {
		log = slog.Default()
	}
	if audit == nil {
		audit = logger.NewAuditLogger(log)
	}
	origins := websocket.NewOriginPolicy(allowedOrigins, env)
	return &WebSocketHandler{
		hub:      hub,
		origins:  origins,
		upgrader: origins.Upgrader(),
		audit:    audit,
		logger:   log,
	}
}

// Serve handles GET /ws?company_id=
func (h *WebSocketHandler) Serve(c echo.Context) error {
	var companyID uint
	if raw := c.QueryParam("company_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return response.BadRequest(c, "invalid company_id")
		}
		companyID = uint(id)
	}

	req := c.Request()
	if !h.origins.Allows(req) {
		h.audit.InvalidOrigin(c.RealIP(), req.Header.Get(echo.HeaderOrigin))
		return response.Error(c, errForbiddenOrigin)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), req, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return nil
	}

	client := websocket.NewClient(h.hub, conn, h.logger)
	go client.Serve(companyID)
	return nil
}

package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/welldanyogia/helpdesk-mailsync/internal/api/handlers"
	"github.com/welldanyogia/helpdesk-mailsync/internal/api/middleware"
	"github.com/welldanyogia/helpdesk-mailsync/internal/logger"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
	"github.com/welldanyogia/helpdesk-mailsync/internal/storage"
	"github.com/welldanyogia/helpdesk-mailsync/internal/websocket"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	Logger *slog.Logger
	Audit  *logger.AuditLogger

	// Security configuration
	APIKey         string   // API key for authentication (empty = disabled)
	AllowedOrigins []string // Allowed CORS and websocket origins
	AppEnv         string
	RateLimit      float64 // Requests per second (0 = default)
	RateBurst      int

	Health handlers.HealthChecker

	Mailboxes handlers.MailboxManager
	Tickets   handlers.TicketActions
	Desk      handlers.TicketManager
	Sync      handlers.MailboxSyncer
	Runner    handlers.SyncAllRunner
	Templates handlers.TemplateManager

	Companies   repository.CompanyRepository
	Emails      repository.EmailRepository
	Attachments repository.AttachmentRepository
	FileStorage storage.FileStorage

	Hub *websocket.Hub
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Security Middleware (applied in correct order)
	// 1. Recover from panics
	e.Use(middleware.Recover(cfg.Logger))

	// 2. Request IDs, echoed back and logged
	e.Use(echomw.RequestID())

	// 3. Security headers (applied to all responses)
	e.Use(middleware.SecureHeaders())

	// 4. CORS
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins, cfg.AppEnv))

	// 5. Rate limiting
	e.Use(middleware.RateLimiterWithConfig(cfg.RateLimit, cfg.RateBurst, cfg.Audit))

	// 6. Request logging
	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	healthHandler := handlers.NewHealthHandler(cfg.Health)
	mailboxHandler := handlers.NewMailboxHandler(cfg.Mailboxes)
	syncHandler := handlers.NewSyncHandler(cfg.Sync, cfg.Runner)
	emailHandler := handlers.NewEmailHandler(cfg.Companies, cfg.Emails, cfg.Attachments, cfg.FileStorage, cfg.Tickets)
	autoReplyHandler := handlers.NewTemplateHandler(cfg.Templates, models.TemplateKindAutoReply)
	notificationHandler := handlers.NewTemplateHandler(cfg.Templates, models.TemplateKindNotification)
	ticketHandler := handlers.NewTicketHandler(cfg.Desk)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	if cfg.Hub != nil {
		wsHandler := handlers.NewWebSocketHandler(cfg.Hub, cfg.AllowedOrigins, cfg.AppEnv, cfg.Audit, cfg.Logger)
		e.GET("/ws", wsHandler.Serve)
	}

	// API routes
	api := e.Group("/api")
	api.Use(middleware.APIKeyAuth(cfg.APIKey, cfg.Audit))
	if cfg.Health != nil {
		api.Use(middleware.RequireDatabase(cfg.Health))
	}

	// Sync routes
	api.POST("/sync", syncHandler.Sync)
	api.GET("/sync/cron", syncHandler.Cron)

	// Mailbox routes
	mailboxes := api.Group("/mailboxes")
	mailboxes.POST("/test", mailboxHandler.Test)
	mailboxes.GET("/:id", mailboxHandler.Get)
	mailboxes.PATCH("/:id/status", mailboxHandler.UpdateStatus)
	mailboxes.DELETE("/:id", mailboxHandler.Delete)

	// Ticket routes
	api.GET("/tickets/:id", ticketHandler.Get)
	api.PATCH("/tickets/:id", ticketHandler.Update)

	api.POST("/templates/validate", autoReplyHandler.Validate)

	// Company scoped routes
	company := api.Group("/companies/:slug")
	company.POST("/mailboxes", mailboxHandler.Connect)
	company.GET("/mailboxes", mailboxHandler.List)

	emails := company.Group("/emails")
	emails.GET("", emailHandler.List)
	emails.GET("/:id", emailHandler.Get)
	emails.POST("/:id/convert-to-ticket", emailHandler.ConvertToTicket)
	emails.POST("/:id/reply", emailHandler.Reply)
	emails.GET("/:id/attachments", emailHandler.ListAttachments)
	emails.GET("/:id/attachments/:attachment_id", emailHandler.DownloadAttachment)

	company.GET("/tickets", ticketHandler.List)
	company.GET("/tickets/stats", ticketHandler.Stats)

	registerTemplateRoutes(company.Group("/auto-reply-templates"), autoReplyHandler)
	registerTemplateRoutes(company.Group("/notification-templates"), notificationHandler)

	return e
}

func registerTemplateRoutes(g *echo.Group, h *handlers.TemplateHandler) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/init-default", h.InitDefault)
	g.POST("/preview", h.Preview)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

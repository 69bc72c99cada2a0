// Package app assembles the mailsync components from configuration. It is
// shared by the HTTP server and the command line tool.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/helpdesk-mailsync/internal/api"
	"github.com/welldanyogia/helpdesk-mailsync/internal/config"
	"github.com/welldanyogia/helpdesk-mailsync/internal/database"
	"github.com/welldanyogia/helpdesk-mailsync/internal/logger"
	"github.com/welldanyogia/helpdesk-mailsync/internal/mail"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
	"github.com/welldanyogia/helpdesk-mailsync/internal/services"
	"github.com/welldanyogia/helpdesk-mailsync/internal/storage"
	"github.com/welldanyogia/helpdesk-mailsync/internal/template"
	"github.com/welldanyogia/helpdesk-mailsync/internal/websocket"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// App holds the wired components of a running instance
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Audit  *logger.AuditLogger
	DB     *gorm.DB

	Health    *database.HealthMonitor
	Hub       *websocket.Hub
	Journal   *mail.BoltJournal
	Sync      *services.SyncEngine
	Scheduler *services.SyncScheduler
	Router    *echo.Echo
}

// Connect opens the database, retrying transient failures with the
// configured policy.
func Connect(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	policy := retryPolicy(cfg)
	pool := database.DefaultPoolConfig()
	pool.MaxIdleConns = cfg.DBMaxIdleConns
	pool.MaxOpenConns = cfg.DBMaxOpenConns

	return database.Retry(ctx, policy, func(ctx context.Context) (*gorm.DB, error) {
		db, err := database.ConnectWithConfig(cfg.DatabaseURL, pool)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return db, nil
	})
}

func retryPolicy(cfg *config.Config) database.RetryPolicy {
	return database.RetryPolicy{
		MaxAttempts: cfg.DBRetryAttempts,
		BaseDelay:   cfg.DBRetryBase,
		MaxDelay:    cfg.DBRetryMax,
	}
}

// New wires every component on top of an open database
func New(cfg *config.Config, db *gorm.DB, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	audit := logger.NewAuditLogger(log)

	files, err := storage.NewLocalStorage(cfg.AttachmentStoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize attachment storage: %w", err)
	}

	var journal *mail.BoltJournal
	var ackJournal mail.AckJournal
	if cfg.AckJournalPath != "" {
		journal, err = mail.OpenAckJournal(cfg.AckJournalPath)
		if err != nil {
			return nil, err
		}
		ackJournal = journal
	}

	retry := repository.WithRetryPolicy(retryPolicy(cfg))
	companies := repository.NewCompanyRepository(db, retry)
	users := repository.NewUserRepository(db, retry)
	mailboxes := repository.NewMailboxRepository(db, retry)
	emails := repository.NewEmailRepository(db, retry)
	attachments := repository.NewAttachmentRepository(db, retry)
	tickets := repository.NewTicketRepository(db, retry)
	templates := repository.NewTemplateRepository(db, retry)

	engine := template.NewEngine()
	mailer := mail.NewSMTPMailer(cfg.SMTPTimeout)
	tester := mail.NewConnectionTester(cfg.IMAPAuthTimeout, cfg.SMTPTimeout, log)
	hub := websocket.NewHub(log)

	actors := services.NewActorResolver(users)
	autoReply := services.NewAutoReplySender(templates, engine, mailer, log)
	notify := services.NewNotificationSender(companies, mailboxes, templates, engine, mailer, log)

	syncEngine := services.NewSyncEngine(services.SyncDependencies{
		Mailboxes: mailboxes,
		Companies: companies,
		Emails:    emails,
		Tickets:   tickets,
		Dialer:    mail.NewProtocolDialer(cfg.IMAPAuthTimeout),
		Journal:   ackJournal,
		Storage:   files,
		Actors:    actors,
		AutoReply: autoReply,
		Notify:    notify,
		Events:    hub,
		Audit:     audit,
	}, log)

	scheduler := services.NewSyncScheduler(syncEngine, services.SyncSchedulerConfig{
		Interval:   cfg.SyncInterval,
		RunTimeout: cfg.SyncInterval,
	}, log)

	health := database.NewHealthMonitor(db, cfg.HealthCheckInterval, log)

	router := api.NewRouter(&api.RouterConfig{
		Logger:         log,
		Audit:          audit,
		APIKey:         cfg.APIKey,
		AllowedOrigins: websocket.ParseOrigins(cfg.AllowedOrigins),
		AppEnv:         cfg.AppEnv,
		RateLimit:      cfg.RateLimitRequests,
		RateBurst:      cfg.RateLimitBurst,
		Health:         health,
		Mailboxes:      services.NewMailboxService(companies, mailboxes, tester, audit, log),
		Tickets:        services.NewTicketService(companies, mailboxes, emails, tickets, actors, autoReply, notify, log),
		Desk:           services.NewTicketDesk(companies, tickets, users, hub, log),
		Sync:           syncEngine,
		Runner:         scheduler,
		Templates:      services.NewTemplateService(companies, templates, engine, log),
		Companies:      companies,
		Emails:         emails,
		Attachments:    attachments,
		FileStorage:    files,
		Hub:            hub,
	})

	return &App{
		Config:    cfg,
		Logger:    log,
		Audit:     audit,
		DB:        db,
		Health:    health,
		Hub:       hub,
		Journal:   journal,
		Sync:      syncEngine,
		Scheduler: scheduler,
		Router:    router,
	}, nil
}

// Serve starts the background workers and the HTTP server and blocks until
// ctx is cancelled or the server fails. Shutdown is graceful.
func (a *App) Serve(ctx context.Context) error {
	go a.Hub.Run()
	a.Health.Start()
	if a.Config.SyncEnabled {
		a.Scheduler.Start()
	}

	addr := fmt.Sprintf(":%d", a.Config.APIPort)
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("HTTP server listening", slog.String("addr", addr))
		if err := a.Router.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutting down")
	case serveErr = <-errCh:
		if serveErr != nil {
			a.Logger.Error("HTTP server failed", slog.Any("error", serveErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Router.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("HTTP server shutdown failed", slog.Any("error", err))
	}

	a.Scheduler.Stop()
	a.Health.Stop()
	a.Hub.Stop()
	return serveErr
}

// Close releases the journal and the database handle
func (a *App) Close() error {
	var errs []error
	if a.Journal != nil {
		errs = append(errs, a.Journal.Close())
	}
	if a.DB != nil {
		errs = append(errs, database.Close(a.DB))
	}
	return errors.Join(errs...)
}

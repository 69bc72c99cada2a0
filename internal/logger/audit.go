package logger

import (
	"log/slog"
	"time"
)

// Audit event types
const (
	EventMailboxConnected     = "mailbox_connected"
	EventMailboxRemoved       = "mailbox_removed"
	EventConnectionTestFailed = "connection_test_failed"
	EventSyncFailed           = "sync_failed"
	EventAuthFailure          = "auth_failure"
	EventRateLimit            = "rate_limit"
	EventInvalidOrigin        = "invalid_origin"
)

// AuditLogger records security relevant events. Credentials are never
// logged and customer addresses are masked.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger wraps logger. A nil logger uses slog.Default().
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger}
}

// NewAuditLoggerWithHandler creates an AuditLogger with a custom handler
func NewAuditLoggerWithHandler(handler slog.Handler) *AuditLogger {
	return &AuditLogger{logger: slog.New(handler)}
}

// MailboxConnected records a mailbox saved after a successful connection test
func (a *AuditLogger) MailboxConnected(companyID, mailboxID uint, email, host string) {
	a.logger.Info("mailbox_connected",
		slog.String("event_type", EventMailboxConnected),
		slog.Uint64("company_id", uint64(companyID)),
		slog.Uint64("mailbox_id", uint64(mailboxID)),
		slog.String("mailbox", MaskEmail(email)),
		slog.String("host", host),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// MailboxRemoved records a deleted mailbox
func (a *AuditLogger) MailboxRemoved(companyID, mailboxID uint) {
	a.logger.Info("mailbox_removed",
		slog.String("event_type", EventMailboxRemoved),
		slog.Uint64("company_id", uint64(companyID)),
		slog.Uint64("mailbox_id", uint64(mailboxID)),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// ConnectionTestFailed records rejected mail credentials
func (a *AuditLogger) ConnectionTestFailed(protocol, host, user, reason string) {
	a.logger.Warn("connection_test_failed",
		slog.String("event_type", EventConnectionTestFailed),
		slog.String("protocol", protocol),
		slog.String("host", host),
		slog.String("user", MaskEmail(user)),
		slog.String("reason", reason),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// SyncFailed records a mailbox sync that ended in error
func (a *AuditLogger) SyncFailed(mailboxID uint, reason string) {
	a.logger.Warn("sync_failed",
		slog.String("event_type", EventSyncFailed),
		slog.Uint64("mailbox_id", uint64(mailboxID)),
		slog.String("reason", reason),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// AuthFailure logs a failed API authentication attempt
func (a *AuditLogger) AuthFailure(ip, path, reason string) {
	a.logger.Warn("authentication_failure",
		slog.String("event_type", EventAuthFailure),
		slog.String("ip", ip),
		slog.String("path", path),
		slog.String("reason", reason),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// RateLimitExceeded logs when a client exceeds rate limits
func (a *AuditLogger) RateLimitExceeded(ip, path string) {
	a.logger.Warn("rate_limit_exceeded",
		slog.String("event_type", EventRateLimit),
		slog.String("ip", ip),
		slog.String("path", path),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// InvalidOrigin logs a rejected WebSocket connection
func (a *AuditLogger) InvalidOrigin(ip, origin string) {
	a.logger.Warn("invalid_origin",
		slog.String("event_type", EventInvalidOrigin),
		slog.String("ip", ip),
		slog.String("origin", origin),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// Event logs a generic audit event, dropping sensitive detail keys
func (a *AuditLogger) Event(eventType string, details map[string]string) {
	attrs := []any{
		slog.String("event_type", eventType),
		slog.Time("timestamp", time.Now().UTC()),
	}

	for k, v := range details {
		if isSensitiveKey(k) {
			continue
		}
		attrs = append(attrs, slog.String(k, v))
	}

	a.logger.Info("audit_event", attrs...)
}

// Logger returns the underlying slog.Logger
func (a *AuditLogger) Logger() *slog.Logger {
	return a.logger
}

// isSensitiveKey checks if a key might contain sensitive data
func isSensitiveKey(key string) bool {
	sensitiveKeys := map[string]bool{
		"password":      true,
		"pass":          true,
		"inbound_pass":  true,
		"outbound_pass": true,
		"api_key":       true,
		"apikey":        true,
		"token":         true,
		"secret":        true,
		"key":           true,
		"authorization": true,
		"auth":          true,
		"credential":    true,
		"credentials":   true,
		"cookie":        true,
	}
	return sensitiveKeys[key]
}

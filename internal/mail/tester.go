package mail

import (
	"context"
	"log/slog"
	"time"

	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
)

// ConnectionResult reports whether a mail server accepted the credentials
type ConnectionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// MailboxTestResult holds the inbound and outbound results for one mailbox
type MailboxTestResult struct {
	Inbound  ConnectionResult `json:"inbound"`
	Outbound ConnectionResult `json:"outbound"`
}

// OK reports whether both directions succeeded
func (r MailboxTestResult) OK() bool {
	return r.Inbound.Success && r.Outbound.Success
}

// ConnectionTester verifies mail credentials before a mailbox is saved
type ConnectionTester struct {
	authTimeout time.Duration
	smtpTimeout time.Duration
	logger      *slog.Logger
}

// NewConnectionTester creates a tester. A nil logger disables logging.
func NewConnectionTester(authTimeout, smtpTimeout time.Duration, logger *slog.Logger) *ConnectionTester {
	return &ConnectionTester{
		authTimeout: authTimeout,
		smtpTimeout: smtpTimeout,
		logger:      logger,
	}
}

// TestIMAP logs in, selects INBOX and logs out
func (t *ConnectionTester) TestIMAP(ctx context.Context, cfg InboundConfig) ConnectionResult {
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = t.authTimeout
	}
	session, err := DialIMAP(ctx, cfg)
	if err != nil {
		return t.failed("imap", cfg.Host, err)
	}
	_ = session.Close()
	return ConnectionResult{Success: true}
}

// TestPOP3 authenticates and quits
func (t *ConnectionTester) TestPOP3(ctx context.Context, cfg InboundConfig) ConnectionResult {
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = t.authTimeout
	}
	session, err := DialPOP3(ctx, cfg)
	if err != nil {
		return t.failed("pop3", cfg.Host, err)
	}
	_ = session.Close()
	return ConnectionResult{Success: true}
}

// TestSMTP greets, authenticates and quits without sending
func (t *ConnectionTester) TestSMTP(ctx context.Context, cfg OutboundConfig) ConnectionResult {
	if cfg.Timeout <= 0 {
		cfg.Timeout = t.smtpTimeout
	}
	client, err := DialSMTP(ctx, cfg)
	if err != nil {
		return t.failed("smtp", cfg.Host, err)
	}
	_ = client.Quit()
	return ConnectionResult{Success: true}
}

// Test checks the inbound account for the mailbox protocol and the outbound account
func (t *ConnectionTester) Test(ctx context.Context, mailbox *models.Mailbox) MailboxTestResult {
	var result MailboxTestResult

	inbound := InboundConfigFor(mailbox, t.authTimeout)
	if mailbox.Protocol == models.ProtocolPOP3 {
		result.Inbound = t.TestPOP3(ctx, inbound)
	} else {
		result.Inbound = t.TestIMAP(ctx, inbound)
	}

	result.Outbound = t.TestSMTP(ctx, OutboundConfigFor(mailbox, t.smtpTimeout))
	return result
}

func (t *ConnectionTester) failed(protocol, host string, err error) ConnectionResult {
	if t.logger != nil {
		t.logger.Warn("connection test failed",
			slog.String("protocol", protocol),
			slog.String("host", host),
			slog.Any("error", err))
	}
	return ConnectionResult{Success: false, Error: err.Error()}
}

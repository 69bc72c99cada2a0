package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
)

// DefaultAuthTimeout bounds connecting and authenticating to a mail server
const DefaultAuthTimeout = 10 * time.Second

// RawMessage is one message fetched from an inbound server. UID identifies it
// for acknowledgement within the session that fetched it.
type RawMessage struct {
	UID string
	Raw []byte
}

// InboundSession is an authenticated inbound mail session. Messages fetched
// stay unseen on the server until Acknowledge is called.
type InboundSession interface {
	FetchUnseen(ctx context.Context) ([]RawMessage, error)
	Acknowledge(ctx context.Context, uids []string) error
	Close() error
}

// InboundDialer opens inbound sessions for a mailbox
type InboundDialer interface {
	Dial(ctx context.Context, mailbox *models.Mailbox) (InboundSession, error)
}

// InboundConfig holds the credentials of an inbound account
type InboundConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	TLS         bool
	AuthTimeout time.Duration
}

// InboundConfigFor extracts the inbound settings of a mailbox
func InboundConfigFor(mailbox *models.Mailbox, authTimeout time.Duration) InboundConfig {
	return InboundConfig{
		Host:        mailbox.InboundHost,
		Port:        mailbox.InboundPort,
		User:        mailbox.InboundUser,
		Password:    mailbox.InboundPass,
		TLS:         mailbox.InboundTLS,
		AuthTimeout: authTimeout,
	}
}

func (c InboundConfig) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c InboundConfig) timeout() time.Duration {
	if c.AuthTimeout <= 0 {
		return DefaultAuthTimeout
	}
	return c.AuthTimeout
}

// dial opens a TCP or implicit TLS connection honouring ctx and the auth timeout
func dial(ctx context.Context, host string, port int, useTLS bool, timeout time.Duration) (net.Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := &net.Dialer{Timeout: timeout}

	if useTLS {
		tlsDialer := &tls.Dialer{
			NetDialer: dialer,
			Config: &tls.Config{
				ServerName: host,
				MinVersion: tls.VersionTLS12,
			},
		}
		conn, err := tlsDialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		return conn, nil
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return conn, nil
}

// ProtocolDialer picks the IMAP or POP3 dialer by the mailbox protocol
type ProtocolDialer struct {
	IMAP InboundDialer
	POP3 InboundDialer
}

// NewProtocolDialer returns a dialer for both inbound protocols
func NewProtocolDialer(authTimeout time.Duration) *ProtocolDialer {
	return &ProtocolDialer{
		IMAP: &IMAPDialer{AuthTimeout: authTimeout},
		POP3: &POP3Dialer{AuthTimeout: authTimeout},
	}
}

// Dial implements InboundDialer
func (d *ProtocolDialer) Dial(ctx context.Context, mailbox *models.Mailbox) (InboundSession, error) {
	switch mailbox.Protocol {
	case models.ProtocolPOP3:
		return d.POP3.Dial(ctx, mailbox)
	case models.ProtocolIMAP, "":
		return d.IMAP.Dial(ctx, mailbox)
	default:
		return nil, fmt.Errorf("unsupported inbound protocol %q", mailbox.Protocol)
	}
}

package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
)

// DefaultSMTPTimeout bounds each SMTP command and the message submission
const DefaultSMTPTimeout = 30 * time.Second

// OutboundMessage is a message composed by the senders
type OutboundMessage struct {
	FromName   string
	To         string
	Subject    string
	Text       string
	HTML       string
	InReplyTo  string
	References []string
	Headers    map[string]string
}

// Sender delivers an outbound message through a mailbox's SMTP account and
// returns the Message-ID it was sent with.
type Sender interface {
	Send(ctx context.Context, mailbox *models.Mailbox, msg OutboundMessage) (string, error)
}

// OutboundConfig holds the credentials of an outbound account
type OutboundConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	TLS      bool
	Timeout  time.Duration
}

// OutboundConfigFor extracts the outbound settings of a mailbox
func OutboundConfigFor(mailbox *models.Mailbox, timeout time.Duration) OutboundConfig {
	return OutboundConfig{
		Host:     mailbox.OutboundHost,
		Port:     mailbox.OutboundPort,
		User:     mailbox.OutboundUser,
		Password: mailbox.OutboundPass,
		TLS:      mailbox.OutboundTLS,
		Timeout:  timeout,
	}
}

func (c OutboundConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultSMTPTimeout
	}
	return c.Timeout
}

// implicitTLS reports whether the connection is TLS from the first byte.
// Other ports upgrade with STARTTLS when TLS is requested.
func (c OutboundConfig) implicitTLS() bool {
	return c.TLS && c.Port == 465
}

// SMTPMailer sends messages with go-smtp
type SMTPMailer struct {
	timeout time.Duration
	now     func() time.Time
}

// NewSMTPMailer creates a mailer with the given per-command timeout
func NewSMTPMailer(timeout time.Duration) *SMTPMailer {
	return &SMTPMailer{timeout: timeout, now: time.Now}
}

// Send implements Sender
func (m *SMTPMailer) Send(ctx context.Context, mailbox *models.Mailbox, msg OutboundMessage) (string, error) {
	if msg.To == "" {
		return "", fmt.Errorf("recipient is required")
	}

	raw, messageID, err := BuildMessage(mailbox.Email, msg, m.now())
	if err != nil {
		return "", err
	}

	client, err := DialSMTP(ctx, OutboundConfigFor(mailbox, m.timeout))
	if err != nil {
		return "", err
	}
	defer client.Close()

	if err := client.SendMail(mailbox.Email, []string{msg.To}, bytes.NewReader(raw)); err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	_ = client.Quit()

	return messageID, nil
}

// DialSMTP connects, greets and authenticates. Authentication is skipped
// when no user is configured.
func DialSMTP(ctx context.Context, cfg OutboundConfig) (*smtp.Client, error) {
	conn, err := dial(ctx, cfg.Host, cfg.Port, cfg.implicitTLS(), cfg.timeout())
	if err != nil {
		return nil, err
	}

	var client *smtp.Client
	if cfg.TLS && !cfg.implicitTLS() {
		client, err = smtp.NewClientStartTLS(conn, &tls.Config{
			ServerName: cfg.Host,
			MinVersion: tls.VersionTLS12,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	} else {
		client = smtp.NewClient(conn)
	}
	client.CommandTimeout = cfg.timeout()
	client.SubmissionTimeout = cfg.timeout()

	if err := client.Hello(localName()); err != nil {
		client.Close()
		return nil, fmt.Errorf("SMTP greeting failed: %w", err)
	}

	if cfg.User != "" {
		if err := client.Auth(sasl.NewPlainClient("", cfg.User, cfg.Password)); err != nil {
			client.Close()
			return nil, fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	return client, nil
}

// BuildMessage composes a MIME message with text and HTML alternatives and
// returns it with its Message-ID.
func BuildMessage(from string, msg OutboundMessage, now time.Time) ([]byte, string, error) {
	messageID := NewMessageID(from)

	builder := enmime.Builder().
		From(msg.FromName, from).
		To("", msg.To).
		Subject(msg.Subject).
		Date(now).
		Text([]byte(msg.Text)).
		Header("Message-ID", messageID)

	if msg.HTML != "" {
		builder = builder.HTML([]byte(msg.HTML))
	}
	if msg.InReplyTo != "" {
		builder = builder.Header("In-Reply-To", wrapID(msg.InReplyTo))
	}
	if len(msg.References) > 0 {
		refs := make([]string, 0, len(msg.References))
		for _, ref := range msg.References {
			refs = append(refs, wrapID(ref))
		}
		builder = builder.Header("References", strings.Join(refs, " "))
	}
	for k, v := range msg.Headers {
		builder = builder.Header(k, v)
	}

	part, err := builder.Build()
	if err != nil {
		return nil, "", fmt.Errorf("failed to build message: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to encode message: %w", err)
	}
	return buf.Bytes(), messageID, nil
}

// NewMessageID returns a unique angle-bracketed Message-ID on the domain of
// the sending address.
func NewMessageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)
}

func wrapID(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "<") {
		return id
	}
	return "<" + id + ">"
}

func localName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "localhost"
}

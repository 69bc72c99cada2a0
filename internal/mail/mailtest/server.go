// Package mailtest provides in-process mail servers for tests: an SMTP sink
// that captures delivered messages and an in-memory inbound maildrop.
package mailtest

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"
)

// Message is one captured delivery
type Message struct {
	From     string
	To       []string
	Data     []byte
	Envelope *enmime.Envelope
}

// Header returns a header of the parsed message
func (m Message) Header(name string) string {
	if m.Envelope == nil {
		return ""
	}
	return m.Envelope.GetHeader(name)
}

// Server is an SMTP sink listening on a random loopback port
type Server struct {
	Host string
	Port int

	username string
	password string
	rejectTo map[string]bool

	srv      *smtp.Server
	mu       sync.Mutex
	messages []Message
	arrived  chan struct{}
}

// Option configures a Server
type Option func(*Server)

// WithAuth requires PLAIN authentication with the given credentials
func WithAuth(username, password string) Option {
	return func(s *Server) {
		s.username = username
		s.password = password
	}
}

// WithRejectedRecipient makes RCPT TO fail for addr
func WithRejectedRecipient(addr string) Option {
	return func(s *Server) {
		s.rejectTo[addr] = true
	}
}

// NewServer starts a capture server and stops it when the test ends
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		rejectTo: make(map[string]bool),
		arrived:  make(chan struct{}, 64),
	}
	for _, opt := range opts {
		opt(s)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("mailtest: listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	s.Host = addr.IP.String()
	s.Port = addr.Port

	s.srv = smtp.NewServer(&backend{server: s})
	s.srv.Domain = "localhost"
	s.srv.AllowInsecureAuth = true
	s.srv.ReadTimeout = 10 * time.Second
	s.srv.WriteTimeout = 10 * time.Second
	s.srv.MaxMessageBytes = 25 * 1024 * 1024

	go func() {
		_ = s.srv.Serve(ln)
	}()
	t.Cleanup(func() {
		_ = s.srv.Close()
	})

	return s
}

// Addr returns host:port
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Messages returns a copy of every captured message
func (s *Server) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// WaitForMessages blocks until n messages were captured or timeout expires
func (s *Server) WaitForMessages(n int, timeout time.Duration) []Message {
	deadline := time.After(timeout)
	for {
		if msgs := s.Messages(); len(msgs) >= n {
			return msgs
		}
		select {
		case <-s.arrived:
		case <-deadline:
			return s.Messages()
		}
	}
}

func (s *Server) store(msg Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	select {
	case s.arrived <- struct{}{}:
	default:
	}
}

// backend implements the go-smtp Backend interface
type backend struct {
	server *Server
}

// NewSession creates a new SMTP session
func (b *backend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &session{server: b.server}, nil
}

// session implements smtp.Session and smtp.AuthSession
type session struct {
	server     *Server
	authed     bool
	from       string
	recipients []string
}

func (s *session) AuthMechanisms() []string {
	if s.server.username == "" {
		return nil
	}
	return []string{sasl.Plain}
}

func (s *session) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username != s.server.username || password != s.server.password {
			return errors.New("invalid credentials")
		}
		s.authed = true
		return nil
	}), nil
}

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	if s.server.username != "" && !s.authed {
		return smtp.ErrAuthRequired
	}
	s.from = from
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	if s.server.rejectTo[to] {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "Mailbox not found",
		}
	}
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	if len(s.recipients) == 0 {
		return &smtp.SMTPError{
			Code:         503,
			EnhancedCode: smtp.EnhancedCode{5, 5, 1},
			Message:      "No recipients specified",
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	msg := Message{From: s.from, To: append([]string(nil), s.recipients...), Data: data}
	if env, err := enmime.ReadEnvelope(bytes.NewReader(data)); err == nil {
		msg.Envelope = env
	}
	s.server.store(msg)
	return nil
}

func (s *session) Reset() {
	s.from = ""
	s.recipients = nil
}

func (s *session) Logout() error {
	return nil
}

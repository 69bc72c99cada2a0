package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/helpdesk-mailsync/internal/database"
	"github.com/welldanyogia/helpdesk-mailsync/internal/mail"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
	"github.com/welldanyogia/helpdesk-mailsync/internal/template"
	"github.com/welldanyogia/helpdesk-mailsync/internal/websocket"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv is a migrated in-memory database with one company, its owner and
// an active IMAP mailbox
type testEnv struct {
	db        *gorm.DB
	companies repository.CompanyRepository
	users     repository.UserRepository
	mailboxes repository.MailboxRepository
	emails    repository.EmailRepository
	tickets   repository.TicketRepository
	templates repository.TemplateRepository

	owner   *models.User
	company *models.Company
	mailbox *models.Mailbox
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, database.Migrate(db))

	env := &testEnv{
		db:        db,
		companies: repository.NewCompanyRepository(db),
		users:     repository.NewUserRepository(db),
		mailboxes: repository.NewMailboxRepository(db),
		emails:    repository.NewEmailRepository(db),
		tickets:   repository.NewTicketRepository(db),
		templates: repository.NewTemplateRepository(db),
	}

	ctx := context.Background()
	env.owner = &models.User{Username: "acme-owner", Name: "Olivia Owner", Email: "owner@acme.test"}
	require.NoError(t, env.users.Create(ctx, env.owner))

	env.company = &models.Company{
		Name:                 "Acme",
		Slug:                 "acme",
		OwnerID:              env.owner.ID,
		AutoRepliesEnabled:   true,
		NotificationsEnabled: true,
	}
	require.NoError(t, env.companies.Create(ctx, env.company))

	env.mailbox = &models.Mailbox{
		CompanyID:    env.company.ID,
		Name:         "Support",
		Email:        "support@acme.test",
		Protocol:     models.ProtocolIMAP,
		InboundHost:  "imap.acme.test",
		InboundPort:  993,
		OutboundHost: "smtp.acme.test",
		OutboundPort: 465,
		IsActive:     true,
	}
	require.NoError(t, env.mailboxes.Create(ctx, env.mailbox))

	return env
}

// addSystemUser creates the reserved system account
func (e *testEnv) addSystemUser(t *testing.T) *models.User {
	t.Helper()
	user := &models.User{Username: models.SystemUsername, Name: "System"}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

// addTemplate stores a default active template of kind
func (e *testEnv) addTemplate(t *testing.T, kind models.TemplateKind, content template.Content) *models.MessageTemplate {
	t.Helper()
	tpl := &models.MessageTemplate{
		CompanyID: e.company.ID,
		Kind:      kind,
		Name:      "Custom " + string(kind),
		Subject:   content.Subject,
		BodyText:  content.Text,
		BodyHTML:  content.HTML,
		IsDefault: true,
		IsActive:  true,
	}
	require.NoError(t, e.templates.Create(context.Background(), tpl))
	return tpl
}

// updateCompany applies mutate to the stored company
func (e *testEnv) updateCompany(t *testing.T, mutate func(*models.Company)) {
	t.Helper()
	mutate(e.company)
	require.NoError(t, e.db.Save(e.company).Error)
}

var emailSeq int

// addEmail stores an unprocessed email received by the env mailbox
func (e *testEnv) addEmail(t *testing.T, mutate ...func(*models.Email)) *models.Email {
	t.Helper()
	emailSeq++
	email := &models.Email{
		CompanyID:  e.company.ID,
		MailboxID:  e.mailbox.ID,
		MessageID:  fmt.Sprintf("msg-%d@customer.test", emailSeq),
		Subject:    "Cannot log in",
		FromEmail:  "jane@customer.test",
		FromName:   "Jane Customer",
		ToEmail:    []string{e.mailbox.Email},
		Body:       "Hello, I cannot log in.",
		ReceivedAt: time.Now(),
	}
	for _, m := range mutate {
		m(email)
	}
	require.NoError(t, e.emails.Create(context.Background(), email))
	return email
}

// sentMessage is one delivery captured by recordingMailer
type sentMessage struct {
	Mailbox *models.Mailbox
	Msg     mail.OutboundMessage
}

// recordingMailer captures outbound mail instead of sending it
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *recordingMailer) Send(_ context.Context, mailbox *models.Mailbox, msg mail.OutboundMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, sentMessage{Mailbox: mailbox, Msg: msg})
	return fmt.Sprintf("<sent-%d@acme.test>", len(m.sent)), nil
}

func (m *recordingMailer) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// byHeader returns the captured messages whose header key equals value
func (m *recordingMailer) byHeader(key, value string) []sentMessage {
	var out []sentMessage
	for _, s := range m.messages() {
		if s.Msg.Headers[key] == value {
			out = append(out, s)
		}
	}
	return out
}

var errSMTPDown = errors.New("smtp: connection refused")

// publishedEvent is one event captured by recordingPublisher
type publishedEvent struct {
	CompanyID uint
	Type      websocket.MessageType
	Payload   interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(companyID uint, event websocket.MessageType, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{CompanyID: companyID, Type: event, Payload: payload})
}

func (p *recordingPublisher) ofType(event websocket.MessageType) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Type == event {
			out = append(out, e)
		}
	}
	return out
}

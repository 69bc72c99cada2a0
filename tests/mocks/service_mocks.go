package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/helpdesk-mailsync/internal/mail"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
	"github.com/welldanyogia/helpdesk-mailsync/internal/services"
	"github.com/welldanyogia/helpdesk-mailsync/internal/template"
)

// MockMailboxService mocks the mailbox administration
type MockMailboxService struct {
	mock.Mock
}

// Test runs a connection test
func (m *MockMailboxService) Test(ctx context.Context, in services.ConnectMailboxInput) (mail.MailboxTestResult, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(mail.MailboxTestResult), args.Error(1)
}

// Connect tests and stores a mailbox
func (m *MockMailboxService) Connect(ctx context.Context, companySlug string, in services.ConnectMailboxInput) (*models.Mailbox, error) {
	args := m.Called(ctx, companySlug, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mailbox), args.Error(1)
}

// List lists a company's mailboxes
func (m *MockMailboxService) List(ctx context.Context, companySlug string) ([]models.Mailbox, error) {
	args := m.Called(ctx, companySlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Mailbox), args.Error(1)
}

// Get retrieves a mailbox
func (m *MockMailboxService) Get(ctx context.Context, id uint) (*models.Mailbox, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mailbox), args.Error(1)
}

// SetActive enables or disables a mailbox
func (m *MockMailboxService) SetActive(ctx context.Context, id uint, active bool) (*models.Mailbox, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Mailbox), args.Error(1)
}

// Delete removes a mailbox
func (m *MockMailboxService) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTicketService mocks the operator actions on emails
type MockTicketService struct {
	mock.Mock
}

// ConvertEmail turns an email into a ticket
func (m *MockTicketService) ConvertEmail(ctx context.Context, companySlug string, emailID uint) (*services.ConvertResult, error) {
	args := m.Called(ctx, companySlug, emailID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ConvertResult), args.Error(1)
}

// ReplyToEmail replies to the sender of an email
func (m *MockTicketService) ReplyToEmail(ctx context.Context, companySlug string, emailID uint, message string, authorID uint) (*services.ReplyResult, error) {
	args := m.Called(ctx, companySlug, emailID, message, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ReplyResult), args.Error(1)
}

// MockTicketDesk mocks the ticket listing and lifecycle
type MockTicketDesk struct {
	mock.Mock
}

// List returns a page of a company's tickets
func (m *MockTicketDesk) List(ctx context.Context, slug string, filter repository.TicketFilter) ([]models.Ticket, int64, error) {
	args := m.Called(ctx, slug, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Ticket), args.Get(1).(int64), args.Error(2)
}

// Stats counts a company's tickets per status
func (m *MockTicketDesk) Stats(ctx context.Context, slug string) (*services.TicketStats, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TicketStats), args.Error(1)
}

// Get returns a ticket with its emails and comments
func (m *MockTicketDesk) Get(ctx context.Context, id uint) (*services.TicketDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TicketDetail), args.Error(1)
}

// Update changes a ticket's status, priority or assignee
func (m *MockTicketDesk) Update(ctx context.Context, id uint, in services.TicketUpdate) (*models.Ticket, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

// MockSyncService mocks the sync engine and the scheduler's on-demand run
type MockSyncService struct {
	mock.Mock
}

// SyncMailbox syncs one mailbox
func (m *MockSyncService) SyncMailbox(ctx context.Context, mailboxID uint) services.SyncResult {
	args := m.Called(ctx, mailboxID)
	return args.Get(0).(services.SyncResult)
}

// RunNow runs a pass over every mailbox
func (m *MockSyncService) RunNow(ctx context.Context) (services.SyncAllResult, bool) {
	args := m.Called(ctx)
	return args.Get(0).(services.SyncAllResult), args.Bool(1)
}

// MockTemplateService mocks the template administration
type MockTemplateService struct {
	mock.Mock
}

// List lists templates of a kind
func (m *MockTemplateService) List(ctx context.Context, slug string, kind models.TemplateKind) ([]models.MessageTemplate, error) {
	args := m.Called(ctx, slug, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MessageTemplate), args.Error(1)
}

// Get retrieves one template
func (m *MockTemplateService) Get(ctx context.Context, slug string, kind models.TemplateKind, id uint) (*models.MessageTemplate, error) {
	args := m.Called(ctx, slug, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessageTemplate), args.Error(1)
}

// Create creates a template
func (m *MockTemplateService) Create(ctx context.Context, slug string, kind models.TemplateKind, in services.TemplateInput) (*models.MessageTemplate, error) {
	args := m.Called(ctx, slug, kind, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessageTemplate), args.Error(1)
}

// Update updates a template
func (m *MockTemplateService) Update(ctx context.Context, slug string, kind models.TemplateKind, id uint, in services.TemplateInput) (*models.MessageTemplate, error) {
	args := m.Called(ctx, slug, kind, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessageTemplate), args.Error(1)
}

// Delete deletes a template
func (m *MockTemplateService) Delete(ctx context.Context, slug string, kind models.TemplateKind, id uint) error {
	args := m.Called(ctx, slug, kind, id)
	return args.Error(0)
}

// InitDefault creates the default template of a kind
func (m *MockTemplateService) InitDefault(ctx context.Context, slug string, kind models.TemplateKind) ([]models.MessageTemplate, error) {
	args := m.Called(ctx, slug, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MessageTemplate), args.Error(1)
}

// Preview renders content against sample values
func (m *MockTemplateService) Preview(ctx context.Context, slug string, content template.Content) (*services.PreviewResult, error) {
	args := m.Called(ctx, slug, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PreviewResult), args.Error(1)
}

// Validate checks a template source
func (m *MockTemplateService) Validate(source string) (template.ValidationResult, []string) {
	args := m.Called(source)
	if args.Get(1) == nil {
		return args.Get(0).(template.ValidationResult), nil
	}
	return args.Get(0).(template.ValidationResult), args.Get(1).([]string)
}

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
)

// MockCompanyRepository implements repository.CompanyRepository
type MockCompanyRepository struct {
	mock.Mock
}

// Create creates a new company
func (m *MockCompanyRepository) Create(ctx context.Context, company *models.Company) error {
	args := m.Called(ctx, company)
	return args.Error(0)
}

// GetByID retrieves a company by its ID
func (m *MockCompanyRepository) GetByID(ctx context.Context, id uint) (*models.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Company), args.Error(1)
}

// GetBySlug retrieves a company by its slug
func (m *MockCompanyRepository) GetBySlug(ctx context.Context, slug string) (*models.Company, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Company), args.Error(1)
}

// Update updates an existing company
func (m *MockCompanyRepository) Update(ctx context.Context, company *models.Company) error {
	args := m.Called(ctx, company)
	return args.Error(0)
}

// MockEmailRepository implements repository.EmailRepository
type MockEmailRepository struct {
	mock.Mock
}

// Create stores an inbound email
func (m *MockEmailRepository) Create(ctx context.Context, email *models.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// CreateWithAttachments stores an email and its attachments together
func (m *MockEmailRepository) CreateWithAttachments(ctx context.Context, email *models.Email, attachments []models.EmailAttachment) error {
	args := m.Called(ctx, email, attachments)
	return args.Error(0)
}

// GetByID retrieves an email by its ID
func (m *MockEmailRepository) GetByID(ctx context.Context, id uint) (*models.Email, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Email), args.Error(1)
}

// GetByMessageID retrieves an email of a mailbox by its Message-ID
func (m *MockEmailRepository) GetByMessageID(ctx context.Context, mailboxID uint, messageID string) (*models.Email, error) {
	args := m.Called(ctx, mailboxID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Email), args.Error(1)
}

// ListByCompany lists a company's emails with the total count
func (m *MockEmailRepository) ListByCompany(ctx context.Context, companyID uint, filter repository.EmailFilter) ([]models.EmailListItem, int64, error) {
	args := m.Called(ctx, companyID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.EmailListItem), args.Get(1).(int64), args.Error(2)
}

// MockAttachmentRepository implements repository.AttachmentRepository
type MockAttachmentRepository struct {
	mock.Mock
}

func (m *MockAttachmentRepository) ListByEmail(ctx context.Context, emailID uint) ([]models.EmailAttachment, error) {
	args := m.Called(ctx, emailID)
	list, _ := args.Get(0).([]models.EmailAttachment)
	return list, args.Error(1)
}

func (m *MockAttachmentRepository) GetForEmail(ctx context.Context, emailID, id uint) (*models.EmailAttachment, error) {
	args := m.Called(ctx, emailID, id)
	att, _ := args.Get(0).(*models.EmailAttachment)
	return att, args.Error(1)
}

var (
	_ repository.CompanyRepository    = (*MockCompanyRepository)(nil)
	_ repository.EmailRepository      = (*MockEmailRepository)(nil)
	_ repository.AttachmentRepository = (*MockAttachmentRepository)(nil)
)

package repository

import (
	"context"
	"fmt"

	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"gorm.io/gorm"
)

// EmailFilter narrows an email listing
type EmailFilter struct {
	Processed *bool
	Limit     int
	Offset    int
}

// EmailRepository defines the interface for inbound email data access
type EmailRepository interface {
	Create(ctx context.Context, email *models.Email) error
	CreateWithAttachments(ctx context.Context, email *models.Email, attachments []models.EmailAttachment) error
	GetByID(ctx context.Context, id uint) (*models.Email, error)
	GetByMessageID(ctx context.Context, mailboxID uint, messageID string) (*models.Email, error)
	ListByCompany(ctx context.Context, companyID uint, filter EmailFilter) ([]models.EmailListItem, int64, error)
}

// emailRepository implements EmailRepository using GORM
type emailRepository struct {
	base
}

// NewEmailRepository creates a new EmailRepository instance
func NewEmailRepository(db *gorm.DB, opts ...Option) EmailRepository {
	return &emailRepository{base: newBase(db, opts)}
}

// Create stores an email. A second email with the same message id in the
// same mailbox yields ErrDuplicateEntry.
func (r *emailRepository) Create(ctx context.Context, email *models.Email) error {
	return r.CreateWithAttachments(ctx, email, nil)
}

// CreateWithAttachments stores an email and its attachment metadata in a
// single transaction
func (r *emailRepository) CreateWithAttachments(ctx context.Context, email *models.Email, attachments []models.EmailAttachment) error {
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		email.ID = 0
		if err := tx.Omit("Attachments").Create(email).Error; err != nil {
			return err
		}
		for i := range attachments {
			attachments[i].ID = 0
			attachments[i].EmailID = email.ID
			if err := tx.Create(&attachments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("email '%s' already stored for mailbox %d: %w", email.MessageID, email.MailboxID, ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create email: %w", err)
	}
	email.Attachments = attachments
	return nil
}

// GetByID retrieves an email with its attachments
func (r *emailRepository) GetByID(ctx context.Context, id uint) (*models.Email, error) {
	var email models.Email
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Preload("Attachments").First(&email, id).Error
	})
	if err != nil {
		return nil, notFound(err, "email by ID")
	}
	return &email, nil
}

// GetByMessageID looks up an email by its mailbox and message id
func (r *emailRepository) GetByMessageID(ctx context.Context, mailboxID uint, messageID string) (*models.Email, error) {
	var email models.Email
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Where("mailbox_id = ? AND message_id = ?", mailboxID, messageID).First(&email).Error
	})
	if err != nil {
		return nil, notFound(err, "email by message id")
	}
	return &email, nil
}

// ListByCompany returns a page of emails, newest first, with the id of the
// ticket each one is linked to
func (r *emailRepository) ListByCompany(ctx context.Context, companyID uint, filter EmailFilter) ([]models.EmailListItem, int64, error) {
	var (
		items []models.EmailListItem
		total int64
	)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Model(&models.Email{}).Where("emails.company_id = ?", companyID)
		if filter.Processed != nil {
			db = db.Where("emails.is_processed = ?", *filter.Processed)
		}
		return db
	}

	err := r.run(ctx, func(db *gorm.DB) error {
		if err := db.Scopes(scope).Count(&total).Error; err != nil {
			return err
		}

		return db.Scopes(scope).
			Select(`emails.id, emails.mailbox_id, emails.subject, emails.from_email, emails.from_name,
				emails.received_at, emails.is_processed,
				(SELECT te.ticket_id FROM ticket_emails te WHERE te.email_id = emails.id ORDER BY te.ticket_id LIMIT 1) AS ticket_id`).
			Order("emails.received_at DESC, emails.id DESC").
			Limit(limit).
			Offset(filter.Offset).
			Scan(&items).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list emails: %w", err)
	}

	return items, total, nil
}

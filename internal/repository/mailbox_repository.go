package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"gorm.io/gorm"
)

// MailboxRepository defines the interface for mailbox data access
type MailboxRepository interface {
	Create(ctx context.Context, mailbox *models.Mailbox) error
	GetByID(ctx context.Context, id uint) (*models.Mailbox, error)
	ListActive(ctx context.Context) ([]models.Mailbox, error)
	ListByCompany(ctx context.Context, companyID uint) ([]models.Mailbox, error)
	FirstActiveByCompany(ctx context.Context, companyID uint) (*models.Mailbox, error)
	MarkSynced(ctx context.Context, id uint, at time.Time) error
	MarkError(ctx context.Context, id uint, message string) error
	SetActive(ctx context.Context, id uint, active bool) error
	Delete(ctx context.Context, id uint) error
}

// mailboxRepository implements MailboxRepository using GORM
type mailboxRepository struct {
	base
}

// NewMailboxRepository creates a new MailboxRepository instance
func NewMailboxRepository(db *gorm.DB, opts ...Option) MailboxRepository {
	return &mailboxRepository{base: newBase(db, opts)}
}

// Create creates a new mailbox
func (r *mailboxRepository) Create(ctx context.Context, mailbox *models.Mailbox) error {
	if mailbox.Status == "" {
		mailbox.Status = models.MailboxStatusActive
	}
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Create(mailbox).Error
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("mailbox '%s' already exists: %w", mailbox.Email, ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create mailbox: %w", err)
	}
	return nil
}

// GetByID retrieves a mailbox by its ID
func (r *mailboxRepository) GetByID(ctx context.Context, id uint) (*models.Mailbox, error) {
	var mailbox models.Mailbox
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.First(&mailbox, id).Error
	})
	if err != nil {
		return nil, notFound(err, "mailbox by ID")
	}
	return &mailbox, nil
}

// ListActive returns every active mailbox across all companies, oldest first
func (r *mailboxRepository) ListActive(ctx context.Context) ([]models.Mailbox, error) {
	var mailboxes []models.Mailbox
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Where("is_active = ?", true).Order("id ASC").Find(&mailboxes).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list active mailboxes: %w", err)
	}
	return mailboxes, nil
}

// ListByCompany returns all mailboxes of a company
func (r *mailboxRepository) ListByCompany(ctx context.Context, companyID uint) ([]models.Mailbox, error) {
	var mailboxes []models.Mailbox
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Where("company_id = ?", companyID).Order("id ASC").Find(&mailboxes).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", err)
	}
	return mailboxes, nil
}

// FirstActiveByCompany returns the company's first active mailbox, used as
// the outbound account for notifications
func (r *mailboxRepository) FirstActiveByCompany(ctx context.Context, companyID uint) (*models.Mailbox, error) {
	var mailbox models.Mailbox
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Where("company_id = ? AND is_active = ?", companyID, true).
			Order("id ASC").First(&mailbox).Error
	})
	if err != nil {
		return nil, notFound(err, "active mailbox")
	}
	return &mailbox, nil
}

// MarkSynced records a successful sync pass
func (r *mailboxRepository) MarkSynced(ctx context.Context, id uint, at time.Time) error {
	return r.updateStatus(ctx, id, map[string]interface{}{
		"last_sync_at": at,
		"status":       models.MailboxStatusActive,
		"last_error":   nil,
	})
}

// MarkError records a failed sync pass
func (r *mailboxRepository) MarkError(ctx context.Context, id uint, message string) error {
	return r.updateStatus(ctx, id, map[string]interface{}{
		"status":     models.MailboxStatusError,
		"last_error": message,
	})
}

// SetActive enables or disables a mailbox
func (r *mailboxRepository) SetActive(ctx context.Context, id uint, active bool) error {
	status := models.MailboxStatusActive
	if !active {
		status = models.MailboxStatusInactive
	}
	return r.updateStatus(ctx, id, map[string]interface{}{
		"is_active": active,
		"status":    status,
	})
}

func (r *mailboxRepository) updateStatus(ctx context.Context, id uint, fields map[string]interface{}) error {
	var affected int64
	err := r.run(ctx, func(db *gorm.DB) error {
		result := db.Model(&models.Mailbox{}).Where("id = ?", id).Updates(fields)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return fmt.Errorf("failed to update mailbox: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a mailbox by its ID
func (r *mailboxRepository) Delete(ctx context.Context, id uint) error {
	var affected int64
	err := r.run(ctx, func(db *gorm.DB) error {
		result := db.Delete(&models.Mailbox{}, id)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete mailbox: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

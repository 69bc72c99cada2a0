package repository

import (
	"context"
	"fmt"

	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"gorm.io/gorm"
)

// AttachmentRepository reads the attachments stored with an inbound email.
// Rows are written together with their email by
// EmailRepository.CreateWithAttachments.
type AttachmentRepository interface {
	ListByEmail(ctx context.Context, emailID uint) ([]models.EmailAttachment, error)
	// GetForEmail returns ErrNotFound when the attachment belongs to
	// another email.
	GetForEmail(ctx context.Context, emailID, id uint) (*models.EmailAttachment, error)
}

type attachmentRepository struct {
	base
}

// NewAttachmentRepository creates a new AttachmentRepository instance
func NewAttachmentRepository(db *gorm.DB, opts ...Option) AttachmentRepository {
	return &attachmentRepository{base: newBase(db, opts)}
}

func (r *attachmentRepository) ListByEmail(ctx context.Context, emailID uint) ([]models.EmailAttachment, error) {
	var attachments []models.EmailAttachment
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Where("email_id = ?", emailID).Order("is_inline ASC, id ASC").Find(&attachments).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list attachments of email %d: %w", emailID, err)
	}
	return attachments, nil
}

func (r *attachmentRepository) GetForEmail(ctx context.Context, emailID, id uint) (*models.EmailAttachment, error) {
	var attachment models.EmailAttachment
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Where("id = ? AND email_id = ?", id, emailID).First(&attachment).Error
	})
	if err != nil {
		return nil, notFound(err, "attachment of email")
	}
	return &attachment, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"gorm.io/gorm"
)

// TemplateRepository defines the interface for auto-reply and notification
// template data access. Every call is scoped to a company and a kind.
type TemplateRepository interface {
	ListByCompany(ctx context.Context, companyID uint, kind models.TemplateKind) ([]models.MessageTemplate, error)
	GetByID(ctx context.Context, companyID uint, kind models.TemplateKind, id uint) (*models.MessageTemplate, error)
	GetDefault(ctx context.Context, companyID uint, kind models.TemplateKind) (*models.MessageTemplate, error)
	Count(ctx context.Context, companyID uint, kind models.TemplateKind) (int64, error)
	Create(ctx context.Context, tpl *models.MessageTemplate) error
	CreateBatch(ctx context.Context, templates []models.MessageTemplate) error
	Update(ctx context.Context, tpl *models.MessageTemplate) error
	Delete(ctx context.Context, companyID uint, kind models.TemplateKind, id uint) error
}

// templateRepository implements TemplateRepository using GORM
type templateRepository struct {
	base
}

// NewTemplateRepository creates a new TemplateRepository instance
func NewTemplateRepository(db *gorm.DB, opts ...Option) TemplateRepository {
	return &templateRepository{base: newBase(db, opts)}
}

func scopeKind(companyID uint, kind models.TemplateKind) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("company_id = ? AND kind = ?", companyID, kind)
	}
}

// ListByCompany returns the company's templates of a kind, default first
func (r *templateRepository) ListByCompany(ctx context.Context, companyID uint, kind models.TemplateKind) ([]models.MessageTemplate, error) {
	var templates []models.MessageTemplate
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Scopes(scopeKind(companyID, kind)).
			Order("is_default DESC, created_at DESC, id DESC").
			Find(&templates).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// GetByID retrieves a template that belongs to the company
func (r *templateRepository) GetByID(ctx context.Context, companyID uint, kind models.TemplateKind, id uint) (*models.MessageTemplate, error) {
	var tpl models.MessageTemplate
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Scopes(scopeKind(companyID, kind)).First(&tpl, id).Error
	})
	if err != nil {
		return nil, notFound(err, "template by ID")
	}
	return &tpl, nil
}

// GetDefault returns the active default template of a kind
func (r *templateRepository) GetDefault(ctx context.Context, companyID uint, kind models.TemplateKind) (*models.MessageTemplate, error) {
	var tpl models.MessageTemplate
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Scopes(scopeKind(companyID, kind)).
			Where("is_default = ? AND is_active = ?", true, true).
			Order("id ASC").
			First(&tpl).Error
	})
	if err != nil {
		return nil, notFound(err, "default template")
	}
	return &tpl, nil
}

// Count returns how many templates of a kind the company has
func (r *templateRepository) Count(ctx context.Context, companyID uint, kind models.TemplateKind) (int64, error) {
	var count int64
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Model(&models.MessageTemplate{}).Scopes(scopeKind(companyID, kind)).Count(&count).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count templates: %w", err)
	}
	return count, nil
}

// Create stores a template. Marking it default clears the previous default in
// the same transaction.
func (r *templateRepository) Create(ctx context.Context, tpl *models.MessageTemplate) error {
	if !tpl.Kind.Valid() {
		return fmt.Errorf("unknown template kind %q: %w", tpl.Kind, ErrInvalidInput)
	}
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		tpl.ID = 0
		if tpl.IsDefault {
			if err := clearDefault(tx, tpl.CompanyID, tpl.Kind, 0); err != nil {
				return err
			}
		}
		return tx.Create(tpl).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// CreateBatch stores several templates in one transaction
func (r *templateRepository) CreateBatch(ctx context.Context, templates []models.MessageTemplate) error {
	if len(templates) == 0 {
		return nil
	}
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		for i := range templates {
			templates[i].ID = 0
			if err := tx.Create(&templates[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create templates: %w", err)
	}
	return nil
}

// Update saves a template. Marking it default clears the previous default in
// the same transaction.
func (r *templateRepository) Update(ctx context.Context, tpl *models.MessageTemplate) error {
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		if tpl.IsDefault {
			if err := clearDefault(tx, tpl.CompanyID, tpl.Kind, tpl.ID); err != nil {
				return err
			}
		}
		result := tx.Model(&models.MessageTemplate{}).
			Scopes(scopeKind(tpl.CompanyID, tpl.Kind)).
			Where("id = ?", tpl.ID).
			Select("name", "subject", "body_text", "body_html", "is_default", "is_active", "variables").
			Updates(tpl)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to update template: %w", err)
	}
	return nil
}

// Delete removes a template unless it is the company's last one of its kind
func (r *templateRepository) Delete(ctx context.Context, companyID uint, kind models.TemplateKind, id uint) error {
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.MessageTemplate{}).Scopes(scopeKind(companyID, kind)).Count(&count).Error; err != nil {
			return err
		}

		var tpl models.MessageTemplate
		if err := tx.Scopes(scopeKind(companyID, kind)).First(&tpl, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if count <= 1 {
			return ErrLastTemplate
		}

		if err := tx.Delete(&models.MessageTemplate{}, id).Error; err != nil {
			return err
		}
		if !tpl.IsDefault {
			return nil
		}
		return promoteOldest(tx, companyID, kind)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrLastTemplate) {
			return err
		}
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// promoteOldest makes the oldest remaining template of a kind the default,
// preferring active ones
func promoteOldest(tx *gorm.DB, companyID uint, kind models.TemplateKind) error {
	var next models.MessageTemplate
	if err := tx.Scopes(scopeKind(companyID, kind)).Order("is_active DESC, created_at ASC, id ASC").First(&next).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return tx.Model(&next).Update("is_default", true).Error
}

func clearDefault(tx *gorm.DB, companyID uint, kind models.TemplateKind, keepID uint) error {
	query := tx.Model(&models.MessageTemplate{}).
		Scopes(scopeKind(companyID, kind)).
		Where("is_default = ?", true)
	if keepID != 0 {
		query = query.Where("id <> ?", keepID)
	}
	return query.Update("is_default", false).Error
}

package repository

import (
	"context"
	"fmt"

	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"gorm.io/gorm"
)

// CompanyRepository defines the interface for company data access
type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company) error
	GetByID(ctx context.Context, id uint) (*models.Company, error)
	GetBySlug(ctx context.Context, slug string) (*models.Company, error)
	Update(ctx context.Context, company *models.Company) error
}

type companyRepository struct {
	base
}

// NewCompanyRepository creates a new CompanyRepository instance
func NewCompanyRepository(db *gorm.DB, opts ...Option) CompanyRepository {
	return &companyRepository{base: newBase(db, opts)}
}

func (r *companyRepository) Create(ctx context.Context, company *models.Company) error {
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Create(company).Error
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("company with slug '%s' already exists: %w", company.Slug, ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

func (r *companyRepository) GetByID(ctx context.Context, id uint) (*models.Company, error) {
	var company models.Company
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.First(&company, id).Error
	})
	if err != nil {
		return nil, notFound(err, "company by ID")
	}
	return &company, nil
}

func (r *companyRepository) GetBySlug(ctx context.Context, slug string) (*models.Company, error) {
	var company models.Company
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Where("slug = ?", slug).First(&company).Error
	})
	if err != nil {
		return nil, notFound(err, "company by slug")
	}
	return &company, nil
}

func (r *companyRepository) Update(ctx context.Context, company *models.Company) error {
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Save(company).Error
	})
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	return nil
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type userRepository struct {
	base
}

// NewUserRepository creates a new UserRepository instance
func NewUserRepository(db *gorm.DB, opts ...Option) UserRepository {
	return &userRepository{base: newBase(db, opts)}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Create(user).Error
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("user '%s' already exists: %w", user.Username, ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.First(&user, id).Error
	})
	if err != nil {
		return nil, notFound(err, "user by ID")
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Where("username = ?", username).First(&user).Error
	})
	if err != nil {
		return nil, notFound(err, "user by username")
	}
	return &user, nil
}

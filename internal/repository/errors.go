package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/welldanyogia/helpdesk-mailsync/internal/database"
	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
	"gorm.io/gorm"
)

// Common repository errors. They are the application sentinels so callers can
// match them with errors.Is regardless of which layer produced them.
var (
	ErrNotFound       = apperrors.ErrNotFound
	ErrDuplicateEntry = apperrors.ErrDuplicateEntry
	ErrInvalidInput   = apperrors.ErrInvalidInput

	// ErrEmailAlreadyProcessed is returned when another caller converted the
	// email first
	ErrEmailAlreadyProcessed = apperrors.ErrEmailAlreadyProcessed

	// ErrLastTemplate is returned when deleting the only template of a kind
	ErrLastTemplate = apperrors.ErrLastTemplate
)

// isDuplicateKeyError checks if the error is a duplicate key violation
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "23505") // PostgreSQL unique violation code
}

// Option configures a repository
type Option func(*base)

// WithRetryPolicy overrides the retry policy applied to every query
func WithRetryPolicy(policy database.RetryPolicy) Option {
	return func(b *base) {
		b.policy = policy
	}
}

// base carries the database handle and the retry policy shared by all
// repositories.
type base struct {
	db     *gorm.DB
	policy database.RetryPolicy
}

func newBase(db *gorm.DB, opts []Option) base {
	b := base{db: db, policy: database.DefaultRetryPolicy}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// run executes fn with a context-bound handle, retrying transient
// connection failures.
func (b *base) run(ctx context.Context, fn func(db *gorm.DB) error) error {
	return database.WithRetry(ctx, b.policy, func(ctx context.Context) error {
		return fn(b.db.WithContext(ctx))
	})
}

// transaction runs fn inside a single transaction. The whole transaction is
// retried on transient failures.
func (b *base) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return b.run(ctx, func(db *gorm.DB) error {
		return db.Transaction(fn)
	})
}

// notFound maps gorm's missing-row error onto ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

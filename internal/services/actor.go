package services

import (
	"context"
	"fmt"

	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
)

// Actor is the user recorded as the author of a system-initiated write
type Actor struct {
	UserID uint
	// System is false when the company owner stands in for the system user
	System bool
}

// ActorResolver picks the creator of automatically generated tickets and
// comments: the reserved system user, else the company owner.
type ActorResolver struct {
	users repository.UserRepository
}

// NewActorResolver creates a new ActorResolver
func NewActorResolver(users repository.UserRepository) *ActorResolver {
	return &ActorResolver{users: users}
}

// Resolve returns the actor for writes made on behalf of company
func (r *ActorResolver) Resolve(ctx context.Context, company *models.Company) (Actor, error) {
	user, err := r.users.GetByUsername(ctx, models.SystemUsername)
	if err == nil {
		return Actor{UserID: user.ID, System: true}, nil
	}
	if !apperrors.IsNotFound(err) {
		return Actor{}, fmt.Errorf("failed to look up system user: %w", err)
	}

	if company == nil || company.OwnerID == 0 {
		return Actor{}, apperrors.ErrSystemActorUnavailable
	}
	return Actor{UserID: company.OwnerID}, nil
}

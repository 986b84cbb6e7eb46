package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/telodox/portal/internal/models"
)

// UserStore persists user profiles. Create and Update reject users that fail
// models.User.Validate with ErrConstraintViolation.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByStripeSubscription finds the user holding a payment provider subscription.
	// Returns ErrUserNotFound when nothing matches.
	GetByStripeSubscription(ctx context.Context, subscriptionID string) (*models.User, error)

	Update(ctx context.Context, user *models.User) error

	// ListByTenant returns the users affiliated with a tenant.
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.User, error)
}

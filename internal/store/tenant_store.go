package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/telodox/portal/internal/models"
)

// TenantStore persists tenants. Tenants are never deleted; their lifecycle is
// carried by SubscriptionStatus.
type TenantStore interface {
	// Create stores a new tenant.
	// Returns ErrSubdomainTaken if the subdomain is already assigned.
	Create(ctx context.Context, tenant *models.Tenant) error

	// Get returns ErrTenantNotFound if no tenant has the id.
	Get(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)

	// GetBySubdomain matches case-insensitively.
	// Returns ErrTenantNotFound when nothing matches.
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)

	// Update replaces the mutable fields of a tenant. The subdomain is never changed.
	Update(ctx context.Context, tenant *models.Tenant) error

	// List returns all tenants, newest first.
	List(ctx context.Context) ([]*models.Tenant, error)
}

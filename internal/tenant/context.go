// Package tenant resolves the tenant addressed by a request host and provisions new
// self-service tenants.
package tenant

import (
	"context"

	"github.com/telodox/portal/internal/models"
)

type contextKey struct{}

// WithTenant binds the resolved tenant to ctx.
func WithTenant(ctx context.Context, t *models.Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the tenant resolved for the request, or nil on the root portal.
func FromContext(ctx context.Context) *models.Tenant {
	t, _ := ctx.Value(contextKey{}).(*models.Tenant)
	return t
}

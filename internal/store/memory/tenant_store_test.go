package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

func newTenant(t *testing.T, subdomain string) *models.Tenant {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	now := time.Now()
	return &models.Tenant{
		TenantID:           id,
		Name:               subdomain + " Inc",
		Subdomain:          subdomain,
		Settings:           models.DefaultTenantSettings("ops@" + subdomain + ".example"),
		SubscriptionStatus: models.SubscriptionTrial,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestTenantStore_Create(t *testing.T) {
	t.Run("create and get", func(t *testing.T) {
		st := NewTenantStore()
		ctx := context.Background()

		tenant := newTenant(t, "teleconnect")
		require.NoError(t, st.Create(ctx, tenant))

		got, err := st.Get(ctx, tenant.TenantID)
		require.NoError(t, err)
		require.Equal(t, "teleconnect", got.Subdomain)
		require.Equal(t, models.SubscriptionTrial, got.SubscriptionStatus)
	})

	t.Run("duplicate subdomain is rejected case-insensitively", func(t *testing.T) {
		st := NewTenantStore()
		ctx := context.Background()

		require.NoError(t, st.Create(ctx, newTenant(t, "acme")))
		err := st.Create(ctx, newTenant(t, "ACME"))
		require.ErrorIs(t, err, store.ErrSubdomainTaken)
	})
}

func TestTenantStore_GetBySubdomain(t *testing.T) {
	st := NewTenantStore()
	ctx := context.Background()

	tenant := newTenant(t, "teleconnect")
	require.NoError(t, st.Create(ctx, tenant))

	got, err := st.GetBySubdomain(ctx, "TeleConnect")
	require.NoError(t, err)
	require.Equal(t, tenant.TenantID, got.TenantID)

	_, err = st.GetBySubdomain(ctx, "missing")
	require.ErrorIs(t, err, store.ErrTenantNotFound)
}

func TestTenantStore_Update(t *testing.T) {
	st := NewTenantStore()
	ctx := context.Background()

	tenant := newTenant(t, "acme")
	require.NoError(t, st.Create(ctx, tenant))

	tenant.SubscriptionStatus = models.SubscriptionActive
	tenant.Subdomain = "renamed"
	require.NoError(t, st.Update(ctx, tenant))

	got, err := st.Get(ctx, tenant.TenantID)
	require.NoError(t, err)
	require.Equal(t, models.SubscriptionActive, got.SubscriptionStatus)
	require.Equal(t, "acme", got.Subdomain, "subdomain is immutable")

	missing := newTenant(t, "ghost")
	require.ErrorIs(t, st.Update(ctx, missing), store.ErrTenantNotFound)
}

func TestTenantStore_List(t *testing.T) {
	st := NewTenantStore()
	ctx := context.Background()

	older := newTenant(t, "older")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := newTenant(t, "newer")

	require.NoError(t, st.Create(ctx, older))
	require.NoError(t, st.Create(ctx, newer))

	tenants, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	require.Equal(t, "newer", tenants[0].Subdomain)
}

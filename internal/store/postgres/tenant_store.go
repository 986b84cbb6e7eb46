package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

const tenantColumns = `id, name, subdomain, settings, subscription_status, trial_ends_at,
	stripe_customer_id, stripe_subscription_id, created_at, updated_at`

// TenantStore implements store.TenantStore using PostgreSQL.
type TenantStore struct {
	pool *pgxpool.Pool
}

var _ store.TenantStore = (*TenantStore)(nil)

// NewTenantStore creates a PostgreSQL-backed tenant store sharing the given pool.
func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{pool: pool}
}

func (s *TenantStore) Create(ctx context.Context, tenant *models.Tenant) error {
	tenant.Subdomain = strings.ToLower(tenant.Subdomain)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		tenant.TenantID,
		tenant.Name,
		tenant.Subdomain,
		tenant.Settings,
		string(tenant.SubscriptionStatus),
		tenant.TrialEndsAt,
		tenant.StripeCustomerID,
		tenant.StripeSubscriptionID,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("tenant_id", tenant.TenantID.String()).
		Str("subdomain", tenant.Subdomain).
		Msg("Created tenant")

	return nil
}

func (s *TenantStore) Get(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, tenantID)
	return scanTenant(row)
}

func (s *TenantStore) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE subdomain = lower($1)`, subdomain)
	return scanTenant(row)
}

// Update writes the mutable columns. subdomain is not part of the statement.
func (s *TenantStore) Update(ctx context.Context, tenant *models.Tenant) error {
	tenant.UpdatedAt = time.Now()

	result, err := s.pool.Exec(ctx, `
		UPDATE tenants SET
			name = $2,
			settings = $3,
			subscription_status = $4,
			trial_ends_at = $5,
			stripe_customer_id = $6,
			stripe_subscription_id = $7,
			updated_at = $8
		WHERE id = $1
	`,
		tenant.TenantID,
		tenant.Name,
		tenant.Settings,
		string(tenant.SubscriptionStatus),
		tenant.TrialEndsAt,
		tenant.StripeCustomerID,
		tenant.StripeSubscriptionID,
		tenant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrTenantNotFound
	}

	return nil
}

func (s *TenantStore) List(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenants: %w", err)
	}

	return tenants, nil
}

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var (
		tenant models.Tenant
		status string
	)
	err := row.Scan(
		&tenant.TenantID,
		&tenant.Name,
		&tenant.Subdomain,
		&tenant.Settings,
		&status,
		&tenant.TrialEndsAt,
		&tenant.StripeCustomerID,
		&tenant.StripeSubscriptionID,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}
	tenant.SubscriptionStatus = models.SubscriptionStatus(status)
	return &tenant, nil
}

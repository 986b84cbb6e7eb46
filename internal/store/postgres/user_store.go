package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

const userColumns = `id, email, full_name, role, organization_role, tenant_id,
	stripe_customer_id, stripe_subscription_id, created_at, updated_at`

// UserStore implements store.UserStore using PostgreSQL. The organization role
// invariant is checked in Go and again by check_organization_role_requires_tenant.
type UserStore struct {
	pool *pgxpool.Pool
}

var _ store.UserStore = (*UserStore)(nil)

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrConstraintViolation, err)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		user.UserID,
		user.Email,
		user.FullName,
		string(user.Role),
		orgRoleParam(user.OrganizationRole),
		user.TenantID,
		user.StripeCustomerID,
		user.StripeSubscriptionID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapPostgresError(err))
	}

	log.Debug().Str("user_id", user.UserID.String()).Msg("Created user")
	return nil
}

func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func (s *UserStore) GetByStripeSubscription(ctx context.Context, subscriptionID string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE stripe_subscription_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`, subscriptionID)
	return scanUser(row)
}

func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrConstraintViolation, err)
	}

	user.UpdatedAt = time.Now()

	result, err := s.pool.Exec(ctx, `
		UPDATE users SET
			email = $2,
			full_name = $3,
			role = $4,
			organization_role = $5,
			tenant_id = $6,
			stripe_customer_id = $7,
			stripe_subscription_id = $8,
			updated_at = $9
		WHERE id = $1
	`,
		user.UserID,
		user.Email,
		user.FullName,
		string(user.Role),
		orgRoleParam(user.OrganizationRole),
		user.TenantID,
		user.StripeCustomerID,
		user.StripeSubscriptionID,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	return nil
}

func (s *UserStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

func orgRoleParam(r *models.OrgRole) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		user    models.User
		role    string
		orgRole *string
	)
	err := row.Scan(
		&user.UserID,
		&user.Email,
		&user.FullName,
		&role,
		&orgRole,
		&user.TenantID,
		&user.StripeCustomerID,
		&user.StripeSubscriptionID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.Role = models.Role(role)
	if orgRole != nil {
		r := models.OrgRole(*orgRole)
		user.OrganizationRole = &r
	}
	return &user, nil
}

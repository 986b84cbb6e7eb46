package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/telodox/portal/internal/apierr"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

// TrialPeriod is the length of the free trial given to self-service tenants.
const TrialPeriod = 7 * 24 * time.Hour

// ReservedSubdomains can never be assigned to a tenant.
var ReservedSubdomains = []string{"www", "api", "admin", "app", "auth", "mail"}

var labelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Service provisions tenants.
type Service struct {
	tenants store.TenantStore
	users   store.UserStore
	now     func() time.Time
}

func NewService(tenants store.TenantStore, users store.UserStore) *Service {
	return &Service{tenants: tenants, users: users, now: time.Now}
}

// Availability answers a subdomain availability check.
type Availability struct {
	Subdomain string `json:"subdomain"`
	Available bool   `json:"available"`
}

// CheckSubdomain reports whether subdomain can be assigned to a new tenant.
func (s *Service) CheckSubdomain(ctx context.Context, subdomain string) (*Availability, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if subdomain == "" {
		return nil, apierr.New(apierr.Validation, "subdomain is required")
	}

	res := &Availability{Subdomain: subdomain}
	if validateSubdomain(subdomain) != nil {
		return res, nil
	}

	_, err := s.tenants.GetBySubdomain(ctx, subdomain)
	switch {
	case errors.Is(err, store.ErrTenantNotFound):
		res.Available = true
	case err != nil:
		return nil, fmt.Errorf("failed to check subdomain: %w", err)
	}
	return res, nil
}

func validateSubdomain(subdomain string) error {
	if !labelPattern.MatchString(subdomain) {
		return fmt.Errorf("subdomain %q must be a DNS label of lowercase letters, digits and hyphens", subdomain)
	}
	if slices.Contains(ReservedSubdomains, subdomain) {
		return fmt.Errorf("subdomain %q is reserved", subdomain)
	}
	return nil
}

// CreateFreeRequest is a self-service signup.
type CreateFreeRequest struct {
	CompanyName  string `json:"companyName"`
	Subdomain    string `json:"subdomain"`
	ContactEmail string `json:"contactEmail"`
}

// CreateFree creates a trial tenant and makes user its owner.
func (s *Service) CreateFree(ctx context.Context, user *models.User, req CreateFreeRequest) (*models.Tenant, error) {
	if user == nil {
		return nil, apierr.New(apierr.Unauthenticated, "authentication required")
	}

	name := strings.TrimSpace(req.CompanyName)
	subdomain := strings.ToLower(strings.TrimSpace(req.Subdomain))
	if name == "" || subdomain == "" {
		return nil, apierr.New(apierr.Validation, "company name and subdomain are required")
	}
	if err := validateSubdomain(subdomain); err != nil {
		return nil, apierr.Wrap(apierr.Validation, err.Error(), err)
	}
	if user.TenantID != nil {
		return nil, apierr.New(apierr.Validation, "user already has a tenant")
	}

	contactEmail := strings.TrimSpace(req.ContactEmail)
	if contactEmail == "" {
		contactEmail = user.Email
	}

	now := s.now().UTC()
	trialEndsAt := now.Add(TrialPeriod)
	t := &models.Tenant{
		TenantID:           uuid.Must(uuid.NewV7()),
		Name:               name,
		Subdomain:          subdomain,
		Settings:           models.DefaultTenantSettings(contactEmail),
		SubscriptionStatus: models.SubscriptionTrial,
		TrialEndsAt:        &trialEndsAt,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.tenants.Create(ctx, t); err != nil {
		if errors.Is(err, store.ErrSubdomainTaken) {
			return nil, apierr.Wrap(apierr.Conflict, "subdomain is already taken", err)
		}
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	owner := *user
	orgRole := models.OrgRoleOwner
	if owner.Role != models.RoleSuperAdmin {
		owner.Role = models.RoleTenantOwner
	}
	owner.OrganizationRole = &orgRole
	owner.TenantID = &t.TenantID
	owner.UpdatedAt = now
	if err := s.users.Update(ctx, &owner); err != nil {
		return nil, fmt.Errorf("failed to assign tenant owner: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("tenant_id", t.TenantID.String()).
		Str("subdomain", t.Subdomain).
		Str("user_id", user.UserID.String()).
		Msg("tenant created")

	return t, nil
}

// List returns every tenant for platform operators.
func (s *Service) List(ctx context.Context) ([]*models.Tenant, error) {
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return tenants, nil
}

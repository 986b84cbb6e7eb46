package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

// TenantStore implements store.TenantStore using in-memory storage.
// This implementation is for development and tests - data is lost on restart.
type TenantStore struct {
	mu sync.RWMutex

	tenants     map[uuid.UUID]*models.Tenant // tenant_id -> Tenant
	bySubdomain map[string]uuid.UUID         // lowercase subdomain -> tenant_id
}

var _ store.TenantStore = (*TenantStore)(nil)

// NewTenantStore creates a new in-memory tenant store.
func NewTenantStore() *TenantStore {
	return &TenantStore{
		tenants:     make(map[uuid.UUID]*models.Tenant),
		bySubdomain: make(map[string]uuid.UUID),
	}
}

func (s *TenantStore) Create(ctx context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := strings.ToLower(tenant.Subdomain)
	if _, exists := s.bySubdomain[sub]; exists {
		return store.ErrSubdomainTaken
	}

	clone := *tenant
	clone.Subdomain = sub
	s.tenants[tenant.TenantID] = &clone
	s.bySubdomain[sub] = tenant.TenantID

	return nil
}

func (s *TenantStore) Get(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenant, exists := s.tenants[tenantID]
	if !exists {
		return nil, store.ErrTenantNotFound
	}

	clone := *tenant
	return &clone, nil
}

func (s *TenantStore) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.bySubdomain[strings.ToLower(subdomain)]
	if !exists {
		return nil, store.ErrTenantNotFound
	}

	clone := *s.tenants[id]
	return &clone, nil
}

// Update replaces the stored tenant. The subdomain of the stored record is kept.
func (s *TenantStore) Update(ctx context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.tenants[tenant.TenantID]
	if !exists {
		return store.ErrTenantNotFound
	}

	tenant.UpdatedAt = time.Now()

	clone := *tenant
	clone.Subdomain = existing.Subdomain
	s.tenants[tenant.TenantID] = &clone

	return nil
}

func (s *TenantStore) List(ctx context.Context) ([]*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Tenant, 0, len(s.tenants))
	for _, tenant := range s.tenants {
		clone := *tenant
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

// ApplicationStore implements store.ApplicationStore using in-memory storage.
type ApplicationStore struct {
	mu sync.RWMutex

	applications map[uuid.UUID]*models.Application
}

var _ store.ApplicationStore = (*ApplicationStore)(nil)

func NewApplicationStore() *ApplicationStore {
	return &ApplicationStore{
		applications: make(map[uuid.UUID]*models.Application),
	}
}

func (s *ApplicationStore) Create(ctx context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applications[app.ApplicationID] = cloneApplication(app)
	return nil
}

func (s *ApplicationStore) Get(ctx context.Context, applicationID uuid.UUID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, exists := s.applications[applicationID]
	if !exists {
		return nil, store.ErrApplicationNotFound
	}
	return cloneApplication(app), nil
}

func (s *ApplicationStore) Update(ctx context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.applications[app.ApplicationID]; !exists {
		return store.ErrApplicationNotFound
	}

	app.UpdatedAt = time.Now()
	s.applications[app.ApplicationID] = cloneApplication(app)
	return nil
}

func (s *ApplicationStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Application
	for _, app := range s.applications {
		if app.TenantID == tenantID {
			result = append(result, cloneApplication(app))
		}
	}

	slices.SortFunc(result, func(a, b *models.Application) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return result, nil
}

func cloneApplication(a *models.Application) *models.Application {
	clone := *a
	clone.Workflow = slices.Clone(a.Workflow)
	return &clone
}

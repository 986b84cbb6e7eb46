package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

// FormTemplateStore implements store.FormTemplateStore using in-memory storage.
type FormTemplateStore struct {
	mu sync.RWMutex

	templates map[uuid.UUID]*models.FormTemplate
}

var _ store.FormTemplateStore = (*FormTemplateStore)(nil)

func NewFormTemplateStore() *FormTemplateStore {
	return &FormTemplateStore{
		templates: make(map[uuid.UUID]*models.FormTemplate),
	}
}

func (s *FormTemplateStore) Create(ctx context.Context, template *models.FormTemplate) error {
	if err := template.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.templates[template.TemplateID] = cloneTemplate(template)
	return nil
}

func (s *FormTemplateStore) Get(ctx context.Context, templateID uuid.UUID) (*models.FormTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	template, exists := s.templates[templateID]
	if !exists {
		return nil, store.ErrTemplateNotFound
	}
	return cloneTemplate(template), nil
}

func (s *FormTemplateStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.FormTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.FormTemplate
	for _, template := range s.templates {
		if template.TenantID == tenantID {
			result = append(result, cloneTemplate(template))
		}
	}

	slices.SortFunc(result, func(a, b *models.FormTemplate) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), cmp.Compare(b.Version, a.Version))
	})

	return result, nil
}

func cloneTemplate(t *models.FormTemplate) *models.FormTemplate {
	clone := *t
	clone.Fields = slices.Clone(t.Fields)
	return &clone
}

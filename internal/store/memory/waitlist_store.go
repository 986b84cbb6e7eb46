package memory

import (
	"context"
	"maps"
	"strings"
	"sync"

	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

// WaitlistStore implements store.WaitlistStore using in-memory storage.
type WaitlistStore struct {
	mu sync.RWMutex

	entries map[string]*models.WaitlistEntry // lowercase email -> entry
}

var _ store.WaitlistStore = (*WaitlistStore)(nil)

func NewWaitlistStore() *WaitlistStore {
	return &WaitlistStore{
		entries: make(map[string]*models.WaitlistEntry),
	}
}

func (s *WaitlistStore) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(entry.Email)
	if _, exists := s.entries[email]; exists {
		return store.ErrWaitlistEmailExists
	}

	clone := *entry
	clone.Email = email
	clone.Metadata = maps.Clone(entry.Metadata)
	s.entries[email] = &clone
	return nil
}

func (s *WaitlistStore) CountActive(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, entry := range s.entries {
		if entry.Status == models.WaitlistStatusActive {
			count++
		}
	}
	return count, nil
}

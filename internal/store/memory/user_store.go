package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

// UserStore implements store.UserStore using in-memory storage.
type UserStore struct {
	mu sync.RWMutex

	users map[uuid.UUID]*models.User // user_id -> User
}

var _ store.UserStore = (*UserStore)(nil)

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[uuid.UUID]*models.User),
	}
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrConstraintViolation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.UserID]; exists {
		return store.ErrUserAlreadyExists
	}

	s.users[user.UserID] = cloneUser(user)

	return nil
}

func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	return cloneUser(user), nil
}

func (s *UserStore) GetByStripeSubscription(ctx context.Context, subscriptionID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.StripeSubscriptionID != nil && *user.StripeSubscriptionID == subscriptionID {
			return cloneUser(user), nil
		}
	}

	return nil, store.ErrUserNotFound
}

func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrConstraintViolation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.UserID]; !exists {
		return store.ErrUserNotFound
	}

	user.UpdatedAt = time.Now()
	s.users[user.UserID] = cloneUser(user)

	return nil
}

func (s *UserStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.User
	for _, user := range s.users {
		if user.BelongsTo(tenantID) {
			result = append(result, cloneUser(user))
		}
	}

	return result, nil
}

func cloneUser(u *models.User) *models.User {
	clone := *u
	if u.OrganizationRole != nil {
		role := *u.OrganizationRole
		clone.OrganizationRole = &role
	}
	if u.TenantID != nil {
		id := *u.TenantID
		clone.TenantID = &id
	}
	if u.StripeCustomerID != nil {
		v := *u.StripeCustomerID
		clone.StripeCustomerID = &v
	}
	if u.StripeSubscriptionID != nil {
		v := *u.StripeSubscriptionID
		clone.StripeSubscriptionID = &v
	}
	return &clone
}

package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

// SubmissionStore implements store.SubmissionStore using in-memory storage.
type SubmissionStore struct {
	mu sync.RWMutex

	submissions map[uuid.UUID]*models.FormSubmission
}

var _ store.SubmissionStore = (*SubmissionStore)(nil)

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{
		submissions: make(map[uuid.UUID]*models.FormSubmission),
	}
}

func (s *SubmissionStore) Create(ctx context.Context, submission *models.FormSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submissions[submission.SubmissionID] = cloneSubmission(submission)
	return nil
}

func (s *SubmissionStore) Get(ctx context.Context, submissionID uuid.UUID) (*models.FormSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	submission, exists := s.submissions[submissionID]
	if !exists {
		return nil, store.ErrSubmissionNotFound
	}
	return cloneSubmission(submission), nil
}

func (s *SubmissionStore) Update(ctx context.Context, submission *models.FormSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.submissions[submission.SubmissionID]
	if !exists {
		return store.ErrSubmissionNotFound
	}
	if existing.IsSubmitted() {
		return store.ErrSubmissionFinal
	}

	s.submissions[submission.SubmissionID] = cloneSubmission(submission)
	return nil
}

func cloneSubmission(s *models.FormSubmission) *models.FormSubmission {
	clone := *s
	clone.FormData = maps.Clone(s.FormData)
	return &clone
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

const submissionColumns = `id, form_template_id, application_id, user_id, form_data,
	submitted_at, created_at, updated_at`

// SubmissionStore implements store.SubmissionStore using PostgreSQL.
type SubmissionStore struct {
	pool *pgxpool.Pool
}

var _ store.SubmissionStore = (*SubmissionStore)(nil)

func NewSubmissionStore(pool *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

func (s *SubmissionStore) Create(ctx context.Context, sub *models.FormSubmission) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO form_submissions (`+submissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		sub.SubmissionID,
		sub.FormTemplateID,
		sub.ApplicationID,
		sub.UserID,
		sub.FormData,
		sub.SubmittedAt,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", mapPostgresError(err))
	}
	return nil
}

func (s *SubmissionStore) Get(ctx context.Context, submissionID uuid.UUID) (*models.FormSubmission, error) {
	var sub models.FormSubmission
	err := s.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM form_submissions WHERE id = $1`, submissionID).Scan(
		&sub.SubmissionID,
		&sub.FormTemplateID,
		&sub.ApplicationID,
		&sub.UserID,
		&sub.FormData,
		&sub.SubmittedAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &sub, nil
}

// Update overwrites form_data as a whole value. Rows with submitted_at set are final,
// so a draft save racing a submit cannot rewrite the submitted data.
func (s *SubmissionStore) Update(ctx context.Context, sub *models.FormSubmission) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE form_submissions SET
			form_data = $2,
			submitted_at = $3,
			updated_at = GREATEST(updated_at, $4)
		WHERE id = $1 AND submitted_at IS NULL
	`,
		sub.SubmissionID,
		sub.FormData,
		sub.SubmittedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM form_submissions WHERE id = $1)`, sub.SubmissionID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check submission: %w", err)
		}
		if exists {
			return store.ErrSubmissionFinal
		}
		return store.ErrSubmissionNotFound
	}
	return nil
}

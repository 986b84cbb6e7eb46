package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/telodox/portal/internal/models"
)

// FormTemplateStore persists versioned templates. Each version is its own row and is
// never edited after creation.
type FormTemplateStore interface {
	Create(ctx context.Context, template *models.FormTemplate) error
	Get(ctx context.Context, templateID uuid.UUID) (*models.FormTemplate, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.FormTemplate, error)
}

// ApplicationStore persists onboarding applications with their workflow.
type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	Get(ctx context.Context, applicationID uuid.UUID) (*models.Application, error)
	Update(ctx context.Context, app *models.Application) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Application, error)
}

// SubmissionStore persists form submissions.
type SubmissionStore interface {
	Create(ctx context.Context, submission *models.FormSubmission) error
	Get(ctx context.Context, submissionID uuid.UUID) (*models.FormSubmission, error)

	// Update overwrites form_data, updated_at and submitted_at. A submission that is
	// already submitted is never changed: ErrSubmissionFinal.
	Update(ctx context.Context, submission *models.FormSubmission) error
}

// WaitlistStore persists early-access signups.
type WaitlistStore interface {
	// Create returns ErrWaitlistEmailExists when the email is already registered.
	Create(ctx context.Context, entry *models.WaitlistEntry) error

	// CountActive returns the number of entries with status active.
	CountActive(ctx context.Context) (int, error)
}

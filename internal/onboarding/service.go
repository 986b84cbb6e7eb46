// Package onboarding persists carrier form submissions and moves applications through
// their workflow.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/telodox/portal/internal/apierr"
	"github.com/telodox/portal/internal/auth"
	"github.com/telodox/portal/internal/forms"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/notify"
	"github.com/telodox/portal/internal/store"
	"github.com/telodox/portal/internal/telemetry"
)

// Actor is the authenticated caller. Profile is nil when it could not be loaded.
type Actor struct {
	UserID  uuid.UUID
	Profile *models.User
}

// SaveRequest is the body of an auto-save or submit call.
type SaveRequest struct {
	FormTemplateID uuid.UUID      `json:"form_template_id"`
	ApplicationID  *uuid.UUID     `json:"application_id,omitempty"`
	SubmissionID   *uuid.UUID     `json:"submission_id,omitempty"`
	FormData       map[string]any `json:"form_data"`
}

// Service is the submission writer.
type Service struct {
	stores   *store.Stores
	notifier notify.Notifier
	now      func() time.Time
}

func NewService(stores *store.Stores, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Service{stores: stores, notifier: notifier, now: time.Now}
}

// AutoSave stores draft form data. Submitted submissions are final and cannot be
// auto-saved.
func (s *Service) AutoSave(ctx context.Context, actor Actor, req SaveRequest) (*models.FormSubmission, error) {
	sub, _, err := s.save(ctx, actor, req, false)
	if err != nil {
		return nil, err
	}
	telemetry.Count(ctx, telemetry.GetMetrics().FormSavesTotal)
	return sub, nil
}

// Submit validates and finalizes form data, then advances the application workflow.
// Submitting an already submitted submission returns it unchanged.
func (s *Service) Submit(ctx context.Context, actor Actor, req SaveRequest) (*models.FormSubmission, error) {
	sub, tmpl, err := s.save(ctx, actor, req, true)
	if err != nil {
		return nil, err
	}
	telemetry.Count(ctx, telemetry.GetMetrics().FormSubmitsTotal, "form_type", string(tmpl.FormType))
	return sub, nil
}

func (s *Service) save(ctx context.Context, actor Actor, req SaveRequest, submit bool) (*models.FormSubmission, *models.FormTemplate, error) {
	if req.FormTemplateID == uuid.Nil || req.FormData == nil {
		return nil, nil, apierr.New(apierr.Validation, "form template id and form data are required")
	}
	if actor.UserID == uuid.Nil {
		return nil, nil, apierr.New(apierr.Unauthenticated, "authentication required")
	}

	tmpl, err := s.stores.Templates.Get(ctx, req.FormTemplateID)
	if err != nil {
		if errors.Is(err, store.ErrTemplateNotFound) {
			return nil, nil, apierr.Wrap(apierr.NotFound, "form template not found", err)
		}
		return nil, nil, fmt.Errorf("failed to load form template: %w", err)
	}

	// An existing submission stays bound to the application it was created for. Access
	// and workflow changes follow the stored binding, not the request body.
	var sub *models.FormSubmission
	applicationID := req.ApplicationID
	if req.SubmissionID != nil {
		sub, err = s.stores.Submissions.Get(ctx, *req.SubmissionID)
		switch {
		case errors.Is(err, store.ErrSubmissionNotFound):
			sub = nil
		case err != nil:
			return nil, nil, fmt.Errorf("failed to load submission: %w", err)
		default:
			applicationID = sub.ApplicationID
		}
	}

	app, err := s.authorize(ctx, actor, tmpl, applicationID)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()

	if req.SubmissionID != nil {
		if sub == nil {
			return nil, nil, apierr.Wrap(apierr.NotFound, "submission not found", store.ErrSubmissionNotFound)
		}
		if sub.FormTemplateID != tmpl.TemplateID {
			return nil, nil, apierr.New(apierr.Validation, "submission does not belong to the form template")
		}
		if req.ApplicationID != nil && (sub.ApplicationID == nil || *sub.ApplicationID != *req.ApplicationID) {
			return nil, nil, apierr.New(apierr.Validation, "submission belongs to a different application")
		}
		if sub.IsSubmitted() {
			return s.finalized(ctx, sub, tmpl, submit)
		}
	}

	if submit {
		if errs := forms.Validate(req.FormData, tmpl.Fields); len(errs) > 0 {
			telemetry.Count(ctx, telemetry.GetMetrics().ValidationFailuresTotal, "form_type", string(tmpl.FormType))
			return nil, nil, apierr.Invalid("form data is invalid", errs)
		}
	}

	// Workflow changes are prepared before anything is written so an illegal stage
	// transition leaves the submission untouched.
	var appChanged bool
	if app != nil {
		if submit {
			appChanged, err = advanceOnSubmit(app, tmpl.FormType, now)
		} else {
			appChanged = advanceOnSave(app, tmpl.FormType, now)
		}
		if err != nil {
			return nil, nil, apierr.Wrap(apierr.Conflict, "workflow stage cannot be completed", err)
		}
	}

	if sub == nil {
		sub = &models.FormSubmission{
			SubmissionID:   uuid.Must(uuid.NewV7()),
			FormTemplateID: tmpl.TemplateID,
			ApplicationID:  req.ApplicationID,
			UserID:         actor.UserID,
			FormData:       req.FormData,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if submit {
			sub.SubmittedAt = &now
		}
		if err := s.stores.Submissions.Create(ctx, sub); err != nil {
			return nil, nil, fmt.Errorf("failed to create submission: %w", err)
		}
	} else {
		sub.FormData = req.FormData
		if now.After(sub.UpdatedAt) {
			sub.UpdatedAt = now
		}
		if submit {
			sub.SubmittedAt = &now
		}
		if err := s.stores.Submissions.Update(ctx, sub); err != nil {
			if errors.Is(err, store.ErrSubmissionFinal) {
				// submitted concurrently since it was read
				stored, err := s.stores.Submissions.Get(ctx, sub.SubmissionID)
				if err != nil {
					return nil, nil, fmt.Errorf("failed to load submission: %w", err)
				}
				return s.finalized(ctx, stored, tmpl, submit)
			}
			return nil, nil, fmt.Errorf("failed to update submission: %w", err)
		}
	}

	if appChanged {
		app.UpdatedAt = now
		if err := s.stores.Applications.Update(ctx, app); err != nil {
			return nil, nil, fmt.Errorf("failed to update application: %w", err)
		}
	}

	log := zerolog.Ctx(ctx)
	log.Debug().
		Str("submission_id", sub.SubmissionID.String()).
		Str("form_template_id", tmpl.TemplateID.String()).
		Bool("submitted", submit).
		Msg("submission saved")

	if submit {
		s.notifyManagers(ctx, tmpl, app, sub)
	}

	return sub, tmpl, nil
}

// authorize grants access to members of the template's tenant and super admins, or to
// the owner of the application being worked on. Read failures deny access.
func (s *Service) authorize(ctx context.Context, actor Actor, tmpl *models.FormTemplate, applicationID *uuid.UUID) (*models.Application, error) {
	tenantAccess := actor.Profile.BelongsTo(tmpl.TenantID) || auth.IsSuperAdmin(actor.Profile)

	if applicationID == nil {
		if !tenantAccess {
			return nil, apierr.New(apierr.Forbidden, "access denied")
		}
		return nil, nil
	}

	app, err := s.stores.Applications.Get(ctx, *applicationID)
	if err != nil {
		if !tenantAccess {
			return nil, apierr.New(apierr.Forbidden, "access denied")
		}
		if errors.Is(err, store.ErrApplicationNotFound) {
			return nil, apierr.Wrap(apierr.NotFound, "application not found", err)
		}
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	if !tenantAccess && !app.OwnedBy(actor.UserID) {
		return nil, apierr.New(apierr.Forbidden, "access denied")
	}
	if app.TenantID != tmpl.TenantID {
		return nil, apierr.New(apierr.Validation, "application and form template belong to different tenants")
	}

	return app, nil
}

// finalized answers a save against a submitted submission: a submit replay gets the
// stored record, an auto-save is a conflict.
func (s *Service) finalized(ctx context.Context, sub *models.FormSubmission, tmpl *models.FormTemplate, submit bool) (*models.FormSubmission, *models.FormTemplate, error) {
	if !submit {
		return nil, nil, apierr.New(apierr.Conflict, "submission has already been submitted")
	}
	zerolog.Ctx(ctx).Debug().Str("submission_id", sub.SubmissionID.String()).Msg("submit replayed")
	return sub, tmpl, nil
}

func advanceOnSave(app *models.Application, formType models.FormType, now time.Time) bool {
	changed := false
	if app.Status == models.ApplicationDraft {
		app.Status = models.ApplicationInProgress
		changed = true
	}
	if stage, ok := app.Stage(formType); ok && stage.Status == models.StagePending {
		stage.Start(now)
		app.CurrentStage = formType
		changed = true
	}
	return changed
}

func advanceOnSubmit(app *models.Application, formType models.FormType, now time.Time) (bool, error) {
	if stage, ok := app.Stage(formType); ok {
		if err := stage.Complete(now); err != nil {
			return false, err
		}
	}

	if formType == models.FormTypeMSA {
		app.Status = models.ApplicationPendingApproval
	} else {
		app.Status = models.ApplicationCompleted
		app.CompletedAt = &now
	}
	return true, nil
}

// SubmissionDetail is a submission joined with its template and, when bound, its
// application.
type SubmissionDetail struct {
	*models.FormSubmission
	FormTemplate *models.FormTemplate `json:"form_template"`
	Application  *models.Application  `json:"application,omitempty"`
}

// Get returns a submission visible to the actor: their own, one in their tenant, or
// any for super admins.
func (s *Service) Get(ctx context.Context, actor Actor, submissionID uuid.UUID) (*SubmissionDetail, error) {
	sub, err := s.stores.Submissions.Get(ctx, submissionID)
	if err != nil {
		if errors.Is(err, store.ErrSubmissionNotFound) {
			return nil, apierr.Wrap(apierr.NotFound, "submission not found", err)
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	direct := sub.UserID == actor.UserID || auth.IsSuperAdmin(actor.Profile)

	tmpl, err := s.stores.Templates.Get(ctx, sub.FormTemplateID)
	if err != nil {
		if !direct {
			return nil, apierr.New(apierr.Forbidden, "access denied")
		}
		return nil, fmt.Errorf("failed to load form template: %w", err)
	}
	if !direct && !actor.Profile.BelongsTo(tmpl.TenantID) {
		return nil, apierr.New(apierr.Forbidden, "access denied")
	}

	detail := &SubmissionDetail{FormSubmission: sub, FormTemplate: tmpl}
	if sub.ApplicationID != nil {
		app, err := s.stores.Applications.Get(ctx, *sub.ApplicationID)
		switch {
		case errors.Is(err, store.ErrApplicationNotFound):
		case err != nil:
			return nil, fmt.Errorf("failed to load application: %w", err)
		default:
			detail.Application = app
		}
	}
	return detail, nil
}

// ListApplications returns a tenant's applications to its managers.
func (s *Service) ListApplications(ctx context.Context, actor Actor, tenantID uuid.UUID) ([]*models.Application, error) {
	if !auth.CanManageTenant(actor.Profile, tenantID) {
		return nil, apierr.New(apierr.Forbidden, "access denied")
	}
	apps, err := s.stores.Applications.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// ApproveStage approves a completed workflow stage. An application awaiting approval
// becomes approved.
func (s *Service) ApproveStage(ctx context.Context, actor Actor, applicationID uuid.UUID, formType models.FormType) (*models.Application, error) {
	return s.reviewStage(ctx, actor, applicationID, formType, func(stage *models.WorkflowStage, app *models.Application, now time.Time) error {
		if err := stage.Approve(actor.UserID, now); err != nil {
			return err
		}
		if app.Status == models.ApplicationPendingApproval {
			app.Status = models.ApplicationApproved
		}
		return nil
	})
}

// RejectStage rejects a completed workflow stage with a reason. An application
// awaiting approval becomes rejected.
func (s *Service) RejectStage(ctx context.Context, actor Actor, applicationID uuid.UUID, formType models.FormType, reason string) (*models.Application, error) {
	if reason == "" {
		return nil, apierr.Wrap(apierr.Validation, "rejection reason is required", models.ErrRejectionReasonMissing)
	}
	return s.reviewStage(ctx, actor, applicationID, formType, func(stage *models.WorkflowStage, app *models.Application, _ time.Time) error {
		if err := stage.Reject(reason); err != nil {
			return err
		}
		if app.Status == models.ApplicationPendingApproval {
			app.Status = models.ApplicationRejected
		}
		return nil
	})
}

func (s *Service) reviewStage(
	ctx context.Context,
	actor Actor,
	applicationID uuid.UUID,
	formType models.FormType,
	review func(*models.WorkflowStage, *models.Application, time.Time) error,
) (*models.Application, error) {
	if !formType.Valid() {
		return nil, apierr.New(apierr.Validation, fmt.Sprintf("unknown stage %q", formType))
	}

	app, err := s.stores.Applications.Get(ctx, applicationID)
	if err != nil {
		if errors.Is(err, store.ErrApplicationNotFound) {
			return nil, apierr.Wrap(apierr.NotFound, "application not found", err)
		}
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	if !auth.CanManageTenant(actor.Profile, app.TenantID) {
		return nil, apierr.New(apierr.Forbidden, "access denied")
	}

	stage, ok := app.Stage(formType)
	if !ok {
		return nil, apierr.Wrap(apierr.NotFound, "workflow stage not found", models.ErrStageNotFound)
	}

	now := s.now().UTC()
	if err := review(stage, app, now); err != nil {
		if errors.Is(err, models.ErrInvalidStageTransition) {
			return nil, apierr.Wrap(apierr.Conflict, "stage is not awaiting review", err)
		}
		return nil, apierr.Wrap(apierr.Validation, err.Error(), err)
	}

	app.UpdatedAt = now
	if err := s.stores.Applications.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to update application: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("application_id", app.ApplicationID.String()).
		Str("stage", string(formType)).
		Str("status", string(stage.Status)).
		Str("reviewer_id", actor.UserID.String()).
		Msg("workflow stage reviewed")

	return app, nil
}

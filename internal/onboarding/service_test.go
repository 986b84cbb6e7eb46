package onboarding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/telodox/portal/internal/apierr"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/notify"
	"github.com/telodox/portal/internal/store"
	"github.com/telodox/portal/internal/store/memory"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

type fixture struct {
	svc      *Service
	stores   *store.Stores
	notifier *recordingNotifier
	clock    *time.Time

	tenant  *models.Tenant
	owner   Actor
	carrier Actor
	admin   Actor
	outside Actor

	kyc *models.FormTemplate
	msa *models.FormTemplate
	app *models.Application
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	stores := memory.NewStores()
	notifier := &recordingNotifier{}

	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(stores, notifier)
	f := &fixture{svc: svc, stores: stores, notifier: notifier, clock: &clock}
	svc.now = func() time.Time { return *f.clock }

	f.tenant = &models.Tenant{
		TenantID:           uuid.Must(uuid.NewV7()),
		Name:               "TeleConnect Solutions",
		Subdomain:          "teleconnect",
		Settings:           models.DefaultTenantSettings("onboarding@teleconnect.example"),
		SubscriptionStatus: models.SubscriptionActive,
	}
	require.NoError(t, stores.Tenants.Create(ctx, f.tenant))

	orgOwner := models.OrgRoleOwner
	f.owner = f.addUser(t, &models.User{Email: "owner@teleconnect.example", Role: models.RoleTenantOwner, OrganizationRole: &orgOwner, TenantID: &f.tenant.TenantID})
	f.carrier = f.addUser(t, &models.User{Email: "ops@acme-carrier.example", Role: models.RoleEndUser})
	f.admin = f.addUser(t, &models.User{Email: "root@telodox.com", Role: models.RoleSuperAdmin})

	otherTenant := uuid.New()
	f.outside = f.addUser(t, &models.User{Email: "someone@elsewhere.example", Role: models.RoleTenantOwner, TenantID: &otherTenant})

	f.kyc = f.addTemplate(t, "Know Your Customer", models.FormTypeKYC, []models.FormField{
		{ID: "1", Name: "company", Label: "Company Name", Type: models.FieldText, Required: true},
		{ID: "2", Name: "email", Label: "Contact Email", Type: models.FieldEmail, Required: true},
	})
	f.msa = f.addTemplate(t, "Master Services Agreement", models.FormTypeMSA, []models.FormField{
		{ID: "1", Name: "accept", Label: "Accept Terms", Type: models.FieldCheckbox, Required: true},
	})

	f.app = &models.Application{
		ApplicationID: uuid.Must(uuid.NewV7()),
		TenantID:      f.tenant.TenantID,
		CarrierName:   "Acme Carrier",
		CarrierEmail:  "ops@acme-carrier.example",
		UserID:        &f.carrier.UserID,
		Status:        models.ApplicationDraft,
		CurrentStage:  models.FormTypeKYC,
		Workflow: []models.WorkflowStage{
			{FormType: models.FormTypeKYC, Status: models.StagePending},
			{FormType: models.FormTypeMSA, Status: models.StagePending},
		},
	}
	require.NoError(t, stores.Applications.Create(ctx, f.app))

	return f
}

func (f *fixture) addUser(t *testing.T, u *models.User) Actor {
	t.Helper()
	u.UserID = uuid.New()
	require.NoError(t, f.stores.Users.Create(context.Background(), u))
	return Actor{UserID: u.UserID, Profile: u}
}

func (f *fixture) addTemplate(t *testing.T, name string, formType models.FormType, fields []models.FormField) *models.FormTemplate {
	t.Helper()
	tmpl := &models.FormTemplate{
		TemplateID: uuid.Must(uuid.NewV7()),
		TenantID:   f.tenant.TenantID,
		Name:       name,
		FormType:   formType,
		Fields:     fields,
		Version:    1,
		IsActive:   true,
	}
	require.NoError(t, f.stores.Templates.Create(context.Background(), tmpl))
	return tmpl
}

func (f *fixture) tick(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func (f *fixture) application(t *testing.T) *models.Application {
	t.Helper()
	app, err := f.stores.Applications.Get(context.Background(), f.app.ApplicationID)
	require.NoError(t, err)
	return app
}

func validKYC() map[string]any {
	return map[string]any{"company": "Acme Carrier", "email": "ops@acme-carrier.example"}
}

func TestService_AutoSave(t *testing.T) {
	ctx := context.Background()

	t.Run("requires template and form data", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AutoSave(ctx, f.carrier, SaveRequest{FormData: map[string]any{}})
		require.True(t, apierr.Is(err, apierr.Validation))

		_, err = f.svc.AutoSave(ctx, f.carrier, SaveRequest{FormTemplateID: f.kyc.TemplateID})
		require.True(t, apierr.Is(err, apierr.Validation))
	})

	t.Run("unknown template", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AutoSave(ctx, f.owner, SaveRequest{FormTemplateID: uuid.New(), FormData: map[string]any{}})
		require.True(t, apierr.Is(err, apierr.NotFound))
	})

	t.Run("creates a draft and starts the workflow", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.AutoSave(ctx, f.carrier, SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			FormData:       map[string]any{"company": "Acme"},
		})
		require.NoError(t, err)
		require.Equal(t, f.carrier.UserID, sub.UserID)
		require.Equal(t, f.kyc.TemplateID, sub.FormTemplateID)
		require.Nil(t, sub.SubmittedAt)

		app := f.application(t)
		require.Equal(t, models.ApplicationInProgress, app.Status)
		stage, ok := app.Stage(models.FormTypeKYC)
		require.True(t, ok)
		require.Equal(t, models.StageInProgress, stage.Status)
		require.NotNil(t, stage.StartedAt)
	})

	t.Run("repeated saves overwrite form data", func(t *testing.T) {
		f := newFixture(t)
		req := SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			FormData:       map[string]any{"company": "Acme", "email": "old@acme.example"},
		}
		first, err := f.svc.AutoSave(ctx, f.carrier, req)
		require.NoError(t, err)

		f.tick(time.Minute)
		req.SubmissionID = &first.SubmissionID
		req.FormData = map[string]any{"company": "Acme Carrier"}
		second, err := f.svc.AutoSave(ctx, f.carrier, req)
		require.NoError(t, err)

		f.tick(time.Minute)
		third, err := f.svc.AutoSave(ctx, f.carrier, req)
		require.NoError(t, err)

		stored, err := f.stores.Submissions.Get(ctx, first.SubmissionID)
		require.NoError(t, err)
		require.Equal(t, map[string]any{"company": "Acme Carrier"}, stored.FormData)
		require.Nil(t, stored.SubmittedAt)
		require.False(t, second.UpdatedAt.Before(first.UpdatedAt))
		require.False(t, third.UpdatedAt.Before(second.UpdatedAt))
	})

	t.Run("updated_at never moves backwards", func(t *testing.T) {
		f := newFixture(t)
		first, err := f.svc.AutoSave(ctx, f.owner, SaveRequest{FormTemplateID: f.kyc.TemplateID, FormData: map[string]any{}})
		require.NoError(t, err)

		f.tick(-time.Hour)
		second, err := f.svc.AutoSave(ctx, f.owner, SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			SubmissionID:   &first.SubmissionID,
			FormData:       map[string]any{"company": "x"},
		})
		require.NoError(t, err)
		require.Equal(t, first.UpdatedAt, second.UpdatedAt)
	})

	t.Run("outsider is forbidden and nothing is written", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AutoSave(ctx, f.outside, SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			FormData:       map[string]any{"company": "x"},
		})
		require.True(t, apierr.Is(err, apierr.Forbidden))
		require.Equal(t, models.ApplicationDraft, f.application(t).Status)
	})

	t.Run("no application and no tenant access is forbidden", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AutoSave(ctx, f.carrier, SaveRequest{FormTemplateID: f.kyc.TemplateID, FormData: map[string]any{}})
		require.True(t, apierr.Is(err, apierr.Forbidden))
	})

	t.Run("missing profile fails closed", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AutoSave(ctx, Actor{UserID: f.owner.UserID}, SaveRequest{FormTemplateID: f.kyc.TemplateID, FormData: map[string]any{}})
		require.True(t, apierr.Is(err, apierr.Forbidden))
	})

	t.Run("super admin may save any template", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AutoSave(ctx, f.admin, SaveRequest{FormTemplateID: f.kyc.TemplateID, FormData: map[string]any{}})
		require.NoError(t, err)
	})

	t.Run("unknown submission", func(t *testing.T) {
		f := newFixture(t)
		missing := uuid.New()
		_, err := f.svc.AutoSave(ctx, f.owner, SaveRequest{FormTemplateID: f.kyc.TemplateID, SubmissionID: &missing, FormData: map[string]any{}})
		require.True(t, apierr.Is(err, apierr.NotFound))
	})

	t.Run("submission of another template", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.AutoSave(ctx, f.owner, SaveRequest{FormTemplateID: f.msa.TemplateID, FormData: map[string]any{}})
		require.NoError(t, err)

		_, err = f.svc.AutoSave(ctx, f.owner, SaveRequest{FormTemplateID: f.kyc.TemplateID, SubmissionID: &sub.SubmissionID, FormData: map[string]any{}})
		require.True(t, apierr.Is(err, apierr.Validation))
	})

	t.Run("submitted submissions are final", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.Submit(ctx, f.carrier, SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			FormData:       validKYC(),
		})
		require.NoError(t, err)

		_, err = f.svc.AutoSave(ctx, f.carrier, SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			SubmissionID:   &sub.SubmissionID,
			FormData:       map[string]any{"company": "changed"},
		})
		require.True(t, apierr.Is(err, apierr.Conflict))
	})
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("non-msa completes the application", func(t *testing.T) {
		f := newFixture(t)
		sub, err := f.svc.Submit(ctx, f.carrier, SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			FormData:       validKYC(),
		})
		require.NoError(t, err)
		require.NotNil(t, sub.SubmittedAt)

		app := f.application(t)
		require.Equal(t, models.ApplicationCompleted, app.Status)
		require.NotNil(t, app.CompletedAt)
		stage, _ := app.Stage(models.FormTypeKYC)
		require.Equal(t, models.StageCompleted, stage.Status)
		require.NotNil(t, stage.CompletedAt)
	})

	t.Run("msa awaits approval", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Submit(ctx, f.carrier, SaveRequest{
			FormTemplateID: f.msa.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			FormData:       map[string]any{"accept": true},
		})
		require.NoError(t, err)

		app := f.application(t)
		require.Equal(t, models.ApplicationPendingApproval, app.Status)
		require.Nil(t, app.CompletedAt)
	})

	t.Run("validation errors are reported with details", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Submit(ctx, f.carrier, SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			FormData:       map[string]any{"email": "nope"},
		})
		var apiErr *apierr.Error
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, apierr.Validation, apiErr.Kind)
		require.Equal(t, []string{"Company Name is required", "Contact Email must be a valid email address"}, apiErr.Details)
		require.Equal(t, models.ApplicationDraft, f.application(t).Status)
	})

	t.Run("submit is single-fire", func(t *testing.T) {
		f := newFixture(t)
		draft, err := f.svc.AutoSave(ctx, f.carrier, SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			FormData:       validKYC(),
		})
		require.NoError(t, err)

		req := SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			SubmissionID:   &draft.SubmissionID,
			FormData:       validKYC(),
		}
		first, err := f.svc.Submit(ctx, f.carrier, req)
		require.NoError(t, err)

		f.tick(time.Hour)
		req.FormData = map[string]any{"company": "Replay", "email": "replay@acme.example"}
		second, err := f.svc.Submit(ctx, f.carrier, req)
		require.NoError(t, err)
		require.Equal(t, *first.SubmittedAt, *second.SubmittedAt)
		require.Equal(t, validKYC(), second.FormData)
		require.Len(t, f.notifier.sent, 1)
	})

	t.Run("notifies tenant managers", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Submit(ctx, f.carrier, SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			FormData:       validKYC(),
		})
		require.NoError(t, err)

		require.Len(t, f.notifier.sent, 1)
		msg := f.notifier.sent[0]
		require.ElementsMatch(t, []string{"onboarding@teleconnect.example", "owner@teleconnect.example"}, msg.To)
		require.Contains(t, msg.Subject, "Know Your Customer")
		require.Contains(t, msg.Body, "Acme Carrier")
	})

	t.Run("notification failure does not fail the submit", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.err = errors.New("smtp down")
		sub, err := f.svc.Submit(ctx, f.carrier, SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			FormData:       validKYC(),
		})
		require.NoError(t, err)
		require.NotNil(t, sub.SubmittedAt)
	})

	t.Run("submission id alone advances its own application", func(t *testing.T) {
		f := newFixture(t)
		draft, err := f.svc.AutoSave(ctx, f.carrier, SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			FormData:       validKYC(),
		})
		require.NoError(t, err)

		sub, err := f.svc.Submit(ctx, f.carrier, SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			SubmissionID:   &draft.SubmissionID,
			FormData:       validKYC(),
		})
		require.NoError(t, err)
		require.NotNil(t, sub.SubmittedAt)

		app := f.application(t)
		require.Equal(t, models.ApplicationCompleted, app.Status)
		stage, _ := app.Stage(models.FormTypeKYC)
		require.Equal(t, models.StageCompleted, stage.Status)
	})

	t.Run("submission cannot be moved to another application", func(t *testing.T) {
		f := newFixture(t)
		other := &models.Application{
			ApplicationID: uuid.Must(uuid.NewV7()),
			TenantID:      f.tenant.TenantID,
			CarrierName:   "Globex Telecom",
			Status:        models.ApplicationDraft,
			CurrentStage:  models.FormTypeKYC,
			Workflow:      []models.WorkflowStage{{FormType: models.FormTypeKYC, Status: models.StagePending}},
		}
		require.NoError(t, f.stores.Applications.Create(ctx, other))

		draft, err := f.svc.AutoSave(ctx, f.carrier, SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			FormData:       validKYC(),
		})
		require.NoError(t, err)

		_, err = f.svc.Submit(ctx, f.owner, SaveRequest{
			FormTemplateID: f.kyc.TemplateID,
			ApplicationID:  &other.ApplicationID,
			SubmissionID:   &draft.SubmissionID,
			FormData:       validKYC(),
		})
		require.True(t, apierr.Is(err, apierr.Validation))

		got, err := f.stores.Submissions.Get(ctx, draft.SubmissionID)
		require.NoError(t, err)
		require.Nil(t, got.SubmittedAt)

		otherApp, err := f.stores.Applications.Get(ctx, other.ApplicationID)
		require.NoError(t, err)
		require.Equal(t, models.ApplicationDraft, otherApp.Status)
		require.Equal(t, models.StagePending, otherApp.Workflow[0].Status)
		require.Equal(t, models.ApplicationInProgress, f.application(t).Status)
	})

	t.Run("reviewed stage cannot be completed again", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Submit(ctx, f.carrier, SaveRequest{
			FormTemplateID: f.msa.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			FormData:       map[string]any{"accept": true},
		})
		require.NoError(t, err)
		_, err = f.svc.ApproveStage(ctx, f.owner, f.app.ApplicationID, models.FormTypeMSA)
		require.NoError(t, err)

		_, err = f.svc.Submit(ctx, f.carrier, SaveRequest{
			FormTemplateID: f.msa.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			FormData:       map[string]any{"accept": true},
		})
		require.True(t, apierr.Is(err, apierr.Conflict))
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sub, err := f.svc.AutoSave(ctx, f.carrier, SaveRequest{
		FormTemplateID: f.kyc.TemplateID,
		ApplicationID:  &f.app.ApplicationID,
		FormData:       validKYC(),
	})
	require.NoError(t, err)

	for name, actor := range map[string]Actor{"owner of submission": f.carrier, "tenant member": f.owner, "super admin": f.admin} {
		t.Run(name, func(t *testing.T) {
			got, err := f.svc.Get(ctx, actor, sub.SubmissionID)
			require.NoError(t, err)
			require.Equal(t, sub.SubmissionID, got.SubmissionID)
			require.Equal(t, f.kyc.TemplateID, got.FormTemplate.TemplateID)
			require.NotNil(t, got.Application)
			require.Equal(t, f.app.ApplicationID, got.Application.ApplicationID)
		})
	}

	t.Run("without an application", func(t *testing.T) {
		draft, err := f.svc.AutoSave(ctx, f.owner, SaveRequest{FormTemplateID: f.msa.TemplateID, FormData: map[string]any{}})
		require.NoError(t, err)

		got, err := f.svc.Get(ctx, f.owner, draft.SubmissionID)
		require.NoError(t, err)
		require.Equal(t, f.msa.TemplateID, got.FormTemplate.TemplateID)
		require.Nil(t, got.Application)
	})

	t.Run("outsider", func(t *testing.T) {
		_, err := f.svc.Get(ctx, f.outside, sub.SubmissionID)
		require.True(t, apierr.Is(err, apierr.Forbidden))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := f.svc.Get(ctx, f.owner, uuid.New())
		require.True(t, apierr.Is(err, apierr.NotFound))
	})
}

func TestService_ReviewStage(t *testing.T) {
	ctx := context.Background()

	submitMSA := func(t *testing.T, f *fixture) {
		t.Helper()
		_, err := f.svc.Submit(ctx, f.carrier, SaveRequest{
			FormTemplateID: f.msa.TemplateID,
			ApplicationID:  &f.app.ApplicationID,
			FormData:       map[string]any{"accept": true},
		})
		require.NoError(t, err)
	}

	t.Run("approve", func(t *testing.T) {
		f := newFixture(t)
		submitMSA(t, f)

		app, err := f.svc.ApproveStage(ctx, f.owner, f.app.ApplicationID, models.FormTypeMSA)
		require.NoError(t, err)
		require.Equal(t, models.ApplicationApproved, app.Status)
		stage, _ := app.Stage(models.FormTypeMSA)
		require.Equal(t, models.StageApproved, stage.Status)
		require.Equal(t, f.owner.UserID, *stage.ApprovedBy)
	})

	t.Run("reject requires reason", func(t *testing.T) {
		f := newFixture(t)
		submitMSA(t, f)

		_, err := f.svc.RejectStage(ctx, f.owner, f.app.ApplicationID, models.FormTypeMSA, "")
		require.True(t, apierr.Is(err, apierr.Validation))

		app, err := f.svc.RejectStage(ctx, f.owner, f.app.ApplicationID, models.FormTypeMSA, "unsigned page 3")
		require.NoError(t, err)
		require.Equal(t, models.ApplicationRejected, app.Status)
		stage, _ := app.Stage(models.FormTypeMSA)
		require.Equal(t, "unsigned page 3", stage.RejectionReason)
	})

	t.Run("stage must be completed first", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ApproveStage(ctx, f.owner, f.app.ApplicationID, models.FormTypeKYC)
		require.True(t, apierr.Is(err, apierr.Conflict))
	})

	t.Run("only tenant managers", func(t *testing.T) {
		f := newFixture(t)
		submitMSA(t, f)

		_, err := f.svc.ApproveStage(ctx, f.carrier, f.app.ApplicationID, models.FormTypeMSA)
		require.True(t, apierr.Is(err, apierr.Forbidden))
		_, err = f.svc.ApproveStage(ctx, f.outside, f.app.ApplicationID, models.FormTypeMSA)
		require.True(t, apierr.Is(err, apierr.Forbidden))
		_, err = f.svc.ApproveStage(ctx, f.admin, f.app.ApplicationID, models.FormTypeMSA)
		require.NoError(t, err)
	})

	t.Run("unknown stage", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ApproveStage(ctx, f.owner, f.app.ApplicationID, "billing")
		require.True(t, apierr.Is(err, apierr.Validation))
		_, err = f.svc.ApproveStage(ctx, f.owner, f.app.ApplicationID, models.FormTypeInterop)
		require.True(t, apierr.Is(err, apierr.NotFound))
	})
}

func TestService_ListApplications(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	apps, err := f.svc.ListApplications(ctx, f.owner, f.tenant.TenantID)
	require.NoError(t, err)
	require.Len(t, apps, 1)

	_, err = f.svc.ListApplications(ctx, f.carrier, f.tenant.TenantID)
	require.True(t, apierr.Is(err, apierr.Forbidden))
}

// Package bootstrap seeds a store with tenants, users, form templates and applications
// from a YAML fixtures document.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

// Result counts what Bootstrap created. Records that already existed are skipped.
type Result struct {
	Tenants      int
	Users        int
	Templates    int
	Applications int
	Skipped      int
}

// Bootstrap creates everything in the fixtures that does not exist yet, so it can be
// run repeatedly against the same database. A tenant whose subdomain is already taken
// is left alone together with its templates and applications.
func Bootstrap(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Stores == nil {
		return nil, fmt.Errorf("stores are required")
	}
	if cfg.Fixtures == nil {
		return nil, fmt.Errorf("fixtures are required")
	}

	log := zerolog.Ctx(ctx)
	now := time.Now().UTC()
	res := &Result{}
	userIDs := map[string]uuid.UUID{}

	for _, u := range cfg.Fixtures.PlatformUsers {
		if err := createUser(ctx, cfg.Stores.Users, u, nil, now, res); err != nil {
			return res, err
		}
		userIDs[u.Email] = u.ID
	}

	for _, tf := range cfg.Fixtures.Tenants {
		if _, err := cfg.Stores.Tenants.GetBySubdomain(ctx, tf.Subdomain); err == nil {
			log.Info().Str("subdomain", tf.Subdomain).Msg("tenant exists, skipping")
			res.Skipped++
			continue
		} else if !errors.Is(err, store.ErrTenantNotFound) {
			return res, fmt.Errorf("failed to look up tenant %q: %w", tf.Subdomain, err)
		}

		t, err := newTenant(tf, now)
		if err != nil {
			return res, err
		}
		if err := cfg.Stores.Tenants.Create(ctx, t); err != nil {
			return res, fmt.Errorf("failed to create tenant %q: %w", tf.Subdomain, err)
		}
		res.Tenants++
		log.Info().Str("subdomain", t.Subdomain).Str("tenant_id", t.TenantID.String()).Msg("tenant created")

		for _, u := range tf.Users {
			var tenantID *uuid.UUID
			// carriers reach their tenant through applications, not membership
			if u.Role != models.RoleEndUser || u.OrganizationRole != nil {
				tenantID = &t.TenantID
			}
			if err := createUser(ctx, cfg.Stores.Users, u, tenantID, now, res); err != nil {
				return res, err
			}
			userIDs[u.Email] = u.ID
		}

		for _, tmpl := range tf.Templates {
			id, err := uuid.NewV7()
			if err != nil {
				return res, err
			}
			err = cfg.Stores.Templates.Create(ctx, &models.FormTemplate{
				TemplateID:  id,
				TenantID:    t.TenantID,
				Name:        tmpl.Name,
				Description: tmpl.Description,
				FormType:    tmpl.FormType,
				Fields:      tmpl.Fields,
				Settings:    tmpl.Settings,
				Version:     1,
				IsActive:    true,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
			if err != nil {
				return res, fmt.Errorf("failed to create template %q: %w", tmpl.Name, err)
			}
			res.Templates++
		}

		for _, af := range tf.Applications {
			app, err := newApplication(t.TenantID, af, userIDs, now)
			if err != nil {
				return res, err
			}
			if err := cfg.Stores.Applications.Create(ctx, app); err != nil {
				return res, fmt.Errorf("failed to create application %q: %w", af.CarrierName, err)
			}
			res.Applications++
		}
	}

	return res, nil
}

func createUser(ctx context.Context, users store.UserStore, f UserFixture, tenantID *uuid.UUID, now time.Time, res *Result) error {
	u := &models.User{
		UserID:           f.ID,
		Email:            f.Email,
		FullName:         f.FullName,
		Role:             f.Role,
		OrganizationRole: f.OrganizationRole,
		TenantID:         tenantID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := u.Validate(); err != nil {
		return fmt.Errorf("user %q: %w", f.Email, err)
	}

	err := users.Create(ctx, u)
	switch {
	case errors.Is(err, store.ErrUserAlreadyExists):
		res.Skipped++
		return nil
	case err != nil:
		return fmt.Errorf("failed to create user %q: %w", f.Email, err)
	}
	res.Users++
	return nil
}

func newTenant(f TenantFixture, now time.Time) (*models.Tenant, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	t := &models.Tenant{
		TenantID:           id,
		Name:               f.Name,
		Subdomain:          f.Subdomain,
		SubscriptionStatus: f.SubscriptionStatus,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if f.Settings != nil {
		t.Settings = *f.Settings
	} else {
		t.Settings = models.DefaultTenantSettings("")
	}
	if t.SubscriptionStatus == "" {
		t.SubscriptionStatus = models.SubscriptionActive
	}
	return t, nil
}

func newApplication(tenantID uuid.UUID, f ApplicationFixture, userIDs map[string]uuid.UUID, now time.Time) (*models.Application, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	app := &models.Application{
		ApplicationID: id,
		TenantID:      tenantID,
		CarrierName:   f.CarrierName,
		CarrierEmail:  f.CarrierEmail,
		Status:        models.ApplicationDraft,
		CurrentStage:  f.Stages[0],
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if f.Owner != "" {
		owner, ok := userIDs[f.Owner]
		if !ok {
			return nil, fmt.Errorf("application %q owner %q is not declared", f.CarrierName, f.Owner)
		}
		app.UserID = &owner
	}
	for _, stage := range f.Stages {
		app.Workflow = append(app.Workflow, models.WorkflowStage{FormType: stage, Status: models.StagePending})
	}
	return app, nil
}

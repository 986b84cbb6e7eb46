package onboarding

import (
	"context"
	"slices"

	"github.com/rs/zerolog"
	"github.com/telodox/portal/internal/auth"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/notify"
)

// notifyManagers e-mails the tenant's contact address and everyone who can manage
// the tenant. Failures are logged only.
func (s *Service) notifyManagers(ctx context.Context, tmpl *models.FormTemplate, app *models.Application, sub *models.FormSubmission) {
	log := zerolog.Ctx(ctx)

	t, err := s.stores.Tenants.Get(ctx, tmpl.TenantID)
	if err != nil {
		log.Warn().Err(err).Str("tenant_id", tmpl.TenantID.String()).Msg("skipping submission notification")
		return
	}

	users, err := s.stores.Users.ListByTenant(ctx, tmpl.TenantID)
	if err != nil {
		log.Warn().Err(err).Str("tenant_id", tmpl.TenantID.String()).Msg("skipping submission notification")
		return
	}

	var to []string
	if t.Settings.ContactEmail != "" {
		to = append(to, t.Settings.ContactEmail)
	}
	for _, u := range users {
		if u.Email != "" && auth.CanManageTenant(u, t.TenantID) && !slices.Contains(to, u.Email) {
			to = append(to, u.Email)
		}
	}
	if len(to) == 0 {
		return
	}

	carrier := ""
	if app != nil {
		carrier = app.CarrierName
	}

	msg := notify.SubmissionMessage(to, t.Name, tmpl.Name, carrier, sub.SubmissionID.String())
	if err := s.notifier.Send(ctx, msg); err != nil {
		log.Error().Err(err).Str("submission_id", sub.SubmissionID.String()).Msg("submission notification failed")
	}
}

package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/telodox/portal/internal/apierr"
	httpx "github.com/telodox/portal/internal/http"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
	"github.com/telodox/portal/internal/telemetry"
)

// SignatureHeader carries the provider's payload signature.
const SignatureHeader = "Stripe-Signature"

const maxWebhookBodyBytes = 64 << 10

// WebhookHandler verifies and applies payment provider events.
type WebhookHandler struct {
	secret  string
	users   store.UserStore
	tenants store.TenantStore
	now     func() time.Time
}

func NewWebhookHandler(secret string, users store.UserStore, tenants store.TenantStore) *WebhookHandler {
	return &WebhookHandler{secret: secret, users: users, tenants: tenants, now: time.Now}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	metrics := telemetry.GetMetrics()

	signature := r.Header.Get(SignatureHeader)
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil || signature == "" || len(body) == 0 {
		httpx.WriteError(w, r, apierr.New(apierr.Validation, "missing signature or body"))
		return
	}

	event, err := webhook.ConstructEventWithOptions(body, signature, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("webhook signature verification failed")
		telemetry.Count(ctx, metrics.WebhookEventsTotal, "type", "unknown", "outcome", "invalid_signature")
		httpx.WriteError(w, r, apierr.Wrap(apierr.Signature, "webhook signature verification failed", err))
		return
	}

	log := zerolog.Ctx(ctx).With().Str("event_id", event.ID).Str("event_type", string(event.Type)).Logger()
	ctx = log.WithContext(ctx)

	ev, err := DecodeEvent(event)
	if err != nil {
		log.Error().Err(err).Msg("webhook event could not be decoded")
		telemetry.Count(ctx, metrics.WebhookEventsTotal, "type", string(event.Type), "outcome", "invalid")
		httpx.WriteError(w, r, apierr.Wrap(apierr.Validation, "invalid event payload", err))
		return
	}

	if err := h.Apply(ctx, ev); err != nil {
		telemetry.Count(ctx, metrics.WebhookEventsTotal, "type", ev.Type(), "outcome", "error")
		httpx.WriteError(w, r.WithContext(ctx), fmt.Errorf("webhook processing failed: %w", err))
		return
	}

	telemetry.Count(ctx, metrics.WebhookEventsTotal, "type", ev.Type(), "outcome", "processed")
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// Apply performs the state changes for one event. Lookup misses are logged and
// ignored; store failures are returned so the provider retries. Applying the same
// event twice leaves the same state as applying it once.
func (h *WebhookHandler) Apply(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case CheckoutCompleted:
		return h.checkoutCompleted(ctx, e)
	case SubscriptionUpdated:
		return h.subscriptionUpdated(ctx, e)
	case SubscriptionDeleted:
		return h.subscriptionDeleted(ctx, e)
	case PaymentSucceeded:
		return h.invoicePaid(ctx, e.SubscriptionID, models.SubscriptionActive)
	case PaymentFailed:
		return h.invoicePaid(ctx, e.SubscriptionID, models.SubscriptionPastDue)
	case UnknownEvent:
		zerolog.Ctx(ctx).Debug().Str("event_type", e.EventType).Msg("unhandled webhook event")
		return nil
	default:
		return fmt.Errorf("unsupported event variant %T", ev)
	}
}

func (h *WebhookHandler) checkoutCompleted(ctx context.Context, e CheckoutCompleted) error {
	log := zerolog.Ctx(ctx)
	if e.UserID == "" || e.SubscriptionID == "" {
		log.Warn().Str("session_id", e.SessionID).Msg("checkout session missing user_id or subscription")
		return nil
	}

	user, err := h.lookupUser(ctx, e.UserID)
	if err != nil || user == nil {
		return err
	}

	user.StripeSubscriptionID = &e.SubscriptionID
	if user.StripeCustomerID == nil && e.CustomerID != "" {
		user.StripeCustomerID = &e.CustomerID
	}
	if user.Role != models.RoleSuperAdmin {
		user.Role = models.RoleTenantOwner
	}
	user.UpdatedAt = h.now().UTC()
	if err := h.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if user.TenantID != nil {
		err := h.updateTenant(ctx, *user.TenantID, func(t *models.Tenant) {
			t.StripeSubscriptionID = &e.SubscriptionID
			if e.CustomerID != "" {
				t.StripeCustomerID = &e.CustomerID
			}
		})
		if err != nil {
			return err
		}
	}

	log.Info().
		Str("user_id", user.UserID.String()).
		Str("subscription_id", e.SubscriptionID).
		Msg("checkout completed")
	return nil
}

func (h *WebhookHandler) subscriptionUpdated(ctx context.Context, e SubscriptionUpdated) error {
	log := zerolog.Ctx(ctx)
	if e.UserID == "" {
		log.Warn().Str("subscription_id", e.SubscriptionID).Msg("subscription missing user_id metadata")
		return nil
	}

	status, ok := MapSubscriptionStatus(e.Status)
	if !ok {
		log.Warn().Str("status", e.Status).Msg("ignoring unmapped subscription status")
		return nil
	}

	user, err := h.lookupUser(ctx, e.UserID)
	if err != nil || user == nil || user.TenantID == nil {
		return err
	}

	if err := h.updateTenant(ctx, *user.TenantID, func(t *models.Tenant) {
		t.SubscriptionStatus = status
	}); err != nil {
		return err
	}

	log.Info().Str("user_id", e.UserID).Str("status", string(status)).Msg("subscription updated")
	return nil
}

func (h *WebhookHandler) subscriptionDeleted(ctx context.Context, e SubscriptionDeleted) error {
	log := zerolog.Ctx(ctx)
	if e.UserID == "" {
		log.Warn().Str("subscription_id", e.SubscriptionID).Msg("subscription missing user_id metadata")
		return nil
	}

	user, err := h.lookupUser(ctx, e.UserID)
	if err != nil || user == nil {
		return err
	}

	if user.TenantID != nil {
		if err := h.updateTenant(ctx, *user.TenantID, func(t *models.Tenant) {
			t.SubscriptionStatus = models.SubscriptionCancelled
		}); err != nil {
			return err
		}
	}

	user.StripeSubscriptionID = nil
	if user.Role != models.RoleSuperAdmin {
		user.Role = models.RoleEndUser
	}
	user.UpdatedAt = h.now().UTC()
	if err := h.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	log.Info().Str("user_id", e.UserID).Msg("subscription cancelled")
	return nil
}

func (h *WebhookHandler) invoicePaid(ctx context.Context, subscriptionID string, status models.SubscriptionStatus) error {
	if subscriptionID == "" {
		return nil
	}

	user, err := h.users.GetByStripeSubscription(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			zerolog.Ctx(ctx).Info().Str("subscription_id", subscriptionID).Msg("no user holds subscription")
			return nil
		}
		return fmt.Errorf("failed to look up subscription holder: %w", err)
	}
	if user.TenantID == nil {
		return nil
	}

	return h.updateTenant(ctx, *user.TenantID, func(t *models.Tenant) {
		t.SubscriptionStatus = status
	})
}

// lookupUser returns nil without error when the user is unknown.
func (h *WebhookHandler) lookupUser(ctx context.Context, rawID string) (*models.User, error) {
	userID, err := uuid.Parse(rawID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Str("user_id", rawID).Msg("webhook metadata user_id is not a uuid")
		return nil, nil
	}

	user, err := h.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			zerolog.Ctx(ctx).Warn().Str("user_id", rawID).Msg("webhook user not found")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (h *WebhookHandler) updateTenant(ctx context.Context, tenantID uuid.UUID, mutate func(*models.Tenant)) error {
	t, err := h.tenants.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			zerolog.Ctx(ctx).Warn().Str("tenant_id", tenantID.String()).Msg("webhook tenant not found")
			return nil
		}
		return fmt.Errorf("failed to load tenant: %w", err)
	}

	mutate(t)
	t.UpdatedAt = h.now().UTC()
	if err := h.tenants.Update(ctx, t); err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	return nil
}

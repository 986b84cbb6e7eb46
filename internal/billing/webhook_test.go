package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
	"github.com/telodox/portal/internal/store/memory"
)

const testSecret = "whsec_test_secret"

type webhookFixture struct {
	handler *WebhookHandler
	stores  *store.Stores
	tenant  *models.Tenant
	owner   *models.User
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	ctx := context.Background()
	stores := memory.NewStores()

	tn := &models.Tenant{
		TenantID:           uuid.Must(uuid.NewV7()),
		Name:               "TeleConnect Solutions",
		Subdomain:          "teleconnect",
		SubscriptionStatus: models.SubscriptionTrial,
	}
	require.NoError(t, stores.Tenants.Create(ctx, tn))

	owner := &models.User{
		UserID:   uuid.New(),
		Email:    "owner@teleconnect.example",
		Role:     models.RoleEndUser,
		TenantID: &tn.TenantID,
	}
	require.NoError(t, stores.Users.Create(ctx, owner))

	return &webhookFixture{
		handler: NewWebhookHandler(testSecret, stores.Users, stores.Tenants),
		stores:  stores,
		tenant:  tn,
		owner:   owner,
	}
}

func eventPayload(t *testing.T, eventType string, object map[string]any) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":     "evt_" + uuid.NewString(),
		"object": "event",
		"type":   eventType,
		"data":   map[string]any{"object": object},
	})
	require.NoError(t, err)
	return payload
}

func (f *webhookFixture) deliver(t *testing.T, payload []byte, secret string) *httptest.ResponseRecorder {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set(SignatureHeader, signed.Header)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *webhookFixture) user(t *testing.T) *models.User {
	t.Helper()
	u, err := f.stores.Users.Get(context.Background(), f.owner.UserID)
	require.NoError(t, err)
	return u
}

func (f *webhookFixture) tenantState(t *testing.T) *models.Tenant {
	t.Helper()
	tn, err := f.stores.Tenants.Get(context.Background(), f.tenant.TenantID)
	require.NoError(t, err)
	return tn
}

func TestWebhook_RejectsUnsignedRequests(t *testing.T) {
	f := newWebhookFixture(t)

	t.Run("missing signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader([]byte(`{}`)))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong secret mutates nothing", func(t *testing.T) {
		payload := eventPayload(t, "checkout.session.completed", map[string]any{
			"id":           "cs_1",
			"subscription": "sub_1",
			"metadata":     map[string]any{"user_id": f.owner.UserID.String()},
		})
		rec := f.deliver(t, payload, "whsec_wrong")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid_signature")

		u := f.user(t)
		require.Equal(t, models.RoleEndUser, u.Role)
		require.Nil(t, u.StripeSubscriptionID)
	})
}

func TestWebhook_CheckoutCompleted(t *testing.T) {
	f := newWebhookFixture(t)
	payload := eventPayload(t, "checkout.session.completed", map[string]any{
		"id":           "cs_1",
		"subscription": "sub_1",
		"customer":     "cus_1",
		"metadata":     map[string]any{"user_id": f.owner.UserID.String()},
	})

	for range 2 {
		rec := f.deliver(t, payload, testSecret)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"received":true}`, rec.Body.String())

		u := f.user(t)
		require.Equal(t, models.RoleTenantOwner, u.Role)
		require.Equal(t, "sub_1", *u.StripeSubscriptionID)
		require.Equal(t, "cus_1", *u.StripeCustomerID)

		tn := f.tenantState(t)
		require.Equal(t, "sub_1", *tn.StripeSubscriptionID)
	}
}

func TestWebhook_CheckoutCompletedMissingFieldsIsNoop(t *testing.T) {
	f := newWebhookFixture(t)
	payload := eventPayload(t, "checkout.session.completed", map[string]any{
		"id":       "cs_1",
		"metadata": map[string]any{"user_id": f.owner.UserID.String()},
	})

	rec := f.deliver(t, payload, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, models.RoleEndUser, f.user(t).Role)
}

func TestWebhook_UnknownUserIsNoop(t *testing.T) {
	f := newWebhookFixture(t)
	payload := eventPayload(t, "customer.subscription.deleted", map[string]any{
		"id":       "sub_1",
		"status":   "canceled",
		"metadata": map[string]any{"user_id": uuid.NewString()},
	})

	rec := f.deliver(t, payload, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, models.SubscriptionTrial, f.tenantState(t).SubscriptionStatus)
}

func TestWebhook_SubscriptionUpdated(t *testing.T) {
	tests := []struct {
		status string
		want   models.SubscriptionStatus
	}{
		{status: "active", want: models.SubscriptionActive},
		{status: "trialing", want: models.SubscriptionTrial},
		{status: "canceled", want: models.SubscriptionCancelled},
		{status: "incomplete_expired", want: models.SubscriptionExpired},
		{status: "unpaid", want: models.SubscriptionPastDue},
		{status: "paused", want: models.SubscriptionTrial},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			f := newWebhookFixture(t)
			payload := eventPayload(t, "customer.subscription.updated", map[string]any{
				"id":       "sub_1",
				"status":   tt.status,
				"metadata": map[string]any{"user_id": f.owner.UserID.String()},
			})

			rec := f.deliver(t, payload, testSecret)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, tt.want, f.tenantState(t).SubscriptionStatus)
		})
	}
}

func TestWebhook_SubscriptionDeleted(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	sub := "sub_1"
	u := f.user(t)
	u.Role = models.RoleTenantOwner
	u.StripeSubscriptionID = &sub
	require.NoError(t, f.stores.Users.Update(ctx, u))

	payload := eventPayload(t, "customer.subscription.deleted", map[string]any{
		"id":       "sub_1",
		"status":   "canceled",
		"metadata": map[string]any{"user_id": f.owner.UserID.String()},
	})
	rec := f.deliver(t, payload, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)

	u = f.user(t)
	require.Equal(t, models.RoleEndUser, u.Role)
	require.Nil(t, u.StripeSubscriptionID)
	require.Equal(t, models.SubscriptionCancelled, f.tenantState(t).SubscriptionStatus)
}

func TestWebhook_SubscriptionDeletedKeepsSuperAdmin(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	u := f.user(t)
	u.Role = models.RoleSuperAdmin
	require.NoError(t, f.stores.Users.Update(ctx, u))

	payload := eventPayload(t, "customer.subscription.deleted", map[string]any{
		"id":       "sub_1",
		"metadata": map[string]any{"user_id": f.owner.UserID.String()},
	})
	require.Equal(t, http.StatusOK, f.deliver(t, payload, testSecret).Code)
	require.Equal(t, models.RoleSuperAdmin, f.user(t).Role)
}

func TestWebhook_InvoiceEvents(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	sub := "sub_1"
	u := f.user(t)
	u.StripeSubscriptionID = &sub
	require.NoError(t, f.stores.Users.Update(ctx, u))

	failed := eventPayload(t, "invoice.payment_failed", map[string]any{"id": "in_1", "subscription": "sub_1"})
	require.Equal(t, http.StatusOK, f.deliver(t, failed, testSecret).Code)
	require.Equal(t, models.SubscriptionPastDue, f.tenantState(t).SubscriptionStatus)

	paid := eventPayload(t, "invoice.payment_succeeded", map[string]any{
		"id":     "in_2",
		"parent": map[string]any{"subscription_details": map[string]any{"subscription": "sub_1"}},
	})
	require.Equal(t, http.StatusOK, f.deliver(t, paid, testSecret).Code)
	require.Equal(t, models.SubscriptionActive, f.tenantState(t).SubscriptionStatus)

	orphan := eventPayload(t, "invoice.payment_failed", map[string]any{"id": "in_3", "subscription": "sub_unknown"})
	require.Equal(t, http.StatusOK, f.deliver(t, orphan, testSecret).Code)
	require.Equal(t, models.SubscriptionActive, f.tenantState(t).SubscriptionStatus)
}

func TestWebhook_UnknownEventIsAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)
	payload := eventPayload(t, "customer.created", map[string]any{"id": "cus_1"})
	rec := f.deliver(t, payload, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
}

type failingUsers struct {
	store.UserStore
}

func (failingUsers) Get(context.Context, uuid.UUID) (*models.User, error) {
	return nil, context.DeadlineExceeded
}

func TestWebhook_StoreFailureIsRetried(t *testing.T) {
	f := newWebhookFixture(t)
	f.handler = NewWebhookHandler(testSecret, failingUsers{}, f.stores.Tenants)

	payload := eventPayload(t, "customer.subscription.updated", map[string]any{
		"id":       "sub_1",
		"status":   "active",
		"metadata": map[string]any{"user_id": f.owner.UserID.String()},
	})
	rec := f.deliver(t, payload, testSecret)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

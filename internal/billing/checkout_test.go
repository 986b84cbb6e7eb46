package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/telodox/portal/internal/apierr"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store/memory"
)

type fakeProvider struct {
	customers int
	params    []CheckoutSessionParams
	sessions  map[string]*CheckoutSession
	err       error
}

func (p *fakeProvider) CreateCustomer(_ context.Context, user *models.User) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.customers++
	return "cus_" + user.UserID.String()[:8], nil
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.params = append(p.params, params)
	return &CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}, nil
}

func (p *fakeProvider) GetCheckoutSession(_ context.Context, id string) (*CheckoutSession, error) {
	if s, ok := p.sessions[id]; ok {
		return s, nil
	}
	return nil, errors.New("no such checkout session")
}

func TestCheckoutService_CreateCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and stores the customer once", func(t *testing.T) {
		users := memory.NewUserStore()
		provider := &fakeProvider{}
		svc := NewCheckoutService(provider, users)

		u := &models.User{UserID: uuid.New(), Email: "founder@newco.example", Role: models.RoleEndUser}
		require.NoError(t, users.Create(ctx, u))

		url, err := svc.CreateCheckout(ctx, u, CheckoutRequest{PriceID: "price_monthly", BillingPeriod: "monthly"}, "https://www.telodox.com/")
		require.NoError(t, err)
		require.Equal(t, "https://checkout.stripe.test/cs_1", url)
		require.Equal(t, 1, provider.customers)

		stored, err := users.Get(ctx, u.UserID)
		require.NoError(t, err)
		require.NotNil(t, stored.StripeCustomerID)

		require.Len(t, provider.params, 1)
		p := provider.params[0]
		require.Equal(t, *stored.StripeCustomerID, p.CustomerID)
		require.Equal(t, "price_monthly", p.PriceID)
		require.Equal(t, u.UserID.String(), p.UserID)
		require.Equal(t, "monthly", p.BillingPeriod)
		require.Equal(t, "https://www.telodox.com/onboarding/success?session_id={CHECKOUT_SESSION_ID}", p.SuccessURL)
		require.Equal(t, "https://www.telodox.com/pricing", p.CancelURL)

		_, err = svc.CreateCheckout(ctx, stored, CheckoutRequest{PriceID: "price_monthly"}, "https://www.telodox.com")
		require.NoError(t, err)
		require.Equal(t, 1, provider.customers)
	})

	t.Run("requires a price", func(t *testing.T) {
		svc := NewCheckoutService(&fakeProvider{}, memory.NewUserStore())
		_, err := svc.CreateCheckout(ctx, &models.User{UserID: uuid.New()}, CheckoutRequest{}, "https://www.telodox.com")
		require.True(t, apierr.Is(err, apierr.Validation))
	})

	t.Run("requires a profile", func(t *testing.T) {
		svc := NewCheckoutService(&fakeProvider{}, memory.NewUserStore())
		_, err := svc.CreateCheckout(ctx, nil, CheckoutRequest{PriceID: "price_monthly"}, "https://www.telodox.com")
		require.True(t, apierr.Is(err, apierr.Unauthenticated))
	})

	t.Run("provider failure is external", func(t *testing.T) {
		svc := NewCheckoutService(&fakeProvider{err: errors.New("card network down")}, memory.NewUserStore())
		_, err := svc.CreateCheckout(ctx, &models.User{UserID: uuid.New()}, CheckoutRequest{PriceID: "price_monthly"}, "https://www.telodox.com")
		require.True(t, apierr.Is(err, apierr.External))
	})
}

func TestCheckoutService_VerifySession(t *testing.T) {
	ctx := context.Background()
	owner := &models.User{UserID: uuid.New()}

	provider := &fakeProvider{sessions: map[string]*CheckoutSession{
		"cs_paid":   {ID: "cs_paid", Paid: true, SubscriptionID: "sub_1", UserID: owner.UserID.String()},
		"cs_unpaid": {ID: "cs_unpaid", UserID: owner.UserID.String()},
	}}
	svc := NewCheckoutService(provider, memory.NewUserStore())

	t.Run("paid", func(t *testing.T) {
		v, err := svc.VerifySession(ctx, owner, "cs_paid")
		require.NoError(t, err)
		require.Equal(t, &Verification{Success: true, SessionID: "cs_paid", SubscriptionID: "sub_1"}, v)
	})

	t.Run("unpaid", func(t *testing.T) {
		v, err := svc.VerifySession(ctx, owner, "cs_unpaid")
		require.NoError(t, err)
		require.False(t, v.Success)
		require.Equal(t, "payment not completed", v.Error)
	})

	t.Run("other user's session", func(t *testing.T) {
		_, err := svc.VerifySession(ctx, &models.User{UserID: uuid.New()}, "cs_paid")
		require.True(t, apierr.Is(err, apierr.Forbidden))
		require.ErrorIs(t, err, ErrSessionOwnership)
	})

	t.Run("missing session id", func(t *testing.T) {
		_, err := svc.VerifySession(ctx, owner, "")
		require.True(t, apierr.Is(err, apierr.Validation))
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.VerifySession(ctx, owner, "cs_missing")
		require.True(t, apierr.Is(err, apierr.External))
	})
}

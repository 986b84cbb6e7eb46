package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/telodox/portal/internal/apierr"
	"github.com/telodox/portal/internal/models"
	"github.com/telodox/portal/internal/store"
)

// PaymentProvider is the hosted checkout and customer API.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, user *models.User) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
}

// CheckoutSessionParams describes a subscription checkout for one user.
type CheckoutSessionParams struct {
	CustomerID    string
	PriceID       string
	UserID        string
	BillingPeriod string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the provider's view of a checkout.
type CheckoutSession struct {
	ID             string
	URL            string
	Paid           bool
	SubscriptionID string
	UserID         string // from the session metadata
}

// CheckoutRequest is the body of a create-checkout call.
type CheckoutRequest struct {
	PriceID       string `json:"priceId"`
	BillingPeriod string `json:"billingPeriod"`
}

// Verification is the result of checking a finished checkout.
type Verification struct {
	Success        bool   `json:"success"`
	SessionID      string `json:"sessionId,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	Error          string `json:"error,omitempty"`
}

// CheckoutService starts and verifies subscription checkouts.
type CheckoutService struct {
	provider PaymentProvider
	users    store.UserStore
	now      func() time.Time
}

func NewCheckoutService(provider PaymentProvider, users store.UserStore) *CheckoutService {
	return &CheckoutService{provider: provider, users: users, now: time.Now}
}

// CreateCheckout returns the hosted checkout URL for a subscription. The user's
// provider customer is created on first use and stored on the profile.
func (s *CheckoutService) CreateCheckout(ctx context.Context, user *models.User, req CheckoutRequest, origin string) (string, error) {
	if user == nil {
		return "", apierr.New(apierr.Unauthenticated, "authentication required")
	}
	if req.PriceID == "" {
		return "", apierr.New(apierr.Validation, "price id is required")
	}

	customerID := ""
	if user.StripeCustomerID != nil {
		customerID = *user.StripeCustomerID
	}
	if customerID == "" {
		id, err := s.provider.CreateCustomer(ctx, user)
		if err != nil {
			return "", apierr.Wrap(apierr.External, "failed to create payment customer", err)
		}
		customerID = id

		updated := *user
		updated.StripeCustomerID = &customerID
		updated.UpdatedAt = s.now().UTC()
		if err := s.users.Update(ctx, &updated); err != nil {
			return "", fmt.Errorf("failed to store payment customer: %w", err)
		}
	}

	origin = strings.TrimSuffix(origin, "/")
	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutSessionParams{
		CustomerID:    customerID,
		PriceID:       req.PriceID,
		UserID:        user.UserID.String(),
		BillingPeriod: req.BillingPeriod,
		SuccessURL:    origin + "/onboarding/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     origin + "/pricing",
	})
	if err != nil {
		return "", apierr.Wrap(apierr.External, "failed to create checkout session", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("user_id", user.UserID.String()).
		Str("session_id", session.ID).
		Msg("checkout session created")

	return session.URL, nil
}

// ErrSessionOwnership is returned when a checkout session was started by another user.
var ErrSessionOwnership = errors.New("checkout session does not belong to current user")

// VerifySession reports whether the user's checkout session has been paid.
func (s *CheckoutService) VerifySession(ctx context.Context, user *models.User, sessionID string) (*Verification, error) {
	if user == nil {
		return nil, apierr.New(apierr.Unauthenticated, "authentication required")
	}
	if sessionID == "" {
		return nil, apierr.New(apierr.Validation, "session id is required")
	}

	session, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, apierr.Wrap(apierr.External, "failed to retrieve checkout session", err)
	}
	if session.UserID != user.UserID.String() {
		return nil, apierr.Wrap(apierr.Forbidden, ErrSessionOwnership.Error(), ErrSessionOwnership)
	}

	if !session.Paid {
		return &Verification{Success: false, Error: "payment not completed"}, nil
	}
	return &Verification{Success: true, SessionID: session.ID, SubscriptionID: session.SubscriptionID}, nil
}

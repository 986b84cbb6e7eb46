// Package billing applies payment provider events to tenants and users and starts
// subscription checkouts.
package billing

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/telodox/portal/internal/models"
)

// Event is a decoded payment provider event. The set of variants is closed; anything
// unrecognised decodes to UnknownEvent.
type Event interface {
	Type() string
}

// CheckoutCompleted is sent when a subscription checkout finishes.
type CheckoutCompleted struct {
	SessionID      string
	UserID         string
	SubscriptionID string
	CustomerID     string
}

// SubscriptionUpdated carries the provider's current subscription status.
type SubscriptionUpdated struct {
	SubscriptionID string
	UserID         string
	Status         string
}

// SubscriptionDeleted is sent when a subscription ends.
type SubscriptionDeleted struct {
	SubscriptionID string
	UserID         string
}

// PaymentSucceeded is sent for each paid subscription invoice.
type PaymentSucceeded struct {
	InvoiceID      string
	SubscriptionID string
}

// PaymentFailed is sent when collecting a subscription invoice fails.
type PaymentFailed struct {
	InvoiceID      string
	SubscriptionID string
}

// UnknownEvent is any event type the portal does not act on.
type UnknownEvent struct {
	EventType string
}

func (CheckoutCompleted) Type() string   { return string(stripe.EventTypeCheckoutSessionCompleted) }
func (SubscriptionUpdated) Type() string { return string(stripe.EventTypeCustomerSubscriptionUpdated) }
func (SubscriptionDeleted) Type() string { return string(stripe.EventTypeCustomerSubscriptionDeleted) }
func (PaymentSucceeded) Type() string    { return string(stripe.EventTypeInvoicePaymentSucceeded) }
func (PaymentFailed) Type() string       { return string(stripe.EventTypeInvoicePaymentFailed) }
func (e UnknownEvent) Type() string      { return e.EventType }

// expandableID is a reference the provider sends either as an ID string or as an
// expanded object.
type expandableID string

func (e *expandableID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*e = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = expandableID(s)
		return nil
	default:
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*e = expandableID(obj.ID)
		return nil
	}
}

type checkoutSessionObject struct {
	ID           string            `json:"id"`
	Metadata     map[string]string `json:"metadata"`
	Subscription expandableID      `json:"subscription"`
	Customer     expandableID      `json:"customer"`
}

type subscriptionObject struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

type invoiceObject struct {
	ID           string       `json:"id"`
	Subscription expandableID `json:"subscription"`
	// Newer API versions report the subscription under the invoice parent.
	Parent *struct {
		SubscriptionDetails *struct {
			Subscription expandableID `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (o invoiceObject) subscriptionID() string {
	if o.Subscription != "" {
		return string(o.Subscription)
	}
	if o.Parent != nil && o.Parent.SubscriptionDetails != nil {
		return string(o.Parent.SubscriptionDetails.Subscription)
	}
	return ""
}

// DecodeEvent maps a verified provider event onto its variant.
func DecodeEvent(event stripe.Event) (Event, error) {
	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var obj checkoutSessionObject
		if err := decodeObject(raw, &obj); err != nil {
			return nil, err
		}
		return CheckoutCompleted{
			SessionID:      obj.ID,
			UserID:         obj.Metadata["user_id"],
			SubscriptionID: string(obj.Subscription),
			CustomerID:     string(obj.Customer),
		}, nil

	case stripe.EventTypeCustomerSubscriptionUpdated, stripe.EventTypeCustomerSubscriptionDeleted:
		var obj subscriptionObject
		if err := decodeObject(raw, &obj); err != nil {
			return nil, err
		}
		if event.Type == stripe.EventTypeCustomerSubscriptionDeleted {
			return SubscriptionDeleted{SubscriptionID: obj.ID, UserID: obj.Metadata["user_id"]}, nil
		}
		return SubscriptionUpdated{SubscriptionID: obj.ID, UserID: obj.Metadata["user_id"], Status: obj.Status}, nil

	case stripe.EventTypeInvoicePaymentSucceeded, stripe.EventTypeInvoicePaymentFailed:
		var obj invoiceObject
		if err := decodeObject(raw, &obj); err != nil {
			return nil, err
		}
		if event.Type == stripe.EventTypeInvoicePaymentFailed {
			return PaymentFailed{InvoiceID: obj.ID, SubscriptionID: obj.subscriptionID()}, nil
		}
		return PaymentSucceeded{InvoiceID: obj.ID, SubscriptionID: obj.subscriptionID()}, nil

	default:
		return UnknownEvent{EventType: string(event.Type)}, nil
	}
}

func decodeObject(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("event has no data object")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode event object: %w", err)
	}
	return nil
}

// MapSubscriptionStatus converts a provider subscription status to the tenant status.
func MapSubscriptionStatus(status string) (models.SubscriptionStatus, bool) {
	switch stripe.SubscriptionStatus(status) {
	case stripe.SubscriptionStatusTrialing:
		return models.SubscriptionTrial, true
	case stripe.SubscriptionStatusActive:
		return models.SubscriptionActive, true
	case stripe.SubscriptionStatusCanceled:
		return models.SubscriptionCancelled, true
	case stripe.SubscriptionStatusIncompleteExpired:
		return models.SubscriptionExpired, true
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncomplete:
		return models.SubscriptionPastDue, true
	}
	return "", false
}

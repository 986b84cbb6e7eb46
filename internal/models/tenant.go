package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the billing lifecycle state of a tenant.
// Tenants are never hard-deleted, the status carries the soft lifecycle instead.
type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
)

// Valid reports whether s is one of the known subscription states.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionTrial, SubscriptionActive, SubscriptionCancelled, SubscriptionExpired, SubscriptionPastDue:
		return true
	}
	return false
}

// DripMode controls how onboarding stages are presented to a carrier.
type DripMode string

const (
	DripSequential DripMode = "sequential"
	DripMultiple   DripMode = "multiple"
	DripAll        DripMode = "all"
)

// WorkflowSettings configures onboarding for every application of a tenant.
type WorkflowSettings struct {
	DripMode             DripMode `json:"drip_mode" yaml:"drip_mode"`
	RequireApproval      bool     `json:"require_approval" yaml:"require_approval"`
	AutoApproveAfterDays *int     `json:"auto_approve_after_days,omitempty" yaml:"auto_approve_after_days,omitempty"`
}

// TenantSettings is stored as a JSON document alongside the tenant row.
type TenantSettings struct {
	ContactEmail string           `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`
	LogoURL      string           `json:"logo_url,omitempty" yaml:"logo_url,omitempty"`
	PrimaryColor string           `json:"primary_color,omitempty" yaml:"primary_color,omitempty"`
	Workflow     WorkflowSettings `json:"workflow_settings" yaml:"workflow_settings"`
}

// DefaultTenantSettings returns the settings applied to self-service tenants.
func DefaultTenantSettings(contactEmail string) TenantSettings {
	return TenantSettings{
		ContactEmail: contactEmail,
		Workflow: WorkflowSettings{
			DripMode:        DripSequential,
			RequireApproval: true,
		},
	}
}

// Tenant is an onboarded customer organization, addressed by its subdomain.
type Tenant struct {
	TenantID             uuid.UUID          `json:"id"`
	Name                 string             `json:"name"`
	Subdomain            string             `json:"subdomain"` // unique, lowercase, immutable
	Settings             TenantSettings     `json:"settings"`
	SubscriptionStatus   SubscriptionStatus `json:"subscription_status"`
	TrialEndsAt          *time.Time         `json:"trial_ends_at,omitempty"`
	StripeCustomerID     *string            `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string            `json:"stripe_subscription_id,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

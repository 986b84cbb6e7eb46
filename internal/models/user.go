package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrOrganizationRoleRequiresTenant mirrors the check_organization_role_requires_tenant
// database constraint.
var ErrOrganizationRoleRequiresTenant = errors.New("organization role requires a tenant")

// Role is the coarse platform role of a user.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleTenantOwner Role = "tenant_owner"
	RoleEndUser     Role = "end_user"
)

// Valid reports whether r is a known platform role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTenantOwner, RoleEndUser:
		return true
	}
	return false
}

// ParseRole converts a stored role string, rejecting anything outside the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// OrgRole is the fine-grained role of a user inside their tenant.
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "owner"
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// Valid reports whether r is a known organization role.
func (r OrgRole) Valid() bool {
	switch r {
	case OrgRoleOwner, OrgRoleAdmin, OrgRoleMember:
		return true
	}
	return false
}

// ParseOrgRole converts a stored organization role string.
func ParseOrgRole(s string) (OrgRole, error) {
	r := OrgRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown organization role %q", s)
	}
	return r, nil
}

// User is the stored profile of an authenticated principal.
// Identity itself (passwords, sessions) lives with the hosted auth provider; UserID
// is the provider's subject.
type User struct {
	UserID           uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	FullName         string     `json:"full_name"`
	Role             Role       `json:"role"`
	OrganizationRole *OrgRole   `json:"organization_role,omitempty"`
	TenantID         *uuid.UUID `json:"tenant_id,omitempty"` // nil for unaffiliated users and super admins

	StripeCustomerID     *string `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string `json:"stripe_subscription_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the invariants every store enforces before a write.
func (u *User) Validate() error {
	if !u.Role.Valid() {
		return fmt.Errorf("invalid role %q", u.Role)
	}
	if u.OrganizationRole != nil {
		if !u.OrganizationRole.Valid() {
			return fmt.Errorf("invalid organization role %q", *u.OrganizationRole)
		}
		if u.TenantID == nil {
			return ErrOrganizationRoleRequiresTenant
		}
	}
	return nil
}

// BelongsTo reports whether the user is affiliated with the given tenant.
func (u *User) BelongsTo(tenantID uuid.UUID) bool {
	return u != nil && u.TenantID != nil && *u.TenantID == tenantID
}

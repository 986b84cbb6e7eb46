package auth

import (
	"slices"

	"github.com/google/uuid"
	"github.com/telodox/portal/internal/models"
)

// IsSuperAdmin reports whether the profile is a platform operator. A nil profile has no role.
func IsSuperAdmin(u *models.User) bool { return u != nil && u.Role == models.RoleSuperAdmin }

// IsTenantOwner reports whether the profile has the tenant_owner platform role.
func IsTenantOwner(u *models.User) bool { return u != nil && u.Role == models.RoleTenantOwner }

// IsEndUser reports whether the profile has the end_user platform role.
func IsEndUser(u *models.User) bool { return u != nil && u.Role == models.RoleEndUser }

// IsOrganizationOwner reports whether the profile owns its organization.
func IsOrganizationOwner(u *models.User) bool { return hasOrgRole(u, models.OrgRoleOwner) }

// IsOrganizationAdmin reports whether the profile administers its organization.
func IsOrganizationAdmin(u *models.User) bool { return hasOrgRole(u, models.OrgRoleAdmin) }

// IsOrganizationMember reports whether the profile has the member organization role.
// Owners and admins are not members in this sense.
func IsOrganizationMember(u *models.User) bool { return hasOrgRole(u, models.OrgRoleMember) }

func hasOrgRole(u *models.User, r models.OrgRole) bool {
	return u != nil && u.OrganizationRole != nil && *u.OrganizationRole == r
}

// HasRole reports whether the profile's platform role is in roles. An empty list
// allows any loaded profile.
func HasRole(u *models.User, roles ...models.Role) bool {
	if u == nil {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	return slices.Contains(roles, u.Role)
}

// CanManageTenant reports whether the profile may review a tenant's applications:
// super admins anywhere, tenant owners and organization owners or admins within
// their own tenant.
func CanManageTenant(u *models.User, tenantID uuid.UUID) bool {
	if IsSuperAdmin(u) {
		return true
	}
	if !u.BelongsTo(tenantID) {
		return false
	}
	return IsTenantOwner(u) || IsOrganizationOwner(u) || IsOrganizationAdmin(u)
}

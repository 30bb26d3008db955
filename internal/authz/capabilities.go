package authz

import "github.com/fieldnet/nmsportal/internal/models"

// Capability names something a request wants to do. Role comparison is a
// capability lookup, not a numeric ordering: READ_ONLY_USER is denied every
// write no matter how the roles might otherwise rank.
type Capability string

const (
	// CapabilityRead covers all non-mutating resource access.
	CapabilityRead Capability = "read"
	// CapabilityWrite covers mutating resource access within an organization.
	CapabilityWrite Capability = "write"
	// CapabilityAdmin covers user management and organization settings.
	CapabilityAdmin Capability = "admin"
)

var roleCapabilities = map[models.Role]map[Capability]struct{}{
	models.RoleUser: {
		CapabilityRead:  {},
		CapabilityWrite: {},
	},
	models.RoleReadOnlyUser: {
		CapabilityRead: {},
	},
	models.RoleSuperUser: {
		CapabilityRead:  {},
		CapabilityWrite: {},
		CapabilityAdmin: {},
	},
}

// RoleHasCapability consults the capability table. Unknown roles hold nothing.
func RoleHasCapability(role models.Role, capability Capability) bool {
	caps, ok := roleCapabilities[role]
	if !ok {
		return false
	}
	_, ok = caps[capability]
	return ok
}

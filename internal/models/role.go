package models

// Role enumerates the closed set of user roles.
type Role string

const (
	// RoleUser may read and mutate resources within its own organization.
	RoleUser Role = "USER"
	// RoleReadOnlyUser may only read resources within its own organization.
	RoleReadOnlyUser Role = "READ_ONLY_USER"
	// RoleSuperUser may additionally manage users and organization settings.
	RoleSuperUser Role = "SUPERUSER"
)

// Valid reports whether the role is one of the known enum values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleReadOnlyUser, RoleSuperUser:
		return true
	}
	return false
}

// IsSuperUser is derived from the role value and is never stored separately,
// so the two can never drift apart.
func (r Role) IsSuperUser() bool {
	return r == RoleSuperUser
}

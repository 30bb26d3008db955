package principal

import (
	"sort"

	"github.com/fieldnet/nmsportal/internal/models"
)

// APIVersion is reported to clients alongside the principal.
const APIVersion = "v1"

// Principal is the authenticated identity plus its resolved organizational
// context for one request. It is constructed fresh per request, never mutated,
// and never cached across requests.
type Principal struct {
	User         models.User
	Organization models.Organization

	// NetworkIDs is the effective set: the intersection of the user's
	// explicit grants and the organization's permitted networks.
	NetworkIDs []string

	// Tabs is the intersection of role-permitted tabs and the
	// organization's enabled tabs.
	Tabs []string

	// Features holds the feature IDs enabled for the organization at the
	// time the principal was built.
	Features []string

	CSRFToken  string
	APIVersion string
}

// Role returns the principal's role.
func (p *Principal) Role() models.Role {
	return p.User.Role
}

// IsMasterOrg reports whether the principal belongs to the master organization.
func (p *Principal) IsMasterOrg() bool {
	return p.Organization.IsMaster
}

// CanAccessNetwork reports whether the network is in the effective set.
func (p *Principal) CanAccessNetwork(networkID string) bool {
	for _, id := range p.NetworkIDs {
		if id == networkID {
			return true
		}
	}
	return false
}

// HasFeature reports whether the feature was enabled when the principal was built.
func (p *Principal) HasFeature(featureID string) bool {
	for _, id := range p.Features {
		if id == featureID {
			return true
		}
	}
	return false
}

// intersect returns the sorted intersection of two string sets.
func intersect(a, b []string) []string {
	member := make(map[string]struct{}, len(b))
	for _, v := range b {
		member[v] = struct{}{}
	}

	out := make([]string, 0, len(a))
	seen := make(map[string]struct{}, len(a))
	for _, v := range a {
		if _, ok := member[v]; !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

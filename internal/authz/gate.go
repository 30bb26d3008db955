package authz

import "github.com/fieldnet/nmsportal/internal/principal"

// Decision is the terminal outcome of evaluating the gate for one request.
type Decision int

const (
	Denied Decision = iota
	Authorized
)

func (d Decision) String() string {
	if d == Authorized {
		return "authorized"
	}
	return "denied"
}

// Request describes the action a handler is about to perform. An empty
// OrganizationID targets the principal's own organization; an empty NetworkID
// means the action is not network-scoped.
type Request struct {
	Capability     Capability
	OrganizationID string
	NetworkID      string
}

// Decide evaluates the capability table and organization/network scope for
// the principal. It is a pure function: evaluating it twice on the same
// inputs yields the same decision, and it performs no I/O.
func Decide(p *principal.Principal, req Request) Decision {
	if p == nil {
		return Denied
	}

	if !RoleHasCapability(p.Role(), req.Capability) {
		return Denied
	}

	// Master-organization membership widens organization scope only; the
	// capability check above has already bounded what the role may do.
	crossOrg := req.OrganizationID != "" && req.OrganizationID != p.Organization.ID
	if crossOrg && !p.IsMasterOrg() {
		return Denied
	}

	if req.NetworkID != "" && !p.IsMasterOrg() && !p.CanAccessNetwork(req.NetworkID) {
		return Denied
	}

	return Authorized
}

package authz

import "github.com/pasarhub/pasarhub/internal/profile"

// Verdict classifies a resolved profile against a route's requirements.
type Verdict int

const (
	VerdictAllow Verdict = iota
	VerdictSuspended
	VerdictPendingApproval
	VerdictRejected
	VerdictWrongArea
	VerdictRoleDenied
)

// String returns the stable reason used in audit events.
func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictSuspended:
		return "suspended"
	case VerdictPendingApproval:
		return "pending_approval"
	case VerdictRejected:
		return "rejected"
	case VerdictWrongArea:
		return "wrong_area"
	case VerdictRoleDenied:
		return "role_denied"
	}
	return "unknown"
}

// Evaluate is the approval state machine: a pure classification of an
// already-resolved profile against the route's allowed role set. Checks
// run in fixed priority order - suspension, then approval, then role
// match - so a request failing several checks always reports the first.
func Evaluate(p profile.Profile, required []profile.Role) Verdict {
	// Suspension wins over everything, including for admins.
	if p.AccountStatus == profile.AccountSuspended {
		return VerdictSuspended
	}

	// The approval workflow only gates a vendor/technician out of areas
	// their role would otherwise grant. Hitting a foreign area reports
	// the role mismatch, not the approval state.
	if p.Role.RequiresApproval() && p.ApprovalStatus != profile.ApprovalApproved && roleInSet(p.Role, required) {
		if p.ApprovalStatus == profile.ApprovalRejected {
			return VerdictRejected
		}
		return VerdictPendingApproval
	}

	// Admins are isolated from the regular dashboards.
	if p.Role == profile.RoleAdmin && len(required) > 0 && !roleInSet(profile.RoleAdmin, required) {
		return VerdictWrongArea
	}

	// An empty set means any authenticated identity.
	if len(required) == 0 || roleInSet(p.Role, required) {
		return VerdictAllow
	}
	return VerdictRoleDenied
}

func roleInSet(role profile.Role, set []profile.Role) bool {
	for _, r := range set {
		if r == role {
			return true
		}
	}
	return false
}

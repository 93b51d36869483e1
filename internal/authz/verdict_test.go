package authz

import (
	"testing"

	"github.com/pasarhub/pasarhub/internal/profile"
	_ "github.com/pasarhub/pasarhub/testing"
)

func activeProfile(role profile.Role, approval profile.ApprovalStatus) profile.Profile {
	return profile.Profile{
		ID:             "u-1",
		Role:           role,
		ApprovalStatus: approval,
		AccountStatus:  profile.AccountActive,
	}
}

func TestEvaluateRoleMatch(t *testing.T) {
	cases := []struct {
		name     string
		p        profile.Profile
		required []profile.Role
		want     Verdict
	}{
		{
			name:     "approved vendor enters vendor area",
			p:        activeProfile(profile.RoleVendor, profile.ApprovalApproved),
			required: []profile.Role{profile.RoleVendor},
			want:     VerdictAllow,
		},
		{
			name:     "user enters shared user area",
			p:        activeProfile(profile.RoleUser, profile.ApprovalApproved),
			required: []profile.Role{profile.RoleUser, profile.RoleVendor, profile.RoleTechnician},
			want:     VerdictAllow,
		},
		{
			name:     "user denied from vendor area",
			p:        activeProfile(profile.RoleUser, profile.ApprovalApproved),
			required: []profile.Role{profile.RoleVendor},
			want:     VerdictRoleDenied,
		},
		{
			name:     "empty set admits any authenticated role",
			p:        activeProfile(profile.RoleTechnician, profile.ApprovalApproved),
			required: nil,
			want:     VerdictAllow,
		},
		{
			name:     "admin allowed into admin area",
			p:        activeProfile(profile.RoleAdmin, profile.ApprovalApproved),
			required: []profile.Role{profile.RoleAdmin},
			want:     VerdictAllow,
		},
		{
			name:     "admin kept out of user dashboard",
			p:        activeProfile(profile.RoleAdmin, profile.ApprovalApproved),
			required: []profile.Role{profile.RoleUser, profile.RoleVendor, profile.RoleTechnician},
			want:     VerdictWrongArea,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Evaluate(tc.p, tc.required); got != tc.want {
				t.Fatalf("Evaluate = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestEvaluateApprovalWorkflow(t *testing.T) {
	vendorArea := []profile.Role{profile.RoleVendor}

	if got := Evaluate(activeProfile(profile.RoleVendor, profile.ApprovalPending), vendorArea); got != VerdictPendingApproval {
		t.Fatalf("pending vendor in vendor area: got %s", got)
	}
	if got := Evaluate(activeProfile(profile.RoleVendor, profile.ApprovalRejected), vendorArea); got != VerdictRejected {
		t.Fatalf("rejected vendor in vendor area: got %s", got)
	}

	// A pending vendor probing a foreign area is reported as a role
	// mismatch, not as pending: the approval workflow only gates areas
	// the role would otherwise grant.
	adminArea := []profile.Role{profile.RoleAdmin}
	if got := Evaluate(activeProfile(profile.RoleVendor, profile.ApprovalPending), adminArea); got != VerdictRoleDenied {
		t.Fatalf("pending vendor in admin area: got %s", got)
	}

	// Users never pass through the approval workflow.
	if got := Evaluate(activeProfile(profile.RoleUser, profile.ApprovalPending), []profile.Role{profile.RoleUser}); got != VerdictAllow {
		t.Fatalf("user with stray pending status: got %s", got)
	}
}

func TestEvaluateSuspensionWinsOverEverything(t *testing.T) {
	p := activeProfile(profile.RoleVendor, profile.ApprovalPending)
	p.AccountStatus = profile.AccountSuspended

	// Suspended and pending at once: suspension must be reported.
	if got := Evaluate(p, []profile.Role{profile.RoleVendor}); got != VerdictSuspended {
		t.Fatalf("suspended pending vendor: got %s", got)
	}

	admin := activeProfile(profile.RoleAdmin, profile.ApprovalApproved)
	admin.AccountStatus = profile.AccountSuspended
	if got := Evaluate(admin, []profile.Role{profile.RoleAdmin}); got != VerdictSuspended {
		t.Fatalf("suspended admin: got %s", got)
	}
	if got := Evaluate(p, nil); got != VerdictSuspended {
		t.Fatalf("suspended on open area: got %s", got)
	}
}

func TestVerdictString(t *testing.T) {
	want := map[Verdict]string{
		VerdictAllow:           "allow",
		VerdictSuspended:       "suspended",
		VerdictPendingApproval: "pending_approval",
		VerdictRejected:        "rejected",
		VerdictWrongArea:       "wrong_area",
		VerdictRoleDenied:      "role_denied",
	}
	for v, s := range want {
		if v.String() != s {
			t.Fatalf("String(%d) = %q, want %q", v, v.String(), s)
		}
	}
}

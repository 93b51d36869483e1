package authz

import (
	"testing"

	"github.com/pasarhub/pasarhub/internal/profile"
	_ "github.com/pasarhub/pasarhub/testing"
)

func TestRoutePolicyLongestPrefixWins(t *testing.T) {
	policy := NewRoutePolicy(map[string][]profile.Role{
		"/dashboard":        {profile.RoleUser},
		"/dashboard/vendor": {profile.RoleVendor},
	})

	roles, ok := policy.RequiredRoles("/dashboard/vendor/listings")
	if !ok {
		t.Fatalf("expected protected path")
	}
	if len(roles) != 1 || roles[0] != profile.RoleVendor {
		t.Fatalf("expected vendor rule to win, got %v", roles)
	}

	roles, ok = policy.RequiredRoles("/dashboard/other")
	if !ok || len(roles) != 1 || roles[0] != profile.RoleUser {
		t.Fatalf("expected shorter prefix fallback, got %v ok=%v", roles, ok)
	}
}

func TestRoutePolicySegmentBoundaries(t *testing.T) {
	policy := DefaultPolicy()

	if _, ok := policy.RequiredRoles("/administrator"); ok {
		t.Fatalf("/administrator must not match the /admin prefix")
	}
	if _, ok := policy.RequiredRoles("/admin"); !ok {
		t.Fatalf("/admin itself must be protected")
	}
	if _, ok := policy.RequiredRoles("/admin/approvals/pending"); !ok {
		t.Fatalf("nested admin path must be protected")
	}
	if _, ok := policy.RequiredRoles("/admin/"); !ok {
		t.Fatalf("trailing slash must still match")
	}
}

func TestRoutePolicyPublicPaths(t *testing.T) {
	policy := DefaultPolicy()
	for _, path := range []string{"/", "/welcome", "/login", "/pending-approval", "/account-suspended", "/unauthorized", "/healthz"} {
		if !policy.IsPublic(path) {
			t.Fatalf("expected %s to be public", path)
		}
	}
	for _, path := range []string{"/admin", "/dashboard/user", "/dashboard/vendor", "/dashboard/technician", "/account"} {
		if policy.IsPublic(path) {
			t.Fatalf("expected %s to be protected", path)
		}
	}
}

func TestRoutePolicyEmptyRoleSet(t *testing.T) {
	policy := DefaultPolicy()
	roles, ok := policy.RequiredRoles("/account/profile")
	if !ok {
		t.Fatalf("expected /account to be protected")
	}
	if len(roles) != 0 {
		t.Fatalf("expected empty role set for /account, got %v", roles)
	}
}

func TestDashboardFor(t *testing.T) {
	if got := DashboardFor(profile.RoleVendor); got != "/dashboard/vendor" {
		t.Fatalf("vendor dashboard = %s", got)
	}
	if got := DashboardFor(profile.RoleAdmin); got != "/admin" {
		t.Fatalf("admin dashboard = %s", got)
	}
	if got := DashboardFor(profile.Role("ghost")); got != "/" {
		t.Fatalf("unknown role dashboard = %s", got)
	}
}

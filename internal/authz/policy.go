// Package authz is the layered authorization core: the route policy table,
// the approval state machine, the profile resolver, the request-level gate
// and the per-area guards all live here so that both enforcement points
// share one verdict computation.
package authz

import (
	"sort"
	"strings"

	"github.com/pasarhub/pasarhub/internal/profile"
)

// RoutePolicy maps route prefixes to the roles allowed to enter them using
// longest-prefix-match semantics. An empty role set means any authenticated
// identity; paths matching no protected prefix are public and bypass the
// gate entirely. The table is data loaded once at process start.
type RoutePolicy struct {
	rules []policyRule
}

type policyRule struct {
	prefix string
	roles  []profile.Role
}

// NewRoutePolicy builds a policy from a prefix → allowed roles table.
func NewRoutePolicy(table map[string][]profile.Role) *RoutePolicy {
	rules := make([]policyRule, 0, len(table))
	for prefix, roles := range table {
		prefix = strings.TrimSuffix(prefix, "/")
		if prefix == "" {
			continue
		}
		rules = append(rules, policyRule{prefix: prefix, roles: roles})
	}
	// Longest prefix first so the first match wins.
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].prefix) != len(rules[j].prefix) {
			return len(rules[i].prefix) > len(rules[j].prefix)
		}
		return rules[i].prefix < rules[j].prefix
	})
	return &RoutePolicy{rules: rules}
}

// DefaultPolicy returns the marketplace route table.
func DefaultPolicy() *RoutePolicy {
	return NewRoutePolicy(map[string][]profile.Role{
		"/admin":                {profile.RoleAdmin},
		"/dashboard/vendor":     {profile.RoleVendor},
		"/dashboard/technician": {profile.RoleTechnician},
		"/dashboard/user":       {profile.RoleUser, profile.RoleVendor, profile.RoleTechnician},
		"/account":              {},
	})
}

// RequiredRoles returns the allowed role set for a path and whether the
// path is protected at all. A nil set with ok=true means any authenticated
// identity may pass.
func (p *RoutePolicy) RequiredRoles(path string) ([]profile.Role, bool) {
	path = normalizePath(path)
	for _, rule := range p.rules {
		if matchesPrefix(path, rule.prefix) {
			return rule.roles, true
		}
	}
	return nil, false
}

// IsPublic reports whether a path is outside every protected prefix.
func (p *RoutePolicy) IsPublic(path string) bool {
	_, protected := p.RequiredRoles(path)
	return !protected
}

// DashboardFor returns the home route for a role, used to point denied
// identities at their own area instead of a dead end.
func DashboardFor(role profile.Role) string {
	switch role {
	case profile.RoleAdmin:
		return "/admin"
	case profile.RoleVendor:
		return "/dashboard/vendor"
	case profile.RoleTechnician:
		return "/dashboard/technician"
	case profile.RoleUser:
		return "/dashboard/user"
	}
	return "/"
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

// matchesPrefix matches on whole path segments: /admin matches /admin and
// /admin/users but not /administrator.
func matchesPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

package ratelimit

import "time"

// Action classes throttled by the platform.
const (
	ClassLogin     = "login"
	ClassSignup    = "signup"
	ClassAPI       = "api"
	ClassAdminAPI  = "admin_api"
	ClassVendorAPI = "vendor_api"
)

// DefaultRules returns the preset rule table. It is configuration, not
// logic: callers may replace individual entries before building the
// limiter without touching the algorithm.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		ClassLogin:     {Max: 5, Window: time.Minute},
		ClassSignup:    {Max: 3, Window: time.Hour},
		ClassAPI:       {Max: 30, Window: time.Minute},
		ClassAdminAPI:  {Max: 10, Window: time.Minute},
		ClassVendorAPI: {Max: 20, Window: time.Minute},
	}
}

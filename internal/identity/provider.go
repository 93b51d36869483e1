// Package identity adapts external identity providers to the authorization
// core. The core never issues credentials itself; it only verifies the
// tokens it is handed and reads the claims they carry.
package identity

import (
	"context"
	"errors"
)

// ClaimsVersion is the current session claims layout version.
const ClaimsVersion = 1

// Identity is an authenticated subject as reported by the provider.
type Identity struct {
	Subject string
	Email   string
}

// Claims are the profile fields cached inside a session token. They are
// refreshed asynchronously and may be absent or stale; the profile store
// remains the source of truth.
type Claims struct {
	Version        int
	Role           string
	ApprovalStatus string
	AccountStatus  string
}

// Complete reports whether all three cached profile fields are present.
// The resolver only trusts claims as a whole: partial claims always force
// a store lookup for every field.
func (c Claims) Complete() bool {
	return c.Role != "" && c.ApprovalStatus != "" && c.AccountStatus != ""
}

// ErrInvalidToken is returned for missing, malformed or expired tokens.
var ErrInvalidToken = errors.New("identity: invalid token")

// Provider verifies raw identity tokens.
type Provider interface {
	VerifyToken(ctx context.Context, raw string) (Identity, Claims, error)
}

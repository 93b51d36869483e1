package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pasarhub/pasarhub/internal/identity"
	"github.com/pasarhub/pasarhub/internal/profile"
	"github.com/pasarhub/pasarhub/internal/shared"
)

// ErrProfileMissing marks an authenticated identity without a profile row.
// Callers must treat this as a provisioning condition, not a failure.
var ErrProfileMissing = errors.New("authz: profile missing")

// ProfileStore is the lookup capability the resolver consumes from the
// persistence layer.
type ProfileStore interface {
	Find(ctx context.Context, id string) (*profile.Profile, error)
}

// Resolver resolves an authenticated identity to its authoritative
// role/approval/status record. Session claims are a cache: they are
// trusted only when all three fields are present and well-formed,
// otherwise every field comes from the store for that request.
type Resolver struct {
	store   ProfileStore
	timeout time.Duration
	lookups singleflight.Group
}

// NewResolver constructs a Resolver. The timeout bounds the store lookup
// so the gate never blocks indefinitely on profile I/O.
func NewResolver(store ProfileStore, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Resolver{store: store, timeout: timeout}
}

// Resolve returns the profile for an identity.
func (r *Resolver) Resolve(ctx context.Context, ident identity.Identity, claims identity.Claims) (profile.Profile, error) {
	if claims.Complete() {
		if p, ok := profileFromClaims(ident, claims); ok {
			return p, nil
		}
		// Malformed claim values fall through to the store.
	}

	p, err := r.lookup(ctx, ident.Subject)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return profile.Profile{}, ErrProfileMissing
		}
		return profile.Profile{}, fmt.Errorf("authz: profile lookup: %w", err)
	}
	return p, nil
}

// lookup fetches the profile from the store, collapsing concurrent
// requests for the same subject into a single query.
func (r *Resolver) lookup(ctx context.Context, subject string) (profile.Profile, error) {
	resultChan := r.lookups.DoChan(subject, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		p, err := r.store.Find(lookupCtx, subject)
		if err != nil {
			return nil, err
		}
		return *p, nil
	})
	select {
	case <-ctx.Done():
		return profile.Profile{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return profile.Profile{}, res.Err
		}
		return res.Val.(profile.Profile), nil
	}
}

func profileFromClaims(ident identity.Identity, claims identity.Claims) (profile.Profile, bool) {
	role := profile.Role(claims.Role)
	approval := profile.ApprovalStatus(claims.ApprovalStatus)
	account := profile.AccountStatus(claims.AccountStatus)
	if !role.Valid() || !approval.Valid() || !account.Valid() {
		return profile.Profile{}, false
	}
	return profile.Profile{
		ID:             ident.Subject,
		Email:          ident.Email,
		Role:           role,
		ApprovalStatus: approval,
		AccountStatus:  account,
	}, true
}

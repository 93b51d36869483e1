package authz

import (
	"context"

	"github.com/pasarhub/pasarhub/internal/profile"
)

type decisionContextKey struct{}

// ContextWithDecision stores the gate's decision for downstream handlers
// and for guard divergence detection.
func ContextWithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, decisionContextKey{}, d)
}

// DecisionFromContext returns the gate's decision, if the gate ran.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(Decision)
	return d, ok
}

// ProfileFromContext returns the resolved profile of the current request.
func ProfileFromContext(ctx context.Context) *profile.Profile {
	d, ok := DecisionFromContext(ctx)
	if !ok {
		return nil
	}
	return d.Profile
}

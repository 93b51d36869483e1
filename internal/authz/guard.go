package authz

import (
	"log/slog"
	"net/http"

	"github.com/pasarhub/pasarhub/internal/audit"
	"github.com/pasarhub/pasarhub/internal/identity"
	"github.com/pasarhub/pasarhub/internal/profile"
)

// Guard is the second, independent enforcement point at the entry of one
// protected area. The gate may run at an edge layer that cached responses
// or deployment skew can bypass; the guard re-derives the decision from
// scratch with the same Evaluate function and a fresh resolver call, never
// trusting a verdict cached upstream. A disagreement with the gate is a
// correctness bug and is counted, logged and resolved in favour of the
// guard's own verdict.
type Guard struct {
	area        string
	required    []profile.Role
	provider    identity.Provider
	resolver    *Resolver
	provisioner Provisioner
	recorder    audit.Recorder
	metrics     Metrics
	logger      *slog.Logger
}

// NewGuard constructs a guard for one protected area. The required role
// set comes from the same policy table the gate uses.
func NewGuard(area string, policy *RoutePolicy, provider identity.Provider, resolver *Resolver, provisioner Provisioner, recorder audit.Recorder, metrics Metrics, logger *slog.Logger) *Guard {
	required, _ := policy.RequiredRoles(area)
	return &Guard{
		area:        area,
		required:    required,
		provider:    provider,
		resolver:    resolver,
		provisioner: provisioner,
		recorder:    recorder,
		metrics:     metrics,
		logger:      logger,
	}
}

// Authorize re-evaluates the request for this area.
func (g *Guard) Authorize(r *http.Request) Decision {
	return decide(r, g.required, g.provider, g.resolver, g.provisioner, g.logger)
}

// Middleware installs the guard at the area entry point.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := g.Authorize(r)
		if r.Context().Err() != nil {
			return
		}
		if gateDecision, ok := DecisionFromContext(r.Context()); ok && gateDecision.Verdict != d.Verdict {
			if g.metrics != nil {
				g.metrics.GateGuardDivergence(g.area)
			}
			if g.logger != nil {
				g.logger.Error("gate/guard verdict divergence",
					slog.String("area", g.area),
					slog.String("route", r.URL.Path),
					slog.String("gate", gateDecision.Verdict.String()),
					slog.String("guard", d.Verdict.String()),
				)
			}
		}
		if g.metrics != nil {
			g.metrics.DecisionEvaluated("guard", d.Verdict.String())
		}
		if d.Outcome != OutcomeContinue && g.recorder != nil {
			// The gate already audited the evaluation; the guard only
			// adds an event when it blocks something the gate let through.
			g.recorder.Record(r.Context(), audit.Event{
				Action:  "authz.guard." + guardAction(g.area),
				ActorID: actorFor(d),
				Status:  statusFor(d),
				Reason:  d.Reason,
				Route:   r.URL.Path,
			})
		}
		apply(w, r.WithContext(ContextWithDecision(r.Context(), d)), d, next)
	})
}

func guardAction(area string) string {
	switch area {
	case "/admin":
		return "admin"
	case "/dashboard/vendor":
		return "vendor"
	case "/dashboard/technician":
		return "technician"
	case "/dashboard/user":
		return "user"
	case "/account":
		return "account"
	}
	return "area"
}

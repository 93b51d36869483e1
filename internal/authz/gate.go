package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pasarhub/pasarhub/internal/audit"
	"github.com/pasarhub/pasarhub/internal/identity"
	"github.com/pasarhub/pasarhub/internal/profile"
	"github.com/pasarhub/pasarhub/internal/shared"
)

// Outcome is what the caller must do with the request.
type Outcome int

const (
	OutcomeContinue Outcome = iota
	OutcomeRedirect
	OutcomeReject
)

// Decision is the result of one authorization evaluation. It is computed
// per request and never persisted; the audit trail carries its summary.
type Decision struct {
	Outcome Outcome
	Target  string
	Code    int
	Verdict Verdict
	Reason  string
	Subject string
	Profile *profile.Profile
}

// Redirect targets for the non-allow verdicts.
const (
	LoginPath     = "/login"
	PendingPath   = "/pending-approval"
	SuspendedPath = "/account-suspended"
	DeniedPath    = "/unauthorized"
)

// Provisioner creates a default profile for an authenticated identity that
// has none yet. The external profile store owns the idempotent upsert.
type Provisioner interface {
	ProvisionDefault(ctx context.Context, id, email string, requested profile.Role) (*profile.Profile, error)
}

// Metrics receives authorization observability signals.
type Metrics interface {
	DecisionEvaluated(enforcer, outcome string)
	GateGuardDivergence(area string)
}

// Gate is the request-level authorization orchestrator. It authenticates,
// resolves the profile, applies the route policy and the approval state
// machine, and emits exactly one audit event per protected evaluation.
// Public routes bypass it entirely, resolver calls included.
type Gate struct {
	policy      *RoutePolicy
	provider    identity.Provider
	resolver    *Resolver
	provisioner Provisioner
	recorder    audit.Recorder
	metrics     Metrics
	logger      *slog.Logger
}

// NewGate constructs a Gate. provisioner and metrics may be nil.
func NewGate(policy *RoutePolicy, provider identity.Provider, resolver *Resolver, provisioner Provisioner, recorder audit.Recorder, metrics Metrics, logger *slog.Logger) *Gate {
	return &Gate{
		policy:      policy,
		provider:    provider,
		resolver:    resolver,
		provisioner: provisioner,
		recorder:    recorder,
		metrics:     metrics,
		logger:      logger,
	}
}

// Authorize evaluates one request and returns the decision without
// applying it. Side-effect free; the middleware applies and audits.
func (g *Gate) Authorize(r *http.Request) Decision {
	required, protected := g.policy.RequiredRoles(r.URL.Path)
	if !protected {
		return Decision{Outcome: OutcomeContinue, Verdict: VerdictAllow, Reason: "public"}
	}
	return decide(r, required, g.provider, g.resolver, g.provisioner, g.logger)
}

// Middleware installs the gate in front of every route.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.policy.IsPublic(r.URL.Path) {
			// High-volume public traffic: no resolver call, no audit.
			next.ServeHTTP(w, r)
			return
		}
		d := g.Authorize(r)
		if r.Context().Err() != nil {
			// Aborted before the decision was delivered; leave no trail.
			return
		}
		g.audit(r, d)
		if g.metrics != nil {
			g.metrics.DecisionEvaluated("gate", d.Verdict.String())
		}
		apply(w, r.WithContext(ContextWithDecision(r.Context(), d)), d, next)
	})
}

func (g *Gate) audit(r *http.Request, d Decision) {
	if g.recorder == nil {
		return
	}
	g.recorder.Record(r.Context(), audit.Event{
		Action:  "authz.gate",
		ActorID: actorFor(d),
		Status:  statusFor(d),
		Reason:  d.Reason,
		Route:   r.URL.Path,
		Metadata: map[string]any{
			"method":  r.Method,
			"outcome": outcomeName(d.Outcome),
		},
	})
}

// decide is the one shared verdict computation behind both the gate and
// the route guards: two enforcement points, one decision tree.
func decide(r *http.Request, required []profile.Role, provider identity.Provider, resolver *Resolver, provisioner Provisioner, logger *slog.Logger) Decision {
	ctx := r.Context()
	path := r.URL.Path

	token := bearerToken(r)
	if token == "" {
		if sess := shared.SessionFromContext(ctx); sess != nil {
			token = sess.Token()
		}
	}

	ident, claims, err := provider.VerifyToken(ctx, token)
	if err != nil {
		return Decision{
			Outcome: OutcomeRedirect,
			Target:  loginRedirect(path),
			Reason:  "unauthenticated",
			Subject: "anonymous",
		}
	}

	prof, err := resolver.Resolve(ctx, ident, claims)
	if err != nil {
		if errors.Is(err, ErrProfileMissing) {
			prof, err = provision(ctx, provisioner, ident, claims)
		}
		if err != nil {
			// Fail closed: infrastructure trouble is treated as
			// unauthenticated, never as an allow.
			if logger != nil {
				logger.Error("authorization fail closed", slog.String("route", path), slog.Any("error", err))
			}
			return Decision{
				Outcome: OutcomeRedirect,
				Target:  loginRedirect(path),
				Reason:  "infrastructure",
				Subject: ident.Subject,
			}
		}
	}

	verdict := Evaluate(prof, required)
	d := Decision{Verdict: verdict, Reason: verdict.String(), Subject: ident.Subject, Profile: &prof}
	switch verdict {
	case VerdictAllow:
		d.Outcome = OutcomeContinue
	case VerdictSuspended:
		d.Outcome = OutcomeRedirect
		d.Target = SuspendedPath
	case VerdictPendingApproval, VerdictRejected:
		d.Outcome = OutcomeRedirect
		d.Target = PendingPath
	default:
		d.Outcome = OutcomeRedirect
		d.Target = DeniedPath
	}
	return d
}

func provision(ctx context.Context, provisioner Provisioner, ident identity.Identity, claims identity.Claims) (profile.Profile, error) {
	if provisioner == nil {
		return profile.Profile{}, errors.New("authz: no provisioner configured")
	}
	p, err := provisioner.ProvisionDefault(ctx, ident.Subject, ident.Email, profile.Role(claims.Role))
	if err != nil {
		return profile.Profile{}, err
	}
	return *p, nil
}

func apply(w http.ResponseWriter, r *http.Request, d Decision, next http.Handler) {
	switch d.Outcome {
	case OutcomeContinue:
		next.ServeHTTP(w, r)
	case OutcomeRedirect:
		http.Redirect(w, r, d.Target, http.StatusSeeOther)
	case OutcomeReject:
		code := d.Code
		if code == 0 {
			code = http.StatusForbidden
		}
		http.Error(w, http.StatusText(code), code)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func loginRedirect(path string) string {
	return LoginPath + "?redirect=" + url.QueryEscape(path)
}

func actorFor(d Decision) string {
	if d.Subject != "" {
		return d.Subject
	}
	return "anonymous"
}

func statusFor(d Decision) audit.Status {
	switch {
	case d.Reason == "unauthenticated":
		return audit.StatusUnauthorized
	case d.Reason == "infrastructure":
		return audit.StatusError
	case d.Verdict == VerdictAllow:
		return audit.StatusSuccess
	default:
		return audit.StatusForbidden
	}
}

func outcomeName(o Outcome) string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeReject:
		return "reject"
	}
	return "unknown"
}

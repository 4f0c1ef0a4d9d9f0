package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hostelhub/portal/internal/domain/access"
	domainauth "github.com/hostelhub/portal/internal/domain/auth"
	"github.com/hostelhub/portal/internal/observability/metrics"
	"github.com/hostelhub/portal/internal/ports"
)

// DefaultLookupTimeout bounds each identity or role lookup made by the gate.
const DefaultLookupTimeout = 3 * time.Second

// DecisionRecorder receives one metric per gate evaluation.
type DecisionRecorder interface {
	RecordDecision(in metrics.DecisionMetric)
}

// AccessGateOptions groups dependencies for AccessGate.
type AccessGateOptions struct {
	Identity      ports.IdentityService
	Policy        access.Policy
	LookupTimeout time.Duration
	Logger        *slog.Logger
	Recorder      DecisionRecorder
	Tracer        trace.Tracer
}

// AccessGate decides, per request, whether a path may be rendered for the presented credential.
// It holds no per-request state and is safe for concurrent use.
type AccessGate struct {
	identity ports.IdentityService
	policy   access.Policy
	timeout  time.Duration
	logger   *slog.Logger
	recorder DecisionRecorder
	tracer   trace.Tracer
}

// NewAccessGate constructs an AccessGate. A zero Policy falls back to access.DefaultPolicy.
func NewAccessGate(opts AccessGateOptions) *AccessGate {
	policy := opts.Policy
	if len(policy.Rules()) == 0 {
		policy = access.DefaultPolicy()
	}
	timeout := opts.LookupTimeout
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/hostelhub/portal/internal/service")
	}
	return &AccessGate{
		identity: opts.Identity,
		policy:   policy,
		timeout:  timeout,
		logger:   logger.With("component", "access_gate"),
		recorder: opts.Recorder,
		tracer:   tracer,
	}
}

// Policy returns the route policy the gate enforces.
func (g *AccessGate) Policy() access.Policy { return g.policy }

// Evaluate returns the decision for path given the raw credential (empty when the cookie is absent).
// It never returns an error; every failure maps to a redirect.
func (g *AccessGate) Evaluate(ctx context.Context, path, credential string) (decision access.Decision) {
	start := time.Now()
	rule, protected := g.policy.Match(path)

	ctx, span := g.tracer.Start(ctx, "access_gate.evaluate", trace.WithAttributes(
		attribute.String("portal.path", path),
		attribute.Bool("portal.protected", protected),
		attribute.Bool("portal.credential_present", credential != ""),
	))

	defer func() {
		if r := recover(); r != nil {
			g.logger.ErrorContext(ctx, "access gate panic", "path", path, "panic", r, "stack", string(debug.Stack()))
			decision = access.RedirectToLogin(fmt.Errorf("%w: panic: %v", access.ErrIdentityResolutionFailure, r))
		}
		g.finish(ctx, span, path, protected, decision, time.Since(start))
	}()

	if credential == "" {
		if protected {
			return access.RedirectToLogin(access.ErrMissingCredential)
		}
		return access.Allow(nil)
	}

	session, err := g.resolve(ctx, credential)
	if err != nil {
		if !protected {
			// Public page: render signed-out.
			g.logger.DebugContext(ctx, "session resolution failed on public path", "path", path, "error", err)
			return access.Allow(nil)
		}
		return access.RedirectToLogin(err)
	}

	if protected && !rule.Permits(session.Role) {
		return access.RedirectToUnauthorized(session)
	}
	return access.Allow(session)
}

// resolve performs the two sequential lookups, each under its own deadline.
// Adapter panics are converted to the failure of the stage that raised them.
func (g *AccessGate) resolve(ctx context.Context, credential string) (sess *domainauth.SessionContext, err error) {
	stage := access.ErrIdentityResolutionFailure
	defer func() {
		if r := recover(); r != nil {
			g.logger.ErrorContext(ctx, "identity adapter panic", "panic", r, "stack", string(debug.Stack()))
			sess, err = nil, fmt.Errorf("%w: panic: %v", stage, r)
		}
	}()

	if g.identity == nil {
		return nil, fmt.Errorf("%w: no identity service configured", stage)
	}

	identity, err := g.lookupIdentity(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", stage, err)
	}
	if identity.IsZero() {
		return nil, fmt.Errorf("%w: %w", stage, ports.ErrInvalidCredential)
	}

	stage = access.ErrProfileLookupFailure
	role, err := g.lookupRole(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", stage, err)
	}
	return &domainauth.SessionContext{Identity: identity, Role: role}, nil
}

func (g *AccessGate) lookupIdentity(ctx context.Context, credential string) (domainauth.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.identity.Resolve(ctx, credential)
}

func (g *AccessGate) lookupRole(ctx context.Context, identityID string) (domainauth.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.identity.Role(ctx, identityID)
}

func (g *AccessGate) finish(
	ctx context.Context,
	span trace.Span,
	path string,
	protected bool,
	d access.Decision,
	elapsed time.Duration,
) {
	reason := d.ReasonLabel()
	span.SetAttributes(
		attribute.String("portal.outcome", string(d.Outcome)),
		attribute.String("portal.reason", reason),
	)
	if d.Reason != nil && d.Outcome == access.OutcomeDeniedUnauthenticated && reason != "missing_credential" {
		span.RecordError(d.Reason)
		span.SetStatus(codes.Error, reason)
	}
	span.End()

	if g.recorder != nil {
		g.recorder.RecordDecision(metrics.DecisionMetric{
			Outcome:   string(d.Outcome),
			Reason:    reason,
			Protected: protected,
			Duration:  elapsed,
			Err:       d.Reason,
		})
	}

	switch d.Outcome {
	case access.OutcomeAllowed:
		g.logger.DebugContext(ctx, "access allowed", "path", path, "authenticated", d.Session != nil)
	case access.OutcomeDeniedUnauthorized:
		g.logger.InfoContext(ctx, "access denied",
			"path", path, "redirect", d.Redirect, "reason", reason,
			"user_id", d.Session.Identity.ID, "role", d.Session.Role)
	default:
		level := slog.LevelInfo
		if reason == "missing_credential" {
			level = slog.LevelDebug
		}
		g.logger.Log(ctx, level, "access denied",
			"path", path, "redirect", d.Redirect, "reason", reason, "error", d.Reason)
	}
}

package gate

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/teamgate/pkg/audit"
	"github.com/platinummonkey/teamgate/pkg/messaging"
	"github.com/platinummonkey/teamgate/pkg/observability"
	"github.com/platinummonkey/teamgate/pkg/rbac"
)

// FlagExtraMessagingBackends is the metric label of the backend visibility flag
const FlagExtraMessagingBackends = "extra_messaging_backends_enabled"

// Gate decides, per request, whether an injected handler runs.
// It holds no mutable state; only the flag source changes at runtime.
type Gate struct {
	engine   *rbac.Engine
	registry *messaging.Registry
	flags    FlagSource
	metrics  *observability.Metrics
	audit    audit.Logger

	// evaluations is exported through OpenTelemetry when it is enabled
	evaluations metric.Int64Counter

	actorOf  ActorResolver
	tenantOf TenantResolver
}

// Option configures a Gate
type Option func(*Gate)

// WithMetrics records gate outcomes and the sampled flag
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// WithAuditLogger audits denied and rejected requests
func WithAuditLogger(l audit.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.audit = l
		}
	}
}

// WithActorResolver overrides how Handle finds the authenticated user
func WithActorResolver(fn ActorResolver) Option {
	return func(g *Gate) { g.actorOf = fn }
}

// WithTenantResolver overrides how Handle finds the resource tenant
func WithTenantResolver(fn TenantResolver) Option {
	return func(g *Gate) { g.tenantOf = fn }
}

// New creates a gate
func New(engine *rbac.Engine, registry *messaging.Registry, flags FlagSource, opts ...Option) *Gate {
	g := &Gate{
		engine:   engine,
		registry: registry,
		flags:    flags,
		audit:    audit.NoOpLogger{},
		actorOf:  ActorFromContext,
		tenantOf: CurrentTeam,
	}
	for _, opt := range opts {
		opt(g)
	}

	counter, err := observability.Meter().Int64Counter("teamgate.gate.evaluations",
		metric.WithDescription("Request gate evaluations by action and terminal state"))
	if err != nil {
		counter, _ = noop.NewMeterProvider().Meter(observability.InstrumentationName).Int64Counter("teamgate.gate.evaluations")
	}
	g.evaluations = counter

	return g
}

// Evaluate runs the gate state machine:
// unauthenticated, then authorization, then backend resolution.
// The flag is read exactly once. An error is returned only for undeclared actions.
func (g *Gate) Evaluate(ctx context.Context, req Request) (*Outcome, error) {
	ctx, span := observability.Tracer().Start(ctx, "gate.Evaluate",
		trace.WithAttributes(attribute.String("teamgate.action", req.Action.String())))
	defer span.End()

	extra := g.flags.ExtraMessagingBackendsEnabled()
	g.metrics.SetFeatureFlag(FlagExtraMessagingBackends, extra)

	outcome := &Outcome{
		Action:               req.Action,
		Actor:                req.Actor,
		ExtraBackendsEnabled: extra,
	}

	if req.Actor == nil {
		outcome.State = StateUnauthenticated
		outcome.Err = ErrUnauthenticated
		g.finish(ctx, span, req, outcome)
		return outcome, nil
	}

	spec, err := g.engine.Actions().Lookup(req.Action)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	subject := rbac.SubjectFromUser(req.Actor)
	decision, err := g.engine.Authorize(ctx, subject, req.Action, req.ResourceTenant)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	outcome.Decision = decision

	if !decision.Allowed {
		outcome.State = StateForbidden
		outcome.Err = rbac.NewForbiddenError(subject, req.Action, decision.Reason)
		g.finish(ctx, span, req, outcome)
		return outcome, nil
	}

	if spec.RequiresBackend {
		backend, err := g.registry.Resolve(req.BackendKey, extra)
		if err != nil {
			if !errors.Is(err, messaging.ErrBackendNotFound) {
				return nil, fmt.Errorf("resolve backend: %w", err)
			}
			outcome.State = StateBadRequest
			outcome.Err = err
			g.finish(ctx, span, req, outcome)
			return outcome, nil
		}
		outcome.Backend = backend
	}

	outcome.State = StateProceed
	g.finish(ctx, span, req, outcome)
	return outcome, nil
}

func (g *Gate) finish(ctx context.Context, span trace.Span, req Request, outcome *Outcome) {
	span.SetAttributes(
		attribute.String("teamgate.gate.state", outcome.State.String()),
		attribute.Bool("teamgate.flag.extra_messaging_backends", outcome.ExtraBackendsEnabled),
	)
	if req.BackendKey != "" {
		span.SetAttributes(attribute.String("teamgate.backend", req.BackendKey))
	}

	g.metrics.RecordGateOutcome(req.Action.String(), outcome.State.String())
	g.evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", req.Action.String()),
		attribute.String("state", outcome.State.String()),
	))

	var eventType audit.EventType
	switch outcome.State {
	case StateForbidden:
		eventType = audit.EventTypeAuthzAccessDenied
	case StateBadRequest:
		eventType = audit.EventTypeAuthzBackendInvalid
	default:
		return
	}

	userID := req.Actor.ID
	orgID := int64(req.ResourceTenant)
	message := outcome.Err.Error()
	if err := g.audit.LogAuthorization(ctx, eventType, &userID, &orgID, req.Action.String(), audit.EventStatusDenied, message); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("Failed to write audit event")
	}
}

package rbac

import (
	"context"

	"github.com/platinummonkey/teamgate/pkg/auth"
	"github.com/platinummonkey/teamgate/pkg/observability"
)

// Decide is the authorization decision for an actor acting on a resource.
// Tenant isolation is checked before role comparison, so a cross-tenant admin
// is denied exactly like an under-privileged member. The function is pure.
func Decide(actorRole auth.Role, actorTenant, resourceTenant auth.TenantID, required auth.Role) Decision {
	if actorTenant != resourceTenant {
		return DecisionDeny(ReasonTenantMismatch)
	}
	if !actorRole.Valid() {
		return DecisionDeny(ReasonUnknownRole)
	}
	if !actorRole.AtLeast(required) {
		return DecisionDeny(ReasonInsufficientRole)
	}
	return DecisionAllow()
}

// Engine authorizes declared actions
type Engine struct {
	actions *ActionTable
	metrics *Metrics
}

// NewEngine creates an engine over an action table. Metrics may be nil.
func NewEngine(actions *ActionTable, metrics *Metrics) *Engine {
	if actions == nil {
		actions = DefaultActions()
	}
	return &Engine{
		actions: actions,
		metrics: metrics,
	}
}

// Actions returns the engine's action table
func (e *Engine) Actions() *ActionTable {
	return e.actions
}

// Authorize decides whether subject may perform action on resources owned by resourceTenant.
// An error is returned only for undeclared actions.
func (e *Engine) Authorize(ctx context.Context, subject Subject, action Action, resourceTenant auth.TenantID) (Decision, error) {
	spec, err := e.actions.Lookup(action)
	if err != nil {
		return DecisionDeny(ReasonUnknownAction), err
	}

	decision := Decide(subject.Role, subject.Tenant, resourceTenant, spec.MinimumRole)

	e.metrics.RecordDecision(action, decision)
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"action":          action.String(),
		"subject_user_id": subject.UserID,
		"subject_role":    subject.Role.String(),
		"required_role":   spec.MinimumRole.String(),
		"allowed":         decision.Allowed,
		"reason":          decision.Reason,
	}).Debug("authorization decision")

	return decision, nil
}

// Require is like Authorize but returns an *AuthzError wrapping ErrForbidden on denial
func (e *Engine) Require(ctx context.Context, subject Subject, action Action, resourceTenant auth.TenantID) error {
	decision, err := e.Authorize(ctx, subject, action, resourceTenant)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return NewForbiddenError(subject, action, decision.Reason)
	}
	return nil
}

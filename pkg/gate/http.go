package gate

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/teamgate/pkg/auth"
	"github.com/platinummonkey/teamgate/pkg/contextkeys"
	"github.com/platinummonkey/teamgate/pkg/httputil"
	"github.com/platinummonkey/teamgate/pkg/messaging"
	"github.com/platinummonkey/teamgate/pkg/observability"
	"github.com/platinummonkey/teamgate/pkg/rbac"
)

// BackendParam is the query parameter that selects a messaging backend
const BackendParam = "backend"

// HandlerFunc is an action handler. It runs only for StateProceed.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, outcome *Outcome)

// ActorResolver returns the authenticated user of a request, or nil
type ActorResolver func(r *http.Request) *auth.User

// TenantResolver returns the tenant owning the resource a request targets
type TenantResolver func(r *http.Request, actor *auth.User) auth.TenantID

// ActorFromContext reads the user stored by the authentication middleware
func ActorFromContext(r *http.Request) *auth.User {
	authCtx := contextkeys.GetAuth(r.Context())
	if authCtx == nil {
		return nil
	}
	return authCtx.User
}

// CurrentTeam resolves the actor's own organization, the resource of every
// current_team endpoint
func CurrentTeam(r *http.Request, actor *auth.User) auth.TenantID {
	return actor.OrganizationID
}

// Handle wraps next with the gate for action. Non-proceed states are answered
// with a JSON error and next is not called.
func (g *Gate) Handle(action rbac.Action, next HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := Request{
			Actor:      g.actorOf(r),
			Action:     action,
			BackendKey: r.URL.Query().Get(BackendParam),
		}
		if req.Actor != nil {
			req.ResourceTenant = g.tenantOf(r, req.Actor)
		}

		outcome, err := g.Evaluate(r.Context(), req)
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Error("Gate evaluation failed")
			httputil.WriteInternalError(w, errors.New("internal server error"))
			return
		}

		switch outcome.State {
		case StateUnauthenticated:
			httputil.WriteUnauthorized(w, ErrUnauthenticated.Error())
		case StateForbidden:
			httputil.WriteForbidden(w, "insufficient permissions")
		case StateBadRequest:
			httputil.WriteBadRequest(w, badBackendMessage(req.BackendKey))
		default:
			next(w, r, outcome)
		}
	})
}

func badBackendMessage(key string) string {
	if key == "" {
		return "missing " + BackendParam + " parameter"
	}
	return messaging.ErrBackendNotFound.Error() + ": " + key
}

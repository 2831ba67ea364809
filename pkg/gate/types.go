package gate

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/teamgate/pkg/auth"
	"github.com/platinummonkey/teamgate/pkg/messaging"
	"github.com/platinummonkey/teamgate/pkg/rbac"
)

// ErrUnauthenticated is the outcome error for requests without an actor
var ErrUnauthenticated = errors.New("authentication required")

// State is the terminal state of a gate evaluation
type State int

const (
	// StateProceed means the injected handler runs
	StateProceed State = iota
	// StateUnauthenticated means there is no authenticated actor (401)
	StateUnauthenticated
	// StateForbidden means the actor may not perform the action (403)
	StateForbidden
	// StateBadRequest means the selected messaging backend is unknown or hidden (400)
	StateBadRequest
)

func (s State) String() string {
	switch s {
	case StateProceed:
		return "proceed"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateForbidden:
		return "forbidden"
	case StateBadRequest:
		return "bad_request"
	default:
		return "unknown"
	}
}

// HTTPStatus maps a terminal state to its response status.
// StateProceed maps to 200; the handler decides the final status.
func (s State) HTTPStatus() int {
	switch s {
	case StateUnauthenticated:
		return http.StatusUnauthorized
	case StateForbidden:
		return http.StatusForbidden
	case StateBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusOK
	}
}

// FlagSource provides the live extra_messaging_backends_enabled flag
type FlagSource interface {
	ExtraMessagingBackendsEnabled() bool
}

// Request is one action attempted by an actor on a tenant's resources
type Request struct {
	// Actor is the authenticated user, nil when unauthenticated
	Actor          *auth.User
	ResourceTenant auth.TenantID
	Action         rbac.Action
	// BackendKey selects a messaging backend for backend-scoped actions
	BackendKey string
}

// Outcome is the result of a gate evaluation
type Outcome struct {
	State    State
	Action   rbac.Action
	Actor    *auth.User
	Decision rbac.Decision

	// Backend is set for backend-scoped actions that proceed
	Backend messaging.Backend

	// ExtraBackendsEnabled is the flag value sampled for this request.
	// Handlers must use it instead of reading the flag again.
	ExtraBackendsEnabled bool

	// Err explains a non-proceed state: ErrUnauthenticated, an
	// *rbac.AuthzError or an error wrapping messaging.ErrBackendNotFound
	Err error
}

// Proceed reports whether the handler may run
func (o *Outcome) Proceed() bool {
	return o.State == StateProceed
}

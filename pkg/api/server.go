package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/teamgate/pkg/audit"
	"github.com/platinummonkey/teamgate/pkg/gate"
	"github.com/platinummonkey/teamgate/pkg/httputil"
	"github.com/platinummonkey/teamgate/pkg/messaging"
	"github.com/platinummonkey/teamgate/pkg/middleware"
	"github.com/platinummonkey/teamgate/pkg/observability"
	"github.com/platinummonkey/teamgate/pkg/orgs"
)

// DefaultBasePath is where the internal API is mounted
const DefaultBasePath = "/api/internal/v1"

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// Dependencies are the collaborators of the API server
type Dependencies struct {
	Orgs     orgs.Service
	Gate     *gate.Gate
	Registry *messaging.Registry
	// Telegram issues per-user codes; nil disables that endpoint
	Telegram messaging.OwnVerificationCoder
	Tokens   middleware.TokenValidator
	// Limiter caps verification code requests; nil disables rate limiting
	Limiter *middleware.DistributedRateLimiter

	Metrics  *observability.Metrics
	Audit    audit.Logger
	Logger   *observability.Logger
	BasePath string
}

// Server represents our API server
type Server struct {
	router  *mux.Router
	handler http.Handler
	team    *TeamHandlers
}

// NewServer creates a new API server
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Orgs == nil {
		return nil, errors.New("organization service is required")
	}
	if deps.Gate == nil {
		return nil, errors.New("gate is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("messaging registry is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("token validator is required")
	}
	if deps.Logger == nil {
		deps.Logger = observability.NewNopLogger()
	}
	if deps.BasePath == "" {
		deps.BasePath = DefaultBasePath
	}

	s := &Server{
		router: mux.NewRouter(),
		team: NewTeamHandlers(TeamHandlersConfig{
			Orgs:     deps.Orgs,
			Gate:     deps.Gate,
			Registry: deps.Registry,
			Telegram: deps.Telegram,
			Limiter:  deps.Limiter,
			Metrics:  deps.Metrics,
		}),
	}

	if deps.Metrics != nil {
		s.router.Use(mux.MiddlewareFunc(observability.HTTPMetricsMiddleware(deps.Metrics)))
	}
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Missing credentials pass through so the gate answers them with 401
	authMW := middleware.NewAuthMiddleware(deps.Tokens, true)
	apiRouter := s.router.PathPrefix(deps.BasePath).Subrouter()
	apiRouter.Use(authMW.Handler)
	s.team.RegisterRoutes(apiRouter)

	s.handler = httputil.Chain(
		httputil.LoggerMiddleware(deps.Logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
		audit.Middleware(deps.Audit),
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(maxBodyBytes),
	)(s.router)

	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router returns the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/teamgate/pkg/audit"
	"github.com/platinummonkey/teamgate/pkg/auth"
	"github.com/platinummonkey/teamgate/pkg/gate"
	"github.com/platinummonkey/teamgate/pkg/httputil"
	"github.com/platinummonkey/teamgate/pkg/messaging"
	"github.com/platinummonkey/teamgate/pkg/middleware"
	"github.com/platinummonkey/teamgate/pkg/observability"
	"github.com/platinummonkey/teamgate/pkg/orgs"
	"github.com/platinummonkey/teamgate/pkg/rbac"
	"github.com/platinummonkey/teamgate/pkg/verification"
)

// telegramKey labels codes issued by the telegram user endpoint
const telegramKey = "telegram"

var errInternal = errors.New("internal server error")

// TeamHandlersConfig holds the collaborators of TeamHandlers
type TeamHandlersConfig struct {
	Orgs     orgs.Service
	Gate     *gate.Gate
	Registry *messaging.Registry
	Telegram messaging.OwnVerificationCoder
	Limiter  *middleware.DistributedRateLimiter
	Metrics  *observability.Metrics
}

// TeamHandlers serves the current team endpoints. Every route runs behind
// the gate, so handlers only see authorized requests.
type TeamHandlers struct {
	orgs     orgs.Service
	gate     *gate.Gate
	registry *messaging.Registry
	telegram messaging.OwnVerificationCoder
	limiter  *middleware.DistributedRateLimiter
	metrics  *observability.Metrics
}

// NewTeamHandlers creates a new TeamHandlers
func NewTeamHandlers(cfg TeamHandlersConfig) *TeamHandlers {
	return &TeamHandlers{
		orgs:     cfg.Orgs,
		gate:     cfg.Gate,
		registry: cfg.Registry,
		telegram: cfg.Telegram,
		limiter:  cfg.Limiter,
		metrics:  cfg.Metrics,
	}
}

// RegisterRoutes registers current team routes
func (h *TeamHandlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/current_team",
		h.gate.Handle(rbac.ActionOrganizationRead, h.getCurrentTeam)).Methods("GET")
	router.Handle("/current_team",
		h.gate.Handle(rbac.ActionOrganizationUpdate, h.updateCurrentTeam)).Methods("PUT")
	router.Handle("/current_team/get_telegram_verification_code",
		h.gate.Handle(rbac.ActionOrganizationTelegramVerificationCode, h.getTelegramVerificationCode)).Methods("GET")
	router.Handle("/current_team/get_channel_verification_code",
		h.gate.Handle(rbac.ActionOrganizationChannelVerificationCode, h.getChannelVerificationCode)).Methods("GET")
}

// getCurrentTeam handles GET /current_team
func (h *TeamHandlers) getCurrentTeam(w http.ResponseWriter, r *http.Request, outcome *gate.Outcome) {
	org, ok := h.loadOrganization(w, r, outcome.Actor)
	if !ok {
		return
	}

	httputil.WriteJSONOrError(w, http.StatusOK, CurrentTeamResponse{
		Organization: org,
		EnvStatus: EnvStatus{
			ExtraMessagingBackendsEnabled: outcome.ExtraBackendsEnabled,
			TelegramConfigured:            h.telegramConfigured(),
		},
		MessagingBackends: h.registry.VisibleKeys(outcome.ExtraBackendsEnabled),
	})
}

// updateCurrentTeam handles PUT /current_team
func (h *TeamHandlers) updateCurrentTeam(w http.ResponseWriter, r *http.Request, outcome *gate.Outcome) {
	ctx := r.Context()

	var req orgs.UpdateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	before, ok := h.loadOrganization(w, r, outcome.Actor)
	if !ok {
		return
	}

	updated, err := h.orgs.UpdateOrganization(ctx, outcome.Actor.OrganizationID, &req)
	if err != nil {
		switch {
		case errors.Is(err, orgs.ErrInvalidUpdate):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, orgs.ErrNotFound):
			httputil.WriteNotFoundError(w, err.Error())
		default:
			observability.FromContext(ctx).WithError(err).Error("Failed to update organization")
			httputil.WriteInternalError(w, errInternal)
		}
		return
	}

	if !req.Empty() {
		userID := outcome.Actor.ID
		if err := audit.FromContext(ctx).LogDataMutation(ctx, audit.EventTypeDataOrgUpdate, &userID,
			audit.ResourceTypeOrganization, strconv.FormatInt(int64(updated.ID), 10),
			orgChanges(before, updated, &req), "organization updated"); err != nil {
			observability.FromContext(ctx).WithError(err).Warn("Failed to write audit event")
		}
	}

	httputil.WriteJSONOrError(w, http.StatusOK, updated)
}

// getTelegramVerificationCode handles GET /current_team/get_telegram_verification_code
func (h *TeamHandlers) getTelegramVerificationCode(w http.ResponseWriter, r *http.Request, outcome *gate.Outcome) {
	if h.telegram == nil {
		httputil.WriteServiceUnavailable(w, "telegram is not available")
		return
	}
	if !h.allow(w, r, outcome.Actor) {
		return
	}
	org, ok := h.loadOrganization(w, r, outcome.Actor)
	if !ok {
		return
	}

	code, err := h.telegram.GenerateUserVerificationCode(r.Context(), org, outcome.Actor)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to generate telegram verification code")
		httputil.WriteInternalError(w, errInternal)
		return
	}

	h.codeIssued(r, outcome.Actor, telegramKey, verification.KindUser)
	httputil.WriteJSONOrError(w, http.StatusOK, code)
}

// getChannelVerificationCode handles GET /current_team/get_channel_verification_code?backend=KEY.
// The gate has already resolved the backend.
func (h *TeamHandlers) getChannelVerificationCode(w http.ResponseWriter, r *http.Request, outcome *gate.Outcome) {
	if !h.allow(w, r, outcome.Actor) {
		return
	}
	org, ok := h.loadOrganization(w, r, outcome.Actor)
	if !ok {
		return
	}

	code, err := outcome.Backend.GenerateChannelVerificationCode(r.Context(), org)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).
			WithField("backend", outcome.Backend.Key()).
			Error("Failed to generate channel verification code")
		httputil.WriteInternalError(w, errInternal)
		return
	}

	h.codeIssued(r, outcome.Actor, outcome.Backend.Key(), verification.KindChannel)
	httputil.WriteJSONOrError(w, http.StatusOK, code)
}

func (h *TeamHandlers) loadOrganization(w http.ResponseWriter, r *http.Request, actor *auth.User) (*orgs.Organization, bool) {
	org, err := h.orgs.GetOrganization(r.Context(), actor.OrganizationID)
	if err != nil {
		if errors.Is(err, orgs.ErrNotFound) {
			httputil.WriteNotFoundError(w, err.Error())
			return nil, false
		}
		observability.FromContext(r.Context()).WithError(err).Error("Failed to load organization")
		httputil.WriteInternalError(w, errInternal)
		return nil, false
	}
	return org, true
}

// allow applies the per-user verification code limit. Limiter failures let
// the request through.
func (h *TeamHandlers) allow(w http.ResponseWriter, r *http.Request, actor *auth.User) bool {
	if h.limiter == nil {
		return true
	}

	key := "verification:user:" + strconv.FormatInt(actor.ID, 10)
	allowed, err := h.limiter.Allow(r.Context(), key)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("Rate limiter unavailable")
	}
	if !allowed {
		h.metrics.RecordRateLimited()
		h.limiter.WriteLimitExceeded(r.Context(), w, key)
		return false
	}
	if err == nil {
		h.limiter.WriteRateLimitHeaders(r.Context(), w, key)
	}
	return true
}

func (h *TeamHandlers) codeIssued(r *http.Request, actor *auth.User, backend string, kind verification.Kind) {
	ctx := r.Context()
	h.metrics.RecordVerificationCode(backend, string(kind))

	userID := actor.ID
	orgID := int64(actor.OrganizationID)
	if err := audit.FromContext(ctx).Log(ctx, &audit.AuditEvent{
		EventType:      audit.EventTypeVerificationCodeIssued,
		Status:         audit.EventStatusSuccess,
		UserID:         &userID,
		OrganizationID: &orgID,
		Role:           actor.Role.String(),
		ResourceType:   audit.ResourceTypeMessagingBackend,
		ResourceID:     backend,
		RequestID:      observability.GetRequestID(ctx),
		Method:         r.Method,
		Path:           r.URL.Path,
		Message:        "verification code issued",
		Metadata:       map[string]interface{}{"kind": string(kind)},
	}); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("Failed to write audit event")
	}
}

func (h *TeamHandlers) telegramConfigured() bool {
	if h.telegram == nil {
		return false
	}
	if c, ok := h.telegram.(messaging.Configurable); ok {
		return c.Configured()
	}
	return true
}

// orgChanges records the fields touched by req
func orgChanges(before, after *orgs.Organization, req *orgs.UpdateOrgRequest) *audit.ChangeDetails {
	changes := &audit.ChangeDetails{
		Before: map[string]interface{}{},
		After:  map[string]interface{}{},
	}
	if req.Name != nil {
		changes.Before["name"] = before.Name
		changes.After["name"] = after.Name
	}
	if req.IsResolutionNoteRequired != nil {
		changes.Before["is_resolution_note_required"] = before.IsResolutionNoteRequired
		changes.After["is_resolution_note_required"] = after.IsResolutionNoteRequired
	}
	if req.Settings != nil {
		changes.Before["settings"] = before.Settings
		changes.After["settings"] = after.Settings
	}
	return changes
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/teamgate/pkg/audit"
	"github.com/platinummonkey/teamgate/pkg/auth"
	"github.com/platinummonkey/teamgate/pkg/contextkeys"
	"github.com/platinummonkey/teamgate/pkg/httputil"
	"github.com/platinummonkey/teamgate/pkg/observability"
)

// TokenValidator resolves bearer tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.AuthContext, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	tokens   TokenValidator
	optional bool // If true, allow requests without an Authorization header
}

// NewAuthMiddleware creates a new authentication middleware.
// With optional set, requests without credentials continue unauthenticated
// and the gate answers them with 401.
func NewAuthMiddleware(tokens TokenValidator, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		// Format: "Bearer <token>"
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		ctx := r.Context()
		authCtx, err := m.tokens.ValidateToken(ctx, token)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				observability.FromContext(ctx).WithError(err).Error("Token validation failed")
				httputil.WriteInternalError(w, errors.New("internal server error"))
				return
			}
			audit.FromContext(ctx).Log(ctx, &audit.AuditEvent{
				EventType:    audit.EventTypeAuthTokenValidateFail,
				Status:       audit.EventStatusFailure,
				ResourceType: audit.ResourceTypeToken,
				RequestID:    observability.GetRequestID(ctx),
				Method:       r.Method,
				Path:         r.URL.Path,
				Message:      "invalid or expired token",
			})
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		ctx = contextkeys.WithAuth(ctx, authCtx)
		ctx = observability.WithUserID(ctx, authCtx.User.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthContext extracts auth context from request
func GetAuthContext(r *http.Request) *auth.AuthContext {
	return contextkeys.GetAuth(r.Context())
}

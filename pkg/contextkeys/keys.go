// Package contextkeys provides centralized context key definitions
//
// All request scoped values shared between packages are defined here.
// Logger, request ID and user ID keys live in pkg/observability, audit keys
// in pkg/audit.
//
// USAGE PATTERN:
//
//	ctx = contextkeys.WithAuth(ctx, authCtx)
//	authCtx := contextkeys.GetAuth(ctx)
package contextkeys

import (
	"context"

	"github.com/platinummonkey/teamgate/pkg/auth"
)

// Key is the type for context keys to prevent collisions
type Key string

// AuthKey contains *auth.AuthContext
// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
// Required by: gate.ActorFromContext
const AuthKey Key = "auth_context"

// WithAuth adds authentication context to the context
func WithAuth(ctx context.Context, authCtx *auth.AuthContext) context.Context {
	return context.WithValue(ctx, AuthKey, authCtx)
}

// GetAuth retrieves the authentication context, or nil
func GetAuth(ctx context.Context) *auth.AuthContext {
	authCtx, _ := ctx.Value(AuthKey).(*auth.AuthContext)
	return authCtx
}

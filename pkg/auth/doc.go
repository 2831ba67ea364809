// Package auth provides the identity model and API token authentication for teamgate.
//
// # Overview
//
// Every user belongs to exactly one organization (tenant) and holds exactly one Role in it.
// Roles are totally ordered:
//
//	RoleViewer < RoleEditor < RoleAdmin
//
// RoleUnknown is the zero value. It is produced by ParseRole for missing or unrecognised
// names and never satisfies any requirement.
//
// # API Tokens
//
// Tokens are opaque strings of the form tg_<base64url(32 random bytes)>. Only the SHA256
// hash is persisted:
//
//	manager := auth.NewTokenManager(auth.NewSQLStore(db))
//	apiToken, plaintext, err := manager.CreateToken(ctx, user, "ci", nil)
//	// plaintext is shown once
//
// Validation resolves the owner and its role:
//
//	authCtx, err := manager.ValidateToken(ctx, plaintext)
//	if errors.Is(err, auth.ErrInvalidToken) {
//		// 401
//	}
//
// Unknown, expired, revoked and malformed tokens all yield ErrInvalidToken.
//
// # Related Packages
//
//   - pkg/middleware: Bearer token extraction
//   - pkg/rbac: Role comparison and tenant isolation
package auth

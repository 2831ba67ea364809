package auth

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TenantID identifies an organization. Every user, token and resource belongs to exactly one.
type TenantID int64

// Role is an organization-scoped privilege level. Higher values grant more.
type Role int

// Role constants, ordered from least to most privileged.
const (
	RoleUnknown Role = 0 // missing or unrecognised, satisfies nothing
	RoleViewer  Role = 1 // read-only access
	RoleEditor  Role = 2 // can change alert routing and integrations
	RoleAdmin   Role = 3 // full control of the organization
)

// AllRoles lists the assignable roles from least to most privileged.
func AllRoles() []Role {
	return []Role{RoleViewer, RoleEditor, RoleAdmin}
}

// ParseRole converts a stored role name to a Role.
// Unknown or empty values map to RoleUnknown.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "editor":
		return RoleEditor
	case "viewer":
		return RoleViewer
	default:
		return RoleUnknown
	}
}

// String returns the stored name of the role
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleEditor:
		return "editor"
	case RoleViewer:
		return "viewer"
	default:
		return "unknown"
	}
}

// Valid reports whether r is an assignable role
func (r Role) Valid() bool {
	return r >= RoleViewer && r <= RoleAdmin
}

// AtLeast reports whether r is ranked at or above min. RoleUnknown is never at least anything.
func (r Role) AtLeast(min Role) bool {
	if !r.Valid() {
		return false
	}
	return r >= min
}

// MarshalJSON encodes the role by name
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a role name
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("role must be a string: %w", err)
	}
	role := ParseRole(s)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", s)
	}
	*r = role
	return nil
}

// User represents a member of exactly one organization
type User struct {
	ID             int64     `json:"id"`
	OrganizationID TenantID  `json:"organization_id"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	Role           Role      `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// APIToken represents an API token issued to a user
type APIToken struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	OrganizationID TenantID   `json:"organization_id"`
	TokenHash      string     `json:"-"` // Never expose hash
	TokenPrefix    string     `json:"token_prefix"`
	Name           string     `json:"name"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the token is usable at the given instant
func (t *APIToken) Active(now time.Time) bool {
	if t.RevokedAt != nil {
		return false
	}
	if t.ExpiresAt != nil && !t.ExpiresAt.After(now) {
		return false
	}
	return true
}

// AuthContext holds authenticated user information
type AuthContext struct {
	User  *User
	Token *APIToken
}

// Tenant returns the organization the authenticated user belongs to
func (ac *AuthContext) Tenant() TenantID {
	if ac == nil || ac.User == nil {
		return 0
	}
	return ac.User.OrganizationID
}

// HasRole checks if the authenticated user holds at least the given role
func (ac *AuthContext) HasRole(role Role) bool {
	if ac == nil || ac.User == nil {
		return false
	}
	return ac.User.Role.AtLeast(role)
}

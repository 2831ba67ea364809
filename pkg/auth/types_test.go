package auth

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  Role
	}{
		{"admin", RoleAdmin},
		{"ADMIN", RoleAdmin},
		{" editor ", RoleEditor},
		{"viewer", RoleViewer},
		{"owner", RoleUnknown},
		{"", RoleUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRole(tt.input))
		})
	}
}

func TestRole_Ordering(t *testing.T) {
	assert.Less(t, int(RoleViewer), int(RoleEditor))
	assert.Less(t, int(RoleEditor), int(RoleAdmin))
	assert.Equal(t, []Role{RoleViewer, RoleEditor, RoleAdmin}, AllRoles())
}

func TestRole_AtLeast(t *testing.T) {
	for _, actor := range AllRoles() {
		for _, required := range AllRoles() {
			assert.Equal(t, actor >= required, actor.AtLeast(required),
				"%s at least %s", actor, required)
		}
	}

	t.Run("unknown satisfies nothing", func(t *testing.T) {
		assert.False(t, RoleUnknown.AtLeast(RoleUnknown))
		assert.False(t, RoleUnknown.AtLeast(RoleViewer))
		assert.False(t, Role(42).AtLeast(RoleAdmin))
	})
}

func TestRole_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Role Role `json:"role"`
	}{Role: RoleEditor})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"editor"}`, string(data))

	var decoded struct {
		Role Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"admin"}`), &decoded))
	assert.Equal(t, RoleAdmin, decoded.Role)

	err = json.Unmarshal([]byte(`{"role":"superuser"}`), &decoded)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"role":3}`), &decoded)
	assert.Error(t, err)
}

func TestAPIToken_Active(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name  string
		token APIToken
		want  bool
	}{
		{"no expiry", APIToken{}, true},
		{"future expiry", APIToken{ExpiresAt: &future}, true},
		{"expired", APIToken{ExpiresAt: &past}, false},
		{"expires exactly now", APIToken{ExpiresAt: &now}, false},
		{"revoked", APIToken{RevokedAt: &past}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.Active(now))
		})
	}
}

func TestAuthContext_HasRole(t *testing.T) {
	var nilCtx *AuthContext
	assert.False(t, nilCtx.HasRole(RoleViewer))
	assert.Equal(t, TenantID(0), nilCtx.Tenant())

	ac := &AuthContext{User: &User{OrganizationID: 7, Role: RoleEditor}}
	assert.True(t, ac.HasRole(RoleViewer))
	assert.True(t, ac.HasRole(RoleEditor))
	assert.False(t, ac.HasRole(RoleAdmin))
	assert.Equal(t, TenantID(7), ac.Tenant())
}

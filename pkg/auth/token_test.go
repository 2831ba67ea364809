package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryTokenStore is an in-memory TokenStore for testing
type memoryTokenStore struct {
	tokens    map[string]*APIToken
	users     map[int64]*User
	touched   map[int64]time.Time
	nextID    int64
	lookupErr error
}

func newMemoryTokenStore(users ...*User) *memoryTokenStore {
	s := &memoryTokenStore{
		tokens:  make(map[string]*APIToken),
		users:   make(map[int64]*User),
		touched: make(map[int64]time.Time),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memoryTokenStore) CreateToken(ctx context.Context, token *APIToken) error {
	s.nextID++
	token.ID = s.nextID
	s.tokens[token.TokenHash] = token
	return nil
}

func (s *memoryTokenStore) GetTokenByHash(ctx context.Context, hash string) (*APIToken, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	token, ok := s.tokens[hash]
	if !ok {
		return nil, ErrInvalidToken
	}
	copied := *token
	return &copied, nil
}

func (s *memoryTokenStore) TouchToken(ctx context.Context, id int64, usedAt time.Time) error {
	s.touched[id] = usedAt
	return nil
}

func (s *memoryTokenStore) RevokeToken(ctx context.Context, id int64, revokedAt time.Time) error {
	for _, token := range s.tokens {
		if token.ID == id {
			token.RevokedAt = &revokedAt
			return nil
		}
	}
	return ErrInvalidToken
}

func (s *memoryTokenStore) CleanupExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	for hash, token := range s.tokens {
		if token.ExpiresAt != nil && !token.ExpiresAt.After(now) {
			delete(s.tokens, hash)
			removed++
		}
	}
	return removed, nil
}

func (s *memoryTokenStore) GetUser(ctx context.Context, id int64) (*User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func TestTokenGenerator_GenerateToken(t *testing.T) {
	tg := NewTokenGenerator()

	token, hash, prefix, err := tg.GenerateToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, TokenPrefix))
	assert.Len(t, hash, 64)
	assert.Equal(t, tg.HashToken(token), hash)
	assert.True(t, strings.HasPrefix(token, prefix))
	assert.Len(t, prefix, len(TokenPrefix)+8)
	assert.NoError(t, tg.ValidateTokenFormat(token))

	other, _, _, err := tg.GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestTokenGenerator_ValidateTokenFormat(t *testing.T) {
	tg := NewTokenGenerator()

	tests := []struct {
		name  string
		token string
	}{
		{"wrong prefix", "sk_abcdef"},
		{"prefix only", TokenPrefix},
		{"invalid encoding", TokenPrefix + "not base64!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tg.ValidateTokenFormat(tt.token))
		})
	}
}

func TestTokenManager_ValidateToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	user := &User{ID: 10, OrganizationID: 1, Username: "alice", Role: RoleEditor, IsActive: true}

	newManager := func(users ...*User) (*TokenManager, *memoryTokenStore) {
		store := newMemoryTokenStore(users...)
		tm := NewTokenManager(store)
		tm.now = func() time.Time { return now }
		return tm, store
	}

	t.Run("valid token resolves owner and records use", func(t *testing.T) {
		tm, store := newManager(user)
		apiToken, plaintext, err := tm.CreateToken(ctx, user, "ci", nil)
		require.NoError(t, err)
		assert.Equal(t, TenantID(1), apiToken.OrganizationID)

		authCtx, err := tm.ValidateToken(ctx, plaintext)
		require.NoError(t, err)
		assert.Equal(t, user.ID, authCtx.User.ID)
		assert.Equal(t, RoleEditor, authCtx.User.Role)
		require.NotNil(t, authCtx.Token.LastUsedAt)
		assert.Equal(t, now, store.touched[apiToken.ID])
	})

	t.Run("malformed token", func(t *testing.T) {
		tm, _ := newManager(user)
		_, err := tm.ValidateToken(ctx, "Bearer nonsense")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown token", func(t *testing.T) {
		tm, _ := newManager(user)
		token, _, _, err := NewTokenGenerator().GenerateToken()
		require.NoError(t, err)
		_, err = tm.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		tm, _ := newManager(user)
		expired := now.Add(-time.Minute)
		_, plaintext, err := tm.CreateToken(ctx, user, "old", &expired)
		require.NoError(t, err)
		_, err = tm.ValidateToken(ctx, plaintext)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("revoked token", func(t *testing.T) {
		tm, _ := newManager(user)
		apiToken, plaintext, err := tm.CreateToken(ctx, user, "revoked", nil)
		require.NoError(t, err)
		require.NoError(t, tm.RevokeToken(ctx, apiToken.ID))
		_, err = tm.ValidateToken(ctx, plaintext)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("owner deleted", func(t *testing.T) {
		tm, store := newManager(user)
		_, plaintext, err := tm.CreateToken(ctx, user, "orphan", nil)
		require.NoError(t, err)
		delete(store.users, user.ID)
		_, err = tm.ValidateToken(ctx, plaintext)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("owner moved to another organization", func(t *testing.T) {
		moved := *user
		tm, store := newManager(&moved)
		_, plaintext, err := tm.CreateToken(ctx, &moved, "stale", nil)
		require.NoError(t, err)
		store.users[moved.ID] = &User{ID: moved.ID, OrganizationID: 2, Role: RoleAdmin, IsActive: true}
		_, err = tm.ValidateToken(ctx, plaintext)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("inactive owner", func(t *testing.T) {
		inactive := &User{ID: 11, OrganizationID: 1, Role: RoleAdmin, IsActive: false}
		tm, _ := newManager(inactive)
		_, plaintext, err := tm.CreateToken(ctx, inactive, "disabled", nil)
		require.NoError(t, err)
		_, err = tm.ValidateToken(ctx, plaintext)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("store failure is not reported as invalid token", func(t *testing.T) {
		tm, store := newManager(user)
		_, plaintext, err := tm.CreateToken(ctx, user, "ci", nil)
		require.NoError(t, err)
		store.lookupErr = errors.New("connection reset")
		_, err = tm.ValidateToken(ctx, plaintext)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenManager_CleanupExpiredTokens(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	user := &User{ID: 1, OrganizationID: 1, Role: RoleViewer, IsActive: true}

	store := newMemoryTokenStore(user)
	tm := NewTokenManager(store)
	tm.now = func() time.Time { return now }

	expired := now.Add(-time.Hour)
	live := now.Add(time.Hour)
	_, _, err := tm.CreateToken(ctx, user, "expired", &expired)
	require.NoError(t, err)
	_, _, err = tm.CreateToken(ctx, user, "live", &live)
	require.NoError(t, err)
	_, _, err = tm.CreateToken(ctx, user, "forever", nil)
	require.NoError(t, err)

	removed, err := tm.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Len(t, store.tokens, 2)
}

func TestTokenManager_CreateTokenRequiresUser(t *testing.T) {
	tm := NewTokenManager(newMemoryTokenStore())
	_, _, err := tm.CreateToken(context.Background(), nil, "x", nil)
	assert.Error(t, err)
}

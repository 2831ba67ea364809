package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3" // SQLite driver for testing
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	organization_id INTEGER NOT NULL,
	username TEXT NOT NULL,
	email TEXT,
	role TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE api_tokens (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	organization_id INTEGER NOT NULL,
	token_hash TEXT NOT NULL UNIQUE,
	token_prefix TEXT NOT NULL,
	name TEXT NOT NULL,
	expires_at TIMESTAMP,
	last_used_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	revoked_at TIMESTAMP
);
`

func setupSQLiteStore(t *testing.T) (*SQLStore, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return NewSQLStore(db), db
}

func TestSQLStore_TokenLifecycle(t *testing.T) {
	ctx := context.Background()
	store, db := setupSQLiteStore(t)
	now := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

	_, err := db.Exec(`INSERT INTO users (id, organization_id, username, email, role, is_active, created_at)
		VALUES (1, 42, 'alice', 'alice@example.com', 'admin', 1, ?)`, now)
	require.NoError(t, err)

	tm := NewTokenManager(store)
	tm.now = func() time.Time { return now }

	user, err := store.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, TenantID(42), user.OrganizationID)
	assert.Equal(t, RoleAdmin, user.Role)
	assert.Equal(t, "alice@example.com", user.Email)

	apiToken, plaintext, err := tm.CreateToken(ctx, user, "deploy", nil)
	require.NoError(t, err)
	assert.NotZero(t, apiToken.ID)

	authCtx, err := tm.ValidateToken(ctx, plaintext)
	require.NoError(t, err)
	assert.Equal(t, TenantID(42), authCtx.Tenant())
	assert.True(t, authCtx.HasRole(RoleAdmin))

	stored, err := store.GetTokenByHash(ctx, apiToken.TokenHash)
	require.NoError(t, err)
	require.NotNil(t, stored.LastUsedAt)
	assert.True(t, now.Equal(*stored.LastUsedAt))
	assert.Nil(t, stored.ExpiresAt)

	require.NoError(t, tm.RevokeToken(ctx, apiToken.ID))
	_, err = tm.ValidateToken(ctx, plaintext)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// revoking twice reports the token as unknown
	assert.ErrorIs(t, tm.RevokeToken(ctx, apiToken.ID), ErrInvalidToken)
}

func TestSQLStore_CleanupExpiredTokens(t *testing.T) {
	ctx := context.Background()
	store, db := setupSQLiteStore(t)
	now := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

	_, err := db.Exec(`INSERT INTO users (id, organization_id, username, role, is_active, created_at)
		VALUES (1, 1, 'bob', 'viewer', 1, ?)`, now)
	require.NoError(t, err)

	expired := now.Add(-time.Hour)
	live := now.Add(time.Hour)
	for i, exp := range []*time.Time{&expired, &live, nil} {
		err := store.CreateToken(ctx, &APIToken{
			UserID:         1,
			OrganizationID: 1,
			TokenHash:      string(rune('a' + i)),
			TokenPrefix:    "tg_test",
			Name:           "token",
			ExpiresAt:      exp,
			CreatedAt:      now,
		})
		require.NoError(t, err)
	}

	removed, err := store.CleanupExpiredTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	var remaining int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM api_tokens`).Scan(&remaining))
	assert.Equal(t, 2, remaining)
}

func TestSQLStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := setupSQLiteStore(t)

	_, err := store.GetTokenByHash(ctx, "missing")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = store.GetUser(ctx, 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSQLStore_UnknownRoleIsNotPromoted(t *testing.T) {
	ctx := context.Background()
	store, db := setupSQLiteStore(t)

	_, err := db.Exec(`INSERT INTO users (id, organization_id, username, role, is_active, created_at)
		VALUES (5, 1, 'mallory', 'owner', 1, ?)`, time.Now().UTC())
	require.NoError(t, err)

	user, err := store.GetUser(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, RoleUnknown, user.Role)
	assert.False(t, user.Role.AtLeast(RoleViewer))
}

func TestSQLStore_DatabaseErrors(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewSQLStore(db)

	t.Run("get token", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM api_tokens`).
			WithArgs("hash").
			WillReturnError(errors.New("connection refused"))

		_, err := store.GetTokenByHash(ctx, "hash")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidToken)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("get user", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM users`).
			WithArgs(int64(3)).
			WillReturnError(errors.New("timeout"))

		_, err := store.GetUser(ctx, 3)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("touch token", func(t *testing.T) {
		mock.ExpectExec(`UPDATE api_tokens SET last_used_at`).
			WillReturnError(errors.New("read only"))

		err := store.TouchToken(ctx, 1, time.Now())
		assert.Error(t, err)
	})

	t.Run("cleanup", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM api_tokens`).
			WillReturnResult(sqlmock.NewResult(0, 4))

		removed, err := store.CleanupExpiredTokens(ctx, time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(4), removed)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

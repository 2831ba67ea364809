package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLStore implements TokenStore on top of database/sql.
// Queries use $N placeholders and run unchanged on PostgreSQL and SQLite.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a new SQLStore
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// CreateToken inserts a token record and fills its ID
func (s *SQLStore) CreateToken(ctx context.Context, token *APIToken) error {
	query := `
		INSERT INTO api_tokens (user_id, organization_id, token_hash, token_prefix, name, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var expiresAt sql.NullTime
	if token.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *token.ExpiresAt, Valid: true}
	}

	err := s.db.QueryRowContext(ctx, query,
		token.UserID, int64(token.OrganizationID), token.TokenHash, token.TokenPrefix,
		token.Name, expiresAt, token.CreatedAt,
	).Scan(&token.ID)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// GetTokenByHash looks a token up by its SHA256 hash
func (s *SQLStore) GetTokenByHash(ctx context.Context, hash string) (*APIToken, error) {
	query := `
		SELECT id, user_id, organization_id, token_hash, token_prefix, name,
		       expires_at, last_used_at, created_at, revoked_at
		FROM api_tokens
		WHERE token_hash = $1
	`
	var (
		token                            APIToken
		orgID                            int64
		expiresAt, lastUsedAt, revokedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, hash).Scan(
		&token.ID, &token.UserID, &orgID, &token.TokenHash, &token.TokenPrefix, &token.Name,
		&expiresAt, &lastUsedAt, &token.CreatedAt, &revokedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	token.OrganizationID = TenantID(orgID)
	token.ExpiresAt = nullTimePtr(expiresAt)
	token.LastUsedAt = nullTimePtr(lastUsedAt)
	token.RevokedAt = nullTimePtr(revokedAt)
	return &token, nil
}

// TouchToken records the last use of a token
func (s *SQLStore) TouchToken(ctx context.Context, id int64, usedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE api_tokens SET last_used_at = $1 WHERE id = $2`, usedAt, id)
	if err != nil {
		return fmt.Errorf("failed to touch token: %w", err)
	}
	return nil
}

// RevokeToken marks a token as revoked
func (s *SQLStore) RevokeToken(ctx context.Context, id int64, revokedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE api_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`, revokedAt, id)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if rows == 0 {
		return ErrInvalidToken
	}
	return nil
}

// CleanupExpiredTokens deletes tokens whose expiry has passed
func (s *SQLStore) CleanupExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM api_tokens WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up tokens: %w", err)
	}
	return result.RowsAffected()
}

// GetUser loads a user together with its organization role
func (s *SQLStore) GetUser(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, organization_id, username, email, role, is_active, created_at
		FROM users
		WHERE id = $1
	`
	var (
		user  User
		orgID int64
		email sql.NullString
		role  string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &orgID, &user.Username, &email, &role, &user.IsActive, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.OrganizationID = TenantID(orgID)
	user.Email = email.String
	user.Role = ParseRole(role)
	return &user, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

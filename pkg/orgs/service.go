package orgs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/teamgate/pkg/auth"
)

// Service defines organization persistence
type Service interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id auth.TenantID) (*Organization, error)
	UpdateOrganization(ctx context.Context, id auth.TenantID, updates *UpdateOrgRequest) (*Organization, error)
}

// PostgresService implements the Service interface using PostgreSQL.
// Queries are plain SQL with $N placeholders and also run on SQLite.
type PostgresService struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db, now: time.Now}
}

// CreateOrganization creates a new organization
func (s *PostgresService) CreateOrganization(ctx context.Context, org *Organization) error {
	if org.Slug == "" {
		org.Slug = generateSlug(org.Name)
	}
	if org.PublicPrimaryKey == "" {
		org.PublicPrimaryKey = generatePublicPrimaryKey()
	}
	now := s.now().UTC().Truncate(time.Second)
	org.CreatedAt = now
	org.UpdatedAt = now

	settingsJSON, err := marshalSettings(org.Settings)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO organizations (public_primary_key, name, slug, stack_slug, is_resolution_note_required, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var id int64
	err = s.db.QueryRowContext(ctx, query, org.PublicPrimaryKey, org.Name, org.Slug, org.StackSlug,
		org.IsResolutionNoteRequired, settingsJSON, org.CreatedAt, org.UpdatedAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	org.ID = auth.TenantID(id)

	return nil
}

// GetOrganization retrieves an organization by ID
func (s *PostgresService) GetOrganization(ctx context.Context, id auth.TenantID) (*Organization, error) {
	query := `
		SELECT id, public_primary_key, name, slug, stack_slug, is_resolution_note_required,
		       settings, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	org := &Organization{}
	var (
		orgID        int64
		stackSlug    sql.NullString
		settingsJSON []byte
	)
	err := s.db.QueryRowContext(ctx, query, int64(id)).Scan(
		&orgID, &org.PublicPrimaryKey, &org.Name, &org.Slug, &stackSlug,
		&org.IsResolutionNoteRequired, &settingsJSON, &org.CreatedAt, &org.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	org.ID = auth.TenantID(orgID)
	org.StackSlug = stackSlug.String
	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &org.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}

	return org, nil
}

// UpdateOrganization applies a partial update and returns the stored organization
func (s *PostgresService) UpdateOrganization(ctx context.Context, id auth.TenantID, updates *UpdateOrgRequest) (*Organization, error) {
	if err := updates.Validate(); err != nil {
		return nil, err
	}
	if updates.Empty() {
		return s.GetOrganization(ctx, id)
	}

	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	if updates.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argPos))
		args = append(args, strings.TrimSpace(*updates.Name))
		argPos++
	}
	if updates.IsResolutionNoteRequired != nil {
		setClauses = append(setClauses, fmt.Sprintf("is_resolution_note_required = $%d", argPos))
		args = append(args, *updates.IsResolutionNoteRequired)
		argPos++
	}
	if updates.Settings != nil {
		settingsJSON, err := marshalSettings(updates.Settings)
		if err != nil {
			return nil, err
		}
		setClauses = append(setClauses, fmt.Sprintf("settings = $%d", argPos))
		args = append(args, settingsJSON)
		argPos++
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, s.now().UTC().Truncate(time.Second))
	argPos++

	args = append(args, int64(id))
	query := fmt.Sprintf("UPDATE organizations SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argPos)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return s.GetOrganization(ctx, id)
}

func marshalSettings(settings map[string]any) ([]byte, error) {
	if settings == nil {
		settings = map[string]any{}
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return data, nil
}

// generateSlug derives a URL slug from a name
func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, slug)
	return slug
}

// generatePublicPrimaryKey returns an opaque public identifier such as OAB12CD34EF56
func generatePublicPrimaryKey() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "O" + id[:12]
}

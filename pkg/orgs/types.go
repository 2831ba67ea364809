package orgs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/teamgate/pkg/auth"
)

var (
	// ErrNotFound is returned when an organization does not exist
	ErrNotFound = errors.New("organization not found")

	// ErrInvalidUpdate is returned when an update request fails validation
	ErrInvalidUpdate = errors.New("invalid organization update")
)

// MaxNameLength is the longest accepted organization name
const MaxNameLength = 300

// Organization is a tenant
type Organization struct {
	ID                       auth.TenantID  `json:"id"`
	PublicPrimaryKey         string         `json:"pk"`
	Name                     string         `json:"name"`
	Slug                     string         `json:"slug"`
	StackSlug                string         `json:"stack_slug,omitempty"`
	IsResolutionNoteRequired bool           `json:"is_resolution_note_required"`
	Settings                 map[string]any `json:"settings,omitempty"`
	CreatedAt                time.Time      `json:"created_at"`
	UpdatedAt                time.Time      `json:"updated_at"`
}

// UpdateOrgRequest is a partial update of the current organization.
// Nil fields are left unchanged.
type UpdateOrgRequest struct {
	Name                     *string        `json:"name,omitempty"`
	IsResolutionNoteRequired *bool          `json:"is_resolution_note_required,omitempty"`
	Settings                 map[string]any `json:"settings,omitempty"`
}

// Validate checks the request fields
func (r *UpdateOrgRequest) Validate() error {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" {
			return fmt.Errorf("%w: name cannot be empty", ErrInvalidUpdate)
		}
		if len(name) > MaxNameLength {
			return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidUpdate, MaxNameLength)
		}
	}
	return nil
}

// Empty reports whether the request changes nothing
func (r *UpdateOrgRequest) Empty() bool {
	return r.Name == nil && r.IsResolutionNoteRequired == nil && r.Settings == nil
}

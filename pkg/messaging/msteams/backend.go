// Package msteams implements the Microsoft Teams messaging backend.
// It is an extra backend, visible only while extra_messaging_backends_enabled is on.
package msteams

import (
	"context"
	"fmt"

	"github.com/platinummonkey/teamgate/pkg/config"
	"github.com/platinummonkey/teamgate/pkg/orgs"
	"github.com/platinummonkey/teamgate/pkg/verification"
)

// Key identifies the Microsoft Teams backend
const Key = "msteams"

// Backend issues Microsoft Teams channel verification codes
type Backend struct {
	appID string
	codes verification.Issuer
}

// New creates the Microsoft Teams backend
func New(cfg config.MessagingConfig, codes verification.Issuer) *Backend {
	return &Backend{appID: cfg.MSTeamsAppID, codes: codes}
}

func (b *Backend) Key() string {
	return Key
}

// Configured reports whether an app ID is set
func (b *Backend) Configured() bool {
	return b.appID != ""
}

// GenerateChannelVerificationCode issues a code that links a Teams channel to org
func (b *Backend) GenerateChannelVerificationCode(ctx context.Context, org *orgs.Organization) (string, error) {
	if org == nil {
		return "", fmt.Errorf("organization is required")
	}
	code, err := b.codes.Issue(ctx, verification.Subject{
		Backend: Key,
		Kind:    verification.KindChannel,
		OrgID:   org.ID,
	})
	if err != nil {
		return "", fmt.Errorf("msteams channel code: %w", err)
	}
	return code, nil
}

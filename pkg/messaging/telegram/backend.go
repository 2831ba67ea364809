// Package telegram implements the Telegram messaging backend.
//
// Telegram is the default backend: it is always visible and it is the only
// backend that also links individual user accounts.
package telegram

import (
	"context"
	"fmt"

	"github.com/platinummonkey/teamgate/pkg/auth"
	"github.com/platinummonkey/teamgate/pkg/config"
	"github.com/platinummonkey/teamgate/pkg/orgs"
	"github.com/platinummonkey/teamgate/pkg/verification"
)

// Key identifies the Telegram backend
const Key = "telegram"

// Backend issues Telegram verification codes
type Backend struct {
	botToken    string
	botUsername string
	codes       verification.Issuer
}

// New creates the Telegram backend
func New(cfg config.MessagingConfig, codes verification.Issuer) *Backend {
	return &Backend{
		botToken:    cfg.TelegramBotToken,
		botUsername: cfg.TelegramBotUsername,
		codes:       codes,
	}
}

func (b *Backend) Key() string {
	return Key
}

// Configured reports whether a bot token is set
func (b *Backend) Configured() bool {
	return b.botToken != ""
}

// BotUsername returns the bot users send verification codes to
func (b *Backend) BotUsername() string {
	return b.botUsername
}

// GenerateChannelVerificationCode issues a code that links a Telegram channel to org
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
		return "", fmt.Errorf("telegram channel code: %w", err)
	}
	return code, nil
}

// GenerateUserVerificationCode issues a code that links user's Telegram account
func (b *Backend) GenerateUserVerificationCode(ctx context.Context, org *orgs.Organization, user *auth.User) (string, error) {
	if org == nil || user == nil {
		return "", fmt.Errorf("organization and user are required")
	}
	code, err := b.codes.Issue(ctx, verification.Subject{
		Backend: Key,
		Kind:    verification.KindUser,
		OrgID:   org.ID,
		UserID:  user.ID,
	})
	if err != nil {
		return "", fmt.Errorf("telegram user code: %w", err)
	}
	return code, nil
}

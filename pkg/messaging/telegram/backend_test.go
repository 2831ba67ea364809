package telegram

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/teamgate/pkg/auth"
	"github.com/platinummonkey/teamgate/pkg/config"
	"github.com/platinummonkey/teamgate/pkg/orgs"
	"github.com/platinummonkey/teamgate/pkg/verification"
)

func setupBackend(t *testing.T, cfg config.MessagingConfig) (*Backend, *verification.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := verification.NewStore(client, time.Hour)
	return New(cfg, store), store
}

func TestBackend_ChannelCode(t *testing.T) {
	ctx := context.Background()
	backend, store := setupBackend(t, config.MessagingConfig{})
	org := &orgs.Organization{ID: 12}

	code, err := backend.GenerateChannelVerificationCode(ctx, org)
	require.NoError(t, err)
	assert.NotEmpty(t, code)

	subject, err := store.Resolve(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, Key, subject.Backend)
	assert.Equal(t, verification.KindChannel, subject.Kind)
	assert.Equal(t, org.ID, subject.OrgID)
}

func TestBackend_UserCode(t *testing.T) {
	ctx := context.Background()
	backend, store := setupBackend(t, config.MessagingConfig{})
	org := &orgs.Organization{ID: 12}
	user := &auth.User{ID: 99, OrganizationID: 12}

	code, err := backend.GenerateUserVerificationCode(ctx, org, user)
	require.NoError(t, err)

	subject, err := store.Resolve(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, verification.KindUser, subject.Kind)
	assert.EqualValues(t, 99, subject.UserID)

	_, err = backend.GenerateUserVerificationCode(ctx, org, nil)
	assert.Error(t, err)
}

func TestBackend_Configured(t *testing.T) {
	backend, _ := setupBackend(t, config.MessagingConfig{})
	assert.False(t, backend.Configured())

	backend, _ = setupBackend(t, config.MessagingConfig{TelegramBotToken: "123:abc", TelegramBotUsername: "teamgate_bot"})
	assert.True(t, backend.Configured())
	assert.Equal(t, "teamgate_bot", backend.BotUsername())
	assert.Equal(t, "telegram", backend.Key())
}

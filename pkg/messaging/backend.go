package messaging

import (
	"context"

	"github.com/platinummonkey/teamgate/pkg/auth"
	"github.com/platinummonkey/teamgate/pkg/orgs"
)

// Backend is a messaging integration an organization channel can be linked to
type Backend interface {
	// Key is the stable identifier clients select the backend by
	Key() string

	// GenerateChannelVerificationCode issues a code linking an organization
	// channel to this backend
	GenerateChannelVerificationCode(ctx context.Context, org *orgs.Organization) (string, error)
}

// OwnVerificationCoder is implemented by backends that also link individual
// user accounts
type OwnVerificationCoder interface {
	GenerateUserVerificationCode(ctx context.Context, org *orgs.Organization, user *auth.User) (string, error)
}

// Configurable is implemented by backends that need credentials to operate
type Configurable interface {
	Configured() bool
}

// Descriptor registers a backend and its default visibility.
// Backends that are not DefaultEnabled are only visible while the
// extra_messaging_backends_enabled flag is on.
type Descriptor struct {
	Key            string
	DefaultEnabled bool
	Backend        Backend
}

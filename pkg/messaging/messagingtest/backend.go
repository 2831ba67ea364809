// Package messagingtest provides a recording messaging backend for tests.
package messagingtest

import (
	"context"
	"sync"

	"github.com/platinummonkey/teamgate/pkg/auth"
	"github.com/platinummonkey/teamgate/pkg/orgs"
)

// Key is the key the test backend registers under
const Key = "TESTONLY"

// Call records one code request
type Call struct {
	Org  *orgs.Organization
	User *auth.User
}

// Backend returns a fixed code and records every call
type Backend struct {
	key  string
	code string
	err  error

	mu    sync.Mutex
	calls []Call
}

// New creates a backend under Key that returns code
func New(code string) *Backend {
	return &Backend{key: Key, code: code}
}

// NewWithKey creates a backend with a custom key
func NewWithKey(key, code string) *Backend {
	return &Backend{key: key, code: code}
}

// FailWith makes subsequent calls return err
func (b *Backend) FailWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func (b *Backend) Key() string {
	return b.key
}

func (b *Backend) GenerateChannelVerificationCode(ctx context.Context, org *orgs.Organization) (string, error) {
	return b.record(Call{Org: org})
}

func (b *Backend) GenerateUserVerificationCode(ctx context.Context, org *orgs.Organization, user *auth.User) (string, error) {
	return b.record(Call{Org: org, User: user})
}

func (b *Backend) record(call Call) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
	if b.err != nil {
		return "", b.err
	}
	return b.code, nil
}

// Calls returns a copy of the recorded calls
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

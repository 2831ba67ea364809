package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/platinummonkey/teamgate/pkg/auth"
)

// ErrCodeNotFound is returned when a code is unknown or expired
var ErrCodeNotFound = errors.New("verification code not found")

// DefaultTTL is used when a store is created with a non-positive TTL
const DefaultTTL = 24 * time.Hour

const keyPrefix = "teamgate:verification"

// Kind distinguishes organization channel codes from per-user codes
type Kind string

const (
	// KindChannel codes connect an organization channel to a backend
	KindChannel Kind = "channel"
	// KindUser codes connect a single user's account to a backend
	KindUser Kind = "user"
)

// Subject identifies what a verification code was issued for
type Subject struct {
	Backend  string        `json:"backend"`
	Kind     Kind          `json:"kind"`
	OrgID    auth.TenantID `json:"org_id"`
	UserID   int64         `json:"user_id,omitempty"`
	IssuedAt time.Time     `json:"issued_at"`
}

func (s Subject) validate() error {
	if s.Backend == "" {
		return fmt.Errorf("backend is required")
	}
	switch s.Kind {
	case KindChannel:
		if s.UserID != 0 {
			return fmt.Errorf("channel codes are not user scoped")
		}
	case KindUser:
		if s.UserID == 0 {
			return fmt.Errorf("user codes require a user")
		}
	default:
		return fmt.Errorf("unknown code kind %q", s.Kind)
	}
	if s.OrgID == 0 {
		return fmt.Errorf("organization is required")
	}
	return nil
}

// slotKey addresses the single live code for a subject
func (s Subject) slotKey() string {
	parts := []string{keyPrefix, "slot", s.Backend, string(s.Kind), fmt.Sprintf("%d", s.OrgID)}
	if s.Kind == KindUser {
		parts = append(parts, fmt.Sprintf("%d", s.UserID))
	}
	return strings.Join(parts, ":")
}

const codeKeyPrefix = keyPrefix + ":code:"

func codeKey(code string) string {
	return codeKeyPrefix + code
}

// issueScript swaps the live code of a slot in one step.
// KEYS[1] = slot key
// KEYS[2] = new code key
// ARGV[1] = new code
// ARGV[2] = subject payload
// ARGV[3] = ttl in milliseconds
// ARGV[4] = code key prefix
var issueScript = redis.NewScript(`
	local previous = redis.call('GET', KEYS[1])
	if previous then
		redis.call('DEL', ARGV[4] .. previous)
	end
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
	return 1
`)

// Store keeps verification codes in Redis. Each subject has at most one live
// code; issuing a new one invalidates the previous code.
type Store struct {
	client  *redis.Client
	ttl     time.Duration
	now     func() time.Time
	newCode func() string
}

// NewStore creates a Redis backed code store
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		client:  client,
		ttl:     ttl,
		now:     time.Now,
		newCode: uuid.NewString,
	}
}

// TTL returns how long issued codes stay valid
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Issue creates a fresh code for subject, replacing any previous one
func (s *Store) Issue(ctx context.Context, subject Subject) (string, error) {
	if err := subject.validate(); err != nil {
		return "", fmt.Errorf("invalid verification subject: %w", err)
	}

	subject.IssuedAt = s.now().UTC()
	payload, err := json.Marshal(subject)
	if err != nil {
		return "", fmt.Errorf("failed to marshal verification subject: %w", err)
	}

	code := s.newCode()
	keys := []string{subject.slotKey(), codeKey(code)}
	if err := issueScript.Run(ctx, s.client, keys, code, payload, s.ttl.Milliseconds(), codeKeyPrefix).Err(); err != nil {
		return "", fmt.Errorf("failed to store verification code: %w", err)
	}

	return code, nil
}

// Resolve returns the subject a live code was issued for
func (s *Store) Resolve(ctx context.Context, code string) (*Subject, error) {
	data, err := s.client.Get(ctx, codeKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read verification code: %w", err)
	}

	var subject Subject
	if err := json.Unmarshal(data, &subject); err != nil {
		return nil, fmt.Errorf("failed to unmarshal verification subject: %w", err)
	}
	return &subject, nil
}

// Issuer issues verification codes
type Issuer interface {
	Issue(ctx context.Context, subject Subject) (string, error)
}

var _ Issuer = (*Store)(nil)

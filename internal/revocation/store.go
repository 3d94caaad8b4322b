package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	TokenPrefix = "revoked_token:"
	ResetPrefix = "used_reset_token:"

	marker = "1"
)

var (
	ErrUnavailable = errors.New("revocation store unavailable")
	ErrEmptyJTI    = errors.New("empty token id")
)

// KeyValueStore is a TTL-aware key/value backend. SetNX must be atomic.
type KeyValueStore interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

type Store struct {
	kv     KeyValueStore
	prefix string
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

func New(kv KeyValueStore, opts ...Option) *Store {
	s := &Store{kv: kv, prefix: TokenPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(jti string) string { return s.prefix + jti }

// Revoke marks jti revoked for ttl. Repeated calls are no-ops; a non-positive ttl
// means the token has already expired and nothing is stored.
func (s *Store) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return ErrEmptyJTI
	}
	if ttl <= 0 {
		return nil
	}
	if _, err := s.kv.SetNX(ctx, s.key(jti), marker, ttl); err != nil {
		return fmt.Errorf("%w: revoke: %w", ErrUnavailable, err)
	}
	return nil
}

func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, ErrEmptyJTI
	}
	ok, err := s.kv.Exists(ctx, s.key(jti))
	if err != nil {
		return false, fmt.Errorf("%w: lookup: %w", ErrUnavailable, err)
	}
	return ok, nil
}

// Consume revokes jti and reports whether this call was the one that did it.
// Concurrent callers racing on the same jti get exactly one true.
func (s *Store) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if jti == "" {
		return false, ErrEmptyJTI
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	first, err := s.kv.SetNX(ctx, s.key(jti), marker, ttl)
	if err != nil {
		return false, fmt.Errorf("%w: consume: %w", ErrUnavailable, err)
	}
	return first, nil
}

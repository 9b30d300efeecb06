// Package kv stores workspace credentials. The OS keyring is the default;
// a Valkey/Redis server serves headless hosts.
package kv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store defines a minimal key-value interface for token storage.
type Store interface {
	// Set stores a value. A zero TTL never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns ErrNotFound when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error

	// SetNX sets a value only if the key doesn't exist.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	Close() error
}

// KeyringScheme selects the OS keyring in Open.
const KeyringScheme = "keyring"

// Open picks a store from uri: "" or "keyring" uses the OS keyring,
// "redis://" and "rediss://" URLs use Valkey/Redis.
func Open(ctx context.Context, uri string) (Store, error) {
	switch {
	case uri == "" || uri == KeyringScheme:
		return NewKeyringStore(DefaultService), nil
	case strings.HasPrefix(uri, "redis://") || strings.HasPrefix(uri, "rediss://"):
		opts, err := redis.ParseURL(uri)
		if err != nil {
			return nil, fmt.Errorf("parsing token store url: %w", err)
		}
		return NewValkeyStore(ctx, ValkeyConfig{Addr: opts.Addr, Username: opts.Username, Password: opts.Password, DB: opts.DB, TLS: opts.TLSConfig != nil})
	default:
		return nil, fmt.Errorf("unsupported token store %q", uri)
	}
}

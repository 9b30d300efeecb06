package kv

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keyring service name for photon credentials.
const DefaultService = "photon"

// KeyringStore keeps values in the OS keyring. The keyring has no expiry,
// so a TTL is stored with the value and enforced on read.
type KeyringStore struct {
	service string
	now     func() time.Time
}

func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service, now: time.Now}
}

type keyringValue struct {
	Value     []byte `json:"value"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

func (s *KeyringStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	v := keyringValue{Value: value}
	if ttl > 0 {
		v.ExpiresAt = s.now().Add(ttl).UnixMilli()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return keyring.Set(s.service, key, string(data))
}

func (s *KeyringStore) Get(_ context.Context, key string) ([]byte, error) {
	raw, err := keyring.Get(s.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var v keyringValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	if v.ExpiresAt > 0 && s.now().UnixMilli() >= v.ExpiresAt {
		keyring.Delete(s.service, key)
		return nil, ErrNotFound
	}
	return v.Value, nil
}

func (s *KeyringStore) Delete(_ context.Context, key string) error {
	if err := keyring.Delete(s.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

func (s *KeyringStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if _, err := s.Get(ctx, key); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	return true, s.Set(ctx, key, value, ttl)
}

func (s *KeyringStore) Close() error { return nil }

var _ Store = (*KeyringStore)(nil)

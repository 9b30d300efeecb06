package workspace

import (
	"context"
	"errors"
	"time"

	"github.com/quatton/photon/pkg/kv"
	"github.com/quatton/photon/pkg/qerr"
)

const (
	tokenSuffix    = ":token"
	s3SecretSuffix = ":s3-secret"
)

// Credentials are the secrets of one workspace.
type Credentials struct {
	Token       string
	S3SecretKey string
}

// SaveCredentials stores creds. A JWT token's entry expires with it.
func SaveCredentials(ctx context.Context, store kv.Store, cfg *Config, creds Credentials, now time.Time) error {
	key := cfg.Key()
	if creds.Token != "" {
		var ttl time.Duration
		if uc, err := UserFromToken(creds.Token); err == nil && uc.Exp > 0 {
			ttl = time.Unix(uc.Exp, 0).Sub(now)
			if ttl <= 0 {
				return qerr.Newf(qerr.CodeExpiredToken, "token is already expired")
			}
		}
		if err := store.Set(ctx, key+tokenSuffix, []byte(creds.Token), ttl); err != nil {
			return err
		}
	}
	if creds.S3SecretKey != "" {
		if err := store.Set(ctx, key+s3SecretSuffix, []byte(creds.S3SecretKey), 0); err != nil {
			return err
		}
	}
	return nil
}

// LoadCredentials returns the stored secrets, failing with an auth error
// when the workspace needs a token and none is stored.
func LoadCredentials(ctx context.Context, store kv.Store, cfg *Config, now time.Time) (Credentials, error) {
	var creds Credentials
	key := cfg.Key()

	token, err := store.Get(ctx, key+tokenSuffix)
	switch {
	case errors.Is(err, kv.ErrNotFound):
	case err != nil:
		return creds, err
	default:
		creds.Token = string(token)
	}

	secret, err := store.Get(ctx, key+s3SecretSuffix)
	switch {
	case errors.Is(err, kv.ErrNotFound):
	case err != nil:
		return creds, err
	default:
		creds.S3SecretKey = string(secret)
	}

	if cfg.Backend == BackendPlatform {
		if creds.Token == "" {
			return creds, qerr.Newf(qerr.CodeAuth, "not logged in to %s, run `photon workspace login`", cfg.URL)
		}
		if err := CheckToken(creds.Token, now); err != nil {
			return creds, err
		}
	}
	return creds, nil
}

func DeleteCredentials(ctx context.Context, store kv.Store, cfg *Config) error {
	key := cfg.Key()
	if err := store.Delete(ctx, key+tokenSuffix); err != nil {
		return err
	}
	return store.Delete(ctx, key+s3SecretSuffix)
}

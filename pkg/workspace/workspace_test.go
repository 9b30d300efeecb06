package workspace

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/quatton/photon/pkg/kv"
	"github.com/quatton/photon/pkg/qerr"
	"github.com/zalando/go-keyring"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func TestLoadMissingIsUnconfigured(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Configured() {
		t.Errorf("expected unconfigured workspace, got %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".photon", "config.yaml")
	in := &Config{
		Name:      "lab",
		Backend:   BackendCluster,
		Namespace: "ml",
		S3:        S3Config{Endpoint: "minio:9000", Bucket: "photons", Region: "us-east-1", AccessKey: "minio"},
	}
	if err := in.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !out.Configured() || out.Backend != BackendCluster || out.S3.Bucket != "photons" || out.Namespace != "ml" {
		t.Errorf("unexpected config: %+v", out)
	}
	if err := out.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}

	if err := Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := Remove(path); err != nil {
		t.Errorf("removing twice must succeed, got %v", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	(&Config{Backend: BackendPlatform, URL: "https://a.example.com"}).Save(path)
	t.Setenv("PHOTON_WORKSPACE_URL", "https://b.example.com/")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.URL != "https://b.example.com" {
		t.Errorf("expected env override, got %s", cfg.URL)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"unknown backend", Config{Backend: "ftp"}},
		{"platform without url", Config{Backend: BackendPlatform}},
		{"cluster without bucket", Config{Backend: BackendCluster, S3: S3Config{Endpoint: "x"}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := c.cfg.Validate(); !qerr.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUserFromToken(t *testing.T) {
	tok := signed(t, jwt.MapClaims{"sub": float64(42), "login": "alice", "email": "a@example.com", "iat": 1000, "exp": 2000})
	uc, err := UserFromToken(tok)
	if err != nil {
		t.Fatalf("UserFromToken failed: %v", err)
	}
	if uc.ID != "42" || uc.Login != "alice" || uc.Iat != 1000 || uc.Exp != 2000 {
		t.Errorf("unexpected claims: %+v", uc)
	}
}

func TestCheckToken(t *testing.T) {
	now := time.Unix(5000, 0)
	if err := CheckToken(signed(t, jwt.MapClaims{"exp": 4000}), now); !qerr.IsCode(err, qerr.CodeExpiredToken) {
		t.Errorf("expected expired token, got %v", err)
	}
	if err := CheckToken(signed(t, jwt.MapClaims{"exp": 6000}), now); err != nil {
		t.Errorf("expected valid token, got %v", err)
	}
	if err := CheckToken("opaque-token", now); err != nil {
		t.Errorf("opaque tokens must pass, got %v", err)
	}
}

func TestCredentials(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	store := kv.NewKeyringStore("photon-test")
	cfg := &Config{Backend: BackendPlatform, URL: "https://API.example.com/"}
	now := time.Now()

	if _, err := LoadCredentials(ctx, store, cfg, now); !qerr.IsCode(err, qerr.CodeAuth) {
		t.Fatalf("expected auth error before login, got %v", err)
	}

	tok := signed(t, jwt.MapClaims{"sub": "1", "exp": now.Add(time.Hour).Unix()})
	if err := SaveCredentials(ctx, store, cfg, Credentials{Token: tok}, now); err != nil {
		t.Fatalf("SaveCredentials failed: %v", err)
	}
	creds, err := LoadCredentials(ctx, store, cfg, now)
	if err != nil || creds.Token != tok {
		t.Fatalf("LoadCredentials: %v %+v", err, creds)
	}

	expired := signed(t, jwt.MapClaims{"exp": now.Add(-time.Hour).Unix()})
	if err := SaveCredentials(ctx, store, cfg, Credentials{Token: expired}, now); !qerr.IsCode(err, qerr.CodeExpiredToken) {
		t.Errorf("expected expired token rejected, got %v", err)
	}

	if err := DeleteCredentials(ctx, store, cfg); err != nil {
		t.Fatalf("DeleteCredentials failed: %v", err)
	}
	if _, err := LoadCredentials(ctx, store, cfg, now); !qerr.IsCode(err, qerr.CodeAuth) {
		t.Errorf("expected auth error after logout, got %v", err)
	}
}

func TestClusterCredentialsOptional(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	store := kv.NewKeyringStore("photon-test")
	cfg := &Config{Backend: BackendCluster, S3: S3Config{Endpoint: "minio:9000", Bucket: "photons"}}

	if err := SaveCredentials(ctx, store, cfg, Credentials{S3SecretKey: "s3cret"}, time.Now()); err != nil {
		t.Fatalf("SaveCredentials failed: %v", err)
	}
	creds, err := LoadCredentials(ctx, store, cfg, time.Now())
	if err != nil || creds.S3SecretKey != "s3cret" || creds.Token != "" {
		t.Errorf("unexpected credentials: %+v %v", creds, err)
	}
}

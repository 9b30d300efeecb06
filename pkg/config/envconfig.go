package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/quatton/photon/pkg/qlog"
)

const EnvPrefix = "PHOTON"

// Settings are process-wide and read once at startup.
type Settings struct {
	CacheDir         string `envconfig:"CACHE_DIR"`
	RegistryDSN      string `envconfig:"REGISTRY_DSN"`
	TokenStore       string `envconfig:"TOKEN_STORE" default:"keyring"`
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	PackageInstaller string `envconfig:"PACKAGE_INSTALLER" default:"pip install -r"`
	DefaultImage     string `envconfig:"DEFAULT_IMAGE" default:"ghcr.io/quatton/photon-runtime:latest"`
	MaxPortAttempts  int    `envconfig:"MAX_PORT_ATTEMPTS" default:"100"`
	MaxNameAttempts  int    `envconfig:"MAX_NAME_ATTEMPTS" default:"16"`
	Environment      string `envconfig:"ENVIRONMENT" default:"production"`
}

// Load reads an optional .env file and then PHOTON_* variables.
func Load(log *qlog.Logger) (*Settings, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	} else if log != nil {
		log.Debug("loaded .env file")
	}

	var cfg Settings
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		cfg.CacheDir = filepath.Join(home, ".cache", "photon")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Settings) Validate() error {
	var problems []string

	if c.MaxPortAttempts < 1 {
		problems = append(problems, "  ❌ PHOTON_MAX_PORT_ATTEMPTS must be at least 1")
	}
	if c.MaxNameAttempts < 1 {
		problems = append(problems, "  ❌ PHOTON_MAX_NAME_ATTEMPTS must be at least 1")
	}
	if len(strings.Fields(c.PackageInstaller)) == 0 {
		problems = append(problems, "  ❌ PHOTON_PACKAGE_INSTALLER must name a command")
	}
	if _, err := qlog.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, "  ❌ PHOTON_LOG_LEVEL must be one of debug, info, warn, error")
	}

	if len(problems) > 0 {
		return fmt.Errorf("environment validation failed:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

// ArtifactDir is where packaged photons live.
func (c *Settings) ArtifactDir() string {
	return filepath.Join(c.CacheDir, "photons")
}

// DSN falls back to a SQLite file inside the cache directory.
func (c *Settings) DSN() string {
	if c.RegistryDSN != "" {
		return c.RegistryDSN
	}
	return "file:" + filepath.Join(c.CacheDir, "registry.db") + "?cache=shared"
}

// Installer splits PHOTON_PACKAGE_INSTALLER into argv.
func (c *Settings) Installer() []string {
	return strings.Fields(c.PackageInstaller)
}

func (c *Settings) IsDev() bool {
	return c.Environment == "development"
}

func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// MaskDSN hides the password part of a postgres DSN.
func MaskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	user, pass, ok := strings.Cut(creds, ":")
	if !ok {
		return dsn
	}
	return dsn[:scheme+3] + user + ":" + MaskSecret(pass) + dsn[at:]
}

func (c *Settings) Print(fmtr func(string, ...interface{})) {
	fmtr("📋 Configuration:\n")
	fmtr("  Environment: %s\n", c.Environment)
	fmtr("  Cache dir: %s\n", c.CacheDir)
	fmtr("  Registry: %s\n", MaskDSN(c.DSN()))
	fmtr("  Token store: %s\n", MaskDSN(c.TokenStore))
	fmtr("  Package installer: %s\n", c.PackageInstaller)
	fmtr("  Default image: %s\n", c.DefaultImage)
	fmtr("  Port attempts: %d, name attempts: %d\n", c.MaxPortAttempts, c.MaxNameAttempts)
}

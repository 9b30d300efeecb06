// Package workspace holds the configured remote workspace and its
// credentials.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/quatton/photon/pkg/qerr"
	"github.com/spf13/viper"
)

type Backend string

const (
	BackendPlatform Backend = "platform"
	BackendCluster  Backend = "cluster"
)

const (
	EnvPrefix  = "PHOTON_WORKSPACE"
	ConfigRoot = ".photon"
	ConfigName = "config.yaml"
)

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Config is the workspace the CLI talks to. Secrets are kept in the token
// store, never in this file.
type Config struct {
	Name        string   `mapstructure:"name"`
	Backend     Backend  `mapstructure:"backend"`
	URL         string   `mapstructure:"url"`
	Namespace   string   `mapstructure:"namespace"`
	Image       string   `mapstructure:"image"`
	Kubeconfig  string   `mapstructure:"kubeconfig"`
	KubeContext string   `mapstructure:"kube_context"`
	S3          S3Config `mapstructure:"s3"`

	path string
}

// DefaultPath is ~/.photon/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigRoot, ConfigName), nil
}

// Load reads the workspace file at path; a missing file yields an
// unconfigured workspace. PHOTON_WORKSPACE_* variables override the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, qerr.Newf(qerr.CodeValidation, "reading workspace config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, qerr.Newf(qerr.CodeValidation, "unmarshaling workspace config: %w", err)
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	cfg.path = path
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	for _, key := range []string{"name", "backend", "url", "namespace", "image", "kubeconfig", "kube_context",
		"s3.endpoint", "s3.bucket", "s3.region", "s3.access_key"} {
		v.SetDefault(key, "")
	}
	v.SetDefault("s3.use_ssl", true)
}

// Configured reports whether runs should go to this workspace.
func (c *Config) Configured() bool {
	return c != nil && c.Backend != ""
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPlatform:
		if c.URL == "" {
			return qerr.Newf(qerr.CodeValidation, "platform workspace needs a url")
		}
	case BackendCluster:
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			return qerr.Newf(qerr.CodeValidation, "cluster workspace needs s3 endpoint and bucket")
		}
	default:
		return qerr.Newf(qerr.CodeValidation, "unknown workspace backend %q (want %s or %s)", c.Backend, BackendPlatform, BackendCluster)
	}
	return nil
}

// Key identifies the workspace in the token store.
func (c *Config) Key() string {
	if c.URL != "" {
		return normalizeKey(c.URL)
	}
	if c.Backend == BackendCluster {
		return normalizeKey(fmt.Sprintf("s3://%s/%s", c.S3.Endpoint, c.S3.Bucket))
	}
	return normalizeKey(c.Name)
}

func (c *Config) Path() string {
	return c.path
}

// Save writes c to path, creating the directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	v := viper.New()
	v.Set("name", c.Name)
	v.Set("backend", string(c.Backend))
	v.Set("url", c.URL)
	v.Set("namespace", c.Namespace)
	v.Set("image", c.Image)
	v.Set("kubeconfig", c.Kubeconfig)
	v.Set("kube_context", c.KubeContext)
	v.Set("s3", map[string]any{
		"endpoint":   c.S3.Endpoint,
		"bucket":     c.S3.Bucket,
		"region":     c.S3.Region,
		"access_key": c.S3.AccessKey,
		"use_ssl":    c.S3.UseSSL,
	})
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing workspace config: %w", err)
	}
	c.path = path
	return os.Chmod(path, 0o600)
}

// Remove deletes the workspace file. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func normalizeKey(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "/")
	return strings.ToLower(s)
}

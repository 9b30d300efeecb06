package k8s

import (
	"os"
	"path/filepath"
	"testing"
)

const kubeconfig = `apiVersion: v1
kind: Config
clusters:
- name: dev
  cluster:
    server: https://dev.example.com:6443
- name: prod
  cluster:
    server: https://prod.example.com:6443
users:
- name: me
  user:
    token: abc
contexts:
- name: dev
  context: {cluster: dev, user: me, namespace: photons}
- name: prod
  context: {cluster: prod, user: me}
current-context: dev
`

func TestGetConfigContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte(kubeconfig), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := GetConfig(path, "")
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if cfg.Host != "https://dev.example.com:6443" {
		t.Errorf("expected current context, got %s", cfg.Host)
	}

	cfg, err = GetConfig(path, "prod")
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if cfg.Host != "https://prod.example.com:6443" || cfg.BearerToken != "abc" {
		t.Errorf("expected prod context, got %s", cfg.Host)
	}

	if _, err := GetConfig(path, "staging"); err == nil {
		t.Error("expected unknown context to fail")
	}
}

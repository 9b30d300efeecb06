package cmd

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/quatton/photon/pkg/k8s"
	"github.com/quatton/photon/pkg/kv"
	"github.com/quatton/photon/pkg/qart"
	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/registry"
	"github.com/quatton/photon/pkg/remote"
	"github.com/quatton/photon/pkg/remote/cluster"
	"github.com/quatton/photon/pkg/remote/platform"
	"github.com/quatton/photon/pkg/vcs"
	"github.com/quatton/photon/pkg/workspace"
)

func (a *app) openRegistry(ctx context.Context) (*registry.Registry, error) {
	return registry.Open(ctx, a.settings.ArtifactDir(), a.settings.DSN(), registry.WithLogger(a.log))
}

func (a *app) fetcher() *vcs.Fetcher {
	return vcs.NewFetcher(filepath.Join(a.settings.CacheDir, "vcs"), vcs.WithProgress(os.Stderr))
}

// requireWorkspace fails when no workspace is configured.
func (a *app) requireWorkspace() error {
	if !a.workspace.Configured() {
		return qerr.Newf(qerr.CodeValidation, "no workspace configured: run 'photon workspace login' first")
	}
	return nil
}

// connect builds the remote client for the configured workspace using the
// credentials in the token store.
func (a *app) connect(ctx context.Context) (remote.Client, error) {
	if err := a.requireWorkspace(); err != nil {
		return nil, err
	}
	ws := a.workspace
	if err := ws.Validate(); err != nil {
		return nil, err
	}

	store, err := kv.Open(ctx, a.settings.TokenStore)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	creds, err := workspace.LoadCredentials(ctx, store, ws, time.Now())
	if err != nil {
		return nil, err
	}
	return a.dial(ctx, ws, creds)
}

func (a *app) dial(ctx context.Context, ws *workspace.Config, creds workspace.Credentials) (remote.Client, error) {
	switch ws.Backend {
	case workspace.BackendPlatform:
		return platform.New(ctx, ws.URL, creds.Token)
	case workspace.BackendCluster:
		objects, err := qart.NewS3Store(qart.S3Config{
			Endpoint:  ws.S3.Endpoint,
			AccessKey: ws.S3.AccessKey,
			SecretKey: creds.S3SecretKey,
			Bucket:    ws.S3.Bucket,
			Region:    ws.S3.Region,
			UseSSL:    ws.S3.UseSSL,
		})
		if err != nil {
			return nil, qerr.Newf(qerr.CodeValidation, "configuring artifact bucket: %w", err)
		}
		clientset, err := k8s.NewClient(ws.Kubeconfig, ws.KubeContext)
		if err != nil {
			return nil, qerr.Newf(qerr.CodeAuth, "connecting to kubernetes: %w", err)
		}

		image := ws.Image
		if image == "" {
			image = a.settings.DefaultImage
		}
		opts := []cluster.Option{cluster.WithImage(image), cluster.WithLogger(a.log)}
		if ws.Namespace != "" {
			opts = append(opts, cluster.WithNamespace(ws.Namespace))
		}
		return cluster.New(objects, clientset, opts...), nil
	default:
		return nil, qerr.Newf(qerr.CodeValidation, "unknown workspace backend %q", ws.Backend)
	}
}

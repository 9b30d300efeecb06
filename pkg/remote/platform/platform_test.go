package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/remote"
)

type fakePlatform struct {
	artifacts   []remote.Artifact
	deployments []remote.Deployment
	uploaded    []byte
	lastSpec    remote.DeploymentSpec
}

func (f *fakePlatform) router(t *testing.T) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if req.Header.Get("Authorization") != "Bearer good-token" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"message":"invalid token"}`))
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/api/v1/photons", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(f.artifacts)
	})
	r.Post("/api/v1/photons", func(w http.ResponseWriter, req *http.Request) {
		file, _, err := req.FormFile("file")
		if err != nil {
			t.Errorf("missing upload: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.uploaded, _ = io.ReadAll(file)
		json.NewEncoder(w).Encode(remote.Artifact{ID: "calc-1", Name: "calc"})
	})
	r.Get("/api/v1/photons/{id}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "id") != "calc-1" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"no such photon"}`))
			return
		}
		if req.URL.Query().Get("content") != "true" {
			t.Errorf("expected content=true, got %q", req.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("zipbytes"))
	})
	r.Delete("/api/v1/photons/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/api/v1/deployments", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(f.deployments)
	})
	r.Post("/api/v1/deployments", func(w http.ResponseWriter, req *http.Request) {
		json.NewDecoder(req.Body).Decode(&f.lastSpec)
		if f.lastSpec.Name == "taken" {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"message":"deployment taken already exists"}`))
			return
		}
		json.NewEncoder(w).Encode(remote.Deployment{Name: f.lastSpec.Name, PhotonID: f.lastSpec.PhotonID, Status: "starting"})
	})
	return r
}

func newTestClient(t *testing.T, token string) (*Client, *fakePlatform) {
	t.Helper()
	fake := &fakePlatform{
		artifacts:   []remote.Artifact{{ID: "calc-1", Name: "calc", CreatedAt: 1}},
		deployments: []remote.Deployment{{Name: "calc"}},
	}
	srv := httptest.NewServer(fake.router(t))
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), srv.URL+"/", token, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c, fake
}

func TestClientRoundTrips(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t, "good-token")

	arts, err := c.ListArtifacts(ctx)
	if err != nil || len(arts) != 1 || arts[0].ID != "calc-1" {
		t.Fatalf("ListArtifacts: %v %+v", err, arts)
	}

	path := filepath.Join(t.TempDir(), "calc.photon")
	os.WriteFile(path, []byte("archive"), 0644)
	art, err := c.PushArtifact(ctx, path)
	if err != nil {
		t.Fatalf("PushArtifact failed: %v", err)
	}
	if art.ID != "calc-1" || string(fake.uploaded) != "archive" {
		t.Errorf("unexpected push: %+v %q", art, fake.uploaded)
	}

	var buf bytes.Buffer
	if err := c.FetchArtifact(ctx, "calc-1", &buf); err != nil {
		t.Fatalf("FetchArtifact failed: %v", err)
	}
	if buf.String() != "zipbytes" {
		t.Errorf("unexpected content: %q", buf.String())
	}

	if err := c.RemoveArtifact(ctx, "calc-1"); err != nil {
		t.Fatalf("RemoveArtifact failed: %v", err)
	}

	deps, err := c.ListDeployments(ctx)
	if err != nil || len(deps) != 1 {
		t.Fatalf("ListDeployments: %v %+v", err, deps)
	}

	dep, err := c.Run(ctx, remote.DeploymentSpec{
		Name:      "calc-web",
		PhotonID:  "calc-1",
		Resources: remote.Resources{CPU: 1, MemoryMB: 2048, MinReplicas: 1},
		Env:       map[string]string{"A": "1"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if dep.Name != "calc-web" || fake.lastSpec.Env["A"] != "1" || fake.lastSpec.Resources.MemoryMB != 2048 {
		t.Errorf("unexpected run: %+v %+v", dep, fake.lastSpec)
	}
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()

	bad, _ := newTestClient(t, "bad-token")
	if _, err := bad.ListArtifacts(ctx); !qerr.IsCode(err, qerr.CodeAuth) {
		t.Errorf("expected auth error, got %v", err)
	}

	c, _ := newTestClient(t, "good-token")
	err := c.FetchArtifact(ctx, "nope", io.Discard)
	if !qerr.IsCode(err, qerr.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	_, err = c.Run(ctx, remote.DeploymentSpec{Name: "taken"})
	if !qerr.IsCode(err, qerr.CodeNameConflict) {
		t.Fatalf("expected name conflict, got %v", err)
	}
	if want := "deployment taken already exists"; !bytes.Contains([]byte(err.Error()), []byte(want)) {
		t.Errorf("expected server message in %q", err.Error())
	}

	if _, err := c.PushArtifact(ctx, filepath.Join(t.TempDir(), "missing.photon")); !qerr.IsCode(err, qerr.CodeNotFound) {
		t.Errorf("expected not found for a missing archive, got %v", err)
	}
}

func TestClientRejectsNonJSONListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>login</html>"))
	}))
	defer srv.Close()

	c, err := New(context.Background(), srv.URL, "good-token", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := c.ListArtifacts(context.Background()); !qerr.IsCode(err, qerr.CodeRemoteRejected) {
		t.Errorf("expected remote rejected, got %v", err)
	}
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(context.Background(), url, "good-token")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := c.ListDeployments(context.Background()); !qerr.IsCode(err, qerr.CodeNetwork) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(context.Background(), "not a url", "t"); !qerr.IsCode(err, qerr.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := New(context.Background(), "https://example.com", ""); !qerr.IsCode(err, qerr.CodeAuth) {
		t.Errorf("expected auth error without token, got %v", err)
	}
}

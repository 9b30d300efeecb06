package deploy

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/quatton/photon/pkg/photon"
	_ "github.com/quatton/photon/pkg/photon/builtin"
	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/registry"
	"github.com/quatton/photon/pkg/remote"
)

type fakeRemote struct {
	artifacts   []remote.Artifact
	deployments []remote.Deployment
	listErr     error
}

func (f *fakeRemote) ListArtifacts(context.Context) ([]remote.Artifact, error) {
	return f.artifacts, f.listErr
}

func (f *fakeRemote) PushArtifact(context.Context, string) (*remote.Artifact, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRemote) RemoveArtifact(context.Context, string) error { return nil }

func (f *fakeRemote) FetchArtifact(context.Context, string, io.Writer) error { return nil }

func (f *fakeRemote) ListDeployments(context.Context) ([]remote.Deployment, error) {
	return f.deployments, nil
}

func (f *fakeRemote) Run(_ context.Context, spec remote.DeploymentSpec) (*remote.Deployment, error) {
	return &remote.Deployment{Name: spec.Name, PhotonID: spec.PhotonID}, nil
}

type fakeLookup struct {
	dir     string
	records map[string]*registry.Record
}

func (f *fakeLookup) ArtifactDir() string { return f.dir }

func (f *fakeLookup) Insert(_ context.Context, name, model, path, digest string, createdAt int64) (string, error) {
	rec := &registry.Record{ID: "id-" + name, Name: name, Model: model, Path: path, CreatedAt: createdAt}
	f.records[name] = rec
	return rec.ID, nil
}

func (f *fakeLookup) FindLatest(_ context.Context, name string) (*registry.Record, error) {
	if rec, ok := f.records[name]; ok {
		return rec, nil
	}
	return nil, qerr.Newf(qerr.CodeNotFound, "photon %q not found", name)
}

func (f *fakeLookup) FindByID(_ context.Context, id string) (*registry.Record, error) {
	for _, rec := range f.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, qerr.Newf(qerr.CodeNotFound, "photon with id %q not found", id)
}

func newLookup(t *testing.T) *fakeLookup {
	return &fakeLookup{dir: t.TempDir(), records: map[string]*registry.Record{}}
}

func (f *fakeLookup) create(ctx context.Context, name, model string) (string, error) {
	def, err := photon.Create(name, model, nil)
	if err != nil {
		return "", err
	}
	art, err := photon.Save(ctx, def, f)
	if err != nil {
		return "", err
	}
	return art.Path, nil
}

func always(int) bool { return true }

func TestResolveRejectsIDAndName(t *testing.T) {
	for _, r := range []*Resolver{
		NewResolver(newLookup(t)),
		NewResolver(newLookup(t), WithRemote(&fakeRemote{})),
	} {
		intent, err := r.Resolve(context.Background(), Request{Name: "calc", ID: "calc-1"})
		if !qerr.IsCode(err, qerr.CodeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if last := intent.Trace[len(intent.Trace)-1]; last != StateRejected {
			t.Errorf("expected rejected state, got %s", last)
		}
	}
}

func TestResolveRemoteByName(t *testing.T) {
	rem := &fakeRemote{
		artifacts: []remote.Artifact{
			{ID: "calc-a", Name: "calc", CreatedAt: 100},
			{ID: "calc-c", Name: "calc", CreatedAt: 200},
			{ID: "calc-b", Name: "calc", CreatedAt: 200},
			{ID: "echo-a", Name: "echo", CreatedAt: 300},
		},
		deployments: []remote.Deployment{{Name: "calc"}},
	}
	r := NewResolver(newLookup(t), WithRemote(rem), WithRand(seeded()))

	intent, err := r.Resolve(context.Background(), Request{
		Name:        "calc",
		Envs:        []string{"A=1"},
		Secrets:     []string{"TOKEN"},
		Mounts:      []string{"/data:/mnt"},
		CPU:         1,
		MemoryMB:    2048,
		MinReplicas: 1,
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if intent.Target != TargetRemote || intent.ArtifactID != "calc-c" {
		t.Errorf("expected newest remote artifact calc-c, got %s/%s", intent.Target, intent.ArtifactID)
	}
	if intent.DeploymentName != "calc-c" {
		t.Errorf("expected deployment name to fall back to id, got %s", intent.DeploymentName)
	}
	spec := intent.Spec()
	if spec.Env["A"] != "1" || spec.Secrets["TOKEN"] != "TOKEN" || len(spec.Mounts) != 1 {
		t.Errorf("unexpected spec: %+v", spec)
	}
	wantTrace := []State{StateParseRequest, StateResolveTarget, StateRemotePath, StateResolved}
	if !reflect.DeepEqual(intent.Trace, wantTrace) {
		t.Errorf("unexpected trace: %v", intent.Trace)
	}
}

func TestResolveRemoteErrors(t *testing.T) {
	rem := &fakeRemote{artifacts: []remote.Artifact{{ID: "calc-a", Name: "calc", CreatedAt: 1}}}
	r := NewResolver(newLookup(t), WithRemote(rem))
	ctx := context.Background()

	cases := []struct {
		name string
		req  Request
		code qerr.Code
	}{
		{"no identifier", Request{}, qerr.CodeValidation},
		{"unknown name", Request{Name: "nope"}, qerr.CodeNotFound},
		{"unknown id", Request{ID: "nope"}, qerr.CodeNotFound},
		{"bad env", Request{ID: "calc-a", Envs: []string{"A"}}, qerr.CodeInvalidEnv},
		{"bad mount", Request{ID: "calc-a", Mounts: []string{"x"}}, qerr.CodeInvalidMount},
		{"taken name", Request{ID: "calc-a", DeploymentName: "busy"}, qerr.CodeNameConflict},
	}
	rem.deployments = []remote.Deployment{{Name: "busy"}}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := r.Resolve(ctx, c.req)
			if !qerr.IsCode(err, c.code) {
				t.Fatalf("expected %s, got %v", c.code, err)
			}
		})
	}
}

func TestResolveRemoteListFailure(t *testing.T) {
	rem := &fakeRemote{listErr: qerr.Newf(qerr.CodeNetwork, "connection refused")}
	_, err := NewResolver(newLookup(t), WithRemote(rem)).Resolve(context.Background(), Request{Name: "calc"})
	if !qerr.IsCode(err, qerr.CodeNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestResolveLocalFlagOverridesWorkspace(t *testing.T) {
	ctx := context.Background()
	lookup := newLookup(t)
	if _, err := lookup.create(ctx, "calc", "Counter"); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(lookup, WithRemote(&fakeRemote{}), WithPortProbe(always))
	intent, err := r.Resolve(ctx, Request{Name: "calc", Local: true, Port: 9000})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if intent.Target != TargetLocal || intent.Port != 9000 || intent.ArtifactName != "calc" {
		t.Errorf("unexpected intent: %+v", intent)
	}
}

func TestResolveLocalAutoCreate(t *testing.T) {
	ctx := context.Background()
	lookup := newLookup(t)
	r := NewResolver(lookup, WithCreate(lookup.create), WithPortProbe(always))

	intent, err := r.Resolve(ctx, Request{Name: "calc", Model: "Counter", Envs: []string{"MODE=fast"}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, ok := lookup.records["calc"]; !ok {
		t.Fatal("expected photon to be created")
	}
	if intent.Env["MODE"] != "fast" {
		t.Errorf("expected env in launch configuration, got %v", intent.Env)
	}
	if intent.Port != DefaultPort {
		t.Errorf("expected default port, got %d", intent.Port)
	}
}

func TestResolveLocalMissing(t *testing.T) {
	r := NewResolver(newLookup(t), WithPortProbe(always))
	ctx := context.Background()

	if _, err := r.Resolve(ctx, Request{}); !qerr.IsCode(err, qerr.CodeValidation) {
		t.Errorf("expected validation error without name or file, got %v", err)
	}
	if _, err := r.Resolve(ctx, Request{Name: "calc"}); !qerr.IsCode(err, qerr.CodeNotFound) {
		t.Errorf("expected not found without a model, got %v", err)
	}
	missing := filepath.Join(t.TempDir(), "nope.photon")
	if _, err := r.Resolve(ctx, Request{File: missing}); !qerr.IsCode(err, qerr.CodeNotFound) {
		t.Errorf("expected not found for a missing file, got %v", err)
	}
}

func TestResolveLocalCreateFailureAborts(t *testing.T) {
	lookup := newLookup(t)
	r := NewResolver(lookup, WithCreate(lookup.create), WithPortProbe(always))

	_, err := r.Resolve(context.Background(), Request{Name: "calc", Model: "NoSuchClass"})
	if !qerr.IsCode(err, qerr.CodeValidation) {
		t.Fatalf("expected create error to abort, got %v", err)
	}
}

func TestResolveLocalFromFile(t *testing.T) {
	ctx := context.Background()
	lookup := newLookup(t)
	path, err := lookup.create(ctx, "calc", "Counter")
	if err != nil {
		t.Fatal(err)
	}

	var fetched string
	r := NewResolver(newLookup(t),
		WithPortProbe(func(p int) bool { return p > 8080 }),
		WithFetch(func(_ context.Context, url string) (string, error) {
			fetched = url
			return "/tmp/checkout", nil
		}),
	)
	intent, err := r.Resolve(ctx, Request{File: path, Model: "Echo", Mounts: []string{"/a:/b"}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if intent.ArtifactPath != path || intent.Port != 8081 {
		t.Errorf("unexpected intent: %+v", intent)
	}
	if fetched != "" {
		t.Errorf("no vcs_url recorded, fetch must not run")
	}
}

func TestResolveLocalInheritsEnv(t *testing.T) {
	ctx := context.Background()
	lookup := newLookup(t)
	if _, err := lookup.create(ctx, "echo", "Echo"); err != nil {
		t.Fatal(err)
	}
	container := map[string]string{"ECHO_PREFIX": ">", "MODE": "from-container"}

	r := NewResolver(lookup,
		WithPortProbe(always),
		WithEnvLookup(func(k string) (string, bool) {
			v, ok := container[k]
			return v, ok
		}),
	)
	intent, err := r.Resolve(ctx, Request{
		Name:       "echo",
		Local:      true,
		Envs:       []string{"MODE=explicit"},
		InheritEnv: []string{"ECHO_PREFIX", "MODE", "UNSET"},
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	want := map[string]string{"ECHO_PREFIX": ">", "MODE": "explicit"}
	if !reflect.DeepEqual(intent.Env, want) {
		t.Errorf("unexpected launch env: %v", intent.Env)
	}
}

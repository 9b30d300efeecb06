package cluster

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quatton/photon/pkg/photon"
	_ "github.com/quatton/photon/pkg/photon/builtin"
	"github.com/quatton/photon/pkg/qart"
	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/qrunner"
	"github.com/quatton/photon/pkg/remote"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  string
	ensured int
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Upload(_ context.Context, key string, r io.Reader, _ int64, contentType string, md map[string]string) (*qart.Artifact, error) {
	if m.failOn != "" && strings.HasSuffix(key, m.failOn) {
		return nil, io.ErrUnexpectedEOF
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.objects[key] = b
	m.mu.Unlock()
	return &qart.Artifact{Key: key, Size: int64(len(b)), ContentType: contentType, Metadata: md}, nil
}

func (m *memStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, qart.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStore) GetPresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://s3.test/" + key + "?sig=1", nil
}

func (m *memStore) List(_ context.Context, prefix string) ([]*qart.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*qart.Artifact
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, &qart.Artifact{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *memStore) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
		}
	}
	return nil
}

func (m *memStore) EnsureBucket(context.Context) error {
	m.mu.Lock()
	m.ensured++
	m.mu.Unlock()
	return nil
}

type dirRecorder struct{ dir string }

func (d dirRecorder) ArtifactDir() string { return d.dir }

func (d dirRecorder) Insert(context.Context, string, string, string, string, int64) (string, error) {
	return "id", nil
}

func saveCounter(t *testing.T, name string) string {
	t.Helper()
	def, err := photon.Create(name, "Counter", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	art, err := photon.Save(context.Background(), def, dirRecorder{dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return art.Path
}

func TestPushListFetchRemove(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	c := New(store, fake.NewSimpleClientset())

	art, err := c.PushArtifact(ctx, saveCounter(t, "calc"))
	if err != nil {
		t.Fatalf("PushArtifact failed: %v", err)
	}
	if !strings.HasPrefix(art.ID, "calc-") || art.Model != "Counter" {
		t.Errorf("unexpected artifact: %+v", art)
	}
	if len(art.Paths) != 3 {
		t.Errorf("expected exposed paths, got %v", art.Paths)
	}
	if store.ensured != 1 {
		t.Errorf("expected the bucket to be checked before upload, got %d checks", store.ensured)
	}

	arts, err := c.ListArtifacts(ctx)
	if err != nil {
		t.Fatalf("ListArtifacts failed: %v", err)
	}
	if len(arts) != 1 || arts[0].ID != art.ID {
		t.Fatalf("unexpected listing: %+v", arts)
	}

	var buf bytes.Buffer
	if err := c.FetchArtifact(ctx, art.ID, &buf); err != nil {
		t.Fatalf("FetchArtifact failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected archive bytes")
	}

	if err := c.RemoveArtifact(ctx, art.ID); err != nil {
		t.Fatalf("RemoveArtifact failed: %v", err)
	}
	if len(store.objects) != 0 {
		t.Errorf("expected both objects removed, got %v", store.objects)
	}
	if err := c.RemoveArtifact(ctx, art.ID); !qerr.IsCode(err, qerr.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := c.FetchArtifact(ctx, art.ID, io.Discard); !qerr.IsCode(err, qerr.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestPushFailureLeavesNoListing(t *testing.T) {
	store := newMemStore()
	store.failOn = qart.MetadataSuffix
	c := New(store, fake.NewSimpleClientset())

	if _, err := c.PushArtifact(context.Background(), saveCounter(t, "calc")); !qerr.IsCode(err, qerr.CodeNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if len(store.objects) != 0 {
		t.Errorf("expected archive rolled back, got %v", store.objects)
	}
}

func TestRunCreatesDeployment(t *testing.T) {
	ctx := context.Background()
	clientset := fake.NewSimpleClientset()
	c := New(newMemStore(), clientset, WithNamespace("ml"))
	c.now = func() time.Time { return time.UnixMilli(4242) }

	art, err := c.PushArtifact(ctx, saveCounter(t, "calc"))
	if err != nil {
		t.Fatalf("PushArtifact failed: %v", err)
	}

	dep, err := c.Run(ctx, remote.DeploymentSpec{
		Name:      "calc",
		PhotonID:  art.ID,
		Resources: remote.Resources{CPU: 1, MemoryMB: 1024, MinReplicas: 2},
		Mounts:    []remote.Mount{{Path: "/data", MountPath: "/mnt/data"}},
		Env:       map[string]string{"MODE": "fast"},
		Secrets:   map[string]string{"TOKEN": "hf"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if dep.Name != "calc" || dep.PhotonID != art.ID || dep.CreatedAt != 4242 {
		t.Errorf("unexpected deployment: %+v", dep)
	}

	created, err := clientset.AppsV1().Deployments("ml").Get(ctx, "calc", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("deployment not created: %v", err)
	}
	if *created.Spec.Replicas != 2 {
		t.Errorf("expected 2 replicas, got %d", *created.Spec.Replicas)
	}
	fetcher := created.Spec.Template.Spec.InitContainers[0]
	if !strings.Contains(fetcher.Env[0].Value, qart.PhotonArchiveKey(art.ID)) {
		t.Errorf("expected presigned archive url, got %s", fetcher.Env[0].Value)
	}
	if _, err := clientset.CoreV1().Services("ml").Get(ctx, "calc", metav1.GetOptions{}); err != nil {
		t.Errorf("service not created: %v", err)
	}

	deps, err := c.ListDeployments(ctx)
	if err != nil {
		t.Fatalf("ListDeployments failed: %v", err)
	}
	if len(deps) != 1 || deps[0].Status != string(qrunner.LaunchStatusPending) {
		t.Errorf("unexpected deployments: %+v", deps)
	}

	_, err = c.Run(ctx, remote.DeploymentSpec{Name: "calc", PhotonID: art.ID})
	if !qerr.IsCode(err, qerr.CodeNameConflict) {
		t.Errorf("expected name conflict, got %v", err)
	}
}

func TestListDeploymentsIncludesForeignNames(t *testing.T) {
	ctx := context.Background()
	clientset := fake.NewSimpleClientset(&appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "ml"},
	})
	c := New(newMemStore(), clientset, WithNamespace("ml"))

	deps, err := c.ListDeployments(ctx)
	if err != nil {
		t.Fatalf("ListDeployments failed: %v", err)
	}
	if len(deps) != 1 || deps[0].Name != "web" || deps[0].PhotonID != "" {
		t.Fatalf("expected the unlabelled deployment to be listed, got %+v", deps)
	}
	if names := remote.DeploymentNames(deps); !names["web"] {
		t.Errorf("expected web to count as taken, got %v", names)
	}
}

func TestRunUnknownPhoton(t *testing.T) {
	c := New(newMemStore(), fake.NewSimpleClientset())
	_, err := c.Run(context.Background(), remote.DeploymentSpec{Name: "x", PhotonID: "nope"})
	if !qerr.IsCode(err, qerr.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestArtifactIDIsContentAddressed(t *testing.T) {
	a := ArtifactID("calc", []byte("one"))
	b := ArtifactID("calc", []byte("two"))
	if a == b || a != ArtifactID("calc", []byte("one")) {
		t.Errorf("ids must follow content: %s %s", a, b)
	}
	if len(a) != len("calc-")+16 {
		t.Errorf("unexpected id length: %s", a)
	}
}

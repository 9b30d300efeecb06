// Package cluster is the remote client for a self-hosted workspace:
// archives live in an S3 bucket and deployments are Kubernetes Deployments.
package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/quatton/photon/pkg/photon"
	"github.com/quatton/photon/pkg/qart"
	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/qlog"
	"github.com/quatton/photon/pkg/qrunner"
	"github.com/quatton/photon/pkg/remote"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/util/retry"
)

const (
	DefaultNamespace = "photon"
	DefaultPort      = 8080

	// DefaultURLExpiry bounds the presigned download URL handed to pods.
	DefaultURLExpiry = 7 * 24 * time.Hour

	createdAtAnnotation = "photon.dev/created-at"
)

type Client struct {
	store     qart.Store
	k8s       kubernetes.Interface
	namespace string
	config    qrunner.ContainerConfig
	urlExpiry time.Duration
	now       func() time.Time
	log       *qlog.Logger
}

type Option func(*Client)

func WithNamespace(ns string) Option {
	return func(c *Client) {
		if ns != "" {
			c.namespace = ns
		}
	}
}

// WithImage sets the runtime image for photons that do not name one.
func WithImage(image string) Option {
	return func(c *Client) {
		c.config.Image = image
	}
}

func WithURLExpiry(d time.Duration) Option {
	return func(c *Client) {
		c.urlExpiry = d
	}
}

func WithLogger(log *qlog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func New(store qart.Store, k8s kubernetes.Interface, opts ...Option) *Client {
	c := &Client{
		store:     store,
		k8s:       k8s,
		namespace: DefaultNamespace,
		config:    qrunner.DefaultContainerConfig(photon.DefaultImage),
		urlExpiry: DefaultURLExpiry,
		now:       time.Now,
		log:       qlog.NewDiscard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ remote.Client = (*Client)(nil)

// ArtifactID derives the workspace id of an archive from its name and
// content.
func ArtifactID(name string, content []byte) string {
	return fmt.Sprintf("%s-%016x", name, xxhash.Sum64(content))
}

func (c *Client) ListArtifacts(ctx context.Context) ([]remote.Artifact, error) {
	objs, err := c.store.List(ctx, qart.PhotonPrefix)
	if err != nil {
		return nil, storeErr("listing photons", err)
	}
	var out []remote.Artifact
	for _, obj := range objs {
		id, ok := qart.PhotonIDFromKey(obj.Key)
		if !ok {
			continue
		}
		art, err := c.artifact(ctx, id)
		if err != nil {
			if qerr.IsCode(err, qerr.CodeNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *art)
	}
	remote.SortNewest(out)
	return out, nil
}

func (c *Client) artifact(ctx context.Context, id string) (*remote.Artifact, error) {
	rc, err := c.store.Download(ctx, qart.PhotonMetadataKey(id))
	if err != nil {
		if errors.Is(err, qart.ErrNotFound) {
			return nil, qerr.Newf(qerr.CodeNotFound, "photon with id %s does not exist", id)
		}
		return nil, storeErr("reading "+id, err)
	}
	defer rc.Close()
	var art remote.Artifact
	if err := json.NewDecoder(rc).Decode(&art); err != nil {
		return nil, qerr.Newf(qerr.CodeRemoteRejected, "listing record of %s is malformed: %w", id, err)
	}
	return &art, nil
}

// PushArtifact uploads the archive and then its listing record, so a
// listed photon always has an archive.
func (c *Client) PushArtifact(ctx context.Context, path string) (*remote.Artifact, error) {
	md, err := photon.LoadMetadata(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	paths, err := md.Paths()
	if err != nil {
		return nil, err
	}

	art := remote.Artifact{
		ID:        ArtifactID(md.Name, content),
		Name:      md.Name,
		Model:     md.Model,
		Image:     md.Image,
		Paths:     append(paths, md.MountedPaths...),
		CreatedAt: md.CreatedAt,
	}
	meta := map[string]string{"name": md.Name, "id": art.ID}

	if err := c.store.EnsureBucket(ctx); err != nil {
		return nil, storeErr("preparing bucket", err)
	}

	if _, err := c.store.Upload(ctx, qart.PhotonArchiveKey(art.ID), bytes.NewReader(content), int64(len(content)), qart.ArchiveMediaType, meta); err != nil {
		return nil, storeErr("uploading archive", err)
	}
	record, err := json.Marshal(art)
	if err != nil {
		return nil, err
	}
	if _, err := c.store.Upload(ctx, qart.PhotonMetadataKey(art.ID), bytes.NewReader(record), int64(len(record)), qart.MetadataMediaType, meta); err != nil {
		c.store.Delete(ctx, qart.PhotonArchiveKey(art.ID))
		return nil, storeErr("uploading listing record", err)
	}
	c.log.Debug("pushed photon", "id", art.ID)
	return &art, nil
}

func (c *Client) RemoveArtifact(ctx context.Context, id string) error {
	if _, err := c.artifact(ctx, id); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, qart.PhotonMetadataKey(id)); err != nil {
		return storeErr("removing "+id, err)
	}
	if err := c.store.DeletePrefix(ctx, qart.PhotonObjectsPrefix(id)); err != nil {
		return storeErr("removing "+id, err)
	}
	return nil
}

func (c *Client) FetchArtifact(ctx context.Context, id string, w io.Writer) error {
	rc, err := c.store.Download(ctx, qart.PhotonArchiveKey(id))
	if err != nil {
		if errors.Is(err, qart.ErrNotFound) {
			return qerr.Newf(qerr.CodeNotFound, "photon with id %s does not exist", id)
		}
		return storeErr("downloading "+id, err)
	}
	defer rc.Close()
	if _, err := io.Copy(w, rc); err != nil {
		return qerr.Newf(qerr.CodeNetwork, "downloading %s: %w", id, err)
	}
	return nil
}

// ListDeployments returns every Deployment in the namespace. Ones photon did
// not create have an empty PhotonID but their names are still taken.
func (c *Client) ListDeployments(ctx context.Context) ([]remote.Deployment, error) {
	list, err := c.k8s.AppsV1().Deployments(c.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, k8sErr("listing deployments", err)
	}
	out := make([]remote.Deployment, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, c.deployment(&list.Items[i]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Client) deployment(dep *appsv1.Deployment) remote.Deployment {
	created, _ := strconv.ParseInt(dep.Annotations[createdAtAnnotation], 10, 64)
	if created == 0 {
		created = dep.CreationTimestamp.UnixMilli()
	}
	return remote.Deployment{
		Name:      dep.Name,
		PhotonID:  dep.Labels[qrunner.PhotonIDLabel],
		Status:    string(qrunner.DeploymentStatus(dep)),
		URL:       fmt.Sprintf("http://%s.%s.svc:%d", dep.Name, c.namespace, DefaultPort),
		CreatedAt: created,
	}
}

// Run creates the Deployment and a ClusterIP Service in front of it.
func (c *Client) Run(ctx context.Context, spec remote.DeploymentSpec) (*remote.Deployment, error) {
	art, err := c.artifact(ctx, spec.PhotonID)
	if err != nil {
		return nil, err
	}
	url, err := c.store.GetPresignedURL(ctx, qart.PhotonArchiveKey(art.ID), c.urlExpiry)
	if err != nil {
		return nil, storeErr("signing archive url", err)
	}

	cfg := c.config
	if art.Image != "" {
		cfg.Image = art.Image
	}
	if r := qrunner.ResourcesFor(spec.Resources.CPU, spec.Resources.MemoryMB); r != (qrunner.ResourceRequirements{}) {
		cfg.Resources = r
	}
	mounts := make([]qrunner.Mount, 0, len(spec.Mounts))
	for _, m := range spec.Mounts {
		mounts = append(mounts, qrunner.Mount{Type: "volume", Source: m.Path, Destination: m.MountPath})
	}

	desired, err := qrunner.BuildDeployment(qrunner.ClusterDeployment{
		Name:        spec.Name,
		PhotonID:    art.ID,
		PhotonName:  art.Name,
		ArtifactURL: url,
		Port:        DefaultPort,
		Env:         spec.Env,
		Secrets:     spec.Secrets,
		Mounts:      mounts,
		MinReplicas: int32(spec.Resources.MinReplicas),
		Config:      cfg,
	})
	if err != nil {
		return nil, qerr.New(qerr.CodeValidation, err)
	}
	desired.Annotations = map[string]string{createdAtAnnotation: strconv.FormatInt(c.now().UnixMilli(), 10)}

	created, err := c.k8s.AppsV1().Deployments(c.namespace).Create(ctx, desired, metav1.CreateOptions{})
	if err != nil {
		if k8serrors.IsAlreadyExists(err) {
			return nil, qerr.Newf(qerr.CodeNameConflict, "deployment %s already exists", spec.Name)
		}
		return nil, k8sErr("creating deployment", err)
	}
	if err := c.ensureService(ctx, spec.Name); err != nil {
		return nil, err
	}

	dep := c.deployment(created)
	return &dep, nil
}

func (c *Client) ensureService(ctx context.Context, name string) error {
	desired := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: map[string]string{qrunner.DeploymentLabel: name},
		},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{qrunner.DeploymentLabel: name},
			Ports: []corev1.ServicePort{{
				Name:       "http",
				Port:       DefaultPort,
				TargetPort: intstr.FromString("http"),
			}},
		},
	}

	services := c.k8s.CoreV1().Services(c.namespace)
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		current, err := services.Get(ctx, name, metav1.GetOptions{})
		if k8serrors.IsNotFound(err) {
			_, err = services.Create(ctx, desired, metav1.CreateOptions{})
			return err
		}
		if err != nil {
			return err
		}
		current.Spec.Selector = desired.Spec.Selector
		current.Spec.Ports = desired.Spec.Ports
		_, err = services.Update(ctx, current, metav1.UpdateOptions{})
		return err
	})
	if err != nil {
		return k8sErr("creating service", err)
	}
	return nil
}

func storeErr(what string, err error) error {
	return qerr.Newf(qerr.CodeNetwork, "%s: %w", what, err)
}

func k8sErr(what string, err error) error {
	switch {
	case k8serrors.IsUnauthorized(err), k8serrors.IsForbidden(err):
		return qerr.Newf(qerr.CodeAuth, "%s: %w", what, err)
	case k8serrors.IsInvalid(err), k8serrors.IsBadRequest(err):
		return qerr.Newf(qerr.CodeRemoteRejected, "%s: %w", what, err)
	default:
		return qerr.Newf(qerr.CodeNetwork, "%s: %w", what, err)
	}
}

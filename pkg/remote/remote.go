// Package remote is the facade over a deployment workspace. A Client is bound
// to one workspace and its credentials; backends live in subpackages.
package remote

import (
	"context"
	"io"
	"sort"
)

// Artifact is a photon archive stored in a workspace.
type Artifact struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Model     string   `json:"model"`
	Image     string   `json:"image,omitempty"`
	Paths     []string `json:"exposed_paths,omitempty"`
	CreatedAt int64    `json:"created_at"`
}

// Mount attaches workspace storage to a deployment.
type Mount struct {
	Path      string `json:"path"`
	MountPath string `json:"mount_path"`
}

type Resources struct {
	CPU         float64 `json:"cpu"`
	MemoryMB    int     `json:"memory"`
	MinReplicas int     `json:"min_replicas"`
}

// DeploymentSpec is what Run submits.
type DeploymentSpec struct {
	Name      string            `json:"name"`
	PhotonID  string            `json:"photon_id"`
	Resources Resources         `json:"resource_requirement"`
	Mounts    []Mount           `json:"mounts,omitempty"`
	Env       map[string]string `json:"envs,omitempty"`
	Secrets   map[string]string `json:"secrets,omitempty"`
}

type Deployment struct {
	Name      string `json:"name"`
	PhotonID  string `json:"photon_id"`
	Status    string `json:"status,omitempty"`
	URL       string `json:"url,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// Client is the workspace API consumed by the command surface.
type Client interface {
	ListArtifacts(ctx context.Context) ([]Artifact, error)
	PushArtifact(ctx context.Context, path string) (*Artifact, error)
	RemoveArtifact(ctx context.Context, id string) error
	FetchArtifact(ctx context.Context, id string, w io.Writer) error
	ListDeployments(ctx context.Context) ([]Deployment, error)
	Run(ctx context.Context, spec DeploymentSpec) (*Deployment, error)
}

// LatestByName picks the newest artifact called name. Equal timestamps are
// broken by the lexically highest id.
func LatestByName(arts []Artifact, name string) (Artifact, bool) {
	var best Artifact
	found := false
	for _, a := range arts {
		if a.Name != name {
			continue
		}
		if !found || a.CreatedAt > best.CreatedAt || (a.CreatedAt == best.CreatedAt && a.ID > best.ID) {
			best = a
			found = true
		}
	}
	return best, found
}

// FindByID looks an id up in a listing.
func FindByID(arts []Artifact, id string) (Artifact, bool) {
	for _, a := range arts {
		if a.ID == id {
			return a, true
		}
	}
	return Artifact{}, false
}

// DeploymentNames returns the set of names already in use.
func DeploymentNames(deps []Deployment) map[string]bool {
	names := make(map[string]bool, len(deps))
	for _, d := range deps {
		names[d.Name] = true
	}
	return names
}

// SortNewest orders artifacts newest first, then by id descending.
func SortNewest(arts []Artifact) {
	sort.SliceStable(arts, func(i, j int) bool {
		if arts[i].CreatedAt != arts[j].CreatedAt {
			return arts[i].CreatedAt > arts[j].CreatedAt
		}
		return arts[i].ID > arts[j].ID
	})
}

package qrunner

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
)

// ArtifactMountDir is where the archive is mounted inside runtime containers.
const ArtifactMountDir = "/photon"

// ContainerConfig is shared between container-based launchers (Docker and
// the Kubernetes Deployment builder).
type ContainerConfig struct {
	// Image must contain the photon binary.
	Image string

	Resources ResourceRequirements

	Mounts []Mount

	// NetworkMode is passed to docker, e.g. "bridge" or "host".
	NetworkMode string
}

// ResourceRequirements uses Kubernetes quantity strings ("500m", "2Gi").
type ResourceRequirements struct {
	CPURequest    string
	MemoryRequest string
	CPULimit      string
	MemoryLimit   string
}

type Mount struct {
	// Type is "bind" for host paths or "volume" for named volumes.
	Type        string
	Source      string
	Destination string
	ReadOnly    bool
}

// ResourcesFor converts a cpu count and memory in MiB to requirements.
// Zero values leave the corresponding field empty.
func ResourcesFor(cpu float64, memoryMB int) ResourceRequirements {
	var r ResourceRequirements
	if cpu > 0 {
		r.CPURequest = fmt.Sprintf("%dm", int64(cpu*1000))
		r.CPULimit = r.CPURequest
	}
	if memoryMB > 0 {
		r.MemoryRequest = fmt.Sprintf("%dMi", memoryMB)
		r.MemoryLimit = r.MemoryRequest
	}
	return r
}

// ContainerArtifactPath is the in-container path of a host archive.
func ContainerArtifactPath(hostPath string) string {
	return path.Join(ArtifactMountDir, path.Base(hostPath))
}

// WrapCommandForLocal builds the container command that prepares the
// archive and then serves it with "photon run --local", so the container
// delegates to the in-process launcher. Each name in inherit is passed as
// --inherit-env so the inner run copies that container variable into the
// launch environment.
func WrapCommandForLocal(artifactPath string, port int, inherit ...string) []string {
	var b strings.Builder
	fmt.Fprintf(&b, "photon prepare -f %s --yes && exec photon run --local -f %s -p %d",
		shellQuote(artifactPath), shellQuote(artifactPath), port)
	for _, name := range sortedUnique(inherit) {
		fmt.Fprintf(&b, " --inherit-env %s", shellQuote(name))
	}
	return []string{"sh", "-c", b.String()}
}

func sortedUnique(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func shellQuote(s string) string {
	out := "'"
	for _, r := range s {
		if r == '\'' {
			out += `'\''`
			continue
		}
		out += string(r)
	}
	return out + "'"
}

// DefaultContainerConfig returns defaults for image.
func DefaultContainerConfig(image string) ContainerConfig {
	return ContainerConfig{
		Image: image,
		Resources: ResourceRequirements{
			CPURequest:    "100m",
			MemoryRequest: "128Mi",
			CPULimit:      "1",
			MemoryLimit:   "512Mi",
		},
		NetworkMode: "bridge",
	}
}

func parseQuantity(s string) (resource.Quantity, bool, error) {
	if s == "" {
		return resource.Quantity{}, false, nil
	}
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return resource.Quantity{}, false, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return q, true, nil
}

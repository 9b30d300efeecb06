package photon

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/quatton/photon/pkg/qerr"
)

const (
	MetadataFile = "metadata.json"
	StateFile    = "state.json"
	CodeDir      = "code/"
	ExtraDir     = "extra/"
)

// RequiredMetadataKeys must be present in every metadata.json.
var RequiredMetadataKeys = []string{"name", "model", "image", "args", "openapi", "requirement_dependency"}

// Metadata is the metadata.json document of an artifact.
type Metadata struct {
	Name                  string          `json:"name"`
	Model                 string          `json:"model"`
	Image                 string          `json:"image"`
	Args                  map[string]any  `json:"args"`
	CreatedAt             int64           `json:"created_at"`
	OpenAPI               json.RawMessage `json:"openapi"`
	RequirementDependency []string        `json:"requirement_dependency"`
	SystemDependency      []string        `json:"system_dependency,omitempty"`
	ExtraFiles            []string        `json:"extra_files,omitempty"`
	MountedPaths          []string        `json:"mounted_paths,omitempty"`
	VCSURL                string          `json:"vcs_url,omitempty"`
}

// ParseMetadata checks required keys and decodes the document.
func ParseMetadata(data []byte) (*Metadata, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, qerr.Newf(qerr.CodeCorruptArtifact, "%s is not a JSON object: %w", MetadataFile, err)
	}
	var missing []string
	for _, k := range RequiredMetadataKeys {
		v, ok := raw[k]
		if !ok || string(v) == "null" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, qerr.Newf(qerr.CodeCorruptArtifact, "%s is missing required keys %v", MetadataFile, missing)
	}

	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, qerr.Newf(qerr.CodeCorruptArtifact, "%s is malformed: %w", MetadataFile, err)
	}
	if err := ValidateName(md.Name); err != nil {
		return nil, qerr.Newf(qerr.CodeCorruptArtifact, "%s: %v", MetadataFile, err)
	}
	if _, err := md.Paths(); err != nil {
		return nil, err
	}
	return &md, nil
}

// Paths lists the routes in the openapi document, sorted.
func (m *Metadata) Paths() ([]string, error) {
	var doc struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(m.OpenAPI, &doc); err != nil {
		return nil, qerr.Newf(qerr.CodeCorruptArtifact, "openapi document is malformed: %w", err)
	}
	if doc.Paths == nil {
		return nil, qerr.Newf(qerr.CodeCorruptArtifact, "openapi document has no paths")
	}
	out := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

type metadataOptions struct {
	unpack bool
	dest   string
}

type MetadataOption func(*metadataOptions)

// UnpackExtraFiles extracts the bundled extra files into dest, or the working
// directory when dest is empty. Existing files are overwritten.
func UnpackExtraFiles(dest string) MetadataOption {
	return func(o *metadataOptions) {
		o.unpack = true
		o.dest = dest
	}
}

// LoadMetadata reads metadata.json without constructing the instance.
func LoadMetadata(path string, opts ...MetadataOption) (*Metadata, error) {
	var o metadataOptions
	for _, opt := range opts {
		opt(&o)
	}

	zr, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	data, err := readEntry(&zr.Reader, MetadataFile)
	if err != nil {
		return nil, err
	}
	md, err := ParseMetadata(data)
	if err != nil {
		return nil, err
	}

	if o.unpack {
		dest := o.dest
		if dest == "" {
			dest = "."
		}
		if _, err := extractPrefix(&zr.Reader, ExtraDir, dest); err != nil {
			return nil, fmt.Errorf("unpacking extra files: %w", err)
		}
	}
	return md, nil
}

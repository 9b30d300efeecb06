// Package photonfile reads photon.yaml, the optional declaration that sits
// next to user code and carries what the command line does not: image,
// dependencies, extra files and launch args.
package photonfile

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/quatton/photon/pkg/photon"
	"github.com/quatton/photon/pkg/qerr"
	"gopkg.in/yaml.v3"
)

const DefaultName = "photon.yaml"

// File is the decoded photon.yaml.
type File struct {
	Image              string         `yaml:"image,omitempty"`
	Requirements       []string       `yaml:"requirements,omitempty"`
	SystemDependencies []string       `yaml:"system_dependencies,omitempty"`
	ExtraFiles         []string       `yaml:"extra_files,omitempty"`
	VCSURL             string         `yaml:"vcs_url,omitempty"`
	Args               map[string]any `yaml:"args,omitempty"`

	// Dir is the directory holding the file. Relative paths resolve against it.
	Dir string `yaml:"-"`
}

// Load decodes path. Unknown keys are rejected so typos surface early.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, qerr.Newf(qerr.CodeNotFound, "%s does not exist", path)
		}
		return nil, err
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, qerr.Newf(qerr.CodeValidation, "parsing %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	f.Dir = filepath.Dir(abs)
	return &f, f.validate()
}

// Find returns the photon.yaml in dir, or nil when there is none.
func Find(dir string) (*File, error) {
	f, err := Load(filepath.Join(dir, DefaultName))
	if qerr.IsCode(err, qerr.CodeNotFound) {
		return nil, nil
	}
	return f, err
}

func (f *File) validate() error {
	for _, p := range f.ExtraFiles {
		if filepath.IsAbs(p) {
			return qerr.Newf(qerr.CodeValidation, "extra file %s must be relative to %s", p, f.Dir)
		}
	}
	for i, r := range f.Requirements {
		if photon.PackageName(r) == "" {
			return qerr.Newf(qerr.CodeValidation, "requirement %d (%q) names no package", i, r)
		}
	}
	return nil
}

// Options converts the file into definition options.
func (f *File) Options() []photon.Option {
	if f == nil {
		return nil
	}
	opts := []photon.Option{photon.WithBaseDir(f.Dir)}
	if f.Image != "" {
		opts = append(opts, photon.WithImage(f.Image))
	}
	if len(f.SystemDependencies) > 0 {
		opts = append(opts, photon.WithSystemDependencies(f.SystemDependencies...))
	}
	if len(f.ExtraFiles) > 0 {
		opts = append(opts, photon.WithExtraFiles(f.ExtraFiles...))
	}
	if f.VCSURL != "" {
		opts = append(opts, photon.WithVCSURL(f.VCSURL))
	}
	if len(f.Args) > 0 {
		opts = append(opts, photon.WithArgs(f.Args))
	}
	return opts
}

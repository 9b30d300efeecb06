package photon

import (
	"regexp"
	"slices"

	"github.com/quatton/photon/pkg/qerr"
)

const (
	DefaultImage  = "ghcr.io/quatton/photon-runtime:latest"
	MaxNameLength = 32
)

var namePattern = regexp.MustCompile(`^[a-z]([-a-z0-9]*[a-z0-9])?$`)

// ValidateName applies the platform naming rule: lower case alphanumerics or
// '-', starting with a letter, ending alphanumeric, at most 32 characters.
func ValidateName(name string) error {
	if len(name) > MaxNameLength || !namePattern.MatchString(name) {
		return qerr.Newf(qerr.CodeValidation,
			"invalid name %q: must consist of lower case alphanumeric characters or '-', start with a letter, end with an alphanumeric character and be at most %d characters",
			name, MaxNameLength)
	}
	return nil
}

// Definition is an immutable, validated photon ready to be saved.
type Definition struct {
	Name               string
	Model              ModelSpec
	Runner             Runner
	Handlers           []Handler
	Dependencies       []string
	SystemDependencies []string
	Image              string
	Args               map[string]any
	ExtraFiles         []string
	BaseDir            string
	VCSURL             string
}

type Option func(*Definition)

func WithImage(image string) Option {
	return func(d *Definition) {
		if image != "" {
			d.Image = image
		}
	}
}

func WithSystemDependencies(deps ...string) Option {
	return func(d *Definition) {
		d.SystemDependencies = append(d.SystemDependencies, deps...)
	}
}

// WithExtraFiles bundles auxiliary files, relative to the base directory,
// under extra/ in the archive.
func WithExtraFiles(paths ...string) Option {
	return func(d *Definition) {
		d.ExtraFiles = append(d.ExtraFiles, paths...)
	}
}

// WithBaseDir sets the directory code and extra file paths are resolved
// against. Defaults to the working directory.
func WithBaseDir(dir string) Option {
	return func(d *Definition) {
		d.BaseDir = dir
	}
}

func WithVCSURL(url string) Option {
	return func(d *Definition) {
		d.VCSURL = url
	}
}

func WithArgs(args map[string]any) Option {
	return func(d *Definition) {
		for k, v := range args {
			d.Args[k] = v
		}
	}
}

// WithRunner attaches the live instance whose state is captured on save.
func WithRunner(r Runner) Option {
	return func(d *Definition) {
		d.Runner = r
	}
}

// Define validates handlers and assembles a definition. Route collisions,
// reserved routes and unsupported parameter types are validation errors.
func Define(name, modelSpec string, handlers []Handler, dependencies []string, opts ...Option) (*Definition, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	spec, err := ParseModelSpec(modelSpec)
	if err != nil {
		return nil, err
	}

	d := &Definition{
		Name:         name,
		Model:        spec,
		Image:        DefaultImage,
		Args:         map[string]any{},
		Dependencies: slices.Clone(dependencies),
	}
	for _, opt := range opts {
		opt(d)
	}

	routes := map[string]bool{}
	for _, h := range handlers {
		h.Path = NormalizePath(h.Path)
		if isReserved(h.Path) {
			return nil, qerr.Newf(qerr.CodeValidation, "route %s is reserved by the runtime", h.Path)
		}
		if routes[h.Path] {
			return nil, qerr.Newf(qerr.CodeValidation, "duplicate route %s", h.Path)
		}
		routes[h.Path] = true

		if h.Fn != nil && h.Mount != nil {
			return nil, qerr.Newf(qerr.CodeValidation, "route %s: handler cannot be both typed and mounted", h.Path)
		}
		if h.IsMounted() && len(h.Params) > 0 {
			return nil, qerr.Newf(qerr.CodeValidation, "route %s: mounted handlers take no parameters", h.Path)
		}
		seen := map[string]bool{}
		for _, p := range h.Params {
			if err := p.validate(); err != nil {
				return nil, qerr.Newf(qerr.CodeValidation, "route %s: %w", h.Path, err)
			}
			if seen[p.Name] {
				return nil, qerr.Newf(qerr.CodeValidation, "route %s: duplicate parameter %q", h.Path, p.Name)
			}
			seen[p.Name] = true
		}
		h.Params = slices.Clone(h.Params)
		d.Handlers = append(d.Handlers, h)
	}

	return d, nil
}

// Create resolves the model spec to a fresh runner and defines a photon from
// the handlers it declares.
func Create(name, modelSpec string, dependencies []string, opts ...Option) (*Definition, error) {
	spec, err := ParseModelSpec(modelSpec)
	if err != nil {
		return nil, err
	}
	r, err := spec.Instantiate()
	if err != nil {
		return nil, err
	}
	return Define(name, modelSpec, r.Handlers(), dependencies, append(opts, WithRunner(r))...)
}

// TypedHandlers returns the non-mounted handlers in declaration order.
func (d *Definition) TypedHandlers() []Handler {
	var out []Handler
	for _, h := range d.Handlers {
		if !h.IsMounted() {
			out = append(out, h)
		}
	}
	return out
}

// RequirementDependency merges auto-collected dependencies ahead of the
// declared ones, dropping duplicates and keeping first occurrence order.
func (d *Definition) RequirementDependency() []string {
	return mergeDependencies(d.Runner, d.Dependencies)
}

func mergeDependencies(r Runner, declared []string) []string {
	var auto []string
	if req, ok := r.(Requirements); ok {
		auto = req.RequirementDependency()
	}
	return dedupe(append(slices.Clone(auto), declared...))
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

package photon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/qlog"
)

type loadOptions struct {
	workDir string
	env     map[string]string
	checker DependencyChecker
	log     *qlog.Logger
}

type LoadOption func(*loadOptions)

// WithWorkDir unpacks code into dir instead of a fresh temp directory.
func WithWorkDir(dir string) LoadOption {
	return func(o *loadOptions) {
		o.workDir = dir
	}
}

// WithEnv passes launch environment to the runner's Init.
func WithEnv(env map[string]string) LoadOption {
	return func(o *loadOptions) {
		o.env = env
	}
}

func WithDependencyChecker(c DependencyChecker) LoadOption {
	return func(o *loadOptions) {
		o.checker = c
	}
}

func WithLogger(log *qlog.Logger) LoadOption {
	return func(o *loadOptions) {
		o.log = log
	}
}

// Instance is a loaded, runnable photon.
type Instance struct {
	Metadata *Metadata
	Runner   Runner
	WorkDir  string

	handlers []Handler
	byPath   map[string]Handler
	missing  []string
	ownsDir  bool
	log      *qlog.Logger

	mu       sync.Mutex
	invoked  map[string]bool
	degraded map[string]error
}

// Load reconstructs a runnable instance from an artifact and re-binds every
// route recorded in its metadata. Missing dependencies do not fail the load;
// handlers that fail their first invocation while dependencies are missing
// are marked degraded.
func Load(ctx context.Context, path string, opts ...LoadOption) (*Instance, error) {
	o := loadOptions{checker: PipChecker, log: qlog.NewDefault()}
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

	spec, err := ParseModelSpec(md.Model)
	if err != nil {
		return nil, qerr.Newf(qerr.CodeCorruptArtifact, "model %q: %w", md.Model, err)
	}
	runner, err := spec.Instantiate()
	if err != nil {
		return nil, qerr.Newf(qerr.CodeCorruptArtifact, "model %q: %w", md.Model, err)
	}

	inst := &Instance{
		Metadata: md,
		Runner:   runner,
		WorkDir:  o.workDir,
		byPath:   map[string]Handler{},
		log:      o.log,
		invoked:  map[string]bool{},
		degraded: map[string]error{},
	}
	if inst.WorkDir == "" {
		dir, err := os.MkdirTemp("", "photon-"+md.Name+"-")
		if err != nil {
			return nil, fmt.Errorf("creating work dir: %w", err)
		}
		inst.WorkDir = dir
		inst.ownsDir = true
	}
	fail := func(err error) (*Instance, error) {
		inst.Close()
		return nil, err
	}

	rc := RunContext{Name: md.Name, WorkDir: inst.WorkDir, Env: o.env, Args: md.Args}
	if spec.HasCode() {
		written, err := extractPrefix(&zr.Reader, CodeDir, inst.WorkDir)
		if err != nil {
			return fail(err)
		}
		if len(written) == 0 {
			return fail(qerr.Newf(qerr.CodeCorruptArtifact, "archive has no code for %s", md.Model))
		}
		rc.CodePath = filepath.Join(inst.WorkDir, filepath.FromSlash(spec.CodePath))
	}

	if hasEntry(&zr.Reader, StateFile) {
		s, ok := runner.(Stateful)
		if !ok {
			return fail(qerr.Newf(qerr.CodeCorruptArtifact, "archive carries state but %s is stateless", md.Model))
		}
		state, err := readEntry(&zr.Reader, StateFile)
		if err != nil {
			return fail(err)
		}
		if err := s.UnmarshalState(state); err != nil {
			return fail(qerr.Newf(qerr.CodeCorruptArtifact, "restoring state: %w", err))
		}
	}

	if initer, ok := runner.(Initializer); ok {
		if err := initer.Init(ctx, rc); err != nil {
			return fail(fmt.Errorf("initializing %s: %w", md.Name, err))
		}
	}

	if err := inst.bind(); err != nil {
		return fail(err)
	}

	for _, dep := range md.RequirementDependency {
		if err := o.checker(ctx, dep); err != nil {
			inst.missing = append(inst.missing, dep)
		}
	}
	if len(inst.missing) > 0 {
		depErr := qerr.Newf(qerr.CodeDependency, "declared dependencies are not installed: %v", inst.missing)
		inst.log.Warn(depErr.Error(), "photon", md.Name)
	}

	return inst, nil
}

func (i *Instance) bind() error {
	live := map[string]Handler{}
	for _, h := range i.Runner.Handlers() {
		h.Path = NormalizePath(h.Path)
		live[h.Path] = h
	}

	paths, err := i.Metadata.Paths()
	if err != nil {
		return err
	}
	for _, p := range paths {
		h, ok := live[p]
		if !ok || h.IsMounted() || h.Fn == nil {
			return qerr.Newf(qerr.CodeCorruptArtifact, "route %s recorded in metadata has no handler", p)
		}
		i.handlers = append(i.handlers, h)
		i.byPath[p] = h
	}
	for _, p := range i.Metadata.MountedPaths {
		p = NormalizePath(p)
		h, ok := live[p]
		if !ok || !h.IsMounted() {
			return qerr.Newf(qerr.CodeCorruptArtifact, "mounted route %s recorded in metadata has no handler", p)
		}
		i.handlers = append(i.handlers, h)
		i.byPath[p] = h
	}
	return nil
}

// Handlers returns the bound handlers: typed routes sorted by path, then
// mounted routes.
func (i *Instance) Handlers() []Handler {
	return i.handlers
}

func (i *Instance) Handler(path string) (Handler, bool) {
	h, ok := i.byPath[NormalizePath(path)]
	return h, ok
}

// Invoke binds a JSON body against the route's parameters and calls it.
func (i *Instance) Invoke(ctx context.Context, path string, body []byte) (any, error) {
	h, ok := i.Handler(path)
	if !ok || h.IsMounted() {
		return nil, qerr.Newf(qerr.CodeNotFound, "no typed handler for route %s", path)
	}
	args, err := Bind(h.Params, body)
	if err != nil {
		return nil, err
	}
	return i.Call(ctx, h.Path, h.Fn, args)
}

// Call runs fn for route and tracks first-invocation failures.
func (i *Instance) Call(ctx context.Context, route string, fn HandlerFunc, args Args) (any, error) {
	out, err := fn(ctx, args)

	i.mu.Lock()
	first := !i.invoked[route]
	i.invoked[route] = true
	if err != nil && first && len(i.missing) > 0 {
		i.degraded[route] = err
		i.mu.Unlock()
		i.log.Warn("handler degraded", "route", route, "missing", i.missing)
		return nil, qerr.Newf(qerr.CodeDependency, "%s failed with missing dependencies %v: %w", route, i.missing, err)
	}
	i.mu.Unlock()

	return out, err
}

// Degraded lists routes marked degraded, sorted.
func (i *Instance) Degraded() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]string, 0, len(i.degraded))
	for p := range i.degraded {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (i *Instance) MissingDependencies() []string {
	return i.missing
}

// Close removes the work directory if Load created it.
func (i *Instance) Close() error {
	if i.ownsDir && i.WorkDir != "" {
		return os.RemoveAll(i.WorkDir)
	}
	return nil
}

// Package deploy turns a run request into a concrete deployment intent,
// either a local launch of a registered archive or a remote run through a
// workspace.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"

	"github.com/quatton/photon/pkg/photon"
	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/qlog"
	"github.com/quatton/photon/pkg/registry"
	"github.com/quatton/photon/pkg/remote"
)

const (
	DefaultPort            = 8080
	DefaultMaxPortAttempts = 100
	DefaultMaxNameAttempts = 16
)

type Target string

const (
	TargetLocal  Target = "local"
	TargetRemote Target = "remote"
)

// State names a step of the resolution.
type State string

const (
	StateParseRequest  State = "parse_request"
	StateResolveTarget State = "resolve_target"
	StateLocalPath     State = "local_path"
	StateRemotePath    State = "remote_path"
	StateResolved      State = "resolved"
	StateRejected      State = "rejected"
)

// Request carries the run flags as given.
type Request struct {
	Name           string
	Model          string
	File           string
	ID             string
	Local          bool
	Port           int
	CPU            float64
	MemoryMB       int
	MinReplicas    int
	Mounts         []string
	Envs           []string
	Secrets        []string
	DeploymentName string
	Container      bool

	// InheritEnv names variables copied from the process environment into
	// the launch env. Explicit Envs win.
	InheritEnv []string
}

// Intent is a fully resolved deployment. Env is handed to the launcher
// explicitly and never written to the process environment.
type Intent struct {
	Target         Target
	ArtifactID     string
	ArtifactName   string
	ArtifactPath   string
	Metadata       *photon.Metadata
	DeploymentName string
	Port           int
	Env            map[string]string
	Secrets        map[string]string
	Mounts         []remote.Mount
	Resources      remote.Resources
	WorkDir        string
	Container      bool

	// Trace lists the states visited, ending in Resolved or Rejected.
	Trace []State
}

// Spec converts a remote intent into the request for the workspace.
func (i *Intent) Spec() remote.DeploymentSpec {
	return remote.DeploymentSpec{
		Name:      i.DeploymentName,
		PhotonID:  i.ArtifactID,
		Resources: i.Resources,
		Mounts:    i.Mounts,
		Env:       i.Env,
		Secrets:   i.Secrets,
	}
}

// Lookup is the part of the local registry the resolver reads.
type Lookup interface {
	FindLatest(ctx context.Context, name string) (*registry.Record, error)
	FindByID(ctx context.Context, id string) (*registry.Record, error)
}

// CreateFunc packages and registers a new photon and returns its archive path.
type CreateFunc func(ctx context.Context, name, model string) (string, error)

// FetchFunc checks out a vcs_url and returns the working directory.
type FetchFunc func(ctx context.Context, url string) (string, error)

type Resolver struct {
	lookup          Lookup
	remote          remote.Client
	create          CreateFunc
	fetch           FetchFunc
	probe           PortProbe
	rnd             *rand.Rand
	maxPortAttempts int
	maxNameAttempts int
	lookupEnv       func(string) (string, bool)
	log             *qlog.Logger
}

type Option func(*Resolver)

// WithRemote configures a workspace. Without one every run is local.
func WithRemote(c remote.Client) Option {
	return func(r *Resolver) {
		r.remote = c
	}
}

func WithCreate(fn CreateFunc) Option {
	return func(r *Resolver) {
		r.create = fn
	}
}

func WithFetch(fn FetchFunc) Option {
	return func(r *Resolver) {
		r.fetch = fn
	}
}

func WithPortProbe(p PortProbe) Option {
	return func(r *Resolver) {
		r.probe = p
	}
}

// WithRand injects the randomness used for generated deployment names.
func WithRand(rnd *rand.Rand) Option {
	return func(r *Resolver) {
		r.rnd = rnd
	}
}

func WithMaxPortAttempts(n int) Option {
	return func(r *Resolver) {
		r.maxPortAttempts = n
	}
}

func WithMaxNameAttempts(n int) Option {
	return func(r *Resolver) {
		r.maxNameAttempts = n
	}
}

// WithEnvLookup replaces os.LookupEnv for InheritEnv.
func WithEnvLookup(fn func(string) (string, bool)) Option {
	return func(r *Resolver) {
		r.lookupEnv = fn
	}
}

func WithLogger(log *qlog.Logger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

func NewResolver(lookup Lookup, opts ...Option) *Resolver {
	r := &Resolver{
		lookup:          lookup,
		probe:           TCPProbe,
		rnd:             rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		maxPortAttempts: DefaultMaxPortAttempts,
		maxNameAttempts: DefaultMaxNameAttempts,
		lookupEnv:       os.LookupEnv,
		log:             qlog.NewDiscard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type resolution struct {
	req    Request
	intent *Intent
	err    error
}

type stateFn func(ctx context.Context, res *resolution) (State, error)

// Resolve walks the request through the resolution states. The returned
// intent carries the trace even when resolution is rejected.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Intent, error) {
	res := &resolution{req: req, intent: &Intent{Container: req.Container}}
	states := map[State]stateFn{
		StateParseRequest:  r.parseRequest,
		StateResolveTarget: r.resolveTarget,
		StateLocalPath:     r.localPath,
		StateRemotePath:    r.remotePath,
	}

	state := StateParseRequest
	for {
		res.intent.Trace = append(res.intent.Trace, state)
		if state == StateResolved {
			return res.intent, nil
		}
		if state == StateRejected {
			return res.intent, res.err
		}
		next, err := states[state](ctx, res)
		if err != nil {
			res.err = err
			next = StateRejected
		}
		state = next
	}
}

func (r *Resolver) parseRequest(_ context.Context, res *resolution) (State, error) {
	if res.req.ID != "" && res.req.Name != "" {
		return "", qerr.Newf(qerr.CodeValidation, "must specify either --id or --name, not both")
	}
	env, err := ParseEnvs(res.req.Envs)
	if err != nil {
		return "", err
	}
	for _, name := range res.req.InheritEnv {
		if _, set := env[name]; set {
			continue
		}
		if v, ok := r.lookupEnv(name); ok {
			env[name] = v
		}
	}
	res.intent.Env = env
	return StateResolveTarget, nil
}

func (r *Resolver) resolveTarget(_ context.Context, res *resolution) (State, error) {
	if r.remote != nil && !res.req.Local {
		res.intent.Target = TargetRemote
		return StateRemotePath, nil
	}
	res.intent.Target = TargetLocal
	return StateLocalPath, nil
}

func (r *Resolver) remotePath(ctx context.Context, res *resolution) (State, error) {
	req := res.req
	if req.ID == "" && req.Name == "" {
		return "", qerr.Newf(qerr.CodeValidation, "must specify --id or --name to run on a workspace")
	}

	arts, err := r.remote.ListArtifacts(ctx)
	if err != nil {
		return "", err
	}
	var art remote.Artifact
	var ok bool
	if req.ID == "" {
		if art, ok = remote.LatestByName(arts, req.Name); !ok {
			return "", qerr.Newf(qerr.CodeNotFound, "photon %s does not exist", req.Name)
		}
		r.log.Info("running the most recent version", "id", art.ID)
	} else {
		if art, ok = remote.FindByID(arts, req.ID); !ok {
			return "", qerr.Newf(qerr.CodeNotFound, "photon with id %s does not exist", req.ID)
		}
		r.log.Info("running the specified version", "id", art.ID)
	}

	intent := res.intent
	intent.ArtifactID = art.ID
	intent.ArtifactName = art.Name
	if intent.Secrets, err = ParseSecrets(req.Secrets); err != nil {
		return "", err
	}
	if intent.Mounts, err = ParseMounts(req.Mounts); err != nil {
		return "", err
	}
	intent.Resources = remote.Resources{CPU: req.CPU, MemoryMB: req.MemoryMB, MinReplicas: req.MinReplicas}

	deployments, err := r.remote.ListDeployments(ctx)
	if err != nil {
		return "", err
	}
	name, err := ResolveDeploymentName(req.DeploymentName, req.Name, art.ID, remote.DeploymentNames(deployments), r.rnd, r.maxNameAttempts)
	if err != nil {
		return "", err
	}
	intent.DeploymentName = name
	return StateResolved, nil
}

func (r *Resolver) localPath(ctx context.Context, res *resolution) (State, error) {
	req := res.req
	intent := res.intent
	if req.Name == "" && req.File == "" && req.ID == "" {
		return "", qerr.Newf(qerr.CodeValidation, "must specify either --name or --file")
	}

	path, err := r.findLocal(ctx, req)
	if err != nil {
		return "", err
	}

	if path != "" {
		if req.Model != "" {
			md, err := photon.LoadMetadata(path)
			if err != nil {
				return "", err
			}
			r.log.Warn(fmt.Sprintf("photon %s was previously created with model %s, the newly specified model %q will be ignored", md.Name, md.Model, req.Model))
		}
	} else {
		target := req.Name
		if target == "" {
			target = req.File
		}
		if req.Name == "" || req.Model == "" || r.create == nil {
			return "", qerr.Newf(qerr.CodeNotFound, "photon %s does not exist", target)
		}
		r.log.Info("photon does not exist, creating it", "name", req.Name, "model", req.Model)
		if path, err = r.create(ctx, req.Name, req.Model); err != nil {
			return "", err
		}
	}

	if len(req.Mounts) > 0 || len(req.Secrets) > 0 {
		r.log.Warn("mounts and secrets are only supported for remote execution, they will be ignored for local execution")
	}

	md, err := photon.LoadMetadata(path)
	if err != nil {
		return "", err
	}
	intent.ArtifactPath = path
	intent.ArtifactName = md.Name
	intent.Metadata = md

	if md.VCSURL != "" && r.fetch != nil {
		dir, err := r.fetch(ctx, md.VCSURL)
		if err != nil {
			return "", err
		}
		intent.WorkDir = dir
	}

	start := req.Port
	if start == 0 {
		start = DefaultPort
	}
	port, err := ResolvePort(start, r.maxPortAttempts, r.probe, func(p int) {
		r.log.Warn(fmt.Sprintf("port %d already in use, incrementing port number to find an available one", p))
	})
	if err != nil {
		return "", err
	}
	intent.Port = port
	return StateResolved, nil
}

// findLocal returns the archive to run, or "" when nothing is registered
// under the requested name.
func (r *Resolver) findLocal(ctx context.Context, req Request) (string, error) {
	if req.File != "" {
		if _, err := os.Stat(req.File); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", nil
			}
			return "", err
		}
		return req.File, nil
	}

	var rec *registry.Record
	var err error
	if req.ID != "" {
		rec, err = r.lookup.FindByID(ctx, req.ID)
	} else {
		rec, err = r.lookup.FindLatest(ctx, req.Name)
	}
	if qerr.IsCode(err, qerr.CodeNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	res := rec.Path
	if _, err := os.Stat(res); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	return res, nil
}

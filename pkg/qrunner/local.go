package qrunner

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quatton/photon/pkg/photon"
	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/qlog"
	"github.com/quatton/photon/pkg/server"
)

// LocalLauncher serves photons in the current process.
type LocalLauncher struct {
	host       string
	checker    photon.DependencyChecker
	requestLog bool
	log        *qlog.Logger

	mu       sync.RWMutex
	launches map[string]*localLaunch
}

type localLaunch struct {
	launch *Launch
	inst   *photon.Instance
	cancel context.CancelFunc
	done   chan struct{}
}

type LocalLauncherOption func(*LocalLauncher)

// WithHost sets the interface to bind. Defaults to all interfaces.
func WithHost(host string) LocalLauncherOption {
	return func(l *LocalLauncher) {
		l.host = host
	}
}

func WithDependencyChecker(c photon.DependencyChecker) LocalLauncherOption {
	return func(l *LocalLauncher) {
		l.checker = c
	}
}

func WithRequestLog(on bool) LocalLauncherOption {
	return func(l *LocalLauncher) {
		l.requestLog = on
	}
}

func WithLogger(log *qlog.Logger) LocalLauncherOption {
	return func(l *LocalLauncher) {
		l.log = log
	}
}

func NewLocalLauncher(opts ...LocalLauncherOption) *LocalLauncher {
	l := &LocalLauncher{
		checker:    photon.PipChecker,
		requestLog: true,
		log:        qlog.NewDiscard(),
		launches:   make(map[string]*localLaunch),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *LocalLauncher) Start(ctx context.Context, spec LaunchSpec) (*Launch, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID: %w", err)
	}

	loadOpts := []photon.LoadOption{
		photon.WithEnv(spec.Env),
		photon.WithDependencyChecker(l.checker),
		photon.WithLogger(l.log),
	}
	if spec.WorkDir != "" {
		loadOpts = append(loadOpts, photon.WithWorkDir(spec.WorkDir))
	}
	inst, err := photon.Load(ctx, spec.ArtifactPath, loadOpts...)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(l.host, fmt.Sprint(spec.Port)))
	if err != nil {
		inst.Close()
		return nil, qerr.Newf(qerr.CodePortUnavailable, "port %d: %w", spec.Port, err)
	}

	launch := &Launch{
		ID:        id.String(),
		Name:      inst.Metadata.Name,
		Backend:   "local",
		Status:    LaunchStatusRunning,
		Addr:      listener.Addr().String(),
		CreatedAt: time.Now(),
		Metadata:  map[string]string{"artifact": spec.ArtifactPath, "work_dir": inst.WorkDir},
	}

	// The serve context outlives ctx; Stop or Wait's caller ends it.
	serveCtx, cancel := context.WithCancel(context.Background())
	proc := &localLaunch{launch: launch, inst: inst, cancel: cancel, done: make(chan struct{})}

	l.mu.Lock()
	l.launches[launch.ID] = proc
	l.mu.Unlock()

	srv := server.New(inst, server.WithLogger(l.log), server.WithRequestLog(l.requestLog))
	go l.serve(serveCtx, proc, srv, listener)

	return l.snapshot(proc), nil
}

func (l *LocalLauncher) serve(ctx context.Context, proc *localLaunch, srv *server.Server, listener net.Listener) {
	err := srv.ServeListener(ctx, listener, nil)
	closeErr := proc.inst.Close()

	l.mu.Lock()
	now := time.Now()
	proc.launch.FinishedAt = &now
	proc.launch.Status = LaunchStatusStopped
	if err != nil {
		proc.launch.Status = LaunchStatusFailed
		proc.launch.Error = err.Error()
	} else if closeErr != nil {
		l.log.Warn("removing work dir", "error", closeErr)
	}
	l.mu.Unlock()

	close(proc.done)
}

func (l *LocalLauncher) get(id string) (*localLaunch, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	proc, ok := l.launches[id]
	if !ok {
		return nil, qerr.Newf(qerr.CodeNotFound, "launch %s not found", id)
	}
	return proc, nil
}

func (l *LocalLauncher) snapshot(proc *localLaunch) *Launch {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cp := *proc.launch
	return &cp
}

// Wait blocks until the launch stops. Cancelling ctx stops the launch
// gracefully before returning.
func (l *LocalLauncher) Wait(ctx context.Context, id string) (*Launch, error) {
	proc, err := l.get(id)
	if err != nil {
		return nil, err
	}

	select {
	case <-proc.done:
	case <-ctx.Done():
		proc.cancel()
		<-proc.done
	}
	return l.snapshot(proc), nil
}

func (l *LocalLauncher) Stop(ctx context.Context, id string) error {
	proc, err := l.get(id)
	if err != nil {
		return err
	}
	proc.cancel()
	select {
	case <-proc.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List returns every launch started by this launcher.
func (l *LocalLauncher) List() []*Launch {
	l.mu.RLock()
	procs := make([]*localLaunch, 0, len(l.launches))
	for _, p := range l.launches {
		procs = append(procs, p)
	}
	l.mu.RUnlock()

	out := make([]*Launch, 0, len(procs))
	for _, p := range procs {
		out = append(out, l.snapshot(p))
	}
	return out
}

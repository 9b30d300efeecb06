package qrunner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/qlog"
)

// dockerAPI is the part of the docker client the launcher uses.
type dockerAPI interface {
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
}

// DockerLauncher serves a photon inside a container running
// "photon prepare" followed by "photon run --local".
type DockerLauncher struct {
	client dockerAPI
	config ContainerConfig
	stdout io.Writer
	stderr io.Writer
	log    *qlog.Logger

	mu       sync.RWMutex
	launches map[string]*dockerLaunch
}

type dockerLaunch struct {
	launch      *Launch
	containerID string
	done        chan struct{}
}

type DockerLauncherOption func(*DockerLauncher)

func WithDockerClient(c dockerAPI) DockerLauncherOption {
	return func(d *DockerLauncher) {
		d.client = c
	}
}

// WithOutput streams container logs to stdout and stderr.
func WithOutput(stdout, stderr io.Writer) DockerLauncherOption {
	return func(d *DockerLauncher) {
		d.stdout = stdout
		d.stderr = stderr
	}
}

func WithDockerLogger(log *qlog.Logger) DockerLauncherOption {
	return func(d *DockerLauncher) {
		d.log = log
	}
}

// NewDockerLauncher connects to the daemon from DOCKER_HOST and friends
// unless a client is injected.
func NewDockerLauncher(config ContainerConfig, opts ...DockerLauncherOption) (*DockerLauncher, error) {
	d := &DockerLauncher{
		config:   config,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		log:      qlog.NewDiscard(),
		launches: make(map[string]*dockerLaunch),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		c, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return nil, qerr.Newf(qerr.CodeNetwork, "connecting to docker: %w", err)
		}
		d.client = c
	}
	return d, nil
}

func (d *DockerLauncher) Start(ctx context.Context, spec LaunchSpec) (*Launch, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID: %w", err)
	}

	cfg := d.config
	if spec.Image != "" {
		cfg.Image = spec.Image
	}
	if cfg.Image == "" {
		return nil, qerr.Newf(qerr.CodeValidation, "no runtime image for %s", spec.Name)
	}

	containerCfg, hostCfg, err := buildContainerConfig(spec, cfg)
	if err != nil {
		return nil, err
	}

	d.log.Info("pulling image", "image", cfg.Image)
	pull, err := d.client.ImagePull(ctx, cfg.Image, image.PullOptions{})
	if err != nil {
		return nil, qerr.Newf(qerr.CodeNetwork, "pulling %s: %w", cfg.Image, err)
	}
	io.Copy(io.Discard, pull)
	pull.Close()

	name := fmt.Sprintf("photon-%s-%s", spec.Name, id.String()[len(id.String())-8:])
	created, err := d.client.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	if err := d.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		d.client.ContainerRemove(context.Background(), created.ID, container.RemoveOptions{Force: true})
		return nil, fmt.Errorf("starting container: %w", err)
	}

	launch := &Launch{
		ID:        id.String(),
		Name:      spec.Name,
		Backend:   "docker",
		Status:    LaunchStatusRunning,
		Addr:      fmt.Sprintf("0.0.0.0:%d", spec.Port),
		CreatedAt: time.Now(),
		Metadata: map[string]string{
			"container_id":   created.ID,
			"container_name": name,
			"image":          cfg.Image,
		},
	}
	proc := &dockerLaunch{launch: launch, containerID: created.ID, done: make(chan struct{})}

	d.mu.Lock()
	d.launches[launch.ID] = proc
	d.mu.Unlock()

	go d.follow(proc)
	return d.snapshot(proc), nil
}

// follow streams logs and records the exit of the container.
func (d *DockerLauncher) follow(proc *dockerLaunch) {
	ctx := context.Background()
	logs, err := d.client.ContainerLogs(ctx, proc.containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true, Follow: true})
	if err == nil {
		go func() {
			defer logs.Close()
			stdcopy.StdCopy(d.stdout, d.stderr, logs)
		}()
	}

	var exitErr string
	statusCh, errCh := d.client.ContainerWait(ctx, proc.containerID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			exitErr = err.Error()
		}
	case st := <-statusCh:
		if st.Error != nil {
			exitErr = st.Error.Message
		} else if st.StatusCode != 0 {
			exitErr = fmt.Sprintf("container exited with code %d", st.StatusCode)
		}
	}

	d.client.ContainerRemove(ctx, proc.containerID, container.RemoveOptions{Force: true})

	d.mu.Lock()
	now := time.Now()
	proc.launch.FinishedAt = &now
	proc.launch.Status = LaunchStatusStopped
	if exitErr != "" {
		proc.launch.Status = LaunchStatusFailed
		proc.launch.Error = exitErr
	}
	d.mu.Unlock()
	close(proc.done)
}

func (d *DockerLauncher) get(id string) (*dockerLaunch, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	proc, ok := d.launches[id]
	if !ok {
		return nil, qerr.Newf(qerr.CodeNotFound, "launch %s not found", id)
	}
	return proc, nil
}

func (d *DockerLauncher) snapshot(proc *dockerLaunch) *Launch {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cp := *proc.launch
	return &cp
}

// Wait blocks until the container exits. Cancelling ctx stops the container.
func (d *DockerLauncher) Wait(ctx context.Context, id string) (*Launch, error) {
	proc, err := d.get(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-proc.done:
	case <-ctx.Done():
		if err := d.stop(proc); err != nil {
			return nil, err
		}
		<-proc.done
	}
	return d.snapshot(proc), nil
}

func (d *DockerLauncher) Stop(ctx context.Context, id string) error {
	proc, err := d.get(id)
	if err != nil {
		return err
	}
	if err := d.stop(proc); err != nil {
		return err
	}
	select {
	case <-proc.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *DockerLauncher) stop(proc *dockerLaunch) error {
	timeout := 10
	if err := d.client.ContainerStop(context.Background(), proc.containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("stopping container %s: %w", proc.containerID, err)
	}
	return nil
}

// buildContainerConfig translates the launch into docker's create request.
// The archive is bind-mounted read-only and the photon port is published on
// the same host port.
func buildContainerConfig(spec LaunchSpec, cfg ContainerConfig) (*container.Config, *container.HostConfig, error) {
	abs, err := filepath.Abs(spec.ArtifactPath)
	if err != nil {
		return nil, nil, err
	}
	inContainer := ContainerArtifactPath(abs)

	port := nat.Port(fmt.Sprintf("%d/tcp", spec.Port))

	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+spec.Env[k])
	}

	mounts := []mount.Mount{{
		Type:     mount.TypeBind,
		Source:   abs,
		Target:   inContainer,
		ReadOnly: true,
	}}
	for _, m := range cfg.Mounts {
		typ := mount.TypeBind
		if m.Type == "volume" {
			typ = mount.TypeVolume
		}
		mounts = append(mounts, mount.Mount{Type: typ, Source: m.Source, Target: m.Destination, ReadOnly: m.ReadOnly})
	}

	var resources container.Resources
	cpu, ok, err := parseQuantity(cfg.Resources.CPULimit)
	if err != nil {
		return nil, nil, qerr.New(qerr.CodeValidation, err)
	}
	if ok {
		resources.NanoCPUs = cpu.MilliValue() * 1_000_000
	}
	mem, ok, err := parseQuantity(cfg.Resources.MemoryLimit)
	if err != nil {
		return nil, nil, qerr.New(qerr.CodeValidation, err)
	}
	if ok {
		resources.Memory = mem.Value()
	}

	containerCfg := &container.Config{
		Image:        cfg.Image,
		Cmd:          WrapCommandForLocal(inContainer, spec.Port, keys...),
		Env:          env,
		ExposedPorts: nat.PortSet{port: struct{}{}},
		Labels: map[string]string{
			"photon.name": spec.Name,
		},
	}
	hostCfg := &container.HostConfig{
		Mounts:       mounts,
		Resources:    resources,
		NetworkMode:  container.NetworkMode(cfg.NetworkMode),
		PortBindings: nat.PortMap{port: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: fmt.Sprint(spec.Port)}}},
	}
	return containerCfg, hostCfg, nil
}

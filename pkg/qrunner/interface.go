package qrunner

import (
	"context"
	"time"
)

// LaunchStatus is the state of a launched photon.
type LaunchStatus string

const (
	LaunchStatusPending LaunchStatus = "pending"
	LaunchStatusRunning LaunchStatus = "running"
	LaunchStatusStopped LaunchStatus = "stopped"
	LaunchStatusFailed  LaunchStatus = "failed"
)

// LaunchSpec describes a resolved local deployment.
type LaunchSpec struct {
	Name         string            // photon name
	ArtifactPath string            // archive on the host
	Port         int               // port to serve on
	Env          map[string]string // launch environment, never written to the process env
	WorkDir      string            // checkout of vcs_url, if any
	Image        string            // runtime image (container launches only)
}

// Launch is a running or finished photon.
type Launch struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Backend    string            `json:"backend"`
	Status     LaunchStatus      `json:"status"`
	Addr       string            `json:"addr,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (l *Launch) Done() bool {
	return l.Status == LaunchStatusStopped || l.Status == LaunchStatusFailed
}

// Launcher serves photons until stopped.
type Launcher interface {
	// Start launches the photon and returns once it accepts requests.
	Start(ctx context.Context, spec LaunchSpec) (*Launch, error)

	// Wait blocks until the launch finishes or ctx is done.
	Wait(ctx context.Context, id string) (*Launch, error)

	// Stop shuts the launch down.
	Stop(ctx context.Context, id string) error
}

package deploy

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/quatton/photon/pkg/photon"
	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/qlog"
)

// DefaultInstaller is prefixed to the requirements file path.
var DefaultInstaller = []string{"pip", "install", "-r"}

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(prompt string) (bool, error)

// Preparer installs what an archive declares before it is served, usually
// inside the runtime container.
type Preparer struct {
	runner    CommandRunner
	installer []string
	lookPath  func(string) (string, error)
	confirm   ConfirmFunc
	fetch     FetchFunc
	dest      string
	log       *qlog.Logger
}

type PrepareOption func(*Preparer)

func WithCommandRunner(r CommandRunner) PrepareOption {
	return func(p *Preparer) {
		p.runner = r
	}
}

// WithInstaller overrides the package manager command, e.g. "uv pip install -r".
func WithInstaller(argv []string) PrepareOption {
	return func(p *Preparer) {
		if len(argv) > 0 {
			p.installer = argv
		}
	}
}

func WithLookPath(fn func(string) (string, error)) PrepareOption {
	return func(p *Preparer) {
		p.lookPath = fn
	}
}

// WithConfirm sets the prompt used before running sudo. Nil skips the prompt.
func WithConfirm(fn ConfirmFunc) PrepareOption {
	return func(p *Preparer) {
		p.confirm = fn
	}
}

func WithPrepareFetch(fn FetchFunc) PrepareOption {
	return func(p *Preparer) {
		p.fetch = fn
	}
}

// WithDestination is where extra files are unpacked. Defaults to the working
// directory.
func WithDestination(dir string) PrepareOption {
	return func(p *Preparer) {
		p.dest = dir
	}
}

func WithPrepareLogger(log *qlog.Logger) PrepareOption {
	return func(p *Preparer) {
		p.log = log
	}
}

func NewPreparer(opts ...PrepareOption) *Preparer {
	p := &Preparer{
		runner:    ExecRunner{},
		installer: DefaultInstaller,
		lookPath:  exec.LookPath,
		log:       qlog.NewDiscard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prepare unpacks extra files, fetches vcs_url and installs requirement and
// system dependencies. It is safe to run twice.
func (p *Preparer) Prepare(ctx context.Context, path string) (*photon.Metadata, error) {
	md, err := photon.LoadMetadata(path, photon.UnpackExtraFiles(p.dest))
	if err != nil {
		return nil, err
	}

	if md.VCSURL != "" && p.fetch != nil {
		if _, err := p.fetch(ctx, md.VCSURL); err != nil {
			return nil, err
		}
	}

	if err := p.installRequirements(md.RequirementDependency); err != nil {
		return nil, err
	}
	if err := p.installSystem(md.SystemDependency); err != nil {
		return nil, err
	}
	return md, nil
}

func (p *Preparer) installRequirements(deps []string) error {
	if len(deps) == 0 {
		return nil
	}

	f, err := os.CreateTemp("", "photon-requirements-*.txt")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	content := strings.Join(deps, "\n")
	if _, err := f.WriteString(content + "\n"); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	tool, err := p.lookPath(p.installer[0])
	if err != nil {
		return qerr.Newf(qerr.CodeDependencyInstall, "cannot install requirement dependencies because %s is not available", p.installer[0])
	}
	p.log.Info("installing requirement dependencies", "packages", deps)
	args := append(append([]string{}, p.installer[1:]...), f.Name())
	return p.run(tool, args...)
}

func (p *Preparer) installSystem(deps []string) error {
	if len(deps) == 0 {
		return nil
	}

	apt, err := p.lookPath("apt")
	if err != nil {
		if apt, err = p.lookPath("apt-get"); err != nil {
			return qerr.Newf(qerr.CodeDependencyInstall, "cannot install system dependencies because apt/apt-get is not available")
		}
	}
	sudo, err := p.lookPath("sudo")
	if err != nil {
		return qerr.Newf(qerr.CodeDependencyInstall, "cannot install system dependencies because sudo is not available")
	}

	if p.confirm != nil {
		ok, err := p.confirm(fmt.Sprintf("Installing system dependencies will run with sudo (%s), continue?", sudo))
		if err != nil {
			return err
		}
		if !ok {
			p.log.Warn("skipping system dependencies", "packages", deps)
			return nil
		}
	}

	p.log.Info("installing system dependencies", "packages", deps)
	if err := p.run(sudo, apt, "update"); err != nil {
		return err
	}
	return p.run(sudo, append([]string{apt, "install", "-y"}, deps...)...)
}

func (p *Preparer) run(name string, args ...string) error {
	_, stderr, code, err := p.runner.Run(name, args...)
	if err != nil || code != 0 {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" && err != nil {
			msg = err.Error()
		}
		return qerr.Newf(qerr.CodeDependencyInstall, "%s %s failed (exit %d): %s", name, strings.Join(args, " "), code, msg)
	}
	return nil
}

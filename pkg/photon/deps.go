package photon

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DependencyChecker reports whether a declared package dependency is
// installed.
type DependencyChecker func(ctx context.Context, dep string) error

// PackageName strips version specifiers, extras and markers from a
// requirement line such as "numpy>=1.24; python_version>'3.8'".
func PackageName(requirement string) string {
	s := strings.TrimSpace(requirement)
	if i := strings.IndexAny(s, "<>=!~[;@ "); i >= 0 {
		s = s[:i]
	}
	return s
}

// PipChecker asks pip whether the package is installed.
func PipChecker(ctx context.Context, dep string) error {
	python, err := exec.LookPath("python3")
	if err != nil {
		if python, err = exec.LookPath("python"); err != nil {
			return fmt.Errorf("no python interpreter to check %s", dep)
		}
	}
	name := PackageName(dep)
	if name == "" {
		return nil
	}
	out, err := exec.CommandContext(ctx, python, "-m", "pip", "show", "-q", name).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s not installed: %s", name, strings.TrimSpace(string(out)))
	}
	return nil
}

// NoopChecker treats every dependency as installed.
func NoopChecker(context.Context, string) error {
	return nil
}

package photon

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Runner is a user-authored serving class.
type Runner interface {
	Handlers() []Handler
}

// RunContext is handed to Initializer.Init when an instance is constructed.
type RunContext struct {
	Name string
	// WorkDir holds the unpacked code/ tree; CodePath points at the
	// packaged file or directory inside it.
	WorkDir  string
	CodePath string
	Env      map[string]string
	Args     map[string]any
}

// Initializer runs once after state is restored and before serving.
type Initializer interface {
	Init(ctx context.Context, rc RunContext) error
}

// Stateful runners have their state captured into the artifact on save and
// restored on load.
type Stateful interface {
	MarshalState() ([]byte, error)
	UnmarshalState(data []byte) error
}

// Requirements reports package dependencies a runner needs, auto-collected
// into the artifact metadata ahead of the declared ones.
type Requirements interface {
	RequirementDependency() []string
}

// ClassFactory builds a fresh runner instance.
type ClassFactory func() Runner

// ProviderFactory builds a runner from a pretrained reference such as
// "gpt2" in "hf:gpt2".
type ProviderFactory func(ref string) (Runner, error)

var (
	registryMu sync.RWMutex
	classes    = map[string]ClassFactory{}
	providers  = map[string]ProviderFactory{}
)

// RegisterClass makes a runner class available to model specs. It panics if
// called twice with the same name or a nil factory.
func RegisterClass(name string, f ClassFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("photon: RegisterClass factory is nil")
	}
	if _, dup := classes[name]; dup {
		panic("photon: RegisterClass called twice for class " + name)
	}
	classes[name] = f
}

// RegisterProvider makes a pretrained scheme available to model specs. It
// panics if called twice with the same scheme or a nil factory.
func RegisterProvider(scheme string, f ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("photon: RegisterProvider factory is nil")
	}
	if scheme == codeScheme {
		panic("photon: scheme " + codeScheme + " is reserved")
	}
	if _, dup := providers[scheme]; dup {
		panic("photon: RegisterProvider called twice for scheme " + scheme)
	}
	providers[scheme] = f
}

func lookupClass(name string) (ClassFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := classes[name]
	return f, ok
}

func lookupProvider(scheme string) (ProviderFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := providers[scheme]
	return f, ok
}

// Classes lists registered class names, sorted.
func Classes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(classes))
	for n := range classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func newClass(name string) (Runner, error) {
	f, ok := lookupClass(name)
	if !ok {
		return nil, fmt.Errorf("class %q is not registered", name)
	}
	r := f()
	if r == nil {
		return nil, fmt.Errorf("class %q factory returned nil", name)
	}
	return r, nil
}

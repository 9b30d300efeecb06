package photon

import (
	"regexp"
	"strings"

	"github.com/quatton/photon/pkg/qerr"
)

const codeScheme = "code"

// SpecKind tells how a model spec constructs its runner.
type SpecKind int

const (
	// KindCode is user code plus a registered class name. The code path is
	// optional; a bare class name refers to a class compiled into the binary.
	KindCode SpecKind = iota
	// KindPretrained is a reference resolved by a registered provider.
	KindPretrained
)

func (k SpecKind) String() string {
	if k == KindPretrained {
		return "pretrained"
	}
	return "code"
}

// ModelSpec is the parsed form of a model specification string:
//
//	code:<path>:<Class>   local code packaged with the photon
//	<Class>               registered class, no extra code
//	<scheme>:<ref>        pretrained reference, e.g. hf:gpt2
type ModelSpec struct {
	Kind     SpecKind
	Raw      string
	CodePath string
	Class    string
	Scheme   string
	Ref      string
}

var classPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// ParseModelSpec dispatches on the spec prefix. It fails with a validation
// error on malformed specs and on unknown pretrained schemes.
func ParseModelSpec(raw string) (ModelSpec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ModelSpec{}, qerr.Newf(qerr.CodeValidation, "model spec must not be empty")
	}

	if rest, ok := strings.CutPrefix(s, codeScheme+":"); ok {
		i := strings.LastIndex(rest, ":")
		if i <= 0 || i == len(rest)-1 {
			return ModelSpec{}, qerr.Newf(qerr.CodeValidation, "model spec %q: expected code:<path>:<Class>", raw)
		}
		path, class := rest[:i], rest[i+1:]
		if !classPattern.MatchString(class) {
			return ModelSpec{}, qerr.Newf(qerr.CodeValidation, "model spec %q: invalid class name %q", raw, class)
		}
		return ModelSpec{Kind: KindCode, Raw: s, CodePath: path, Class: class}, nil
	}

	if scheme, ref, ok := strings.Cut(s, ":"); ok {
		if ref == "" {
			return ModelSpec{}, qerr.Newf(qerr.CodeValidation, "model spec %q: empty reference", raw)
		}
		if _, known := lookupProvider(scheme); !known {
			return ModelSpec{}, qerr.Newf(qerr.CodeValidation, "model spec %q: unknown scheme %q", raw, scheme)
		}
		return ModelSpec{Kind: KindPretrained, Raw: s, Scheme: scheme, Ref: ref}, nil
	}

	if !classPattern.MatchString(s) {
		return ModelSpec{}, qerr.Newf(qerr.CodeValidation, "model spec %q: invalid class name", raw)
	}
	return ModelSpec{Kind: KindCode, Raw: s, Class: s}, nil
}

func (m ModelSpec) String() string {
	return m.Raw
}

// HasCode reports whether the spec carries user code to package.
func (m ModelSpec) HasCode() bool {
	return m.Kind == KindCode && m.CodePath != ""
}

// Instantiate builds a fresh runner for the spec.
func (m ModelSpec) Instantiate() (Runner, error) {
	switch m.Kind {
	case KindPretrained:
		f, ok := lookupProvider(m.Scheme)
		if !ok {
			return nil, qerr.Newf(qerr.CodeValidation, "unknown model scheme %q", m.Scheme)
		}
		r, err := f(m.Ref)
		if err != nil {
			return nil, qerr.Newf(qerr.CodeValidation, "resolving %s: %w", m.Raw, err)
		}
		return r, nil
	default:
		r, err := newClass(m.Class)
		if err != nil {
			return nil, qerr.New(qerr.CodeValidation, err)
		}
		return r, nil
	}
}

package photon

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// HandlerFunc implements a typed handler. The returned value is encoded as
// the JSON response body.
type HandlerFunc func(ctx context.Context, args Args) (any, error)

// Handler is one routed operation of a photon. Exactly one of Fn or Mount is
// set: Fn for typed, schema-validated handlers and Mount for opaque
// sub-applications that receive every request under Path.
type Handler struct {
	Path    string
	Summary string
	Params  []Param
	Fn      HandlerFunc
	Mount   http.Handler
}

// Typed declares a schema-validated handler.
func Typed(path string, fn HandlerFunc, params ...Param) Handler {
	return Handler{Path: path, Params: params, Fn: fn}
}

// Mounted declares a passthrough sub-application.
func Mounted(path string, h http.Handler) Handler {
	return Handler{Path: path, Mount: h}
}

func (h Handler) IsMounted() bool {
	return h.Mount != nil
}

// NormalizePath gives every route a single leading slash and no trailing one.
func NormalizePath(p string) string {
	p = "/" + strings.Trim(strings.TrimSpace(p), "/")
	return p
}

var reservedPaths = []string{"/healthz", "/metrics", "/docs", "/schemas", "/openapi"}

func isReserved(p string) bool {
	for _, r := range reservedPaths {
		if p == r || strings.HasPrefix(p, r+"/") || strings.HasPrefix(p, r+".") {
			return true
		}
	}
	return false
}

// Args holds bound request parameters.
type Args map[string]any

func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a Args) Int(name string) int64 {
	switch v := a[name].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func (a Args) Float(name string) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

func (a Args) Slice(name string) []any {
	s, _ := a[name].([]any)
	return s
}

func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

func (a Args) Strings(name string) []string {
	var out []string
	for _, v := range a.Slice(name) {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

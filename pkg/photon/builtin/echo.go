package builtin

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/quatton/photon/pkg/photon"
)

// Echo returns its input, optionally prefixed. When packaged with code it
// also serves the code directory under /files.
type Echo struct {
	Prefix string
	files  http.Handler
}

func (e *Echo) Init(_ context.Context, rc photon.RunContext) error {
	if p, ok := rc.Env["ECHO_PREFIX"]; ok {
		e.Prefix = p
	} else if p, ok := rc.Args["prefix"].(string); ok && e.Prefix == "" {
		e.Prefix = p
	}
	if rc.CodePath != "" {
		dir := rc.CodePath
		if fi, err := os.Stat(dir); err == nil && !fi.IsDir() {
			dir = filepath.Dir(dir)
		}
		e.files = http.FileServer(http.Dir(dir))
	}
	return nil
}

func (e *Echo) Handlers() []photon.Handler {
	return []photon.Handler{
		{
			Path:    "/echo",
			Summary: "Echo text back",
			Params: []photon.Param{
				{Name: "text", Type: photon.String, Description: "text to echo", Example: "hello"},
				{Name: "times", Type: photon.Integer, Description: "repeat count", Default: 1},
				{Name: "case", Type: photon.Enum, Enum: []string{"keep", "upper", "lower"}, Default: "keep"},
			},
			Fn: e.echo,
		},
		{
			Path:    "/join",
			Summary: "Join words",
			Params: []photon.Param{
				{Name: "words", Type: photon.Array, Elem: photon.String},
				{Name: "sep", Type: photon.String, Optional: true},
			},
			Fn: e.join,
		},
		photon.Mounted("/files", http.HandlerFunc(e.serveFiles)),
	}
}

func (e *Echo) echo(_ context.Context, args photon.Args) (any, error) {
	text := e.Prefix + args.String("text")
	switch args.String("case") {
	case "upper":
		text = strings.ToUpper(text)
	case "lower":
		text = strings.ToLower(text)
	}
	n := args.Int("times")
	if n < 1 {
		n = 1
	}
	return strings.Repeat(text, int(n)), nil
}

func (e *Echo) join(_ context.Context, args photon.Args) (any, error) {
	sep := " "
	if args.Has("sep") {
		sep = args.String("sep")
	}
	return e.Prefix + strings.Join(args.Strings("words"), sep), nil
}

func (e *Echo) serveFiles(w http.ResponseWriter, r *http.Request) {
	if e.files == nil {
		http.NotFound(w, r)
		return
	}
	e.files.ServeHTTP(w, r)
}

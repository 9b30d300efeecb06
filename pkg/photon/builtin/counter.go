// Package builtin holds photon classes compiled into the photon binary.
package builtin

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/quatton/photon/pkg/photon"
)

func init() {
	photon.RegisterClass("Counter", func() photon.Runner { return &Counter{} })
	photon.RegisterClass("Echo", func() photon.Runner { return &Echo{} })
	photon.RegisterProvider("echo", func(ref string) (photon.Runner, error) {
		return &Echo{Prefix: ref}, nil
	})
}

// Counter keeps a running total across add and sub calls. Its total is
// captured into the artifact on save.
type Counter struct {
	mu    sync.Mutex
	Count int64 `json:"count"`
}

func (c *Counter) Handlers() []photon.Handler {
	x := photon.Param{Name: "x", Type: photon.Integer, Description: "amount to apply", Example: 1}
	return []photon.Handler{
		{Path: "/add", Summary: "Add x to the counter", Params: []photon.Param{x}, Fn: c.add},
		{Path: "/sub", Summary: "Subtract x from the counter", Params: []photon.Param{x}, Fn: c.sub},
		{Path: "/count", Summary: "Read the counter", Fn: c.count},
	}
}

func (c *Counter) add(_ context.Context, args photon.Args) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Count += args.Int("x")
	return c.Count, nil
}

func (c *Counter) sub(_ context.Context, args photon.Args) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Count -= args.Int("x")
	return c.Count, nil
}

func (c *Counter) count(context.Context, photon.Args) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Count, nil
}

func (c *Counter) MarshalState() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return json.Marshal(struct {
		Count int64 `json:"count"`
	}{c.Count})
}

func (c *Counter) UnmarshalState(data []byte) error {
	var s struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	c.mu.Lock()
	c.Count = s.Count
	c.mu.Unlock()
	return nil
}

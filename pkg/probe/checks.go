package probe

import (
	"context"
	"fmt"
	"os"
)

// Caller is the subset of the node client the reachability check needs.
type Caller interface {
	Call(ctx context.Context, method string, out any, params ...any) error
}

// DataDirWritable checks that files can be created in dir.
func DataDirWritable(dir string) Probe {
	return Probe{
		Name:     "Data directory",
		Critical: true,
		Check: func(ctx context.Context) error {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			f, err := os.CreateTemp(dir, ".probe-*")
			if err != nil {
				return fmt.Errorf("not writable: %w", err)
			}
			name := f.Name()
			f.Close()
			return os.Remove(name)
		},
	}
}

// NodeReachable calls method on the configured node. The node may still be
// starting, so the probe is not critical.
func NodeReachable(c Caller, method string) Probe {
	return Probe{
		Name: "Node API",
		Check: func(ctx context.Context) error {
			return c.Call(ctx, method, nil)
		},
	}
}

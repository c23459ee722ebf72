//go:build !windows
// +build !windows

package pipe

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// UnixTransport serves the counter over a Unix domain socket.
type UnixTransport struct {
	path string
}

// NewUnix creates a transport on the given socket path.
func NewUnix(path string) *UnixTransport {
	return &UnixTransport{path: path}
}

// DefaultSocketPath returns the well-known socket location: /run for root
// (the service case), the temp directory otherwise.
func DefaultSocketPath() string {
	if os.Geteuid() == 0 {
		return "/run/beaconagent.sock"
	}
	return filepath.Join(os.TempDir(), "beaconagent.sock")
}

// Listen binds the socket as the exclusive first instance. A leftover
// socket file from a crashed process is probed first: if nothing answers
// it is removed, otherwise the bind fails fast.
func (t *UnixTransport) Listen() (net.Listener, error) {
	if _, err := os.Stat(t.path); err == nil {
		probe, dialErr := net.DialTimeout("unix", t.path, 250*time.Millisecond)
		if dialErr == nil {
			probe.Close()
			return nil, fmt.Errorf("socket %s is already served by another instance", t.path)
		}
		if err := os.Remove(t.path); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket %s: %w", t.path, err)
		}
	}

	ln, err := net.Listen("unix", t.path)
	if err != nil {
		return nil, err
	}

	// Status probes come from unprivileged clients even when the agent
	// runs as a service under root.
	if err := os.Chmod(t.path, 0666); err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to chmod socket %s: %w", t.path, err)
	}

	return ln, nil
}

// Dial connects to the socket.
func (t *UnixTransport) Dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", t.path)
}

// Addr returns the socket path.
func (t *UnixTransport) Addr() string {
	return t.path
}

func newPlatformTransport(cfg Config) (Transport, error) {
	switch cfg.Type {
	case "", "default", "unix":
		path := cfg.SocketPath
		if path == "" {
			path = DefaultSocketPath()
		}
		return NewUnix(path), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupported, cfg.Type)
	}
}

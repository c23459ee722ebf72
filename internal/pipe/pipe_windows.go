//go:build windows
// +build windows

package pipe

import (
	"context"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// DefaultPipeName is the well-known named pipe the agent serves on.
const DefaultPipeName = `\\.\pipe\beaconagent`

// PipeTransport serves the counter over a Windows named pipe.
type PipeTransport struct {
	name string
}

// NewPipe creates a transport on the given pipe name.
func NewPipe(name string) *PipeTransport {
	return &PipeTransport{name: name}
}

// Listen creates the pipe. winio creates the first instance immediately,
// so a second agent holding the same name fails here rather than at the
// first accept.
func (t *PipeTransport) Listen() (net.Listener, error) {
	return winio.ListenPipe(t.name, nil)
}

// Dial connects to the pipe.
func (t *PipeTransport) Dial(ctx context.Context) (net.Conn, error) {
	return winio.DialPipeContext(ctx, t.name)
}

// Addr returns the pipe name.
func (t *PipeTransport) Addr() string {
	return t.name
}

func newPlatformTransport(cfg Config) (Transport, error) {
	switch cfg.Type {
	case "", "default", "pipe":
		name := cfg.PipeName
		if name == "" {
			name = DefaultPipeName
		}
		return NewPipe(name), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupported, cfg.Type)
	}
}

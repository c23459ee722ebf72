// Package pipe provides the local IPC endpoint the agent serves its
// liveness counter on. The wire contract is fixed: one little-endian
// uint64 per connection, written by the server, then the connection is
// closed. The transport underneath is swappable per platform — native
// named pipes on Windows, Unix domain sockets elsewhere, with TCP
// loopback available as a configurable alternative.
package pipe

import (
	"context"
	"fmt"
	"net"
)

// Transport binds and dials the agent's well-known local address.
type Transport interface {
	// Listen binds the address as the exclusive first instance. It fails
	// fast when another live instance already holds the address.
	Listen() (net.Listener, error)

	// Dial connects to the address as a client.
	Dial(ctx context.Context) (net.Conn, error)

	// Addr returns the well-known address in display form.
	Addr() string
}

// Config selects and parameterizes a transport.
type Config struct {
	// Type is "default", "tcp", or a platform transport ("unix", "pipe").
	Type string `json:"Type"`
	// SocketPath overrides the Unix domain socket path.
	SocketPath string `json:"SocketPath"`
	// PipeName overrides the Windows named pipe name.
	PipeName string `json:"PipeName"`
	// TCPAddress is the loopback address for the tcp transport.
	TCPAddress string `json:"TCPAddress"`
}

// New creates the transport selected by cfg. An empty or "default" type
// picks the native transport for the platform.
func New(cfg Config) (Transport, error) {
	if cfg.Type == "tcp" {
		addr := cfg.TCPAddress
		if addr == "" {
			addr = DefaultTCPAddress
		}
		return NewTCP(addr), nil
	}
	return newPlatformTransport(cfg)
}

// DefaultTCPAddress is the loopback address used when the tcp transport is
// selected without an explicit address.
const DefaultTCPAddress = "127.0.0.1:7511"

var errUnsupported = fmt.Errorf("unsupported pipe transport for this platform")

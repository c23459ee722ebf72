package pipe

import (
	"context"
	"net"
	"sync"
)

// TCPTransport serves the counter over a loopback TCP listener. It exists
// for platforms and deployments where neither named pipes nor Unix domain
// sockets are wanted, and for tests, where address ":0" lets the kernel
// pick a free port.
type TCPTransport struct {
	addr string

	mu    sync.Mutex
	bound string
}

// NewTCP creates a transport on the given loopback address.
func NewTCP(addr string) *TCPTransport {
	return &TCPTransport{addr: addr}
}

// Listen binds the address. Exclusivity is inherent: a second bind of the
// same port fails with address-in-use.
func (t *TCPTransport) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.bound = ln.Addr().String()
	t.mu.Unlock()
	return ln, nil
}

// Dial connects to the listener. When this transport owns the listener
// (single-process use, tests) the actual bound address is used, so a
// ":0" configuration still dials the right port.
func (t *TCPTransport) Dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", t.dialAddr())
}

// Addr returns the configured address.
func (t *TCPTransport) Addr() string {
	return t.addr
}

// BoundAddr returns the address of the last successful Listen, or empty if
// the transport has not listened yet.
func (t *TCPTransport) BoundAddr() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bound
}

func (t *TCPTransport) dialAddr() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bound != "" {
		return t.bound
	}
	return t.addr
}

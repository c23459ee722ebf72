package agent

import "sync"

// ShutdownCoordinator is a single-slot shutdown notification. Signal never
// blocks: a full slot or a closed coordinator means a shutdown is already
// underway and nothing more needs to be said.
type ShutdownCoordinator struct {
	mu     sync.Mutex
	ch     chan struct{}
	closed bool
}

// NewShutdownCoordinator creates a coordinator with an empty slot.
func NewShutdownCoordinator() *ShutdownCoordinator {
	return &ShutdownCoordinator{ch: make(chan struct{}, 1)}
}

// Signal requests a shutdown. Safe to call from any goroutine, including
// OS service control callbacks, repeatedly, and after the consumer has
// already exited.
func (c *ShutdownCoordinator) Signal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- struct{}{}:
	default:
	}
}

// requests returns the channel the run loop selects on. The signal is
// consumed at most once; the loop calls close afterward.
func (c *ShutdownCoordinator) requests() <-chan struct{} {
	return c.ch
}

// close marks the coordinator consumed. Later Signal calls become no-ops.
func (c *ShutdownCoordinator) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Package agent implements the beacon agent run loop and its liveness
// probe client. The agent serves a process-lifetime counter over a local
// pipe, one value per connection.
package agent

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"beaconagent/internal/logger"
	"beaconagent/internal/pipe"
)

const (
	// ServiceName is the OS service registration name.
	ServiceName = "BeaconAgent"
	// ServiceDisplayName is the operator-facing service name.
	ServiceDisplayName = "Beacon Agent"
)

// counterSize is the fixed wire payload: one little-endian uint64,
// no framing, no request body.
const counterSize = 8

// Agent serves a monotonically increasing counter over a local pipe.
// The counter starts at zero on every process start and is not persisted;
// it only proves the process is alive and serving.
type Agent struct {
	transport pipe.Transport
	counter   atomic.Uint64
	shutdown  *ShutdownCoordinator
	wg        sync.WaitGroup
}

// New creates an agent serving on the given transport.
func New(transport pipe.Transport) *Agent {
	return &Agent{
		transport: transport,
		shutdown:  NewShutdownCoordinator(),
	}
}

// Shutdown requests the run loop to stop. It never blocks and may be
// called from OS service control callbacks, repeatedly, or after Run has
// returned.
func (a *Agent) Shutdown() {
	a.shutdown.Signal()
}

// Run binds the well-known address and serves connections until a
// shutdown is requested or ctx is cancelled. Failure to bind is fatal and
// returned to the caller; accept errors are logged and the loop stays
// available. Connections in flight when the shutdown is processed are
// served to completion; no new connection is accepted afterward.
func (a *Agent) Run(ctx context.Context) error {
	log := logger.WithComponent("agent")

	ln, err := a.transport.Listen()
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", a.transport.Addr(), err)
	}
	log.Info().Str("addr", a.transport.Addr()).Msg("Agent listening")

	type accepted struct {
		conn net.Conn
		err  error
	}
	conns := make(chan accepted)
	loopDone := make(chan struct{})

	// The accept goroutine is the only user of ln until shutdown. The
	// listener keeps accepting while an accepted connection is being
	// served, so there is never a window without a listening endpoint.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				select {
				case conns <- accepted{err: err}:
				case <-loopDone:
					return
				}
				continue
			}
			select {
			case conns <- accepted{conn: conn}:
			case <-loopDone:
				conn.Close()
				return
			}
		}
	}()

loop:
	for {
		select {
		case acc := <-conns:
			if acc.err != nil {
				// Transient accept failures must not take the loop down.
				log.Error().Err(acc.err).Msg("Pipe accept error")
				continue
			}
			a.wg.Add(1)
			go a.serve(acc.conn)

		case <-a.shutdown.requests():
			log.Info().Msg("Shutdown requested")
			break loop

		case <-ctx.Done():
			log.Info().Msg("Context cancelled, shutting down")
			break loop
		}
	}

	a.shutdown.close()
	close(loopDone)
	if err := ln.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing pipe listener")
	}

	a.wg.Wait()
	log.Info().Uint64("served", a.counter.Load()).Msg("Agent run loop stopped")
	return nil
}

// serve writes the next counter value to one client and closes the
// connection. Which client observes which value is decided by increment
// completion order, not connection order.
func (a *Agent) serve(conn net.Conn) {
	defer a.wg.Done()
	defer conn.Close()

	value := a.counter.Add(1) - 1

	var buf [counterSize]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	if _, err := conn.Write(buf[:]); err != nil {
		// Isolated to this connection; the loop and other clients are
		// unaffected.
		log := logger.WithComponent("agent")
		log.Error().Err(err).Msg("Failed to write counter to client")
	}
}

// QueryStatus connects to a running agent and reads its counter. A
// successful read proves only that the process accepted and served one
// connection; it is a liveness probe, not a health check.
func QueryStatus(ctx context.Context, transport pipe.Transport) (uint64, error) {
	conn, err := transport.Dial(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to agent at %s: %w", transport.Addr(), err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	// io.ReadFull reports ErrUnexpectedEOF when the connection closes
	// mid-payload, which keeps a truncated read distinguishable from a
	// refused one.
	var buf [counterSize]byte
	if _, err := io.ReadFull(conn, buf[:]); err != nil {
		return 0, fmt.Errorf("failed to read counter from agent: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

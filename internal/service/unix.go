//go:build !windows
// +build !windows

package service

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"beaconagent/internal/logger"
)

// UnixService implements the service interface for Unix systems. systemd
// and interactive use both deliver stop requests as signals.
type UnixService struct {
	name    string
	runFunc RunFunc
	cancel  context.CancelFunc
	mu      sync.Mutex
	stopped bool
}

// NewService creates a new platform-specific service.
func NewService(name string, runFunc RunFunc) Service {
	return &UnixService{
		name:    name,
		runFunc: runFunc,
	}
}

// Run starts the service and handles signals for graceful shutdown.
func (s *UnixService) Run(ctx context.Context) error {
	log := logger.WithComponent("unix-service")

	ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	done := make(chan error, 1)
	go func() {
		done <- s.runFunc(ctx)
	}()

	log.Info().Str("service", s.name).Msg("Service started")

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		s.Stop()

		select {
		case err := <-done:
			return err
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("Received second signal, forcing exit")
			return nil
		}

	case err := <-done:
		return err
	}
}

// Stop requests the service to stop.
func (s *UnixService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil && !s.stopped {
		s.stopped = true
		s.cancel()
	}
	return nil
}

// IsService returns true when the process is likely running under a
// service manager. For systemd units stdin is not a terminal, which is
// the best cheap signal available.
func (s *UnixService) IsService() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}

// Package service integrates the agent run loop with the platform's
// service host: the Windows service control dispatcher, or signal-driven
// shutdown under systemd and interactive use.
package service

import "context"

// Service runs the agent under the platform service host.
type Service interface {
	// Run starts the service. It blocks until the service is stopped.
	Run(ctx context.Context) error

	// Stop requests the service to stop.
	Stop() error

	// IsService returns true if running under a service host.
	IsService() bool
}

// RunFunc is the main function that runs the agent logic. The service
// host cancels ctx when the OS requests a stop.
type RunFunc func(ctx context.Context) error

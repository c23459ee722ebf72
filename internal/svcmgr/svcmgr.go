// Package svcmgr manages the agent's registration with the OS service
// manager. The state machine over {Uninstalled, Stopped, Running} and the
// error taxonomy are platform-independent; the registry access underneath
// is the Windows SCM or systemd.
package svcmgr

// Status is the service state as reported by the OS service registry. It
// is derived fresh on every query and never cached.
type Status int

const (
	// StatusUninstalled means the service is not registered.
	StatusUninstalled Status = iota
	// StatusStopped means the service is registered but its process is
	// not running.
	StatusStopped
	// StatusRunning means the service process is running, possibly in a
	// transitional state such as starting or stopping.
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusUninstalled:
		return "uninstalled"
	case StatusStopped:
		return "stopped"
	case StatusRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Description is the service registration metadata.
type Description struct {
	// DisplayName is the operator-facing service name.
	DisplayName string
	// BinaryPath is the absolute path to the service executable.
	BinaryPath string
	// Args are the launch arguments passed at service start. They are
	// consumed at install time; the OS does not give them back, so
	// Description() always reports them empty.
	Args []string
}

// Manager installs, removes, and controls one named OS service.
type Manager interface {
	// Status queries the registry. Any non-stopped registered state,
	// including transitional ones, reports StatusRunning.
	Status() (Status, error)

	// Description returns the registration metadata. Fails with
	// KindNotInstalled when the service is not registered.
	Description() (Description, error)

	// Install registers the service as auto-start, running in its own
	// process. If the service already exists its configuration is
	// updated without restarting a running instance. Returns the
	// registration as the OS reports it back.
	Install(desc Description) (Description, error)

	// Uninstall deletes the registration. Fails with KindRunning while
	// the service runs; callers must stop it first.
	Uninstall() error

	// Start queues a start request and returns once the OS acknowledges
	// it, without waiting for the transition. Poll Status to confirm.
	Start() error

	// Stop queues a stop request; same request-only semantics as Start.
	Stop() error
}

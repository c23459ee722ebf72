package svcmgr

import (
	"errors"
	"fmt"
)

// Kind classifies a service management failure. It is the only error
// vocabulary surfaced past this package: raw OS errors are mapped exactly
// once, at the boundary, and never escape in their native form.
type Kind int

const (
	// KindUnknown is any failure the taxonomy has no better name for.
	KindUnknown Kind = iota
	// KindAccessDenied means the process lacks permission to talk to the
	// service manager.
	KindAccessDenied
	// KindInvalidServiceName means the service name is not acceptable to
	// the OS.
	KindInvalidServiceName
	// KindInstallationFailed means the OS rejected the registration
	// (bad path, bad account, bad display name, ...).
	KindInstallationFailed
	// KindNotInstalled means the service is not registered.
	KindNotInstalled
	// KindRunning means the operation is not allowed while the service
	// process runs.
	KindRunning
)

// Error is a classified service management failure.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAccessDenied:
		return "access to service manager was denied"
	case KindInvalidServiceName:
		return "invalid service name"
	case KindInstallationFailed:
		return fmt.Sprintf("failed to install service: %s", e.Detail)
	case KindNotInstalled:
		return "service is not installed"
	case KindRunning:
		return "service is running"
	default:
		return fmt.Sprintf("unknown service manager error: %s", e.Detail)
	}
}

func newError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// KindOf returns the Kind carried by err, or KindUnknown when err does not
// wrap an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

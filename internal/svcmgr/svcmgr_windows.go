//go:build windows
// +build windows

package svcmgr

import (
	"errors"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// scmManager implements Manager against the Windows Service Control
// Manager.
type scmManager struct {
	name string
}

// New creates a manager for the named service.
func New(name string) Manager {
	return &scmManager{name: name}
}

func (m *scmManager) Status() (Status, error) {
	c, err := mgr.Connect()
	if err != nil {
		return StatusUninstalled, mapWinError(err)
	}
	defer c.Disconnect()

	s, err := c.OpenService(m.name)
	if err != nil {
		mapped := mapWinError(err)
		if IsKind(mapped, KindNotInstalled) {
			return StatusUninstalled, nil
		}
		return StatusUninstalled, mapped
	}
	defer s.Close()

	status, err := s.Query()
	if err != nil {
		return StatusUninstalled, mapWinError(err)
	}

	if status.State == svc.Stopped {
		return StatusStopped, nil
	}
	// StartPending, StopPending, Paused and the rest all count as Running:
	// the process exists, so the coarse answer is "running".
	return StatusRunning, nil
}

func (m *scmManager) Description() (Description, error) {
	c, err := mgr.Connect()
	if err != nil {
		return Description{}, mapWinError(err)
	}
	defer c.Disconnect()

	s, err := c.OpenService(m.name)
	if err != nil {
		return Description{}, mapWinError(err)
	}
	defer s.Close()

	cfg, err := s.Config()
	if err != nil {
		return Description{}, mapWinError(err)
	}

	return Description{
		DisplayName: cfg.DisplayName,
		BinaryPath:  cfg.BinaryPathName,
		// The SCM has no query for launch arguments; see Description.Args.
		Args: nil,
	}, nil
}

func (m *scmManager) Install(desc Description) (Description, error) {
	c, err := mgr.Connect()
	if err != nil {
		return Description{}, mapWinError(err)
	}
	defer c.Disconnect()

	cfg := mgr.Config{
		ServiceType:  windows.SERVICE_WIN32_OWN_PROCESS,
		StartType:    mgr.StartAutomatic,
		ErrorControl: mgr.ErrorNormal,
		DisplayName:  desc.DisplayName,
	}

	if s, openErr := c.OpenService(m.name); openErr == nil {
		// Already registered: refresh the configuration without touching
		// a running instance.
		defer s.Close()
		cfg.BinaryPathName = desc.BinaryPath
		if err := s.UpdateConfig(cfg); err != nil {
			return Description{}, installError(err)
		}
		return m.Description()
	}

	s, err := c.CreateService(m.name, desc.BinaryPath, cfg, desc.Args...)
	if err != nil {
		return Description{}, installError(err)
	}
	s.Close()

	return m.Description()
}

func (m *scmManager) Uninstall() error {
	status, err := m.Status()
	if err != nil {
		return err
	}
	if status == StatusRunning {
		return newError(KindRunning, "")
	}

	c, err := mgr.Connect()
	if err != nil {
		return mapWinError(err)
	}
	defer c.Disconnect()

	s, err := c.OpenService(m.name)
	if err != nil {
		return mapWinError(err)
	}
	defer s.Close()

	if err := s.Delete(); err != nil {
		return mapWinError(err)
	}
	return nil
}

func (m *scmManager) Start() error {
	c, err := mgr.Connect()
	if err != nil {
		return mapWinError(err)
	}
	defer c.Disconnect()

	s, err := c.OpenService(m.name)
	if err != nil {
		return mapWinError(err)
	}
	defer s.Close()

	// StartService only queues the request; an already-running or
	// mid-transition service yields an error we treat as a no-op.
	if err := s.Start(); err != nil {
		if errors.Is(err, windows.ERROR_SERVICE_ALREADY_RUNNING) {
			return nil
		}
		return mapWinError(err)
	}
	return nil
}

func (m *scmManager) Stop() error {
	c, err := mgr.Connect()
	if err != nil {
		return mapWinError(err)
	}
	defer c.Disconnect()

	s, err := c.OpenService(m.name)
	if err != nil {
		return mapWinError(err)
	}
	defer s.Close()

	if _, err := s.Control(svc.Stop); err != nil {
		if errors.Is(err, windows.ERROR_SERVICE_NOT_ACTIVE) {
			return nil
		}
		return mapWinError(err)
	}
	return nil
}

// mapWinError translates SCM errors into the package taxonomy. This is the
// single point where Windows error codes are interpreted.
func mapWinError(err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return already
	}

	switch {
	case errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST):
		return newError(KindNotInstalled, "")
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return newError(KindAccessDenied, "")
	case errors.Is(err, windows.ERROR_INVALID_NAME):
		return newError(KindInvalidServiceName, "")
	case errors.Is(err, windows.ERROR_SERVICE_EXISTS),
		errors.Is(err, windows.ERROR_DUPLICATE_SERVICE_NAME),
		errors.Is(err, windows.ERROR_INVALID_SERVICE_ACCOUNT):
		return newError(KindInstallationFailed, err.Error())
	default:
		return newError(KindUnknown, err.Error())
	}
}

// installError maps an error from the install path. Anything the taxonomy
// does not already name becomes KindInstallationFailed, per the Install
// contract.
func installError(err error) error {
	mapped := mapWinError(err)
	if IsKind(mapped, KindUnknown) {
		return newError(KindInstallationFailed, err.Error())
	}
	return mapped
}

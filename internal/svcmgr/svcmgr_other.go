//go:build !windows && !linux
// +build !windows,!linux

package svcmgr

import "runtime"

// unsupportedManager is the fallback for platforms without a service
// registry integration. Every operation fails with KindUnknown.
type unsupportedManager struct{}

// New creates a manager for the named service.
func New(name string) Manager {
	return unsupportedManager{}
}

func (unsupportedManager) fail() error {
	return newError(KindUnknown, "service management is not supported on "+runtime.GOOS)
}

func (u unsupportedManager) Status() (Status, error)                  { return StatusUninstalled, u.fail() }
func (u unsupportedManager) Description() (Description, error)        { return Description{}, u.fail() }
func (u unsupportedManager) Install(Description) (Description, error) { return Description{}, u.fail() }
func (u unsupportedManager) Uninstall() error                         { return u.fail() }
func (u unsupportedManager) Start() error                             { return u.fail() }
func (u unsupportedManager) Stop() error                              { return u.fail() }

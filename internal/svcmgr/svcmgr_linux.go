//go:build linux
// +build linux

package svcmgr

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const systemdUnitDir = "/etc/systemd/system"

// systemdManager implements Manager on top of systemctl. The unit file is
// owned by this package: Install writes it, Uninstall removes it.
type systemdManager struct {
	name    string
	unitDir string
	run     func(args ...string) (string, error)
}

// New creates a manager for the named service.
func New(name string) Manager {
	return &systemdManager{
		name:    name,
		unitDir: systemdUnitDir,
		run:     runSystemctl,
	}
}

func (m *systemdManager) unitName() string {
	return m.name + ".service"
}

func (m *systemdManager) unitPath() string {
	return filepath.Join(m.unitDir, m.unitName())
}

func (m *systemdManager) Status() (Status, error) {
	// `systemctl show` succeeds even for unknown units, reporting
	// LoadState=not-found, which keeps Uninstalled a non-error answer.
	out, err := m.run("show", m.unitName(), "--property=LoadState,ActiveState")
	if err != nil {
		return StatusUninstalled, mapSystemctlError(err)
	}

	props := parseProperties(out)
	if props["LoadState"] == "not-found" {
		return StatusUninstalled, nil
	}

	switch props["ActiveState"] {
	case "inactive", "failed":
		return StatusStopped, nil
	default:
		// active, activating, deactivating, reloading: the coarse answer
		// is "running".
		return StatusRunning, nil
	}
}

func (m *systemdManager) Description() (Description, error) {
	data, err := os.ReadFile(m.unitPath())
	if err != nil {
		if os.IsNotExist(err) {
			return Description{}, newError(KindNotInstalled, "")
		}
		if os.IsPermission(err) {
			return Description{}, newError(KindAccessDenied, "")
		}
		return Description{}, newError(KindUnknown, err.Error())
	}

	desc := Description{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "Description="); ok {
			desc.DisplayName = v
		}
		if v, ok := strings.CutPrefix(line, "ExecStart="); ok {
			fields := strings.Fields(v)
			if len(fields) > 0 {
				desc.BinaryPath = fields[0]
			}
		}
	}
	// Args stay empty to match the cross-platform contract; see
	// Description.Args.
	return desc, nil
}

func (m *systemdManager) Install(desc Description) (Description, error) {
	if m.name == "" || strings.ContainsAny(m.name, "/ \t") {
		return Description{}, newError(KindInvalidServiceName, "")
	}

	unit := renderUnit(desc)
	if err := os.WriteFile(m.unitPath(), []byte(unit), 0644); err != nil {
		if os.IsPermission(err) {
			return Description{}, newError(KindAccessDenied, "")
		}
		return Description{}, newError(KindInstallationFailed, err.Error())
	}

	// Rewriting the unit file does not restart a running instance;
	// systemd picks the new definition up on the next start.
	if _, err := m.run("daemon-reload"); err != nil {
		return Description{}, installSystemctlError(err)
	}
	if _, err := m.run("enable", m.unitName()); err != nil {
		return Description{}, installSystemctlError(err)
	}

	return m.Description()
}

func (m *systemdManager) Uninstall() error {
	status, err := m.Status()
	if err != nil {
		return err
	}
	if status == StatusRunning {
		return newError(KindRunning, "")
	}
	if status == StatusUninstalled {
		return newError(KindNotInstalled, "")
	}

	if _, err := m.run("disable", m.unitName()); err != nil {
		return mapSystemctlError(err)
	}
	if err := os.Remove(m.unitPath()); err != nil && !os.IsNotExist(err) {
		if os.IsPermission(err) {
			return newError(KindAccessDenied, "")
		}
		return newError(KindUnknown, err.Error())
	}
	if _, err := m.run("daemon-reload"); err != nil {
		return mapSystemctlError(err)
	}
	return nil
}

func (m *systemdManager) Start() error {
	// --no-block keeps the request-only contract: the call returns once
	// the job is queued, not when the unit reaches its target state.
	if _, err := m.run("start", "--no-block", m.unitName()); err != nil {
		return mapSystemctlError(err)
	}
	return nil
}

func (m *systemdManager) Stop() error {
	if _, err := m.run("stop", "--no-block", m.unitName()); err != nil {
		return mapSystemctlError(err)
	}
	return nil
}

// renderUnit produces the systemd unit definition for a registration.
func renderUnit(desc Description) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Unit]\nDescription=%s\n\n", desc.DisplayName)
	b.WriteString("[Service]\nType=simple\n")
	execStart := desc.BinaryPath
	if len(desc.Args) > 0 {
		execStart += " " + strings.Join(desc.Args, " ")
	}
	fmt.Fprintf(&b, "ExecStart=%s\n\n", execStart)
	b.WriteString("[Install]\nWantedBy=multi-user.target\n")
	return b.String()
}

func parseProperties(out string) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if found {
			props[key] = value
		}
	}
	return props
}

// systemctlError carries the stderr of a failed systemctl invocation so
// the mapper can classify it.
type systemctlError struct {
	stderr string
	err    error
}

func (e *systemctlError) Error() string {
	if e.stderr != "" {
		return fmt.Sprintf("systemctl: %s", strings.TrimSpace(e.stderr))
	}
	return fmt.Sprintf("systemctl: %v", e.err)
}

func runSystemctl(args ...string) (string, error) {
	cmd := exec.Command("systemctl", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), &systemctlError{stderr: stderr.String(), err: err}
	}
	return stdout.String(), nil
}

// mapSystemctlError translates systemctl failures into the package
// taxonomy. systemctl has no structured error codes worth relying on, so
// classification goes by the message.
func mapSystemctlError(err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return already
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "access denied"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "authentication required"):
		return newError(KindAccessDenied, "")
	case strings.Contains(msg, "not found"),
		strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "not loaded"):
		return newError(KindNotInstalled, "")
	case strings.Contains(msg, "invalid unit name"):
		return newError(KindInvalidServiceName, "")
	default:
		return newError(KindUnknown, err.Error())
	}
}

func installSystemctlError(err error) error {
	mapped := mapSystemctlError(err)
	if IsKind(mapped, KindUnknown) {
		return newError(KindInstallationFailed, err.Error())
	}
	return mapped
}

//go:build linux
// +build linux

package svcmgr

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSystemctl scripts systemctl behavior for a manager under test. The
// reported LoadState tracks whether the unit file exists; ActiveState is
// driven by start/stop calls.
type fakeSystemctl struct {
	unitPath string
	active   string
	calls    [][]string
	failWith map[string]error
}

func (f *fakeSystemctl) run(args ...string) (string, error) {
	f.calls = append(f.calls, args)
	if err := f.failWith[args[0]]; err != nil {
		return "", err
	}

	switch args[0] {
	case "show":
		load := "loaded"
		if _, err := os.Stat(f.unitPath); os.IsNotExist(err) {
			load = "not-found"
		}
		return fmt.Sprintf("LoadState=%s\nActiveState=%s\n", load, f.active), nil
	case "start":
		f.active = "activating"
	case "stop":
		f.active = "inactive"
	}
	return "", nil
}

func (f *fakeSystemctl) sawCommand(cmd string) bool {
	for _, call := range f.calls {
		if call[0] == cmd {
			return true
		}
	}
	return false
}

func newTestManager(t *testing.T) (*systemdManager, *fakeSystemctl) {
	t.Helper()
	m := &systemdManager{
		name:    "BeaconAgent",
		unitDir: t.TempDir(),
	}
	f := &fakeSystemctl{
		unitPath: m.unitPath(),
		active:   "inactive",
		failWith: map[string]error{},
	}
	m.run = f.run
	return m, f
}

func testDescription() Description {
	return Description{
		DisplayName: "Beacon Agent",
		BinaryPath:  "/usr/local/bin/beaconagent",
		Args:        []string{"agent", "run-as-service"},
	}
}

func TestSystemdManager_StatusUninstalledBeforeInstall(t *testing.T) {
	m, _ := newTestManager(t)

	status, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusUninstalled, status)
}

func TestSystemdManager_LifecycleStateMachine(t *testing.T) {
	m, f := newTestManager(t)

	// Uninstalled → install → Stopped
	desc, err := m.Install(testDescription())
	require.NoError(t, err)
	assert.Equal(t, "Beacon Agent", desc.DisplayName)
	assert.Equal(t, "/usr/local/bin/beaconagent", desc.BinaryPath)
	assert.Empty(t, desc.Args, "launch arguments are not retrievable and must be reported empty")

	status, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, status)

	// Stopped → start → Running (activating counts as running)
	require.NoError(t, m.Start())
	status, err = m.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, status)

	// Running → uninstall is rejected, registration stays intact
	err = m.Uninstall()
	assert.True(t, IsKind(err, KindRunning), "expected KindRunning, got %v", err)
	_, statErr := os.Stat(m.unitPath())
	assert.NoError(t, statErr, "failed uninstall must leave the unit file in place")

	// Running → stop → Stopped
	require.NoError(t, m.Stop())
	status, err = m.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, status)

	// Stopped → uninstall → Uninstalled
	require.NoError(t, m.Uninstall())
	status, err = m.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusUninstalled, status)

	assert.True(t, f.sawCommand("daemon-reload"))
	assert.True(t, f.sawCommand("enable"))
	assert.True(t, f.sawCommand("disable"))
}

func TestSystemdManager_StartStopAreRequestOnly(t *testing.T) {
	m, f := newTestManager(t)
	_, err := m.Install(testDescription())
	require.NoError(t, err)

	require.NoError(t, m.Start())
	require.NoError(t, m.Stop())

	var sawNoBlock int
	for _, call := range f.calls {
		if call[0] == "start" || call[0] == "stop" {
			require.Contains(t, call, "--no-block", "start/stop must not wait for the transition")
			sawNoBlock++
		}
	}
	assert.Equal(t, 2, sawNoBlock)
}

func TestSystemdManager_InstallRejectsInvalidName(t *testing.T) {
	m, _ := newTestManager(t)
	m.name = "../etc/passwd"

	_, err := m.Install(testDescription())
	assert.True(t, IsKind(err, KindInvalidServiceName), "expected KindInvalidServiceName, got %v", err)
}

func TestSystemdManager_InstallUpdatesExistingUnit(t *testing.T) {
	m, f := newTestManager(t)

	_, err := m.Install(testDescription())
	require.NoError(t, err)

	f.active = "active" // simulate a running instance

	updated := testDescription()
	updated.DisplayName = "Beacon Agent v2"
	desc, err := m.Install(updated)
	require.NoError(t, err)
	assert.Equal(t, "Beacon Agent v2", desc.DisplayName)

	// The running instance is untouched: no stop/start was issued.
	assert.False(t, f.sawCommand("stop"))
	assert.False(t, f.sawCommand("restart"))
}

func TestSystemdManager_UninstallWhenNotInstalled(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.Uninstall()
	assert.True(t, IsKind(err, KindNotInstalled), "expected KindNotInstalled, got %v", err)
}

func TestSystemdManager_DescriptionWhenNotInstalled(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Description()
	assert.True(t, IsKind(err, KindNotInstalled), "expected KindNotInstalled, got %v", err)
}

func TestSystemdManager_InstallMapsSystemctlFailure(t *testing.T) {
	m, f := newTestManager(t)
	f.failWith["enable"] = &systemctlError{stderr: "Failed to enable unit: Unit is transient"}

	_, err := m.Install(testDescription())
	assert.True(t, IsKind(err, KindInstallationFailed), "expected KindInstallationFailed, got %v", err)
}

func TestRenderUnit(t *testing.T) {
	unit := renderUnit(testDescription())

	assert.Contains(t, unit, "Description=Beacon Agent\n")
	assert.Contains(t, unit, "ExecStart=/usr/local/bin/beaconagent agent run-as-service\n")
	assert.Contains(t, unit, "WantedBy=multi-user.target")
}

func TestParseProperties(t *testing.T) {
	props := parseProperties("LoadState=loaded\nActiveState=active\n\njunk line\n")

	assert.Equal(t, "loaded", props["LoadState"])
	assert.Equal(t, "active", props["ActiveState"])
	_, exists := props["junk line"]
	assert.False(t, exists)
}

func TestMapSystemctlError(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   Kind
	}{
		{"permission denied", "Permission denied", KindAccessDenied},
		{"polkit prompt", "Interactive authentication required", KindAccessDenied},
		{"unit not found", "Unit BeaconAgent.service not found.", KindNotInstalled},
		{"invalid unit", "Invalid unit name flung", KindInvalidServiceName},
		{"anything else", "transport endpoint exploded", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapSystemctlError(&systemctlError{stderr: tt.stderr})
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestMapSystemctlError_PassesThroughMappedErrors(t *testing.T) {
	orig := newError(KindRunning, "")
	mapped := mapSystemctlError(fmt.Errorf("wrapped: %w", orig))

	var e *Error
	require.True(t, errors.As(mapped, &e))
	assert.Equal(t, KindRunning, e.Kind)
}

func TestSystemdManager_StatusVariants(t *testing.T) {
	tests := []struct {
		active string
		want   Status
	}{
		{"inactive", StatusStopped},
		{"failed", StatusStopped},
		{"active", StatusRunning},
		{"activating", StatusRunning},
		{"deactivating", StatusRunning},
	}

	for _, tt := range tests {
		t.Run(tt.active, func(t *testing.T) {
			m, f := newTestManager(t)
			_, err := m.Install(testDescription())
			require.NoError(t, err)
			f.active = tt.active

			status, err := m.Status()
			require.NoError(t, err)
			assert.Equal(t, tt.want, status, "ActiveState=%s", tt.active)
		})
	}
}

func TestSystemdManager_DescriptionParsesUnitFile(t *testing.T) {
	m, _ := newTestManager(t)
	unit := strings.Join([]string{
		"[Unit]",
		"Description=Beacon Agent",
		"",
		"[Service]",
		"Type=simple",
		"ExecStart=/opt/beacon/beaconagent agent run-as-service",
		"",
		"[Install]",
		"WantedBy=multi-user.target",
	}, "\n")
	require.NoError(t, os.WriteFile(m.unitPath(), []byte(unit), 0644))

	desc, err := m.Description()
	require.NoError(t, err)
	assert.Equal(t, "Beacon Agent", desc.DisplayName)
	assert.Equal(t, "/opt/beacon/beaconagent", desc.BinaryPath)
	assert.Empty(t, desc.Args)
}

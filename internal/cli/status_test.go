package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beaconagent/internal/svcmgr"
)

type fakeManager struct {
	status svcmgr.Status
	err    error
}

func (f *fakeManager) Status() (svcmgr.Status, error) { return f.status, f.err }
func (f *fakeManager) Uninstall() error               { return nil }
func (f *fakeManager) Start() error                   { return nil }
func (f *fakeManager) Stop() error                    { return nil }

func (f *fakeManager) Description() (svcmgr.Description, error) {
	return svcmgr.Description{}, nil
}

func (f *fakeManager) Install(d svcmgr.Description) (svcmgr.Description, error) {
	return d, nil
}

func probeValue(v uint64) func(context.Context) (uint64, error) {
	return func(context.Context) (uint64, error) { return v, nil }
}

func probeError(err error) func(context.Context) (uint64, error) {
	return func(context.Context) (uint64, error) { return 0, err }
}

func TestReportStatusUninstalled(t *testing.T) {
	var out bytes.Buffer
	deps := statusDeps{
		manager: &fakeManager{status: svcmgr.StatusUninstalled},
		probe:   probeError(errors.New("connection refused")),
	}

	err := reportStatus(context.Background(), &out, deps)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "not installed")
	assert.NotContains(t, out.String(), "Liveness counter")
}

func TestReportStatusStoppedNoAgent(t *testing.T) {
	var out bytes.Buffer
	deps := statusDeps{
		manager: &fakeManager{status: svcmgr.StatusStopped},
		probe:   probeError(errors.New("connection refused")),
	}

	err := reportStatus(context.Background(), &out, deps)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "not running")
}

func TestReportStatusRunning(t *testing.T) {
	var out bytes.Buffer
	deps := statusDeps{
		manager: &fakeManager{status: svcmgr.StatusRunning},
		probe:   probeValue(42),
		uptime:  func() (uint64, error) { return 3600, nil },
	}

	err := reportStatus(context.Background(), &out, deps)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "is running")
	assert.Contains(t, out.String(), "Liveness counter: 42")
	assert.Contains(t, out.String(), "Host uptime: 1h0m0s")
}

func TestReportStatusRunningButUnresponsive(t *testing.T) {
	var out bytes.Buffer
	deps := statusDeps{
		manager: &fakeManager{status: svcmgr.StatusRunning},
		probe:   probeError(errors.New("connection refused")),
	}

	err := reportStatus(context.Background(), &out, deps)
	require.Error(t, err)

	var coded *codedError
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, ExitUnknownError, coded.code)
}

func TestReportStatusStoppedButServing(t *testing.T) {
	var out bytes.Buffer
	deps := statusDeps{
		manager: &fakeManager{status: svcmgr.StatusStopped},
		probe:   probeValue(7),
	}

	err := reportStatus(context.Background(), &out, deps)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Liveness counter: 7")
}

func TestReportStatusManagerError(t *testing.T) {
	var out bytes.Buffer
	deps := statusDeps{
		manager: &fakeManager{err: errors.New("scm unreachable")},
		probe:   probeValue(0),
	}

	err := reportStatus(context.Background(), &out, deps)
	require.Error(t, err)
	assert.Empty(t, out.String())
}

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/spf13/cobra"

	"beaconagent/internal/agent"
	"beaconagent/internal/logger"
	"beaconagent/internal/pipe"
	"beaconagent/internal/svcmgr"
)

const probeTimeout = 3 * time.Second

// statusDeps carries the probes the status report draws on, so tests can
// substitute them.
type statusDeps struct {
	manager svcmgr.Manager
	probe   func(ctx context.Context) (uint64, error)
	uptime  func() (uint64, error)
}

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report the Beacon Agent service and liveness state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tr, err := pipe.New(a.cfg.Pipe)
			if err != nil {
				return withCode(ExitUnknownError, err)
			}

			deps := statusDeps{
				manager: svcmgr.New(agent.ServiceName),
				probe: func(ctx context.Context) (uint64, error) {
					return agent.QueryStatus(ctx, tr)
				},
				uptime: host.Uptime,
			}
			return reportStatus(cmd.Context(), cmd.OutOrStdout(), deps)
		},
	}
}

// reportStatus prints the service registration state, then probes the
// agent endpoint for its liveness counter. A running service whose
// endpoint does not answer is an error; a counter served with no running
// service is reported but flagged in the log.
func reportStatus(ctx context.Context, w io.Writer, deps statusDeps) error {
	status, err := deps.manager.Status()
	if err != nil {
		return withCode(ExitUnknownError, fmt.Errorf("failed to query service status: %w", err))
	}

	switch status {
	case svcmgr.StatusUninstalled:
		fmt.Fprintln(w, "Beacon Agent service is not installed.")
	case svcmgr.StatusStopped:
		fmt.Fprintln(w, "Beacon Agent service is not running.")
	case svcmgr.StatusRunning:
		fmt.Fprintln(w, "Beacon Agent service is running.")
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	counter, probeErr := deps.probe(probeCtx)
	if probeErr != nil {
		if status == svcmgr.StatusRunning {
			return withCode(ExitUnknownError,
				fmt.Errorf("service reports running but the liveness probe failed: %w", probeErr))
		}
		return nil
	}

	if status != svcmgr.StatusRunning {
		logger.Warn().Msg("Agent is serving outside the service manager, this should only happen during testing")
	}

	fmt.Fprintf(w, "  Liveness counter: %d\n", counter)

	if deps.uptime != nil {
		if up, err := deps.uptime(); err == nil {
			fmt.Fprintf(w, "  Host uptime: %s\n", time.Duration(up)*time.Second)
		}
	}
	return nil
}

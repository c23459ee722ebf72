package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"beaconagent/internal/agent"
	"beaconagent/internal/config"
	"beaconagent/internal/logger"
	"beaconagent/internal/pipe"
	"beaconagent/internal/service"
	"beaconagent/internal/svcmgr"
)

const waitPollInterval = 500 * time.Millisecond

func (a *app) newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage the Beacon Agent service",
	}
	cmd.AddCommand(
		a.newInstallCmd(),
		a.newUninstallCmd(),
		a.newStartCmd(),
		a.newStopCmd(),
		a.newRunCmd(),
		a.newRunAsServiceCmd(),
	)
	return cmd
}

func (a *app) newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Register the Beacon Agent with the service manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exe, err := os.Executable()
			if err != nil {
				return withCode(ExitUnknownError, fmt.Errorf("failed to determine executable path: %w", err))
			}

			m := svcmgr.New(agent.ServiceName)
			desc := svcmgr.Description{
				DisplayName: agent.ServiceDisplayName,
				BinaryPath:  exe,
				Args:        []string{"agent", "run-as-service"},
			}
			installed, err := m.Install(desc)
			if err != nil {
				return withCode(ExitUnknownError, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Installed %s (%s)\n", installed.DisplayName, installed.BinaryPath)
			return nil
		},
	}
}

func (a *app) newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the Beacon Agent from the service manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := svcmgr.New(agent.ServiceName)
			if err := m.Uninstall(); err != nil {
				return withCode(ExitUnknownError, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Beacon Agent service removed.")
			return nil
		},
	}
}

func (a *app) newStartCmd() *cobra.Command {
	var (
		wait    bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the Beacon Agent service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := svcmgr.New(agent.ServiceName)
			if err := m.Start(); err != nil {
				return withCode(ExitUnknownError, err)
			}
			if !wait {
				fmt.Fprintln(cmd.OutOrStdout(), "Beacon Agent service start requested.")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := svcmgr.WaitForStatus(ctx, clock.New(), m, svcmgr.StatusRunning, waitPollInterval); err != nil {
				return withCode(ExitUnknownError, fmt.Errorf("service did not reach running state: %w", err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Beacon Agent service started.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the service reports running")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait with --wait")
	return cmd
}

func (a *app) newStopCmd() *cobra.Command {
	var (
		wait    bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the Beacon Agent service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := svcmgr.New(agent.ServiceName)
			if err := m.Stop(); err != nil {
				return withCode(ExitUnknownError, err)
			}
			if !wait {
				fmt.Fprintln(cmd.OutOrStdout(), "Beacon Agent service stop requested.")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := svcmgr.WaitForStatus(ctx, clock.New(), m, svcmgr.StatusStopped, waitPollInterval); err != nil {
				return withCode(ExitUnknownError, fmt.Errorf("service did not reach stopped state: %w", err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Beacon Agent service stopped.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the service reports stopped")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait with --wait")
	return cmd
}

// newRunCmd runs the agent in the foreground. Hidden: operators go
// through the service manager, this exists for development and debugging.
func (a *app) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "run",
		Short:  "Run the agent in the foreground",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ag, err := a.buildAgent()
			if err != nil {
				return withCode(ExitUnknownError, err)
			}

			stopWatcher := a.watchLoggingConfig()
			defer stopWatcher()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := ag.Run(ctx); err != nil {
				return withCode(ExitAgentFailed, err)
			}
			return nil
		},
	}
}

// newRunAsServiceCmd is the entry point the service manager invokes. It
// must never be run by hand, the service host integration takes over the
// process.
func (a *app) newRunAsServiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "run-as-service",
		Short:  "Run the agent under the platform service host",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ag, err := a.buildAgent()
			if err != nil {
				service.ReportStartupError(agent.ServiceName, err)
				service.WriteStartupErrorFile(startupErrorLogDir, err)
				return withCode(ExitServiceStartup, err)
			}

			stopWatcher := a.watchLoggingConfig()
			defer stopWatcher()

			svc := service.NewService(agent.ServiceName, ag.Run)
			if err := svc.Run(cmd.Context()); err != nil {
				service.ReportStartupError(agent.ServiceName, err)
				service.WriteStartupErrorFile(startupErrorLogDir, err)
				return withCode(ExitServiceStartup, err)
			}
			return nil
		},
	}
}

func (a *app) buildAgent() (*agent.Agent, error) {
	tr, err := pipe.New(a.cfg.Pipe)
	if err != nil {
		return nil, fmt.Errorf("failed to set up transport: %w", err)
	}
	return agent.New(tr), nil
}

// watchLoggingConfig hot-reloads the logging section while the agent
// runs. A missing config file just means there is nothing to watch.
func (a *app) watchLoggingConfig() func() {
	if _, err := os.Stat(a.configPath); err != nil {
		return func() {}
	}

	w, err := config.NewLoggingWatcher(a.configPath, func(lc *logger.Config) {
		if err := logger.Init(*lc); err != nil {
			logger.Warn().Err(err).Msg("Failed to apply reloaded logging configuration")
		} else {
			logger.Info().Msg("Logging configuration reloaded")
		}
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to watch configuration file")
		return func() {}
	}
	if err := w.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start configuration watcher")
		return func() {}
	}
	return func() { w.Stop() }
}

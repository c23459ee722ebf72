// Package cli implements the beaconagent command tree: service lifecycle
// subcommands under "agent", and "status".
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"beaconagent/internal/agent"
	"beaconagent/internal/config"
	"beaconagent/internal/logger"
	"beaconagent/internal/service"
)

// Exit codes, one per failure class.
const (
	ExitSuccess        = 0
	ExitUnknownError   = 1
	ExitInvalidArgs    = 2
	ExitAgentFailed    = 3
	ExitServiceStartup = 4
)

// startupErrorLogDir receives the startup-error file when the agent fails
// before logging is available.
const startupErrorLogDir = "log/beaconagent"

// codedError pairs an error with the process exit code it should produce.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

type app struct {
	configPath string
	cfg        *config.Config
	invoked    bool
}

// Execute runs the CLI and returns the process exit code.
func Execute(version string) int {
	a := &app{}
	root := a.newRootCmd(version)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	if !a.invoked {
		// Cobra rejected the invocation before any command ran.
		return ExitInvalidArgs
	}
	return ExitUnknownError
}

func (a *app) newRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:     "beaconagent",
		Short:   "Beacon agent and its service lifecycle manager",
		Version: version,

		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "Path to configuration file")

	root.AddCommand(a.newAgentCmd(), a.newStatusCmd())
	return root
}

// setup loads configuration and initializes logging before any command
// runs. A config file is only required when --config was given explicitly.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.invoked = true

	if service.NewService(agent.ServiceName, nil).IsService() {
		// No console under the service host.
		logger.SetServiceMode(true)
	}

	required := cmd.Root().PersistentFlags().Changed("config")
	cfg, err := config.Load(a.configPath, required)
	if err != nil {
		return a.startupError(cmd, err)
	}
	a.cfg = cfg

	if err := logger.Init(cfg.Logging); err != nil {
		return a.startupError(cmd, err)
	}
	return nil
}

// startupError classifies a failure that happened before the command
// proper could run. Under the service host it is additionally reported
// where an operator will find it without a working logger.
func (a *app) startupError(cmd *cobra.Command, err error) error {
	if cmd.Name() == "run-as-service" {
		service.ReportStartupError(agent.ServiceName, err)
		service.WriteStartupErrorFile(startupErrorLogDir, err)
		return withCode(ExitServiceStartup, err)
	}
	return withCode(ExitUnknownError, err)
}

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/grant-triage/internal/config"
	"github.com/pfrederiksen/grant-triage/internal/logger"
	"github.com/pfrederiksen/grant-triage/internal/opportunity"
	"github.com/pfrederiksen/grant-triage/internal/table"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitInput   = 2
)

var (
	flagConfig  string
	flagVerbose bool

	// cfg is resolved once per invocation before any subcommand runs.
	cfg config.Config
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant-triage",
		Short: "Fetch, score and triage government funding opportunities",
		Long: `A CLI tool that narrows the Grants.gov opportunity feed to a ranked shortlist.
Fetch opportunities, turn them into a scoring master, score the master once an
analyst has filled it in, and export the Clean, Dirty and OutOfScope tables.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultPath, "Path to YAML config file")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(newScoreCmd(), newFetchCmd(), newTemplateCmd(), newPrepareCmd())
	return cmd
}

// setup loads the config and installs a logger tagged with a fresh run id.
func setup(cmd *cobra.Command, args []string) error {
	level := logger.LevelInfo
	if flagVerbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.New(level, os.Stderr).With(logger.Fields{
		"run_id":  uuid.NewString(),
		"command": cmd.Name(),
	}))

	loaded, err := config.Load(flagConfig, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	cfg = loaded

	logger.Debug("configuration loaded", logger.Fields{"config": flagConfig})
	return nil
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, table.ErrInputNotFound),
		errors.Is(err, table.ErrMalformed),
		errors.Is(err, opportunity.ErrMissingColumn):
		return ExitInput
	default:
		return ExitError
	}
}

// Execute runs the CLI
func Execute() {
	err := NewRootCmd().Execute()
	_ = logger.Default().Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitCode(err))
	}
}

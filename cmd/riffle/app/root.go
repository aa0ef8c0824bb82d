// Package app provides the command-line interface implementation for riffle.
//
// This package contains all CLI commands and their implementations, organized
// hierarchically with cobra: a root command with one subcommand per
// operation (up, down, status, logs, taxonomy, version).
package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riffle-ml/riffle/internal/config"
	"github.com/riffle-ml/riffle/internal/logger"
)

const (
	// cliName is the name of the CLI application
	cliName = "riffle"

	// cliDescription is the short description shown in help text
	cliDescription = "riffle - benthic macroinvertebrate ML workbench"
)

// GlobalOptions holds options that are common to all commands
type GlobalOptions struct {
	// Verbose enables verbose output
	Verbose bool
}

// NewRiffleCommand creates the root riffle command with all subcommands.
//
// The root command provides the main entry point for the CLI. It sets up
// global flags and registers all subcommands.
func NewRiffleCommand() *cobra.Command {
	opts := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:   cliName,
		Short: cliDescription,
		Long: `riffle manages the containerized ML workbench used to train the
benthic macroinvertebrate taxonomy classifier.

It attaches the dataset storage device, builds and starts the notebook
container with docker compose, waits for the notebook server to come up,
and opens it in your browser. The taxonomy subcommands keep the dataset's
lineage metadata in sync with the NCBI taxonomy database.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetDebug(opts.Verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false,
		"verbose output")

	cmd.AddCommand(
		NewUpCommand(opts),
		NewDownCommand(opts),
		NewStatusCommand(opts),
		NewLogsCommand(opts),
		NewTaxonomyCommand(opts),
		NewVersionCommand(opts),
	)

	return cmd
}

// loadConfig reads the layered configuration for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}


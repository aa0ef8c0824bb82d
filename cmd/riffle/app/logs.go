package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/riffle-ml/riffle/internal/workbench"
)

// LogsOptions holds options for the logs command
type LogsOptions struct {
	*GlobalOptions

	// Follow streams new log lines as they appear
	Follow bool
}

// NewLogsCommand creates the logs command.
//
// The logs command prints the workbench container's output, optionally
// following it like 'docker logs -f'.
func NewLogsCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &LogsOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show workbench container logs",
		Example: `  # Print the notebook server logs
  riffle logs

  # Follow logs until Ctrl+C
  riffle logs -f`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false,
		"follow log output")

	return cmd
}

// runLogs executes the logs command logic
func runLogs(opts *LogsOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	controller, err := workbench.NewDockerController()
	if err != nil {
		return err
	}

	return controller.StreamLogs(context.Background(), cfg.Service, opts.Follow,
		os.Stdout, os.Stderr)
}

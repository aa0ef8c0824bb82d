package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/riffle-ml/riffle/internal/bootstrap"
	"github.com/riffle-ml/riffle/internal/browser"
	"github.com/riffle-ml/riffle/internal/storage"
	"github.com/riffle-ml/riffle/internal/workbench"
)

// UpOptions holds options for the up command
type UpOptions struct {
	*GlobalOptions

	// NoBrowser skips opening the endpoint in a browser
	NoBrowser bool

	// Interval overrides the readiness polling interval
	Interval time.Duration

	// MaxAttempts overrides the readiness polling attempt budget
	MaxAttempts int
}

// NewUpCommand creates the up command.
//
// The up command runs the full bootstrap sequence: validate configuration,
// attach the dataset device, build and start the workbench container, wait
// for the notebook server, and open it in the browser.
//
// Usage:
//
//	riffle up [--no-browser] [--interval DURATION] [--max-attempts N]
func NewUpCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &UpOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Attach storage, start the workbench, and open the notebook",
		Long: `Bring the workbench up end to end.

The sequence is: validate configuration, attach the dataset storage device
(skipped when already mounted), build and start the notebook container via
docker compose, poll the notebook server for its access token, and open
the tokenized URL in your default browser.

The storage device is configured with the RIFFLE_DEVICE environment
variable (or in workbench.yaml / .env). Without it, up refuses to run.`,
		Example: `  # Bring the workbench up and open the notebook
  riffle up

  # Headless host: print the URL instead of opening a browser
  riffle up --no-browser

  # Slow machine: give the notebook server more time
  riffle up --interval 5s --max-attempts 12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false,
		"do not open the endpoint in a browser")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0,
		"readiness polling interval (default 1s)")
	cmd.Flags().IntVar(&opts.MaxAttempts, "max-attempts", 0,
		"readiness polling attempts before giving up (default 4)")

	return cmd
}

// runUp executes the up command logic
func runUp(opts *UpOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.Interval > 0 {
		cfg.Poll.Interval = opts.Interval
	}
	if opts.MaxAttempts > 0 {
		cfg.Poll.MaxAttempts = opts.MaxAttempts
	}

	// Validate before constructing any external collaborator, so a
	// missing device never even connects to the Docker daemon.
	if err := cfg.Validate(); err != nil {
		return err
	}

	controller, err := workbench.NewDockerController()
	if err != nil {
		return err
	}
	controller.Progress = printProgress

	var open bootstrap.Opener
	if !opts.NoBrowser {
		open = browser.Open
	}

	boot := bootstrap.New(cfg, storage.NewMountManager(cfg.Mountpoint), controller, open)

	endpoint, err := boot.Run(context.Background())
	if err != nil {
		if errors.Is(err, bootstrap.ErrReadinessTimeout) {
			fmt.Println()
			fmt.Println("The notebook server did not come up in time.")
			fmt.Println("Check its logs with 'riffle logs', or retry with a larger")
			fmt.Println("budget: riffle up --interval 5s --max-attempts 12")
		}
		return err
	}

	fmt.Println()
	color.Green("✓ Workbench ready")
	fmt.Printf("  %s\n", endpoint)
	if opts.NoBrowser {
		fmt.Println("  (browser launch skipped)")
	}

	return nil
}

// printProgress renders compose build/start output. Overwrite events
// (docker's progress bars) replace the current line; regular lines scroll.
func printProgress(line string, overwrite bool) {
	if overwrite {
		fmt.Printf("\r\033[2K%s", line)
	} else {
		fmt.Printf("\r\033[2K%s\n", line)
	}
}

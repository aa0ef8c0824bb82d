package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/riffle-ml/riffle/internal/bootstrap"
	"github.com/riffle-ml/riffle/internal/config"
	"github.com/riffle-ml/riffle/internal/storage"
	"github.com/riffle-ml/riffle/internal/workbench"
)

// NewStatusCommand creates the status command.
//
// The status command reports the attachment state of the dataset device,
// the workbench container state, and the notebook endpoint when the
// server is ready.
func NewStatusCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workbench and storage status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}

	return cmd
}

// runStatus executes the status command logic
func runStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)

	// Storage line. An unset device is reported, not fatal: status is a
	// read-only command and should work on a half-configured checkout.
	if cfg.Device == "" {
		fmt.Fprintf(w, "storage\t-\t(%s not set)\n", config.EnvDevice)
	} else {
		attached, err := storage.NewMountManager(cfg.Mountpoint).IsAttached(ctx, cfg.Device)
		if err != nil {
			return err
		}
		if attached {
			fmt.Fprintf(w, "storage\t%s\tattached at %s\n", cfg.Device, cfg.Mountpoint)
		} else {
			fmt.Fprintf(w, "storage\t%s\tnot attached\n", cfg.Device)
		}
	}

	controller, err := workbench.NewDockerController()
	if err != nil {
		return err
	}

	status, err := controller.Status(ctx, cfg.Service, cfg.Port)
	if err != nil {
		return err
	}

	stateStr := status.State
	switch status.State {
	case "running":
		stateStr = color.GreenString(status.State)
	case "exited", "dead":
		stateStr = color.RedString(status.State)
	case "absent":
		stateStr = color.YellowString(status.State)
	}

	if status.ContainerID == "" {
		fmt.Fprintf(w, "workbench\t-\t%s\n", stateStr)
	} else {
		fmt.Fprintf(w, "workbench\t%s\t%s %s\n",
			status.ContainerID[:12], stateStr, status.Status)
	}
	w.Flush()

	// Only a running server can hand out its token.
	if status.State == "running" {
		token, err := controller.ReadinessCredential(ctx, cfg.Service)
		if err == nil && token != "" {
			fmt.Println()
			fmt.Printf("Notebook: %s\n", bootstrap.ComposeEndpoint(cfg.BaseURL(), token))
		}
	}

	return nil
}

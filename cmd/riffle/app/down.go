package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riffle-ml/riffle/internal/workbench"
)

// NewDownCommand creates the down command.
//
// The down command stops and removes the workbench container. The dataset
// storage device stays mounted; riffle never detaches it.
func NewDownCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop the workbench",
		Long: `Stop and remove the workbench container.

The dataset storage device stays mounted so notebooks and data survive
restarts; unmount it manually if you need to detach the drive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDown()
		},
	}

	return cmd
}

// runDown executes the down command logic
func runDown() error {
	controller, err := workbench.NewDockerController()
	if err != nil {
		return err
	}
	controller.Progress = printProgress

	if err := controller.Down(context.Background()); err != nil {
		return err
	}

	fmt.Println("Workbench stopped")
	return nil
}

// Package stopcmder provides the stop command for cancelling the running
// maintenance action.
package stopcmder

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/foldermate/foldermate/pkg/action"
	"github.com/foldermate/foldermate/pkg/cliui"
)

const stopLongDesc string = `Request cancellation of the running maintenance action.

The running process finishes its current file, records the partial batch
result, and exits. If no action is running, stop reports that and exits
cleanly.

Examples:
  foldermate stop`

const stopShortDesc string = "Cancel the running action"

func NewStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: stopShortDesc,
		Long:  stopLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runStop(configDir)
		},
	}

	return cmd
}

func runStop(configDir string) error {
	manager, err := action.NewManager(configDir)
	if err != nil {
		return err
	}

	state, err := manager.LoadState()
	if err != nil {
		return err
	}

	if state == nil || !action.ProcessAlive(state.PID) {
		// Clean up a stale state file left by a crashed run.
		if state != nil {
			_ = manager.ClearState()
		}
		fmt.Printf("  %s No action running.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	proc, err := os.FindProcess(state.PID)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", state.PID, err)
	}
	if err := proc.Signal(syscall.SIGINT); err != nil {
		return fmt.Errorf("signalling process %d: %w", state.PID, err)
	}

	fmt.Printf("  %s Requested cancellation of %s (pid %d)\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(string(state.Kind)),
		state.PID,
	)
	return nil
}

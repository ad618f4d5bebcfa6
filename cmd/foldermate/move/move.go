// Package movecmder provides the move command for committing planned
// destinations to disk.
package movecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foldermate/foldermate/pkg/action"
	"github.com/foldermate/foldermate/pkg/cliui"
	"github.com/foldermate/foldermate/pkg/logger"
	"github.com/foldermate/foldermate/pkg/workspace"
)

const moveLongDesc string = `Move files to their planned destinations.

Each file with a planned destination and no committed one is moved under
workspace.target_dir, then the destination is recorded on its record. The
record is only written after the filesystem move succeeds. Requires
workspace.target_dir to be configured.

Examples:
  foldermate move`

const moveShortDesc string = "Commit planned destinations to disk"

func NewMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move",
		Short: moveShortDesc,
		Long:  moveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runMove(cmd.Context(), configDir, debug)
		},
	}

	return cmd
}

func runMove(ctx context.Context, configDir string, debug bool) error {
	zapLogger := logger.NewLogger(debug)
	defer func() { _ = zapLogger.Sync() }()

	ws, err := workspace.Open(ctx, workspace.Options{ConfigDir: configDir, Debug: debug}, zapLogger)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	result, err := ws.RunStage(ctx, action.KindMove, ws.Organizer.Move)
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s %s\n", cliui.SuccessMark, result.Summary())
	for _, f := range result.Failures {
		fmt.Printf("  %s %s: %v\n", cliui.FailMark, cliui.PathStyle.Render(f.Path), f.Err)
	}
	fmt.Println()
	return nil
}

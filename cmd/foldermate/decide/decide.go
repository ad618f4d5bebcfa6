// Package decidecmder provides the decide command for assigning planned
// destinations.
package decidecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foldermate/foldermate/pkg/action"
	"github.com/foldermate/foldermate/pkg/cliui"
	"github.com/foldermate/foldermate/pkg/logger"
	"github.com/foldermate/foldermate/pkg/workspace"
)

const decideLongDesc string = `Decide a planned destination for each planned file.

Reads each file's notes and the current target folder tree, picks a planned
destination under workspace.target_dir, and records the pick plus an anchor
note explaining it. Requires workspace.target_dir to be configured.

Examples:
  foldermate decide`

const decideShortDesc string = "Pick a planned destination per file"

func NewDecideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decide",
		Short: decideShortDesc,
		Long:  decideLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runDecide(cmd.Context(), configDir, debug)
		},
	}

	return cmd
}

func runDecide(ctx context.Context, configDir string, debug bool) error {
	zapLogger := logger.NewLogger(debug)
	defer func() { _ = zapLogger.Sync() }()

	ws, err := workspace.Open(ctx, workspace.Options{ConfigDir: configDir, Debug: debug}, zapLogger)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	result, err := ws.RunStage(ctx, action.KindDecide, ws.Organizer.Decide)
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

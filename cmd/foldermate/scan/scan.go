// Package scancmder provides the scan command for registering workspace
// files in the record store.
package scancmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foldermate/foldermate/pkg/action"
	"github.com/foldermate/foldermate/pkg/cliui"
	"github.com/foldermate/foldermate/pkg/logger"
	"github.com/foldermate/foldermate/pkg/workspace"
)

const scanLongDesc string = `Scan the workspace base directory and register files.

Walks workspace.base_dir, filters by scan.allowed_extensions, and inserts a
record for every eligible file. Files already registered keep their existing
report, notes and destinations.

Examples:
  foldermate scan`

const scanShortDesc string = "Register workspace files in the record store"

func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: scanShortDesc,
		Long:  scanLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runScan(cmd.Context(), configDir, debug)
		},
	}

	return cmd
}

func runScan(ctx context.Context, configDir string, debug bool) error {
	zapLogger := logger.NewLogger(debug)
	defer func() { _ = zapLogger.Sync() }()

	ws, err := workspace.Open(ctx, workspace.Options{ConfigDir: configDir, Debug: debug}, zapLogger)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	result, err := ws.RunStage(ctx, action.KindScan, ws.Organizer.Scan)
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

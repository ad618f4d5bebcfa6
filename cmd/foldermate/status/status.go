// Package statuscmder provides the status command for displaying workspace
// and action state.
package statuscmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foldermate/foldermate/pkg/action"
	"github.com/foldermate/foldermate/pkg/cliui"
	"github.com/foldermate/foldermate/pkg/logger"
	"github.com/foldermate/foldermate/pkg/workspace"
)

const statusLongDesc string = `Show the current foldermate workspace state.

Displays the record store totals (registered, reported, planned, moved files)
and whether a maintenance action is currently running.

Examples:
  foldermate status`

const statusShortDesc string = "Show workspace and action state"

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runStatus(cmd.Context(), configDir, debug)
		},
	}

	return cmd
}

func runStatus(ctx context.Context, configDir string, debug bool) error {
	zapLogger := logger.NewLogger(debug)
	defer func() { _ = zapLogger.Sync() }()

	ws, err := workspace.Open(ctx, workspace.Options{ConfigDir: configDir, Debug: debug}, zapLogger)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	records, err := ws.Store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing records: %w", err)
	}

	var reported, planned, moved int
	for i := range records {
		if strings.TrimSpace(records[i].ReportText) != "" {
			reported++
		}
		if records[i].PlannedDest != "" {
			planned++
		}
		if records[i].FinalDest != "" {
			moved++
		}
	}

	fmt.Printf("\n  %s %s\n", cliui.KeyStyle.Render("Workspace:"), cliui.PathStyle.Render(ws.Config.Workspace.BaseDir))
	if ws.Config.Workspace.TargetDir != "" {
		fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Target:   "), cliui.PathStyle.Render(ws.Config.Workspace.TargetDir))
	} else {
		fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Target:   "), cliui.DimStyle.Render("<not set>"))
	}

	fmt.Printf("\n  %s %d registered, %d reported, %d planned, %d moved\n",
		cliui.KeyStyle.Render("Records:  "), len(records), reported, planned, moved)

	state, err := ws.Manager.LoadState()
	if err != nil {
		return err
	}

	switch {
	case state == nil || !action.ProcessAlive(state.PID):
		fmt.Printf("\n  %s No action running.\n\n", cliui.DimStyle.Render("●"))
	default:
		fmt.Printf("\n  %s %s running since %s (pid %d, run %s)\n\n",
			cliui.WarnStyle.Render("●"),
			cliui.KeyStyle.Render(string(state.Kind)),
			state.StartedAt.Local().Format("15:04:05"),
			state.PID,
			cliui.DimStyle.Render(state.RunID),
		)
	}

	return nil
}

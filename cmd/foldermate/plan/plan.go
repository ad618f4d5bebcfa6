// Package plancmder provides the plan command for clustering related files.
package plancmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foldermate/foldermate/pkg/action"
	"github.com/foldermate/foldermate/pkg/cliui"
	"github.com/foldermate/foldermate/pkg/logger"
	"github.com/foldermate/foldermate/pkg/workspace"
)

const planLongDesc string = `Plan folder clusters for analyzed files.

Each analyzed file the planner has not visited is matched against its nearest
neighbors in the vector index, and the resulting cluster note is attached to
the file and every resolvable cluster member. Re-running plan only visits new
arrivals.

Examples:
  foldermate plan`

const planShortDesc string = "Cluster related files into proposed folders"

func NewPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: planShortDesc,
		Long:  planLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runPlan(cmd.Context(), configDir, debug)
		},
	}

	return cmd
}

func runPlan(ctx context.Context, configDir string, debug bool) error {
	zapLogger := logger.NewLogger(debug)
	defer func() { _ = zapLogger.Sync() }()

	ws, err := workspace.Open(ctx, workspace.Options{ConfigDir: configDir, Debug: debug}, zapLogger)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	result, err := ws.RunStage(ctx, action.KindPlan, ws.Organizer.Plan)
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

// Package analyzecmder provides the analyze command for converting files and
// writing report text plus embeddings.
package analyzecmder

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/action"
	"github.com/foldermate/foldermate/pkg/cliui"
	"github.com/foldermate/foldermate/pkg/logger"
	"github.com/foldermate/foldermate/pkg/watch"
	"github.com/foldermate/foldermate/pkg/workspace"
)

const analyzeLongDesc string = `Analyze registered files that have no report yet.

Each file is converted to text through the conversion cache, summarized into
report text, and embedded into the vector index. Files whose conversion or
embedding fails are reported and skipped; re-running analyze retries them.

With --watch, a filesystem watcher runs alongside the batch and drops cache
entries for files that change on disk.

Examples:
  foldermate analyze
  foldermate analyze --watch`

const analyzeShortDesc string = "Convert files and write reports + embeddings"

func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: analyzeShortDesc,
		Long:  analyzeLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			configDir, _ := cmd.Flags().GetString("config-dir")
			watchFlag, _ := cmd.Flags().GetBool("watch")
			return runAnalyze(cmd.Context(), configDir, debug, watchFlag)
		},
	}

	cmd.Flags().Bool("watch", false, "Invalidate cache entries for files that change during the run")

	return cmd
}

func runAnalyze(ctx context.Context, configDir string, debug, watchFlag bool) error {
	zapLogger := logger.NewLogger(debug)
	defer func() { _ = zapLogger.Sync() }()

	ws, err := workspace.Open(ctx, workspace.Options{ConfigDir: configDir, Debug: debug}, zapLogger)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	if watchFlag {
		watcher, err := watch.NewWatcher(ws.Config.Workspace.BaseDir, ws.Config.Scan.Recursive, ws.Cache, zapLogger)
		if err != nil {
			return err
		}
		defer func() { _ = watcher.Close() }()

		watchCtx, cancelWatch := context.WithCancel(ctx)
		defer cancelWatch()
		go func() {
			if err := watcher.Run(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Warn("watcher stopped", zap.Error(err))
			}
		}()
	}

	result, err := ws.RunStage(ctx, action.KindAnalyze, ws.Organizer.Analyze)
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

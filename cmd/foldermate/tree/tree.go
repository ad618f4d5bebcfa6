// Package treecmder provides the tree command for displaying the target
// folder tree.
package treecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foldermate/foldermate/pkg/logger"
	"github.com/foldermate/foldermate/pkg/workspace"
)

const treeLongDesc string = `Show the target folder tree.

Renders workspace.target_dir as an indented tree, the same view the decide
stage uses when picking destinations. Requires workspace.target_dir to be
configured.

Examples:
  foldermate tree`

const treeShortDesc string = "Show the target folder tree"

func NewTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: treeShortDesc,
		Long:  treeLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runTree(cmd.Context(), configDir, debug)
		},
	}

	return cmd
}

func runTree(ctx context.Context, configDir string, debug bool) error {
	zapLogger := logger.NewLogger(debug)
	defer func() { _ = zapLogger.Sync() }()

	ws, err := workspace.Open(ctx, workspace.Options{ConfigDir: configDir, Debug: debug}, zapLogger)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	rendered, err := ws.Organizer.FolderTree()
	if err != nil {
		return err
	}

	fmt.Println(rendered)
	return nil
}

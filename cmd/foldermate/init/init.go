// Package initcmder provides the init command for initializing a local
// .foldermate directory in the current working directory.
package initcmder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const (
	dirName = ".foldermate"
)

const initLongDesc string = `Initialize a new .foldermate/ directory in the current working directory.

Creates a local .foldermate/ directory that takes precedence over the default
~/.foldermate/ directory for the record store, conversion cache, configuration,
and action state.

This is useful for maintaining separate foldermate state per workspace.

Examples:
  foldermate init`

const initShortDesc string = "Initialize a local .foldermate/ directory"

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit()
		},
	}

	return cmd
}

func runInit() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .foldermate directory: %w", err)
	}

	fmt.Printf("Initialized .foldermate directory: %s\n", dir)
	return nil
}

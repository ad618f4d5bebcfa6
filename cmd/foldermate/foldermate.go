// Package foldermatecmder
package foldermatecmder

import (
	"github.com/spf13/cobra"

	analyzecmder "github.com/foldermate/foldermate/cmd/foldermate/analyze"
	configcmder "github.com/foldermate/foldermate/cmd/foldermate/config"
	decidecmder "github.com/foldermate/foldermate/cmd/foldermate/decide"
	initcmder "github.com/foldermate/foldermate/cmd/foldermate/init"
	movecmder "github.com/foldermate/foldermate/cmd/foldermate/move"
	plancmder "github.com/foldermate/foldermate/cmd/foldermate/plan"
	scancmder "github.com/foldermate/foldermate/cmd/foldermate/scan"
	searchcmder "github.com/foldermate/foldermate/cmd/foldermate/search"
	statuscmder "github.com/foldermate/foldermate/cmd/foldermate/status"
	stopcmder "github.com/foldermate/foldermate/cmd/foldermate/stop"
	treecmder "github.com/foldermate/foldermate/cmd/foldermate/tree"
	versioncmder "github.com/foldermate/foldermate/cmd/version"
)

const foldermateLongDesc string = `Foldermate keeps a semantic record of the files in a workspace.

The maintenance pipeline runs in stages:
  foldermate scan      Register workspace files in the record store
  foldermate analyze   Convert files and write report text + embeddings
  foldermate plan      Cluster related files into proposed folders
  foldermate decide    Pick a planned destination per file
  foldermate move      Commit planned destinations to disk

Query and inspect with:
  foldermate search    Find files similar to a query or path
  foldermate tree      Show the target folder tree
  foldermate status    Show workspace and action state
  foldermate stop      Cancel the running action`

const foldermateShortDesc string = "Foldermate - semantic file organizer"

func NewFoldermateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "foldermate",
		Short: foldermateShortDesc,
		Long:  foldermateLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .foldermate directory location")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(scancmder.NewScanCmd())
	cmd.AddCommand(analyzecmder.NewAnalyzeCmd())
	cmd.AddCommand(plancmder.NewPlanCmd())
	cmd.AddCommand(decidecmder.NewDecideCmd())
	cmd.AddCommand(movecmder.NewMoveCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(stopcmder.NewStopCmd())
	cmd.AddCommand(treecmder.NewTreeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

// Package configcmder provides the config command for managing persistent
// foldermate configuration stored in the .foldermate/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent foldermate configuration.

Configuration is stored as config.toml in the .foldermate/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.db_path,
  workspace.base_dir, workspace.target_dir,
  scan.recursive, scan.allowed_extensions,
  vector_store.provider, vector_store.target,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  search.top_k,
  convert.cache_dir, convert.timeout_seconds, convert.max_return_chars,
  events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  foldermate config set <key> <value>    Set a configuration value
  foldermate config get <key>            Get a configuration value
  foldermate config list                 List all configuration values

Examples:
  foldermate config set workspace.target_dir ~/Documents/organized
  foldermate config set embedding.model nomic-embed-text
  foldermate config get search.top_k
  foldermate config list`

const configShortDesc string = "Manage persistent foldermate configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

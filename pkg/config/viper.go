package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/foldermate/foldermate/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the FOLDERMATE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (FOLDERMATE_WORKSPACE_BASE_DIR, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: FOLDERMATE_STORAGE_DB_PATH, etc.
	v.SetEnvPrefix("FOLDERMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	defaults := NewDefaultConfig()

	v.SetDefault("storage.db_path", defaults.Storage.DBPath)
	v.SetDefault("workspace.base_dir", defaults.Workspace.BaseDir)
	v.SetDefault("workspace.target_dir", defaults.Workspace.TargetDir)
	v.SetDefault("scan.recursive", defaults.Scan.Recursive)
	v.SetDefault("scan.allowed_extensions", defaults.Scan.AllowedExtensions)
	v.SetDefault("vector_store.provider", defaults.VectorStore.Provider)
	v.SetDefault("vector_store.target", defaults.VectorStore.Target)
	v.SetDefault("embedding.provider", defaults.Embedding.Provider)
	v.SetDefault("embedding.target", defaults.Embedding.Target)
	v.SetDefault("embedding.model", defaults.Embedding.Model)
	v.SetDefault("embedding.dimensions", defaults.Embedding.Dimensions)
	v.SetDefault("search.top_k", defaults.Search.TopK)
	v.SetDefault("convert.cache_dir", defaults.Convert.CacheDir)
	v.SetDefault("convert.timeout_seconds", defaults.Convert.TimeoutSeconds)
	v.SetDefault("convert.max_return_chars", defaults.Convert.MaxReturnChars)
	v.SetDefault("events.provider", defaults.Events.Provider)
	v.SetDefault("events.brokers", defaults.Events.Brokers)
	v.SetDefault("events.topic", defaults.Events.Topic)
}

// ConfigFromViper materializes a Config from the viper precedence chain.
func ConfigFromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			DBPath: v.GetString("storage.db_path"),
		},
		Workspace: WorkspaceConfig{
			BaseDir:   v.GetString("workspace.base_dir"),
			TargetDir: v.GetString("workspace.target_dir"),
		},
		Scan: ScanConfig{
			Recursive:         v.GetBool("scan.recursive"),
			AllowedExtensions: v.GetStringSlice("scan.allowed_extensions"),
		},
		VectorStore: VectorStoreConfig{
			Provider: v.GetString("vector_store.provider"),
			Target:   v.GetString("vector_store.target"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		Search: SearchConfig{
			TopK: v.GetInt("search.top_k"),
		},
		Convert: ConvertConfig{
			CacheDir:       v.GetString("convert.cache_dir"),
			TimeoutSeconds: v.GetInt("convert.timeout_seconds"),
			MaxReturnChars: v.GetInt("convert.max_return_chars"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
	}

	applyDefaults(cfg)

	return cfg
}

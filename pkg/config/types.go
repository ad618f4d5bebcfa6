package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent foldermate configuration stored as
// config.toml in the .foldermate/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Workspace   WorkspaceConfig   `toml:"workspace"`
	Scan        ScanConfig        `toml:"scan"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Search      SearchConfig      `toml:"search"`
	Convert     ConvertConfig     `toml:"convert"`
	Events      EventsConfig      `toml:"events"`
}

// StorageConfig holds the record store location.
type StorageConfig struct {
	DBPath string `toml:"db_path,omitempty"`
}

// WorkspaceConfig holds the directories the organizer operates over.
// BaseDir is the workspace root all record paths are relative to.
// TargetDir is the destination root for moves; commands that need it fail
// with ErrNotConfigured when it is empty.
type WorkspaceConfig struct {
	BaseDir   string `toml:"base_dir,omitempty"`
	TargetDir string `toml:"target_dir,omitempty"`
}

// ScanConfig holds traversal settings for the scan stage.
type ScanConfig struct {
	Recursive         bool     `toml:"recursive"`
	AllowedExtensions []string `toml:"allowed_extensions,omitempty"`
}

// VectorStoreConfig holds vector index settings.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// SearchConfig holds nearest-neighbor query settings.
type SearchConfig struct {
	TopK int `toml:"top_k,omitempty"`
}

// ConvertConfig holds conversion cache settings.
type ConvertConfig struct {
	CacheDir       string `toml:"cache_dir,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds,omitempty"`
	MaxReturnChars int    `toml:"max_return_chars,omitempty"`
}

// EventsConfig holds event stream publisher settings.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// ErrNotConfigured is returned when an operation requires a config value
// that has not been set. Callers treat it as "feature unavailable", not fatal.
type ErrNotConfigured struct {
	Key string
}

func (e ErrNotConfigured) Error() string {
	return "not configured: " + e.Key
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.db_path": {
		get: func(c *Config) string { return c.Storage.DBPath },
		set: func(c *Config, v string) error { c.Storage.DBPath = v; return nil },
	},
	"workspace.base_dir": {
		get: func(c *Config) string { return c.Workspace.BaseDir },
		set: func(c *Config, v string) error { c.Workspace.BaseDir = v; return nil },
	},
	"workspace.target_dir": {
		get: func(c *Config) string { return c.Workspace.TargetDir },
		set: func(c *Config, v string) error { c.Workspace.TargetDir = v; return nil },
	},
	"scan.recursive": {
		get: func(c *Config) string { return strconv.FormatBool(c.Scan.Recursive) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("scan.recursive must be a boolean: %w", err)
			}
			c.Scan.Recursive = b
			return nil
		},
	},
	"scan.allowed_extensions": {
		get: func(c *Config) string { return strings.Join(c.Scan.AllowedExtensions, ",") },
		set: func(c *Config, v string) error {
			parts := []string{}
			for _, p := range strings.Split(v, ",") {
				if p = strings.TrimSpace(p); p != "" {
					parts = append(parts, p)
				}
			}
			c.Scan.AllowedExtensions = parts
			return nil
		},
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("embedding.dimensions must be a positive integer: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"search.top_k": {
		get: func(c *Config) string { return strconv.Itoa(c.Search.TopK) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("search.top_k must be a positive integer")
			}
			c.Search.TopK = n
			return nil
		},
	},
	"convert.cache_dir": {
		get: func(c *Config) string { return c.Convert.CacheDir },
		set: func(c *Config, v string) error { c.Convert.CacheDir = v; return nil },
	},
	"convert.timeout_seconds": {
		get: func(c *Config) string { return strconv.Itoa(c.Convert.TimeoutSeconds) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("convert.timeout_seconds must be a positive integer")
			}
			c.Convert.TimeoutSeconds = n
			return nil
		},
	},
	"convert.max_return_chars": {
		get: func(c *Config) string { return strconv.Itoa(c.Convert.MaxReturnChars) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("convert.max_return_chars must be a positive integer")
			}
			c.Convert.MaxReturnChars = n
			return nil
		},
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

// GetKey returns the current value for the given dotted key.
func (c *Config) GetKey(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %s", key)
	}
	return info.get(c), nil
}

// SetKey sets the value for the given dotted key.
func (c *Config) SetKey(key, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	return info.set(c, value)
}

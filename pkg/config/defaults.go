package config

const (
	defaultDBPath = "organizer.sqlite"

	defaultBaseDir = "."

	defaultVectorProvider = "sqlitevec"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultTopK = 10

	defaultCacheDir       = "cache"
	defaultTimeoutSeconds = 60
	defaultMaxReturnChars = 20000

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "foldermate.files"
)

// defaultAllowedExtensions lists the file types the scan stage picks up.
func defaultAllowedExtensions() []string {
	return []string{
		".txt", ".md", ".rst",
		".json", ".csv", ".yaml", ".yml", ".ini", ".toml",
		".docx", ".xlsx", ".pptx", ".pdf",
		".html", ".xhtml", ".htm",
		".webvtt", ".vtt",
		".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp", ".webp",
	}
}

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			DBPath: defaultDBPath,
		},
		Workspace: WorkspaceConfig{
			BaseDir: defaultBaseDir,
		},
		Scan: ScanConfig{
			Recursive:         true,
			AllowedExtensions: defaultAllowedExtensions(),
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Search: SearchConfig{
			TopK: defaultTopK,
		},
		Convert: ConvertConfig{
			CacheDir:       defaultCacheDir,
			TimeoutSeconds: defaultTimeoutSeconds,
			MaxReturnChars: defaultMaxReturnChars,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}

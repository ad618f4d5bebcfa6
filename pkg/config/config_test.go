package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foldermate/foldermate/pkg/config"
)

var _ = Describe("NewDefaultConfig", func() {
	It("populates every section", func() {
		cfg := config.NewDefaultConfig()

		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Storage.DBPath).To(Equal("organizer.sqlite"))
		Expect(cfg.Workspace.BaseDir).To(Equal("."))
		Expect(cfg.Scan.Recursive).To(BeTrue())
		Expect(cfg.Scan.AllowedExtensions).To(ContainElements(".txt", ".md", ".pdf"))
		Expect(cfg.VectorStore.Provider).To(Equal("sqlitevec"))
		Expect(cfg.Embedding.Provider).To(Equal("ollama"))
		Expect(cfg.Embedding.Model).To(Equal("nomic-embed-text"))
		Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
		Expect(cfg.Search.TopK).To(Equal(10))
		Expect(cfg.Convert.TimeoutSeconds).To(Equal(60))
		Expect(cfg.Events.Provider).To(Equal("nop"))
	})

	It("leaves the target directory unset", func() {
		Expect(config.NewDefaultConfig().Workspace.TargetDir).To(BeEmpty())
	})
})

var _ = Describe("ParseConfigTOML", func() {
	It("decodes the sectioned layout", func() {
		cfg, err := config.ParseConfigTOML([]byte(`
version = 0

[workspace]
base_dir = "/tmp/inbox"
target_dir = "/tmp/sorted"

[embedding]
model = "all-minilm"
dimensions = 384
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Workspace.BaseDir).To(Equal("/tmp/inbox"))
		Expect(cfg.Workspace.TargetDir).To(Equal("/tmp/sorted"))
		Expect(cfg.Embedding.Model).To(Equal("all-minilm"))
		Expect(cfg.Embedding.Dimensions).To(Equal(uint(384)))
	})

	It("rejects malformed TOML", func() {
		_, err := config.ParseConfigTOML([]byte(`[workspace`))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Configer", func() {
	var (
		tmpDir string
		cfger  *config.Configer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "foldermate-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		cfger, err = config.NewConfiger(filepath.Join(tmpDir, ".foldermate"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns defaults when no config file exists", func() {
		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Embedding.Model).To(Equal("nomic-embed-text"))
	})

	It("fills unset fields from defaults after a partial file", func() {
		Expect(cfger.SetConfigValue("workspace.target_dir", "/tmp/sorted")).To(Succeed())

		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Workspace.TargetDir).To(Equal("/tmp/sorted"))
		Expect(cfg.Search.TopK).To(Equal(10))
		Expect(cfg.Scan.AllowedExtensions).NotTo(BeEmpty())
	})

	It("round-trips values through set and get", func() {
		Expect(cfger.SetConfigValue("embedding.model", "all-minilm")).To(Succeed())

		value, err := cfger.GetConfigValue("embedding.model")
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal("all-minilm"))
	})

	It("persists the config.toml file", func() {
		Expect(cfger.SetConfigValue("search.top_k", "5")).To(Succeed())

		_, err := os.Stat(filepath.Join(tmpDir, ".foldermate", "config.toml"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("parses boolean keys", func() {
		Expect(cfger.SetConfigValue("scan.recursive", "false")).To(Succeed())

		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Scan.Recursive).To(BeFalse())
	})

	It("splits extension lists on commas", func() {
		Expect(cfger.SetConfigValue("scan.allowed_extensions", ".txt, .md")).To(Succeed())

		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Scan.AllowedExtensions).To(Equal([]string{".txt", ".md"}))
	})

	It("rejects unknown keys", func() {
		Expect(cfger.SetConfigValue("nope.nothing", "x")).NotTo(Succeed())

		_, err := cfger.GetConfigValue("nope.nothing")
		Expect(err).To(HaveOccurred())
	})

	It("rejects non-numeric dimension values", func() {
		Expect(cfger.SetConfigValue("embedding.dimensions", "not-a-number")).NotTo(Succeed())
	})

	It("rejects non-positive top_k values", func() {
		Expect(cfger.SetConfigValue("search.top_k", "0")).NotTo(Succeed())
		Expect(cfger.SetConfigValue("search.top_k", "-3")).NotTo(Succeed())
	})
})

var _ = Describe("ValidConfigKeys", func() {
	It("lists every supported key exactly once", func() {
		keys := config.ValidConfigKeys()
		seen := map[string]bool{}
		for _, k := range keys {
			Expect(seen[k]).To(BeFalse(), "duplicate key %s", k)
			seen[k] = true
			Expect(config.IsValidConfigKey(k)).To(BeTrue())
		}
		Expect(keys).To(ContainElements(
			"storage.db_path",
			"workspace.base_dir",
			"workspace.target_dir",
			"embedding.model",
			"search.top_k",
			"events.provider",
		))
	})

	It("does not validate unknown keys", func() {
		Expect(config.IsValidConfigKey("workspace")).To(BeFalse())
		Expect(config.IsValidConfigKey("")).To(BeFalse())
	})
})

var _ = Describe("ErrNotConfigured", func() {
	It("names the missing key", func() {
		err := config.ErrNotConfigured{Key: "workspace.target_dir"}
		Expect(err.Error()).To(ContainSubstring("workspace.target_dir"))
	})
})

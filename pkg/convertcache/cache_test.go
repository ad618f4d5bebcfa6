package convertcache_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/convertcache"
	testutils "github.com/foldermate/foldermate/pkg/utils/test"
)

var _ = Describe("Cache", func() {
	var (
		tmpDir    string
		cacheDir  string
		sourceDir string
		source    string
		cache     *convertcache.Cache
		converter *testutils.MockConverter
		ctx       context.Context
	)

	newCache := func(c convertcache.Config) *convertcache.Cache {
		c.CacheDir = cacheDir
		cc, err := convertcache.NewCache(c, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		return cc
	}

	cacheEntryCount := func() int {
		entries, err := os.ReadDir(cacheDir)
		Expect(err).NotTo(HaveOccurred())
		return len(entries)
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "foldermate-cache-test-*")
		Expect(err).NotTo(HaveOccurred())

		cacheDir = filepath.Join(tmpDir, "cache")
		sourceDir = filepath.Join(tmpDir, "src")
		Expect(os.MkdirAll(sourceDir, 0o755)).To(Succeed())

		source = filepath.Join(sourceDir, "doc.txt")
		Expect(os.WriteFile(source, []byte("original content"), 0o644)).To(Succeed())

		cache = newCache(convertcache.Config{})
		converter = testutils.NewMockConverter()
		ctx = context.Background()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("NewCache", func() {
		It("requires a cache directory", func() {
			_, err := convertcache.NewCache(convertcache.Config{}, zap.NewNop())
			Expect(err).To(HaveOccurred())
		})

		It("creates the cache directory", func() {
			info, err := os.Stat(cacheDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})
	})

	Describe("Fingerprint", func() {
		It("is stable for unchanged files", func() {
			a, err := cache.Fingerprint(source)
			Expect(err).NotTo(HaveOccurred())
			b, err := cache.Fingerprint(source)
			Expect(err).NotTo(HaveOccurred())
			Expect(a).To(Equal(b))
		})

		It("changes when the content changes", func() {
			before, err := cache.Fingerprint(source)
			Expect(err).NotTo(HaveOccurred())

			Expect(os.WriteFile(source, []byte("different content"), 0o644)).To(Succeed())

			after, err := cache.Fingerprint(source)
			Expect(err).NotTo(HaveOccurred())
			Expect(after).NotTo(Equal(before))
		})

		It("fails for missing files", func() {
			_, err := cache.Fingerprint(filepath.Join(sourceDir, "gone.txt"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GetOrConvert", func() {
		It("converts on a miss and serves the entry on a hit", func() {
			first, err := cache.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Text).To(Equal("original content"))
			Expect(first.CacheHit).To(BeFalse())
			Expect(first.Fingerprint).NotTo(BeEmpty())

			second, err := cache.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Text).To(Equal("original content"))
			Expect(second.CacheHit).To(BeTrue())
			Expect(second.Fingerprint).To(Equal(first.Fingerprint))

			Expect(converter.Calls).To(HaveLen(1))
		})

		It("re-converts after the source changes", func() {
			_, err := cache.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())

			Expect(os.WriteFile(source, []byte("updated content"), 0o644)).To(Succeed())

			result, err := cache.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(Equal("updated content"))
			Expect(result.CacheHit).To(BeFalse())
			Expect(converter.Calls).To(HaveLen(2))
		})

		It("truncates returned text at the configured budget", func() {
			capped := newCache(convertcache.Config{MaxReturnChars: 8})

			result, err := capped.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(Equal("original"))
			Expect(result.Truncated).To(BeTrue())
		})

		It("truncates multibyte text on rune boundaries", func() {
			Expect(os.WriteFile(source, []byte("héllo wörld"), 0o644)).To(Succeed())
			capped := newCache(convertcache.Config{MaxReturnChars: 2})

			result, err := capped.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(Equal("hé"))
			Expect(utf8.ValidString(result.Text)).To(BeTrue())
			Expect(result.Truncated).To(BeTrue())
		})

		It("treats a text file without a sidecar as a miss", func() {
			key, err := cache.Fingerprint(source)
			Expect(err).NotTo(HaveOccurred())
			Expect(os.WriteFile(filepath.Join(cacheDir, key+".md"), []byte("stale text"), 0o644)).To(Succeed())

			result, err := cache.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.CacheHit).To(BeFalse())
			Expect(result.Text).To(Equal("original content"))
			Expect(converter.Calls).To(HaveLen(1))
		})

		It("treats a sidecar whose fingerprint mismatches its key as a miss", func() {
			first, err := cache.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())

			metaPath := filepath.Join(cacheDir, first.Fingerprint+".json")
			stale := fmt.Sprintf(`{"source_path":%q,"fingerprint":"0000"}`, source)
			Expect(os.WriteFile(metaPath, []byte(stale), 0o644)).To(Succeed())

			result, err := cache.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.CacheHit).To(BeFalse())
			Expect(result.Text).To(Equal("original content"))
			Expect(converter.Calls).To(HaveLen(2))
		})

		It("classifies converter errors as failed and caches nothing", func() {
			converter.FailOn = source

			_, err := cache.GetOrConvert(ctx, source, converter)

			var convErr convertcache.ErrConversion
			Expect(errors.As(err, &convErr)).To(BeTrue())
			Expect(convErr.Reason).To(Equal(convertcache.ReasonFailed))
			Expect(convErr.Path).To(Equal(source))
			Expect(cacheEntryCount()).To(BeZero())
		})

		It("classifies unsupported formats", func() {
			binary := convertcache.ConverterFunc(func(_ context.Context, path string) (string, error) {
				return "", fmt.Errorf("%s: %w", path, convertcache.ErrUnsupportedFormat)
			})

			_, err := cache.GetOrConvert(ctx, source, binary)

			var convErr convertcache.ErrConversion
			Expect(errors.As(err, &convErr)).To(BeTrue())
			Expect(convErr.Reason).To(Equal(convertcache.ReasonUnsupported))
		})

		It("times out stuck conversions and caches nothing", func() {
			bounded := newCache(convertcache.Config{Timeout: 50 * time.Millisecond})
			converter.HangOn = source

			start := time.Now()
			_, err := bounded.GetOrConvert(ctx, source, converter)
			Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))

			var convErr convertcache.ErrConversion
			Expect(errors.As(err, &convErr)).To(BeTrue())
			Expect(convErr.Reason).To(Equal(convertcache.ReasonTimeout))
			Expect(cacheEntryCount()).To(BeZero())
		})

		It("retries cleanly after a failure", func() {
			converter.FailOn = source
			_, err := cache.GetOrConvert(ctx, source, converter)
			Expect(err).To(HaveOccurred())

			converter.FailOn = ""
			result, err := cache.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(Equal("original content"))
		})
	})

	Describe("Invalidate", func() {
		It("drops the entry so the next lookup converts again", func() {
			_, err := cache.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())
			Expect(cacheEntryCount()).To(Equal(2))

			Expect(cache.Invalidate(source)).To(Succeed())
			Expect(cacheEntryCount()).To(BeZero())

			result, err := cache.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.CacheHit).To(BeFalse())
			Expect(converter.Calls).To(HaveLen(2))
		})
	})

	Describe("InvalidateSource", func() {
		It("removes entries keyed by a stale fingerprint", func() {
			_, err := cache.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())

			// After an edit the old entry is unreachable by fingerprint.
			Expect(os.WriteFile(source, []byte("edited content"), 0o644)).To(Succeed())

			removed, err := cache.InvalidateSource(source)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(1))
			Expect(cacheEntryCount()).To(BeZero())
		})

		It("removes entries for deleted sources", func() {
			_, err := cache.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())

			Expect(os.Remove(source)).To(Succeed())

			removed, err := cache.InvalidateSource(source)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(1))
		})

		It("leaves entries for other sources alone", func() {
			other := filepath.Join(sourceDir, "other.txt")
			Expect(os.WriteFile(other, []byte("other content"), 0o644)).To(Succeed())

			_, err := cache.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())
			_, err = cache.GetOrConvert(ctx, other, converter)
			Expect(err).NotTo(HaveOccurred())

			removed, err := cache.InvalidateSource(source)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(1))
			Expect(cacheEntryCount()).To(Equal(2))
		})

		It("reports zero for unknown sources", func() {
			removed, err := cache.InvalidateSource(filepath.Join(sourceDir, "never-seen.txt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeZero())
		})
	})

	Describe("Size", func() {
		It("grows as entries are cached", func() {
			before, err := cache.Size()
			Expect(err).NotTo(HaveOccurred())
			Expect(before).To(BeZero())

			_, err = cache.GetOrConvert(ctx, source, converter)
			Expect(err).NotTo(HaveOccurred())

			after, err := cache.Size()
			Expect(err).NotTo(HaveOccurred())
			Expect(after).To(BeNumerically(">", 0))
		})
	})
})

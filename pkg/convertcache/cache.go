// Package convertcache provides the content-addressed cache for converted
// document text. Entries are keyed by a fingerprint of the source file and
// committed atomically (temp file + rename), so a reader either sees a prior
// valid entry or no entry, never a truncated one. Failed conversions are
// never cached.
package convertcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Converter turns a source file into text. Implementations are injected
// collaborators; the cache only calls them on a miss.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(ctx context.Context, path string) (string, error)

func (f ConverterFunc) Convert(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// ErrUnsupportedFormat is returned (possibly wrapped) by converters that do
// not handle the source file's format.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Reason classifies a conversion failure.
type Reason string

const (
	ReasonTimeout     Reason = "timeout"
	ReasonUnsupported Reason = "unsupported"
	ReasonFailed      Reason = "failed"
)

// ErrConversion is returned when converting a source file fails. Nothing is
// cached for the file, so the next attempt retries cleanly.
type ErrConversion struct {
	Path   string
	Reason Reason
	Err    error
}

func (e ErrConversion) Error() string {
	return fmt.Sprintf("converting %s (%s): %v", e.Path, e.Reason, e.Err)
}

func (e ErrConversion) Unwrap() error {
	return e.Err
}

// Result is the outcome of a cache lookup or conversion.
type Result struct {
	// Text is the converted text, truncated to the configured budget.
	Text string

	// Truncated reports whether Text was cut at the character budget.
	Truncated bool

	// CacheHit reports whether the text came from a prior conversion.
	CacheHit bool

	// Fingerprint is the content fingerprint the entry is keyed by.
	Fingerprint string
}

// sidecar is the metadata stored next to each cached text file.
type sidecar struct {
	SourcePath  string    `json:"source_path"`
	Size        int64     `json:"size"`
	MTime       int64     `json:"mtime"`
	ConvertedAt time.Time `json:"converted_at"`
	Fingerprint string    `json:"fingerprint"`
}

// Config holds configuration for the conversion cache.
type Config struct {
	// CacheDir is the directory cached entries live in.
	CacheDir string

	// Timeout bounds a single conversion. Zero means no bound.
	Timeout time.Duration

	// MaxReturnChars caps the text returned to callers. Zero means no cap.
	MaxReturnChars int
}

// Cache manages cached converted text and metadata sidecars.
type Cache struct {
	dir      string
	timeout  time.Duration
	maxChars int
	logger   *zap.Logger
}

// NewCache creates the cache, creating its directory if needed.
func NewCache(c Config, logger *zap.Logger) (*Cache, error) {
	if c.CacheDir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}

	dir, err := filepath.Abs(c.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("resolving cache directory: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	return &Cache{
		dir:      dir,
		timeout:  c.Timeout,
		maxChars: c.MaxReturnChars,
		logger:   logger,
	}, nil
}

// Fingerprint computes the cache key for a source file: a sha256 over the
// full content plus size and mtime, so edits that preserve the timestamp are
// still detected.
func (c *Cache) Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening source: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing source: %w", err)
	}
	h.Write([]byte(strconv.FormatInt(stat.Size(), 10)))
	h.Write([]byte(strconv.FormatInt(stat.ModTime().Unix(), 10)))

	return hex.EncodeToString(h.Sum(nil)), nil
}

func (c *Cache) pathsForKey(key string) (string, string) {
	return filepath.Join(c.dir, key+".md"), filepath.Join(c.dir, key+".json")
}

// GetOrConvert returns the cached text for path, converting on a miss.
// Conversion failures are surfaced as ErrConversion and leave no entry.
func (c *Cache) GetOrConvert(ctx context.Context, path string, converter Converter) (*Result, error) {
	key, err := c.Fingerprint(path)
	if err != nil {
		return nil, ErrConversion{Path: path, Reason: ReasonFailed, Err: err}
	}

	if text, ok := c.load(key); ok {
		c.logger.Debug("cache hit",
			zap.String("path", path),
			zap.String("key", key),
		)
		return c.result(text, key, true), nil
	}

	c.logger.Debug("cache miss",
		zap.String("path", path),
		zap.String("key", key),
	)

	text, err := c.convert(ctx, path, converter)
	if err != nil {
		return nil, err
	}

	if err := c.save(path, key, text); err != nil {
		return nil, fmt.Errorf("caching conversion for %s: %w", path, err)
	}

	return c.result(text, key, false), nil
}

// convert runs the converter under the configured timeout. The converter is
// driven in its own goroutine so a conversion that ignores its context still
// cannot stall the caller past the deadline.
func (c *Cache) convert(ctx context.Context, path string, converter Converter) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	type outcome struct {
		text string
		err  error
	}

	done := make(chan outcome, 1)
	go func() {
		text, err := converter.Convert(ctx, path)
		done <- outcome{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrConversion{Path: path, Reason: ReasonTimeout, Err: ctx.Err()}
	case out := <-done:
		if out.err != nil {
			reason := ReasonFailed
			switch {
			case errors.Is(out.err, ErrUnsupportedFormat):
				reason = ReasonUnsupported
			case errors.Is(out.err, context.DeadlineExceeded):
				reason = ReasonTimeout
			}
			return "", ErrConversion{Path: path, Reason: reason, Err: out.err}
		}
		return out.text, nil
	}
}

// load returns the cached text for key, treating any inconsistency between
// text and sidecar as a miss.
func (c *Cache) load(key string) (string, bool) {
	textPath, metaPath := c.pathsForKey(key)

	metaData, err := os.ReadFile(metaPath)
	if err != nil {
		return "", false
	}

	var meta sidecar
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return "", false
	}
	if meta.Fingerprint != key {
		return "", false
	}

	text, err := os.ReadFile(textPath)
	if err != nil {
		return "", false
	}

	return string(text), true
}

// save commits the entry atomically: text first, sidecar last, each via a
// temp file and rename. Readers require the sidecar, so a crash mid-write
// leaves no visible entry.
func (c *Cache) save(path, key, text string) error {
	textPath, metaPath := c.pathsForKey(key)

	if err := c.writeAtomic(textPath, []byte(text)); err != nil {
		return err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	meta := sidecar{
		SourcePath:  path,
		Size:        stat.Size(),
		MTime:       stat.ModTime().Unix(),
		ConvertedAt: time.Now().UTC(),
		Fingerprint: key,
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding sidecar: %w", err)
	}

	if err := c.writeAtomic(metaPath, metaData); err != nil {
		return err
	}

	c.logger.Debug("cached conversion",
		zap.String("path", path),
		zap.String("key", key),
	)

	return nil
}

func (c *Cache) writeAtomic(dest string, data []byte) error {
	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("committing %s: %w", filepath.Base(dest), err)
	}

	return nil
}

func (c *Cache) result(text, key string, hit bool) *Result {
	truncated := false
	// The budget counts characters, so cut on a rune boundary.
	if c.maxChars > 0 && utf8.RuneCountInString(text) > c.maxChars {
		text = string([]rune(text)[:c.maxChars])
		truncated = true
	}

	return &Result{
		Text:        text,
		Truncated:   truncated,
		CacheHit:    hit,
		Fingerprint: key,
	}
}

// Invalidate removes the entry for path's current fingerprint. The next
// GetOrConvert regenerates it.
func (c *Cache) Invalidate(path string) error {
	key, err := c.Fingerprint(path)
	if err != nil {
		return fmt.Errorf("fingerprinting %s: %w", path, err)
	}

	textPath, metaPath := c.pathsForKey(key)
	// Sidecar first so a partial invalidation hides the entry.
	for _, p := range []string{metaPath, textPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", filepath.Base(p), err)
		}
	}

	c.logger.Debug("invalidated cache entry",
		zap.String("path", path),
		zap.String("key", key),
	)

	return nil
}

// InvalidateSource removes every entry whose sidecar records the given
// source path, regardless of fingerprint. Used when the source changed or
// disappeared and its old fingerprint is no longer computable.
func (c *Cache) InvalidateSource(path string) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("reading cache directory: %w", err)
	}

	clean := filepath.Clean(path)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		metaPath := filepath.Join(c.dir, entry.Name())
		metaData, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta sidecar
		if err := json.Unmarshal(metaData, &meta); err != nil {
			continue
		}
		if filepath.Clean(meta.SourcePath) != clean {
			continue
		}

		textPath, _ := c.pathsForKey(meta.Fingerprint)
		// Sidecar first so a partial invalidation hides the entry.
		for _, p := range []string{metaPath, textPath} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return removed, fmt.Errorf("removing %s: %w", filepath.Base(p), err)
			}
		}
		removed++
	}

	if removed > 0 {
		c.logger.Debug("invalidated source entries",
			zap.String("path", path),
			zap.Int("removed", removed),
		)
	}

	return removed, nil
}

// Size returns the total bytes held by cached entries.
func (c *Cache) Size() (int64, error) {
	var total int64
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("reading cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}

	return total, nil
}

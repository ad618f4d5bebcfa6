package organizer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/action"
)

// Scan walks the base directory and registers every eligible file in the
// record store. Registration is idempotent; files already known keep their
// existing state. Hidden entries and the workspace's own state directory are
// skipped.
func (o *Organizer) Scan(ctx context.Context) (result *BatchResult, err error) {
	run, err := o.coordinator.Start(ctx, action.KindScan)
	if err != nil {
		return nil, err
	}
	defer func() { run.Finish(err) }()

	result = &BatchResult{Kind: action.KindScan}
	runCtx := run.Context()

	walkErr := filepath.WalkDir(o.baseDir, func(path string, d fs.DirEntry, derr error) error {
		if runCtx.Err() != nil {
			result.Cancelled = true
			return filepath.SkipAll
		}
		if derr != nil {
			return derr
		}

		rel, relErr := filepath.Rel(o.baseDir, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !o.recursive {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !o.allowedExt[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		result.Processed++
		if _, insertErr := o.store.Insert(runCtx, filepath.ToSlash(rel)); insertErr != nil {
			result.fail(filepath.ToSlash(rel), insertErr)
			return nil
		}
		result.Succeeded++
		return nil
	})
	if walkErr != nil {
		err = fmt.Errorf("walking %s: %w", o.baseDir, walkErr)
		return nil, err
	}

	o.logger.Info("scan complete",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", len(result.Failures)),
		zap.Bool("cancelled", result.Cancelled),
	)
	return result, nil
}

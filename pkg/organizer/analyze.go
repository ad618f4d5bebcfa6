package organizer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/action"
	"github.com/foldermate/foldermate/pkg/eventstream"
	"github.com/foldermate/foldermate/pkg/record"
)

// Analyze converts and reports every record that has no report yet. The
// converted text goes through the cache, so re-running after a partial batch
// only pays for the files that failed. Each successful report emits a
// file.analyzed event.
func (o *Organizer) Analyze(ctx context.Context) (result *BatchResult, err error) {
	if o.reporter == nil {
		return nil, fmt.Errorf("reporter is required for analyze")
	}
	if o.cache == nil || o.converter == nil {
		return nil, fmt.Errorf("conversion cache and converter are required for analyze")
	}

	run, err := o.coordinator.Start(ctx, action.KindAnalyze)
	if err != nil {
		return nil, err
	}
	defer func() { run.Finish(err) }()

	result = &BatchResult{Kind: action.KindAnalyze}
	runCtx := run.Context()

	candidates, err := o.pending(runCtx, func(r *record.FileRecord) bool {
		return strings.TrimSpace(r.ReportText) == ""
	})
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		rec := &candidates[i]

		if runCtx.Err() != nil {
			result.Cancelled = true
			break
		}
		result.Processed++

		if itemErr := o.analyzeOne(runCtx, rec); itemErr != nil {
			result.fail(rec.Path, itemErr)
			o.logger.Warn("analyzing file",
				zap.String("path", rec.Path),
				zap.Error(itemErr),
			)
			continue
		}
		result.Succeeded++
	}

	o.logger.Info("analyze complete",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", len(result.Failures)),
		zap.Bool("cancelled", result.Cancelled),
	)
	return result, nil
}

func (o *Organizer) analyzeOne(ctx context.Context, rec *record.FileRecord) error {
	abs := filepath.Join(o.baseDir, filepath.FromSlash(rec.Path))

	converted, err := o.cache.GetOrConvert(ctx, abs, o.converter)
	if err != nil {
		return err
	}

	report, err := o.reporter.Report(ctx, rec.Path, converted.Text)
	if err != nil {
		return fmt.Errorf("generating report: %w", err)
	}

	if err := o.store.SetReport(ctx, rec.Path, report); err != nil {
		return err
	}

	event := eventstream.NewFileEvent(eventstream.EventTypeFileAnalyzed, rec.Path)
	event.Detail = fmt.Sprintf("report generated (%d chars, cache_hit=%t)", len(report), converted.CacheHit)
	o.publish(ctx, event)

	return nil
}

// pending snapshots the records matching keep, in stable path order. Working
// from a snapshot lets a batch skip past failing records instead of retrying
// them within the same run.
func (o *Organizer) pending(ctx context.Context, keep func(*record.FileRecord) bool) ([]record.FileRecord, error) {
	all, err := o.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	out := make([]record.FileRecord, 0, len(all))
	for i := range all {
		if keep(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

package organizer

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/action"
	"github.com/foldermate/foldermate/pkg/eventstream"
	"github.com/foldermate/foldermate/pkg/record"
)

// Move commits every planned destination that has not been finalized: the
// file is physically moved under the target directory, then the destination
// is recorded on the file's record. The record write happens only after the
// filesystem move succeeds, so a crash mid-batch never marks an unmoved file
// as finalized. Each committed move emits a file.moved event.
func (o *Organizer) Move(ctx context.Context) (result *BatchResult, err error) {
	if err := o.requireTargetDir(); err != nil {
		return nil, err
	}

	run, err := o.coordinator.Start(ctx, action.KindMove)
	if err != nil {
		return nil, err
	}
	defer func() { run.Finish(err) }()

	result = &BatchResult{Kind: action.KindMove}
	runCtx := run.Context()

	candidates, err := o.pending(runCtx, func(r *record.FileRecord) bool {
		return r.PlannedDest != "" && r.FinalDest == ""
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

		if itemErr := o.moveOne(runCtx, rec); itemErr != nil {
			result.fail(rec.Path, itemErr)
			o.logger.Warn("moving file",
				zap.String("path", rec.Path),
				zap.String("planned", rec.PlannedDest),
				zap.Error(itemErr),
			)
			continue
		}
		result.Succeeded++
	}

	o.logger.Info("move complete",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", len(result.Failures)),
		zap.Bool("cancelled", result.Cancelled),
	)
	return result, nil
}

func (o *Organizer) moveOne(ctx context.Context, rec *record.FileRecord) error {
	src := filepath.Join(o.baseDir, filepath.FromSlash(rec.Path))
	dest := filepath.Join(o.targetDir, filepath.FromSlash(rec.PlannedDest))

	if err := o.mover.Move(ctx, src, dest); err != nil {
		return err
	}

	if err := o.store.SetFinalDestination(ctx, rec.Path, rec.PlannedDest, false); err != nil {
		return err
	}

	event := eventstream.NewFileEvent(eventstream.EventTypeFileMoved, rec.Path)
	event.Destination = rec.PlannedDest
	o.publish(ctx, event)

	return nil
}

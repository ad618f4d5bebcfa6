package organizer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/action"
	"github.com/foldermate/foldermate/pkg/notes"
	"github.com/foldermate/foldermate/pkg/record"
)

// Decide assigns a planned destination to every planned record that lacks
// one. The decider sees the record's notes and the current target folder
// tree; its pick is persisted along with an anchor note explaining it.
func (o *Organizer) Decide(ctx context.Context) (result *BatchResult, err error) {
	if o.decider == nil {
		return nil, fmt.Errorf("decider is required for decide")
	}
	if err := o.requireTargetDir(); err != nil {
		return nil, err
	}

	run, err := o.coordinator.Start(ctx, action.KindDecide)
	if err != nil {
		return nil, err
	}
	defer func() { run.Finish(err) }()

	result = &BatchResult{Kind: action.KindDecide}
	runCtx := run.Context()

	tree, err := o.FolderTree()
	if err != nil {
		return nil, err
	}

	candidates, err := o.pending(runCtx, func(r *record.FileRecord) bool {
		return strings.TrimSpace(r.ReportText) != "" && r.PlanProcessed && r.PlannedDest == ""
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

		if itemErr := o.decideOne(runCtx, rec, tree); itemErr != nil {
			result.fail(rec.Path, itemErr)
			o.logger.Warn("deciding file",
				zap.String("path", rec.Path),
				zap.Error(itemErr),
			)
			continue
		}
		result.Succeeded++
	}

	o.logger.Info("decide complete",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", len(result.Failures)),
		zap.Bool("cancelled", result.Cancelled),
	)
	return result, nil
}

func (o *Organizer) decideOne(ctx context.Context, rec *record.FileRecord, tree string) error {
	recNotes, err := o.store.Notes(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("loading notes: %w", err)
	}

	dest, anchorNote, err := o.decider.Decide(ctx, *rec, recNotes, tree)
	if err != nil {
		return fmt.Errorf("deciding destination: %w", err)
	}
	if dest == "" {
		return fmt.Errorf("decider returned an empty destination")
	}

	if err := o.store.SetPlannedDestination(ctx, rec.Path, dest); err != nil {
		return err
	}

	if anchorNote != nil {
		payload, encErr := notes.EncodeAnchor(anchorNote)
		if encErr != nil {
			return encErr
		}
		for _, outcome := range o.store.AppendNotes(ctx, []int64{rec.ID}, notes.KindAnchor, payload) {
			if outcome.Err != nil {
				return fmt.Errorf("attaching anchor note: %w", outcome.Err)
			}
		}
	}

	return nil
}

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

// Plan visits every reported record the planner has not seen, gathers its
// nearest neighbors, and attaches the resulting cluster note to the anchor
// and every resolvable member. Visited records are marked so re-runs only
// plan new arrivals.
func (o *Organizer) Plan(ctx context.Context) (result *BatchResult, err error) {
	if o.planner == nil {
		return nil, fmt.Errorf("planner is required for plan")
	}

	run, err := o.coordinator.Start(ctx, action.KindPlan)
	if err != nil {
		return nil, err
	}
	defer func() { run.Finish(err) }()

	result = &BatchResult{Kind: action.KindPlan}
	runCtx := run.Context()

	candidates, err := o.pending(runCtx, func(r *record.FileRecord) bool {
		return strings.TrimSpace(r.ReportText) != "" && !r.PlanProcessed
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

		if itemErr := o.planOne(runCtx, rec); itemErr != nil {
			result.fail(rec.Path, itemErr)
			o.logger.Warn("planning file",
				zap.String("path", rec.Path),
				zap.Error(itemErr),
			)
			continue
		}
		result.Succeeded++
	}

	o.logger.Info("plan complete",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", len(result.Failures)),
		zap.Bool("cancelled", result.Cancelled),
	)
	return result, nil
}

func (o *Organizer) planOne(ctx context.Context, rec *record.FileRecord) error {
	neighbors, err := o.store.FindSimilar(ctx, rec.Path, o.topK)
	if err != nil {
		return fmt.Errorf("finding neighbors: %w", err)
	}

	note, err := o.planner.Plan(ctx, *rec, neighbors)
	if err != nil {
		return fmt.Errorf("proposing cluster: %w", err)
	}

	payload, err := notes.EncodeCluster(note)
	if err != nil {
		return err
	}

	ids := []int64{rec.ID}
	for _, member := range note.Members {
		if member.Path == rec.Path {
			continue
		}
		memberRec, getErr := o.store.Get(ctx, member.Path)
		if getErr != nil {
			o.logger.Debug("cluster member not in store, skipping",
				zap.String("anchor", rec.Path),
				zap.String("member", member.Path),
			)
			continue
		}
		ids = append(ids, memberRec.ID)
	}

	for _, outcome := range o.store.AppendNotes(ctx, ids, notes.KindCluster, payload) {
		if outcome.Err == nil {
			continue
		}
		if outcome.ID == rec.ID {
			return fmt.Errorf("attaching cluster note: %w", outcome.Err)
		}
		o.logger.Warn("attaching cluster note to member",
			zap.Int64("file_id", outcome.ID),
			zap.Error(outcome.Err),
		)
	}

	if err := o.store.MarkPlanProcessed(ctx, rec.Path); err != nil {
		return fmt.Errorf("marking plan processed: %w", err)
	}

	return nil
}

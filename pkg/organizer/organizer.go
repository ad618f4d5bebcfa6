// Package organizer drives the five workspace maintenance stages (scan,
// analyze, plan, decide, move) over the record store. Stages run under the
// action coordinator, check for cancellation between files, and collect
// per-item failures so one bad file never aborts a batch. The reasoning that
// writes reports and picks destinations is injected as collaborators.
package organizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/action"
	"github.com/foldermate/foldermate/pkg/config"
	"github.com/foldermate/foldermate/pkg/convertcache"
	"github.com/foldermate/foldermate/pkg/eventstream"
	"github.com/foldermate/foldermate/pkg/notes"
	"github.com/foldermate/foldermate/pkg/record"
)

// Reporter produces the free-text report for a file from its converted text.
type Reporter interface {
	Report(ctx context.Context, path, text string) (string, error)
}

// Planner proposes a cluster note for an anchor record given its nearest
// neighbors.
type Planner interface {
	Plan(ctx context.Context, anchor record.FileRecord, neighbors []record.Similar) (*notes.ClusterNote, error)
}

// Decider picks the planned destination for a record from its notes and the
// current target folder tree, and explains the pick as an anchor note.
type Decider interface {
	Decide(ctx context.Context, rec record.FileRecord, recNotes []record.OrganizationNote, tree string) (string, *notes.AnchorNote, error)
}

// Mover performs the physical filesystem move. Paths are absolute.
type Mover interface {
	Move(ctx context.Context, src, dest string) error
}

// MoverFunc adapts a function to the Mover interface.
type MoverFunc func(ctx context.Context, src, dest string) error

func (f MoverFunc) Move(ctx context.Context, src, dest string) error {
	return f(ctx, src, dest)
}

// RenameMover moves files with MkdirAll + os.Rename.
func RenameMover() Mover {
	return MoverFunc(func(_ context.Context, src, dest string) error {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("creating destination directory: %w", err)
		}
		if err := os.Rename(src, dest); err != nil {
			return fmt.Errorf("moving file: %w", err)
		}
		return nil
	})
}

// ItemFailure records one file that failed within a batch.
type ItemFailure struct {
	Path string
	Err  error
}

// BatchResult summarizes one stage run. Failures never abort the batch; a
// cancelled run reports the work done up to the cancellation checkpoint.
type BatchResult struct {
	Kind      action.Kind
	Processed int
	Succeeded int
	Failures  []ItemFailure
	Cancelled bool
}

func (r *BatchResult) fail(path string, err error) {
	r.Failures = append(r.Failures, ItemFailure{Path: path, Err: err})
}

// Summary formats the batch outcome for terminal display.
func (r *BatchResult) Summary() string {
	s := fmt.Sprintf("%s: %d processed, %d succeeded, %d failed",
		r.Kind, r.Processed, r.Succeeded, len(r.Failures))
	if r.Cancelled {
		s += " (cancelled)"
	}
	return s
}

// Config wires the organizer's dependencies.
type Config struct {
	Store       record.Store
	Cache       *convertcache.Cache
	Coordinator *action.Coordinator
	Publisher   eventstream.Publisher

	Converter convertcache.Converter
	Reporter  Reporter
	Planner   Planner
	Decider   Decider
	Mover     Mover

	// BaseDir is the workspace root scanned for files.
	BaseDir string

	// TargetDir is the destination root for moves; stages that need it fail
	// with config.ErrNotConfigured when empty.
	TargetDir string

	Recursive         bool
	AllowedExtensions []string
	TopK              int

	Logger *zap.Logger
}

// Organizer coordinates the maintenance stages over one workspace.
type Organizer struct {
	store       record.Store
	cache       *convertcache.Cache
	coordinator *action.Coordinator
	publisher   eventstream.Publisher

	converter convertcache.Converter
	reporter  Reporter
	planner   Planner
	decider   Decider
	mover     Mover

	baseDir    string
	targetDir  string
	recursive  bool
	allowedExt map[string]bool
	topK       int

	logger *zap.Logger
}

// NewOrganizer validates the wiring and returns an Organizer.
func NewOrganizer(c Config) (*Organizer, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if c.Coordinator == nil {
		return nil, fmt.Errorf("action coordinator is required")
	}
	if c.BaseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	baseDir, err := filepath.Abs(c.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving base directory: %w", err)
	}

	mover := c.Mover
	if mover == nil {
		mover = RenameMover()
	}

	allowed := make(map[string]bool, len(c.AllowedExtensions))
	for _, ext := range c.AllowedExtensions {
		if ext == "" {
			continue
		}
		if ext[0] != '.' {
			ext = "." + ext
		}
		allowed[ext] = true
	}

	topK := c.TopK
	if topK <= 0 {
		topK = 10
	}

	return &Organizer{
		store:       c.Store,
		cache:       c.Cache,
		coordinator: c.Coordinator,
		publisher:   c.Publisher,
		converter:   c.Converter,
		reporter:    c.Reporter,
		planner:     c.Planner,
		decider:     c.Decider,
		mover:       mover,
		baseDir:     baseDir,
		targetDir:   c.TargetDir,
		recursive:   c.Recursive,
		allowedExt:  allowed,
		topK:        topK,
		logger:      c.Logger,
	}, nil
}

// Status reports the coordinator's current state without side effects.
func (o *Organizer) Status() action.Status {
	return o.coordinator.Status()
}

// RequestCancel asks the running stage to stop at its next checkpoint.
func (o *Organizer) RequestCancel() bool {
	return o.coordinator.RequestCancel()
}

// FindSimilar returns the record's nearest neighbors by report similarity.
// topK <= 0 uses the configured default.
func (o *Organizer) FindSimilar(ctx context.Context, path string, topK int) ([]record.Similar, error) {
	if topK <= 0 {
		topK = o.topK
	}
	return o.store.FindSimilar(ctx, path, topK)
}

// requireTargetDir gates the stages that write into the destination root.
func (o *Organizer) requireTargetDir() error {
	if o.targetDir == "" {
		return config.ErrNotConfigured{Key: "workspace.target_dir"}
	}
	return nil
}

// publish sends a file event; publish failures are logged, never fatal.
func (o *Organizer) publish(ctx context.Context, event *eventstream.FileEvent) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.PublishFile(ctx, event); err != nil {
		o.logger.Warn("publishing file event",
			zap.String("event_type", event.EventType),
			zap.String("path", event.Path),
			zap.Error(err),
		)
	}
}

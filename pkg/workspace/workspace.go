// Package workspace assembles the full foldermate stack from persisted
// configuration: record store, vector index, embedder, conversion cache,
// action coordinator and event publisher, ready for the CLI stage commands.
package workspace

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/action"
	"github.com/foldermate/foldermate/pkg/config"
	"github.com/foldermate/foldermate/pkg/convertcache"
	"github.com/foldermate/foldermate/pkg/embeddings"
	embeddingutils "github.com/foldermate/foldermate/pkg/embeddings/utils"
	"github.com/foldermate/foldermate/pkg/eventstream"
	kafkapub "github.com/foldermate/foldermate/pkg/eventstream/kafka"
	noppub "github.com/foldermate/foldermate/pkg/eventstream/nop"
	"github.com/foldermate/foldermate/pkg/logger"
	"github.com/foldermate/foldermate/pkg/organizer"
	"github.com/foldermate/foldermate/pkg/record"
	recordsqlite "github.com/foldermate/foldermate/pkg/record/sqlite"
	"github.com/foldermate/foldermate/pkg/vector"
	vectorutils "github.com/foldermate/foldermate/pkg/vector/utils"
)

// Options controls how the workspace stack is assembled. Collaborators left
// nil fall back to the built-in deterministic ones.
type Options struct {
	ConfigDir string
	Debug     bool

	Converter convertcache.Converter
	Reporter  organizer.Reporter
	Planner   organizer.Planner
	Decider   organizer.Decider
	Mover     organizer.Mover
}

// Workspace is the assembled stack for one configured workspace.
type Workspace struct {
	Config      *config.Config
	Store       record.Store
	Cache       *convertcache.Cache
	Coordinator *action.Coordinator
	Publisher   eventstream.Publisher
	Organizer   *organizer.Organizer
	Manager     *action.Manager
	Embedder    embeddings.Embedder
	Vector      vector.Driver
	Logger      *zap.Logger

	closers []func() error
}

// Open loads configuration and wires every component.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Workspace, error) {
	cfger, err := config.NewConfiger(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	manager, err := action.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("resolving state dir: %w", err)
	}

	dbPath := cfg.Storage.DBPath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(manager.Dir, dbPath)
	}

	cacheDir := cfg.Convert.CacheDir
	if !filepath.IsAbs(cacheDir) {
		cacheDir = filepath.Join(manager.Dir, cacheDir)
	}

	w := &Workspace{
		Config:  cfg,
		Manager: manager,
		Logger:  logger,
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	w.Embedder = embedder
	w.closers = append(w.closers, embedder.Close)

	vectorDriver, err := vectorutils.NewDriver(ctx, &vectorutils.NewDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		DBPath:       dbPath,
		TargetURL:    cfg.VectorStore.Target,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       logger,
	})
	if err != nil {
		w.close()
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}
	w.Vector = vectorDriver
	w.closers = append(w.closers, vectorDriver.Close)

	store, err := recordsqlite.NewStore(ctx, recordsqlite.Config{
		DBPath:   dbPath,
		BaseDir:  cfg.Workspace.BaseDir,
		ModelID:  cfg.Embedding.Model,
		Index:    vectorDriver,
		Embedder: embedder,
	}, logger)
	if err != nil {
		w.close()
		return nil, fmt.Errorf("opening record store: %w", err)
	}
	w.Store = store
	w.closers = append(w.closers, store.Close)

	cache, err := convertcache.NewCache(convertcache.Config{
		CacheDir:       cacheDir,
		Timeout:        time.Duration(cfg.Convert.TimeoutSeconds) * time.Second,
		MaxReturnChars: cfg.Convert.MaxReturnChars,
	}, logger)
	if err != nil {
		w.close()
		return nil, fmt.Errorf("creating conversion cache: %w", err)
	}
	w.Cache = cache

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		w.close()
		return nil, err
	}
	w.Publisher = publisher
	w.closers = append(w.closers, publisher.Close)

	w.Coordinator = action.NewCoordinator(logger)

	converter := opts.Converter
	if converter == nil {
		converter = organizer.TextConverter()
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = organizer.NewExcerptReporter()
	}
	planner := opts.Planner
	if planner == nil {
		planner = organizer.NewNeighborPlanner()
	}
	decider := opts.Decider
	if decider == nil {
		decider = organizer.NewClusterDecider()
	}

	org, err := organizer.NewOrganizer(organizer.Config{
		Store:             store,
		Cache:             cache,
		Coordinator:       w.Coordinator,
		Publisher:         publisher,
		Converter:         converter,
		Reporter:          reporter,
		Planner:           planner,
		Decider:           decider,
		Mover:             opts.Mover,
		BaseDir:           cfg.Workspace.BaseDir,
		TargetDir:         cfg.Workspace.TargetDir,
		Recursive:         cfg.Scan.Recursive,
		AllowedExtensions: cfg.Scan.AllowedExtensions,
		TopK:              cfg.Search.TopK,
		Logger:            logger,
	})
	if err != nil {
		w.close()
		return nil, fmt.Errorf("creating organizer: %w", err)
	}
	w.Organizer = org

	return w, nil
}

func newPublisher(cfg *config.Config, logger *zap.Logger) (eventstream.Publisher, error) {
	switch cfg.Events.Provider {
	case "", "nop":
		return noppub.NewPublisher(), nil
	case "kafka":
		return kafkapub.NewPublisher(kafkapub.Config{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", cfg.Events.Provider)
	}
}

func (w *Workspace) close() {
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i](); err != nil {
			w.Logger.Warn("closing workspace component", zap.Error(err))
		}
	}
	w.closers = nil
}

// Close releases every component in reverse construction order.
func (w *Workspace) Close() error {
	w.close()
	return nil
}

// RunStage executes one maintenance stage with the cross-process plumbing the
// CLI needs: the action state file is held for the duration so status/stop in
// other processes can see and signal this run, and the first SIGINT/SIGTERM
// requests a cooperative cancel instead of killing the batch mid-file.
func (w *Workspace) RunStage(ctx context.Context, kind action.Kind, fn func(context.Context) (*organizer.BatchResult, error)) (*organizer.BatchResult, error) {
	lock, err := w.Manager.Lock()
	if err != nil {
		return nil, err
	}

	existing, err := w.Manager.LoadState()
	if err != nil {
		_ = lock.Release()
		return nil, err
	}
	if existing != nil && existing.PID != os.Getpid() && action.ProcessAlive(existing.PID) {
		_ = lock.Release()
		return nil, action.ErrConflict{Running: existing.Kind}
	}

	state := &action.State{
		PID:       os.Getpid(),
		Kind:      kind,
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	if err := w.Manager.SaveState(state); err != nil {
		_ = lock.Release()
		return nil, err
	}
	if err := lock.Release(); err != nil {
		return nil, err
	}
	defer func() { _ = w.Manager.ClearState() }()

	stageLogger := logger.NewStageLogger(w.Logger, string(kind), state.RunID)
	stageLogger.Info("stage started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	stageDone := make(chan struct{})
	defer close(stageDone)

	go func() {
		select {
		case <-sigChan:
			stageLogger.Info("cancellation requested")
			w.Coordinator.RequestCancel()
		case <-stageDone:
		}
	}()

	result, err := fn(ctx)
	if err != nil {
		stageLogger.Warn("stage failed", zap.Error(err))
		return nil, err
	}
	if result != nil {
		stageLogger.Info("stage finished", zap.String("summary", result.Summary()))
	}
	return result, nil
}

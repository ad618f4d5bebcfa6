// Package sqlite provides the SQLite-backed record store.
//
// One database file holds the whole workspace: the files and notes tables
// here plus the sqlite-vec virtual tables managed by the vector driver. The
// store keeps the vector index consistent on every report write by calling
// the injected embedder and vector driver itself.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/embeddings"
	"github.com/foldermate/foldermate/pkg/notes"
	"github.com/foldermate/foldermate/pkg/record"
	"github.com/foldermate/foldermate/pkg/vector"
)

// Store implements record.Store over a single SQLite file.
type Store struct {
	db       *sql.DB
	baseDir  string
	modelID  string
	index    vector.Driver
	embedder embeddings.Embedder
	logger   *zap.Logger
}

// Config holds configuration for the SQLite record store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// BaseDir is the workspace root all record paths are relative to.
	BaseDir string

	// ModelID identifies the embedding model in use. If the vector index
	// already holds entries from a different model, the index is rebuilt.
	ModelID string

	// Index is the vector index kept consistent with report text.
	Index vector.Driver

	// Embedder generates report embeddings.
	Embedder embeddings.Embedder
}

// NewStore opens (or creates) the record store.
func NewStore(ctx context.Context, c Config, logger *zap.Logger) (*Store, error) {
	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.BaseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if c.Index == nil {
		return nil, fmt.Errorf("vector index is required")
	}
	if c.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	baseDir, err := filepath.Abs(c.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving base directory: %w", err)
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			report TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			planned_dest TEXT NOT NULL DEFAULT '',
			final_dest TEXT NOT NULL DEFAULT '',
			embedded_model TEXT NOT NULL DEFAULT '',
			plan_processed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id INTEGER NOT NULL REFERENCES files(id),
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_notes_file ON notes(file_id);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s := &Store{
		db:       db,
		baseDir:  baseDir,
		modelID:  c.ModelID,
		index:    c.Index,
		embedder: c.Embedder,
		logger:   logger,
	}

	// A model change invalidates every stored vector; regenerate rather
	// than pairing reports with foreign-model embeddings.
	storedModel, err := c.Index.ModelID(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("reading index model: %w", err)
	}
	if storedModel != "" && c.ModelID != "" && storedModel != c.ModelID {
		logger.Warn("embedding model changed, rebuilding vector index",
			zap.String("stored", storedModel),
			zap.String("configured", c.ModelID),
		)
		if _, err := s.RebuildIndex(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("rebuilding index: %w", err)
		}
	}

	logger.Info("record store opened",
		zap.String("db_path", c.DBPath),
		zap.String("base_dir", baseDir),
	)

	return s, nil
}

// normRel validates and normalizes a path against the workspace base
// directory. Absolute paths are re-expressed relative to it.
func (s *Store) normRel(path string) (string, error) {
	p := filepath.ToSlash(path)
	p = strings.TrimPrefix(p, "./")

	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(s.baseDir, p)
		if err != nil {
			return "", record.ErrInvalidPath{Path: path}
		}
		p = filepath.ToSlash(rel)
	}

	p = filepath.ToSlash(filepath.Clean(p))
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", record.ErrInvalidPath{Path: path}
	}

	return p, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// Insert creates a row for path if absent and returns its id.
func (s *Store) Insert(ctx context.Context, path string) (int64, error) {
	rel, err := s.normRel(path)
	if err != nil {
		return 0, err
	}

	ts := now()
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO files(path, created_at, updated_at) VALUES (?, ?, ?)`,
		rel, ts, ts,
	); err != nil {
		return 0, fmt.Errorf("inserting record: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM files WHERE path = ?`, rel,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("reading inserted record: %w", err)
	}

	s.logger.Debug("inserted record",
		zap.String("path", rel),
		zap.Int64("id", id),
	)

	return id, nil
}

const fileColumns = `id, path, report, tags, planned_dest, final_dest, embedded_model, plan_processed, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (*record.FileRecord, error) {
	var r record.FileRecord
	var tagsJSON, createdAt, updatedAt string
	var planProcessed int
	if err := row.Scan(
		&r.ID, &r.Path, &r.ReportText, &tagsJSON, &r.PlannedDest, &r.FinalDest,
		&r.EmbeddedModel, &planProcessed, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags: %w", err)
		}
	}

	r.PlanProcessed = planProcessed != 0
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)

	return &r, nil
}

// Get returns the record for path.
func (s *Store) Get(ctx context.Context, path string) (*record.FileRecord, error) {
	rel, err := s.normRel(path)
	if err != nil {
		return nil, err
	}

	r, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE path = ?`, rel,
	))
	if err == sql.ErrNoRows {
		return nil, record.ErrNotFound{Path: rel}
	}
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}

	return r, nil
}

// GetByID returns the record with the given id.
func (s *Store) GetByID(ctx context.Context, id int64) (*record.FileRecord, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, record.ErrNotFound{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}

	return r, nil
}

// List returns all records in path order.
func (s *Store) List(ctx context.Context) ([]record.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files ORDER BY path ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []record.FileRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return records, nil
}

// SetReport overwrites the record's report text and synchronously regenerates
// its vector entry. The report is persisted before the embedding call so an
// embedding failure never loses text.
func (s *Store) SetReport(ctx context.Context, path, text string) error {
	rel, err := s.normRel(path)
	if err != nil {
		return err
	}

	var id int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM files WHERE path = ?`, rel,
	).Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return record.ErrNotFound{Path: rel}
		}
		return fmt.Errorf("reading record: %w", err)
	}

	// Clearing embedded_model first closes the window where new text could
	// be paired with the previous report's vector.
	if _, err := s.db.ExecContext(ctx,
		`UPDATE files SET report = ?, embedded_model = '', updated_at = ? WHERE id = ?`,
		text, now(), id,
	); err != nil {
		return fmt.Errorf("updating report: %w", err)
	}

	if strings.TrimSpace(text) == "" {
		if err := s.index.Delete(ctx, []int64{id}); err != nil {
			return fmt.Errorf("removing vector entry: %w", err)
		}
		return nil
	}

	emb, err := s.embedder.Embed(ctx, text)
	if err != nil {
		// Remove the stale vector so the record shows up as missing an
		// embedding instead of matching against outdated text.
		if delErr := s.index.Delete(ctx, []int64{id}); delErr != nil {
			s.logger.Warn("removing stale vector entry",
				zap.String("path", rel),
				zap.Error(delErr),
			)
		}
		return record.ErrEmbedding{Path: rel, Err: err}
	}

	if err := s.index.Upsert(ctx, []vector.Entry{{
		ID:        id,
		Path:      rel,
		Embedding: emb,
		ModelID:   s.modelID,
	}}); err != nil {
		return record.ErrEmbedding{Path: rel, Err: err}
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE files SET embedded_model = ?, updated_at = ? WHERE id = ?`,
		s.modelID, now(), id,
	); err != nil {
		return fmt.Errorf("recording embedded model: %w", err)
	}

	s.logger.Debug("saved report",
		zap.String("path", rel),
		zap.Int64("id", id),
	)

	return nil
}

// SetTags replaces the record's tags.
func (s *Store) SetTags(ctx context.Context, path string, tags []record.Tag) error {
	rel, err := s.normRel(path)
	if err != nil {
		return err
	}

	tagsJSON := ""
	if len(tags) > 0 {
		data, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("encoding tags: %w", err)
		}
		tagsJSON = string(data)
	}

	return s.updateOne(ctx, rel, `tags`, tagsJSON)
}

// updateOne sets a single column on the record for rel, failing with
// ErrNotFound when the path is unknown.
func (s *Store) updateOne(ctx context.Context, rel, column string, value any) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE files SET `+column+` = ?, updated_at = ? WHERE path = ?`,
		value, now(), rel,
	)
	if err != nil {
		return fmt.Errorf("updating %s: %w", column, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if n == 0 {
		return record.ErrNotFound{Path: rel}
	}

	return nil
}

// AppendNotes appends the same note payload to every listed id, each as an
// independent immutable row with its own outcome.
func (s *Store) AppendNotes(ctx context.Context, ids []int64, kind notes.Kind, payload json.RawMessage) []record.NoteOutcome {
	outcomes := make([]record.NoteOutcome, 0, len(ids))

	if !kind.Valid() {
		err := fmt.Errorf("unknown note kind: %s", kind)
		for _, id := range ids {
			outcomes = append(outcomes, record.NoteOutcome{ID: id, Err: err})
		}
		return outcomes
	}

	for _, id := range ids {
		outcomes = append(outcomes, record.NoteOutcome{ID: id, Err: s.appendNote(ctx, id, kind, payload)})
	}

	return outcomes
}

func (s *Store) appendNote(ctx context.Context, id int64, kind notes.Kind, payload json.RawMessage) error {
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM files WHERE id = ?`, id,
	).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return record.ErrNotFound{ID: id}
		}
		return fmt.Errorf("reading record: %w", err)
	}

	ts := now()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO notes(file_id, kind, payload, created_at) VALUES (?, ?, ?, ?)`,
		id, string(kind), string(payload), ts,
	); err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE files SET updated_at = ? WHERE id = ?`, ts, id,
	); err != nil {
		return fmt.Errorf("touching record: %w", err)
	}

	return nil
}

// Notes returns the record's notes, newest first. Insertion-time ties are
// broken by the autoincrement sequence.
func (s *Store) Notes(ctx context.Context, id int64) ([]record.OrganizationNote, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM files WHERE id = ?`, id,
	).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return nil, record.ErrNotFound{ID: id}
		}
		return nil, fmt.Errorf("reading record: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_id, kind, payload, created_at FROM notes WHERE file_id = ? ORDER BY id DESC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	var result []record.OrganizationNote
	for rows.Next() {
		var n record.OrganizationNote
		var kind, payload, createdAt string
		if err := rows.Scan(&n.ID, &n.FileID, &kind, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		n.Kind = notes.Kind(kind)
		n.Payload = json.RawMessage(payload)
		n.CreatedAt = parseTime(createdAt)
		result = append(result, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notes: %w", err)
	}

	return result, nil
}

// SetPlannedDestination records the destination proposed for path.
func (s *Store) SetPlannedDestination(ctx context.Context, path, dest string) error {
	rel, err := s.normRel(path)
	if err != nil {
		return err
	}

	return s.updateOne(ctx, rel, `planned_dest`, dest)
}

// SetFinalDestination records the committed destination for path. Callers set
// it only after the physical move succeeded.
func (s *Store) SetFinalDestination(ctx context.Context, path, dest string, overwrite bool) error {
	rel, err := s.normRel(path)
	if err != nil {
		return err
	}

	var current string
	if err := s.db.QueryRowContext(ctx,
		`SELECT final_dest FROM files WHERE path = ?`, rel,
	).Scan(&current); err != nil {
		if err == sql.ErrNoRows {
			return record.ErrNotFound{Path: rel}
		}
		return fmt.Errorf("reading final destination: %w", err)
	}

	if current != "" && current != dest && !overwrite {
		return record.ErrAlreadyFinalized{Path: rel, Current: current, Requested: dest}
	}

	return s.updateOne(ctx, rel, `final_dest`, dest)
}

// MarkPlanProcessed records that the planning stage visited path.
func (s *Store) MarkPlanProcessed(ctx context.Context, path string) error {
	rel, err := s.normRel(path)
	if err != nil {
		return err
	}

	return s.updateOne(ctx, rel, `plan_processed`, 1)
}

// NextMissing returns the next record lacking the given field in path order.
func (s *Store) NextMissing(ctx context.Context, field record.Field) (*record.FileRecord, error) {
	var where string
	switch field {
	case record.FieldReport:
		where = `TRIM(report) = ''`
	case record.FieldEmbedding:
		where = `TRIM(report) <> '' AND embedded_model = ''`
	case record.FieldPlannedDest:
		where = `TRIM(report) <> '' AND plan_processed = 1 AND TRIM(planned_dest) = ''`
	case record.FieldFinalDest:
		where = `TRIM(planned_dest) <> '' AND TRIM(final_dest) = ''`
	default:
		return nil, fmt.Errorf("unknown field: %s", field)
	}

	r, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE `+where+` ORDER BY path ASC LIMIT 1`,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding next missing %s: %w", field, err)
	}

	return r, nil
}

// NextPendingPlan returns the next analyzed record the planning stage has not
// visited, in path order.
func (s *Store) NextPendingPlan(ctx context.Context) (*record.FileRecord, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files
		 WHERE TRIM(report) <> '' AND plan_processed = 0
		 ORDER BY path ASC LIMIT 1`,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding next pending plan: %w", err)
	}

	return r, nil
}

// FindSimilar returns up to topK other records ranked by descending cosine
// similarity to path's stored embedding.
func (s *Store) FindSimilar(ctx context.Context, path string, topK int) ([]record.Similar, error) {
	r, err := s.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	results, err := s.index.QueryByID(ctx, r.ID, topK)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	similar := make([]record.Similar, 0, len(results))
	for _, result := range results {
		match, err := s.GetByID(ctx, result.ID)
		if err != nil {
			// The index may briefly hold entries for rows deleted by a
			// rebuild in progress; skip rather than fail the query.
			s.logger.Warn("index entry without record",
				zap.Int64("id", result.ID),
				zap.Error(err),
			)
			continue
		}
		similar = append(similar, record.Similar{Record: *match, Score: result.Score})
	}

	return similar, nil
}

// RebuildIndex repopulates the vector index from stored report text.
func (s *Store) RebuildIndex(ctx context.Context) (int, error) {
	records, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	rebuilt := 0
	for _, r := range records {
		if strings.TrimSpace(r.ReportText) == "" {
			continue
		}

		emb, err := s.embedder.Embed(ctx, r.ReportText)
		if err != nil {
			s.logger.Warn("skipping record during index rebuild",
				zap.String("path", r.Path),
				zap.Error(err),
			)
			if _, uerr := s.db.ExecContext(ctx,
				`UPDATE files SET embedded_model = '' WHERE id = ?`, r.ID,
			); uerr != nil {
				return rebuilt, fmt.Errorf("clearing embedded model: %w", uerr)
			}
			continue
		}

		if err := s.index.Upsert(ctx, []vector.Entry{{
			ID:        r.ID,
			Path:      r.Path,
			Embedding: emb,
			ModelID:   s.modelID,
		}}); err != nil {
			return rebuilt, fmt.Errorf("upserting entry for %s: %w", r.Path, err)
		}

		if _, err := s.db.ExecContext(ctx,
			`UPDATE files SET embedded_model = ? WHERE id = ?`, s.modelID, r.ID,
		); err != nil {
			return rebuilt, fmt.Errorf("recording embedded model: %w", err)
		}

		rebuilt++
	}

	s.logger.Info("vector index rebuilt",
		zap.Int("entries", rebuilt),
	)

	return rebuilt, nil
}

// Close releases the store's resources. The vector driver is owned by the
// caller and closed separately.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ record.Store = (*Store)(nil)

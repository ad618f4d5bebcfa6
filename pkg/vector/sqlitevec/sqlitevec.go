// Package sqlitevec provides a SQLite-backed vector index using sqlite-vec.
//
// The index lives in the same database file as the record store so the whole
// workspace stays embedded in one file. vec0 virtual tables use integer
// rowids, so a mapping table links file record ids to vec0 rows and carries
// the path and embedding model identifier alongside.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewDriver creates a new SQLite vector index backed by sqlite-vec.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// The record store may hold a second connection on the same file.
	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_entries (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id INTEGER NOT NULL UNIQUE,
			path TEXT NOT NULL DEFAULT '',
			model_id TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating entries table: %w", err)
	}

	// distance_metric=cosine makes vec0 report cosine distance (1 - similarity).
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_file_report USING vec0(embedding float[%d] distance_metric=cosine)`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec index initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Driver{
		db:     db,
		logger: logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Upsert stores entries, replacing any existing entry with the same ID.
func (d *Driver) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, entry := range entries {
		embBlob := serializeFloat32(entry.Embedding)

		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_entries WHERE file_id = ?`, entry.ID,
		).Scan(&existingRowID)

		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_entries SET path = ?, model_id = ? WHERE rowid = ?`,
				entry.Path, entry.ModelID, existingRowID,
			); err != nil {
				return fmt.Errorf("updating entry %d: %w", entry.ID, err)
			}

			// Update embedding in vec0 via DELETE + INSERT
			// (vec0 does not support UPDATE)
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_file_report WHERE rowid = ?`, existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for entry %d: %w", entry.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_file_report(rowid, embedding) VALUES (?, ?)`,
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for entry %d: %w", entry.ID, err)
			}
		case sql.ErrNoRows:
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_entries(file_id, path, model_id) VALUES (?, ?, ?)`,
				entry.ID, entry.Path, entry.ModelID,
			)
			if err != nil {
				return fmt.Errorf("inserting entry %d: %w", entry.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for entry %d: %w", entry.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_file_report(rowid, embedding) VALUES (?, ?)`,
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("inserting embedding for entry %d: %w", entry.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing entry %d: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("upserted entries into sqlite-vec",
		zap.Int("count", len(entries)),
	)

	return nil
}

// Query finds the topK most similar entries to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	return d.query(ctx, embedding, topK, -1)
}

// QueryByID finds the topK entries most similar to the stored vector of id,
// excluding id itself. An unknown id yields an empty result.
func (d *Driver) QueryByID(ctx context.Context, id int64, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	var embBlob []byte
	err := d.db.QueryRowContext(ctx, `
		SELECT v.embedding
		FROM vec_file_report v
		INNER JOIN vec_entries e ON e.rowid = v.rowid
		WHERE e.file_id = ?
	`, id).Scan(&embBlob)
	if err == sql.ErrNoRows {
		return []vector.QueryResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading query embedding: %w", err)
	}

	embedding, err := deserializeFloat32(embBlob)
	if err != nil {
		return nil, fmt.Errorf("decoding query embedding: %w", err)
	}

	// Ask for one extra neighbor since the query row itself matches with
	// distance zero and is filtered out below.
	return d.query(ctx, embedding, topK, id)
}

// query runs the KNN MATCH and normalizes ordering. excludeID < 0 disables
// self-exclusion.
func (d *Driver) query(ctx context.Context, embedding []float32, topK int, excludeID int64) ([]vector.QueryResult, error) {
	queryBlob := serializeFloat32(embedding)

	k := topK
	if excludeID >= 0 {
		k++
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			e.file_id,
			e.path,
			e.model_id,
			v.distance
		FROM vec_file_report v
		INNER JOIN vec_entries e ON e.rowid = v.rowid
		WHERE v.embedding MATCH ?
			AND v.k = ?
		ORDER BY v.distance
	`, queryBlob, k)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	results := []vector.QueryResult{}
	for rows.Next() {
		var fileID int64
		var path, modelID string
		var distance float64
		if err := rows.Scan(&fileID, &path, &modelID, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		if excludeID >= 0 && fileID == excludeID {
			continue
		}

		results = append(results, vector.QueryResult{
			Entry: vector.Entry{
				ID:      fileID,
				Path:    path,
				ModelID: modelID,
			},
			// Cosine distance is 1 - similarity, so this restores the
			// [-1, 1] similarity range with 1.0 for identical vectors.
			Score: float32(1.0 - distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	// vec0 does not guarantee ordering for equidistant rows; break ties by
	// ascending id for determinism.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > topK {
		results = results[:topK]
	}

	d.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Get retrieves entries by their ids.
func (d *Driver) Get(ctx context.Context, ids []int64) ([]vector.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT e.file_id, e.path, e.model_id, e.rowid
		FROM vec_entries e
		WHERE e.file_id IN (%s)
		ORDER BY e.file_id
	`, strings.Join(placeholders, ","))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	// Collect results first so the rows cursor is closed before issuing
	// additional queries (SQLite uses a single connection).
	type entryRow struct {
		fileID  int64
		path    string
		modelID string
		rowID   int64
	}
	var entryRows []entryRow

	for rows.Next() {
		var er entryRow
		if err := rows.Scan(&er.fileID, &er.path, &er.modelID, &er.rowID); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entryRows = append(entryRows, er)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	rows.Close()

	entries := make([]vector.Entry, 0, len(entryRows))
	for _, er := range entryRows {
		entry := vector.Entry{
			ID:      er.fileID,
			Path:    er.path,
			ModelID: er.modelID,
		}

		var embBlob []byte
		err := d.db.QueryRowContext(ctx,
			`SELECT embedding FROM vec_file_report WHERE rowid = ?`, er.rowID,
		).Scan(&embBlob)
		if err == nil && len(embBlob) > 0 {
			entry.Embedding, _ = deserializeFloat32(embBlob)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// Delete removes entries by their ids.
func (d *Driver) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	inClause := strings.Join(placeholders, ",")

	query := fmt.Sprintf(
		`SELECT rowid FROM vec_entries WHERE file_id IN (%s)`, inClause,
	)
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying rowids for deletion: %w", err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rowids: %w", err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_file_report WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
	}

	deleteQuery := fmt.Sprintf(
		`DELETE FROM vec_entries WHERE file_id IN (%s)`, inClause,
	)
	if _, err := tx.ExecContext(ctx, deleteQuery, args...); err != nil {
		return fmt.Errorf("deleting entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("deleted entries from sqlite-vec",
		zap.Int("count", len(ids)),
	)

	return nil
}

// ModelID returns the embedding model identifier stored with the index.
func (d *Driver) ModelID(ctx context.Context) (string, error) {
	var modelID string
	err := d.db.QueryRowContext(ctx,
		`SELECT model_id FROM vec_entries ORDER BY rowid LIMIT 1`,
	).Scan(&modelID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading model id: %w", err)
	}
	return modelID, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ vector.Driver = (*Driver)(nil)

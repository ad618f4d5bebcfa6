// Package vector provides interfaces and implementations for the vector index
// that backs nearest-neighbor retrieval over file reports.
package vector

import "context"

// Entry is a stored embedding keyed by the owning file record.
type Entry struct {
	// ID is the file record id that owns this embedding.
	ID int64

	// Path is the record's workspace-relative path, carried for result display.
	Path string

	// Embedding is the vector representation of the record's report text.
	Embedding []float32

	// ModelID identifies the embedding model that produced the vector.
	ModelID string
}

// QueryResult is a search result with its similarity score.
type QueryResult struct {
	Entry

	// Score is the cosine similarity in [-1, 1]; higher is more similar.
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
//
// Query and QueryByID return deterministic orderings: descending score,
// ties broken by ascending entry id. An empty index or an unknown query id
// yields an empty result, never an error.
type Driver interface {
	// Upsert stores entries, replacing any existing entry with the same ID.
	Upsert(ctx context.Context, entries []Entry) error

	// Query finds the topK most similar entries to the given embedding.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// QueryByID finds the topK entries most similar to the stored vector of
	// id, excluding id itself.
	QueryByID(ctx context.Context, id int64, topK int) ([]QueryResult, error)

	// Get retrieves entries by their ids.
	Get(ctx context.Context, ids []int64) ([]Entry, error)

	// Delete removes entries by their ids.
	Delete(ctx context.Context, ids []int64) error

	// ModelID returns the embedding model identifier stored with the index,
	// or an empty string when the index holds no entries.
	ModelID(ctx context.Context) (string, error)

	// Close releases any resources held by the driver.
	Close() error
}

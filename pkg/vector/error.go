package vector

import "errors"

var (
	// ErrNotFound is returned when an entry is not found in the vector index.
	ErrNotFound = errors.New("entry not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the vector index connection fails.
	ErrConnection = errors.New("vector index connection failed")
)

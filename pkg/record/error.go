package record

import "fmt"

// ErrNotFound is returned when a path or id has no record.
type ErrNotFound struct {
	Path string
	ID   int64
}

func (e ErrNotFound) Error() string {
	if e.Path != "" {
		return "record not found: " + e.Path
	}
	return fmt.Sprintf("record not found: id %d", e.ID)
}

// ErrInvalidPath is returned when a path cannot be expressed relative to the
// workspace base directory.
type ErrInvalidPath struct {
	Path string
}

func (e ErrInvalidPath) Error() string {
	return "path outside workspace: " + e.Path
}

// ErrAlreadyFinalized is returned when a record already has a different final
// destination and no overwrite was requested.
type ErrAlreadyFinalized struct {
	Path      string
	Current   string
	Requested string
}

func (e ErrAlreadyFinalized) Error() string {
	return fmt.Sprintf("record %s already finalized to %s (requested %s)", e.Path, e.Current, e.Requested)
}

// ErrEmbedding is returned when the embedding call failed during a report
// write. The report text is persisted regardless, so the failure is
// recoverable by a later maintenance pass.
type ErrEmbedding struct {
	Path string
	Err  error
}

func (e ErrEmbedding) Error() string {
	return fmt.Sprintf("embedding report for %s: %v", e.Path, e.Err)
}

func (e ErrEmbedding) Unwrap() error {
	return e.Err
}

// Package record defines the durable per-file record store: one row per
// workspace file carrying its report text, tags, planning notes and
// destinations. The vector index is a derived side table the store keeps
// consistent on every report write.
package record

import (
	"context"
	"encoding/json"
	"time"

	"github.com/foldermate/foldermate/pkg/notes"
)

// Tag is one category→value pair on a file record. Order is preserved.
type Tag struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

// FileRecord is the stored identity and attributes of one workspace file.
// Path is relative to the workspace base directory and uniquely determines ID.
type FileRecord struct {
	ID          int64
	Path        string
	ReportText  string
	Tags        []Tag
	PlannedDest string
	FinalDest   string

	// EmbeddedModel is the model identifier of the record's current vector
	// entry, or empty when the report has no (valid) embedding yet.
	EmbeddedModel string

	// PlanProcessed marks that the planning stage has visited this record.
	PlanProcessed bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrganizationNote is one immutable, timestamped planning annotation.
// Notes are only ever appended; retrieval order is newest first.
type OrganizationNote struct {
	ID        int64
	FileID    int64
	Kind      notes.Kind
	Payload   json.RawMessage
	CreatedAt time.Time
}

// NoteOutcome reports the result of appending one note to one record id.
type NoteOutcome struct {
	ID  int64
	Err error
}

// Similar is one nearest-neighbor result for a file record.
type Similar struct {
	Record FileRecord
	Score  float32
}

// Field names a per-record attribute that maintenance passes backfill.
type Field string

const (
	FieldReport      Field = "report"
	FieldEmbedding   Field = "embedding"
	FieldPlannedDest Field = "planned_destination"
	FieldFinalDest   Field = "final_destination"
)

// Store is the record store contract. All paths are relative to the
// configured workspace base directory; a path outside it is rejected with
// ErrInvalidPath. The store is single-writer: callers serialize long-running
// operations through the action coordinator.
type Store interface {
	// Insert creates a row for path if absent and returns its id.
	// Re-inserting an existing path is a no-op returning the existing id.
	Insert(ctx context.Context, path string) (int64, error)

	// Get returns the record for path.
	Get(ctx context.Context, path string) (*FileRecord, error)

	// GetByID returns the record with the given id.
	GetByID(ctx context.Context, id int64) (*FileRecord, error)

	// List returns all records in path order.
	List(ctx context.Context) ([]FileRecord, error)

	// SetReport overwrites the record's report text and synchronously
	// regenerates its vector entry. On embedding failure the text is still
	// persisted, the stale entry is removed and ErrEmbedding is returned;
	// the embedding can be regenerated later via NextMissing(FieldEmbedding).
	SetReport(ctx context.Context, path, text string) error

	// SetTags replaces the record's tags.
	SetTags(ctx context.Context, path string, tags []Tag) error

	// AppendNotes appends the same note payload to every listed id, each as
	// an independent immutable row. Unknown ids are reported individually;
	// partial success is allowed.
	AppendNotes(ctx context.Context, ids []int64, kind notes.Kind, payload json.RawMessage) []NoteOutcome

	// Notes returns the record's notes, newest first.
	Notes(ctx context.Context, id int64) ([]OrganizationNote, error)

	// SetPlannedDestination records the destination proposed for path.
	SetPlannedDestination(ctx context.Context, path, dest string) error

	// SetFinalDestination records the committed destination for path. It is
	// idempotent for the same value; a different value fails with
	// ErrAlreadyFinalized unless overwrite is set.
	SetFinalDestination(ctx context.Context, path, dest string, overwrite bool) error

	// MarkPlanProcessed records that the planning stage visited path.
	MarkPlanProcessed(ctx context.Context, path string) error

	// NextMissing returns the next record lacking the given field in stable
	// path order, or nil when none remain.
	NextMissing(ctx context.Context, field Field) (*FileRecord, error)

	// NextPendingPlan returns the next record with a report the planning
	// stage has not visited, in stable path order, or nil when none remain.
	NextPendingPlan(ctx context.Context) (*FileRecord, error)

	// FindSimilar returns up to topK other records ranked by descending
	// cosine similarity to path's stored embedding. An empty result is a
	// normal outcome when the record has no embedding or the index is empty.
	FindSimilar(ctx context.Context, path string, topK int) ([]Similar, error)

	// RebuildIndex repopulates the vector index from stored report text,
	// for example after an embedding model change. Records whose embedding
	// fails are skipped; the number of rebuilt entries is returned.
	RebuildIndex(ctx context.Context) (int, error)

	// Close releases the store's resources.
	Close() error
}

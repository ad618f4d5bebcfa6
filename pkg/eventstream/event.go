package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeFileAnalyzed is emitted after a file's report is persisted.
	EventTypeFileAnalyzed = "foldermate.file.analyzed"

	// EventTypeFileMoved is emitted after a file's move is committed.
	EventTypeFileMoved = "foldermate.file.moved"
)

// FileEvent is a transport-neutral event payload for a file lifecycle change.
type FileEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	// Path is the record's workspace-relative path.
	Path string `json:"path"`

	// Destination is set for move events.
	Destination string `json:"destination,omitempty"`

	// Detail carries a short human-readable description.
	Detail string `json:"detail,omitempty"`
}

// NewFileEvent builds a v1 file event with a fresh id and timestamp.
func NewFileEvent(eventType, path string) *FileEvent {
	return &FileEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Path:          path,
	}
}

// Package eventstream publishes file lifecycle events to an event stream
// backend so external consumers can follow the organizer's progress.
package eventstream

import "context"

// Publisher publishes file events to an event stream backend.
type Publisher interface {
	PublishFile(ctx context.Context, event *FileEvent) error
	Close() error
}

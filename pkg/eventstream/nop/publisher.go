// Package nop provides a no-op event publisher used when no event stream
// backend is configured.
package nop

import (
	"context"

	"github.com/foldermate/foldermate/pkg/eventstream"
)

// Publisher discards all events.
type Publisher struct{}

// NewPublisher creates a no-op publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishFile validates the event and discards it.
func (p *Publisher) PublishFile(_ context.Context, event *eventstream.FileEvent) error {
	if event == nil {
		return eventstream.ErrNilFileEvent
	}
	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)

package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/foldermate/foldermate/pkg/eventstream"
)

// MockPublisher is a test publisher that records published events.
type MockPublisher struct {
	mu     sync.Mutex
	Events []*eventstream.FileEvent

	// FailAll causes every publish to return an error.
	FailAll bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishFile(_ context.Context, event *eventstream.FileEvent) error {
	if event == nil {
		return eventstream.ErrNilFileEvent
	}
	if m.FailAll {
		return fmt.Errorf("mock publish failure")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// Published returns a copy of the recorded events.
func (m *MockPublisher) Published() []*eventstream.FileEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*eventstream.FileEvent, len(m.Events))
	copy(out, m.Events)
	return out
}

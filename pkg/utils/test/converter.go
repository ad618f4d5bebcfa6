package testutils

import (
	"context"
	"fmt"
	"os"
	"time"
)

// MockConverter is a test converter that reads the file verbatim and records
// configurable failures.
type MockConverter struct {
	// Texts overrides the converted text per path.
	Texts map[string]string

	// FailOn causes Convert to return an error for the matching path.
	FailOn string

	// HangOn causes Convert to block until the context is cancelled for the
	// matching path, simulating a conversion that never finishes.
	HangOn string

	// Calls records every converted path in order.
	Calls []string
}

func NewMockConverter() *MockConverter {
	return &MockConverter{
		Texts: make(map[string]string),
	}
}

func (m *MockConverter) Convert(ctx context.Context, path string) (string, error) {
	m.Calls = append(m.Calls, path)

	if m.HangOn != "" && path == m.HangOn {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Hour):
			return "", fmt.Errorf("unreachable")
		}
	}

	if m.FailOn != "" && path == m.FailOn {
		return "", fmt.Errorf("mock conversion failure for: %s", path)
	}

	if text, ok := m.Texts[path]; ok {
		return text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

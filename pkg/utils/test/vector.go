package testutils

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/foldermate/foldermate/pkg/vector"
)

// MockVectorDriver is an in-memory vector driver with real cosine scoring,
// matching the deterministic ordering the interface promises.
type MockVectorDriver struct {
	mu      sync.Mutex
	entries map[int64]vector.Entry

	// FailUpsert causes every Upsert to return an error.
	FailUpsert bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		entries: make(map[int64]vector.Entry),
	}
}

func (m *MockVectorDriver) Upsert(_ context.Context, entries []vector.Entry) error {
	if m.FailUpsert {
		return fmt.Errorf("mock upsert failure")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	return m.query(embedding, -1, topK), nil
}

func (m *MockVectorDriver) QueryByID(_ context.Context, id int64, topK int) ([]vector.QueryResult, error) {
	m.mu.Lock()
	entry, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return m.query(entry.Embedding, id, topK), nil
}

func (m *MockVectorDriver) query(embedding []float32, exclude int64, topK int) []vector.QueryResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make([]vector.QueryResult, 0, len(m.entries))
	for _, e := range m.entries {
		if e.ID == exclude {
			continue
		}
		results = append(results, vector.QueryResult{
			Entry: e,
			Score: cosine(embedding, e.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

func (m *MockVectorDriver) Get(_ context.Context, ids []int64) ([]vector.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]vector.Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := m.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.entries, id)
	}
	return nil
}

func (m *MockVectorDriver) ModelID(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) == 0 {
		return "", nil
	}
	return m.entries[ids[0]].ModelID, nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

// Len reports how many entries the index holds.
func (m *MockVectorDriver) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Has reports whether an entry exists for id.
func (m *MockVectorDriver) Has(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[id]
	return ok
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ vector.Driver = (*MockVectorDriver)(nil)

package testutils

import (
	"context"
	"fmt"
	"path"

	"github.com/foldermate/foldermate/pkg/notes"
	"github.com/foldermate/foldermate/pkg/record"
)

// MockReporter returns a canned report per path, defaulting to the converted
// text prefixed with a marker.
type MockReporter struct {
	Reports map[string]string

	// FailOn causes Report to return an error for the matching path.
	FailOn string
}

func NewMockReporter() *MockReporter {
	return &MockReporter{
		Reports: make(map[string]string),
	}
}

func (m *MockReporter) Report(_ context.Context, filePath, text string) (string, error) {
	if m.FailOn != "" && filePath == m.FailOn {
		return "", fmt.Errorf("mock report failure for: %s", filePath)
	}
	if report, ok := m.Reports[filePath]; ok {
		return report, nil
	}
	return "report: " + text, nil
}

// MockPlanner proposes a one-member cluster under a fixed folder.
type MockPlanner struct {
	Folder string

	// FailOn causes Plan to return an error for the matching anchor path.
	FailOn string

	// Seen records the anchor paths planned, in order.
	Seen []string

	// NeighborCounts records how many neighbors each anchor received.
	NeighborCounts map[string]int
}

func NewMockPlanner(folder string) *MockPlanner {
	return &MockPlanner{
		Folder:         folder,
		NeighborCounts: make(map[string]int),
	}
}

func (m *MockPlanner) Plan(_ context.Context, anchor record.FileRecord, neighbors []record.Similar) (*notes.ClusterNote, error) {
	m.Seen = append(m.Seen, anchor.Path)
	m.NeighborCounts[anchor.Path] = len(neighbors)

	if m.FailOn != "" && anchor.Path == m.FailOn {
		return nil, fmt.Errorf("mock plan failure for: %s", anchor.Path)
	}

	note := &notes.ClusterNote{
		ProposedFolderPath: m.Folder,
		Rationale:          "mock cluster",
		Members:            []notes.Member{{Path: anchor.Path, Reason: "anchor"}},
		Confidence:         0.9,
	}
	for _, n := range neighbors {
		note.Members = append(note.Members, notes.Member{Path: n.Record.Path, Reason: "neighbor"})
	}
	return note, nil
}

// MockDecider plans every file into a fixed folder keeping its filename.
type MockDecider struct {
	Folder string

	// FailOn causes Decide to return an error for the matching path.
	FailOn string

	// Trees records the folder tree passed for each decided path.
	Trees map[string]string
}

func NewMockDecider(folder string) *MockDecider {
	return &MockDecider{
		Folder: folder,
		Trees:  make(map[string]string),
	}
}

func (m *MockDecider) Decide(_ context.Context, rec record.FileRecord, _ []record.OrganizationNote, tree string) (string, *notes.AnchorNote, error) {
	m.Trees[rec.Path] = tree

	if m.FailOn != "" && rec.Path == m.FailOn {
		return "", nil, fmt.Errorf("mock decide failure for: %s", rec.Path)
	}

	filename := path.Base(rec.Path)
	return path.Join(m.Folder, filename), &notes.AnchorNote{
		ProposedFolderPath: m.Folder,
		ProposedFilename:   filename,
		Rationale:          "mock decision",
		Confidence:         0.9,
	}, nil
}

// MockMover records moves without touching the filesystem.
type MockMover struct {
	Moves map[string]string

	// FailOn causes Move to return an error for the matching source path.
	FailOn string
}

func NewMockMover() *MockMover {
	return &MockMover{
		Moves: make(map[string]string),
	}
}

func (m *MockMover) Move(_ context.Context, src, dest string) error {
	if m.FailOn != "" && src == m.FailOn {
		return fmt.Errorf("mock move failure for: %s", src)
	}
	m.Moves[src] = dest
	return nil
}

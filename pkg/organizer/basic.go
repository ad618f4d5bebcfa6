package organizer

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/foldermate/foldermate/pkg/convertcache"
	"github.com/foldermate/foldermate/pkg/notes"
	"github.com/foldermate/foldermate/pkg/record"
)

// Built-in collaborators. These are deterministic fallbacks that keep the
// pipeline usable without an external reasoning service: reports are text
// excerpts, clusters follow vector neighbors, and decisions follow the most
// recent cluster note.

const (
	excerptChars     = 2000
	neighborCutoff   = 0.55
	unsortedFolder   = "unsorted"
	basicPlannerName = "excerpt planner"
)

// TextConverter reads the file as UTF-8 text. Binary content is rejected so
// the cache never stores garbage excerpts.
func TextConverter() convertcache.Converter {
	return convertcache.ConverterFunc(func(_ context.Context, filePath string) (string, error) {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s: %w", filePath, convertcache.ErrUnsupportedFormat)
		}
		return string(data), nil
	})
}

// ExcerptReporter reports the leading excerpt of the converted text.
type ExcerptReporter struct{}

func NewExcerptReporter() *ExcerptReporter {
	return &ExcerptReporter{}
}

func (r *ExcerptReporter) Report(_ context.Context, filePath, text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("%s: converted text is empty", filePath)
	}
	if utf8.RuneCountInString(trimmed) > excerptChars {
		trimmed = string([]rune(trimmed)[:excerptChars])
	}
	return trimmed, nil
}

// NeighborPlanner clusters a record with its high-scoring neighbors under a
// folder named after the anchor's directory, falling back to a shared
// unsorted folder for top-level files.
type NeighborPlanner struct{}

func NewNeighborPlanner() *NeighborPlanner {
	return &NeighborPlanner{}
}

func (p *NeighborPlanner) Plan(_ context.Context, anchor record.FileRecord, neighbors []record.Similar) (*notes.ClusterNote, error) {
	folder := path.Dir(anchor.Path)
	if folder == "." || folder == "/" {
		folder = unsortedFolder
	}

	note := &notes.ClusterNote{
		ProposedFolderPath: folder,
		Rationale:          fmt.Sprintf("%s: grouped by report similarity to %s", basicPlannerName, anchor.Path),
		Members:            []notes.Member{{Path: anchor.Path, Reason: "anchor"}},
		Confidence:         0.5,
	}

	for _, n := range neighbors {
		if n.Score < neighborCutoff {
			continue
		}
		note.Members = append(note.Members, notes.Member{
			Path:   n.Record.Path,
			Reason: fmt.Sprintf("similarity %.2f", n.Score),
		})
	}

	if len(note.Members) > 1 {
		note.Confidence = 0.7
	}

	return note, nil
}

// ClusterDecider places a record into its newest cluster note's proposed
// folder, keeping the original filename.
type ClusterDecider struct{}

func NewClusterDecider() *ClusterDecider {
	return &ClusterDecider{}
}

func (d *ClusterDecider) Decide(_ context.Context, rec record.FileRecord, recNotes []record.OrganizationNote, _ string) (string, *notes.AnchorNote, error) {
	folder := unsortedFolder
	rationale := "no cluster note, defaulting to unsorted"

	// Notes arrive newest first; the first cluster note wins.
	for _, n := range recNotes {
		if n.Kind != notes.KindCluster {
			continue
		}
		cluster, err := notes.DecodeCluster(n.Payload)
		if err != nil {
			continue
		}
		if cluster.ProposedFolderPath != "" {
			folder = cluster.ProposedFolderPath
			rationale = "following newest cluster note"
		}
		break
	}

	filename := path.Base(rec.Path)
	anchor := &notes.AnchorNote{
		ProposedFolderPath: folder,
		ProposedFilename:   filename,
		Rationale:          rationale,
		Confidence:         0.5,
	}

	return path.Join(folder, filename), anchor, nil
}

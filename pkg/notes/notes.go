// Package notes defines the structured payloads attached to file records
// during planning and deciding. There are exactly two variants: cluster notes
// describe a group of files that belong together, anchor notes describe the
// destination of one specific file. Payloads are parsed once at this boundary;
// consumers never re-parse raw note text.
package notes

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the note payload variants.
type Kind string

const (
	// KindCluster marks a note proposing a shared folder for a group of files.
	KindCluster Kind = "cluster"

	// KindAnchor marks a note proposing the destination of a single file.
	KindAnchor Kind = "anchor"
)

// Valid reports whether k is a known note kind.
func (k Kind) Valid() bool {
	return k == KindCluster || k == KindAnchor
}

// Member is one file belonging to a proposed cluster.
type Member struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ClusterNote proposes a folder for a set of topically related files.
type ClusterNote struct {
	ProposedFolderPath string   `json:"proposed_folder_path"`
	Rationale          string   `json:"rationale"`
	Members            []Member `json:"members"`
	Confidence         float64  `json:"confidence"`
	ActionHints        []string `json:"action_hints,omitempty"`
	PrecedenceBasis    string   `json:"precedence_basis,omitempty"`
	Conflicts          []string `json:"conflicts,omitempty"`
	ReviewNeeded       bool     `json:"review_needed"`
	NamingHint         string   `json:"naming_hint,omitempty"`
}

// AnchorNote proposes the folder and filename for one file. Filenames follow
// the <date>_<project>_<doctype>_<topic>_v##_[status].<ext> convention but are
// stored verbatim; nothing here validates them.
type AnchorNote struct {
	ProposedFolderPath  string   `json:"proposed_folder_path"`
	ProposedFilename    string   `json:"proposed_filename"`
	DeletionCandidate   bool     `json:"deletion_candidate"`
	RedownloadSource    string   `json:"redownload_source,omitempty"`
	Rationale           string   `json:"rationale"`
	Tags                []string `json:"tags,omitempty"`
	Confidence          float64  `json:"confidence"`
	ActionHints         []string `json:"action_hints,omitempty"`
	PrecedenceBasis     string   `json:"precedence_basis,omitempty"`
	Conflicts           []string `json:"conflicts,omitempty"`
	ReviewNeeded        bool     `json:"review_needed"`
	FilenamePatternHint string   `json:"filename_pattern_hint,omitempty"`
}

// EncodeCluster serializes a cluster note payload.
func EncodeCluster(n *ClusterNote) (json.RawMessage, error) {
	if n == nil {
		return nil, fmt.Errorf("nil cluster note")
	}
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encoding cluster note: %w", err)
	}
	return data, nil
}

// EncodeAnchor serializes an anchor note payload.
func EncodeAnchor(n *AnchorNote) (json.RawMessage, error) {
	if n == nil {
		return nil, fmt.Errorf("nil anchor note")
	}
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encoding anchor note: %w", err)
	}
	return data, nil
}

// DecodeCluster parses a cluster note payload.
func DecodeCluster(payload json.RawMessage) (*ClusterNote, error) {
	var n ClusterNote
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("decoding cluster note: %w", err)
	}
	return &n, nil
}

// DecodeAnchor parses an anchor note payload.
func DecodeAnchor(payload json.RawMessage) (*AnchorNote, error) {
	var n AnchorNote
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("decoding anchor note: %w", err)
	}
	return &n, nil
}

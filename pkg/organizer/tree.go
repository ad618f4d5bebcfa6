package organizer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FolderTree renders the target directory as an indented box-drawing tree,
// the same view the decider receives when picking destinations. A missing
// target directory renders as a placeholder rather than failing, since an
// empty target is a normal state before the first move.
func (o *Organizer) FolderTree() (string, error) {
	if err := o.requireTargetDir(); err != nil {
		return "", err
	}

	info, err := os.Stat(o.targetDir)
	if err != nil || !info.IsDir() {
		return "[Path does not exist]", nil
	}

	var b strings.Builder
	b.WriteString(filepath.Base(o.targetDir))
	b.WriteString("/\n")
	if err := writeTree(&b, o.targetDir, ""); err != nil {
		return "", fmt.Errorf("rendering folder tree: %w", err)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func writeTree(b *strings.Builder, dir, prefix string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	visible := entries[:0]
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		visible = append(visible, e)
	}
	sort.Slice(visible, func(i, j int) bool {
		if visible[i].IsDir() != visible[j].IsDir() {
			return visible[i].IsDir()
		}
		return visible[i].Name() < visible[j].Name()
	})

	for i, e := range visible {
		connector, childPrefix := "├── ", prefix+"│   "
		if i == len(visible)-1 {
			connector, childPrefix = "└── ", prefix+"    "
		}

		b.WriteString(prefix)
		b.WriteString(connector)
		b.WriteString(e.Name())
		if e.IsDir() {
			b.WriteString("/")
		}
		b.WriteString("\n")

		if e.IsDir() {
			if err := writeTree(b, filepath.Join(dir, e.Name()), childPrefix); err != nil {
				return err
			}
		}
	}
	return nil
}

package merge

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Group is a set of names for one person across platforms. The first name
// is canonical.
type Group []string

// Canonical returns the name merged rows are reported under.
func (g Group) Canonical() string {
	if len(g) == 0 {
		return ""
	}
	return g[0]
}

func (g Group) set() map[string]bool {
	out := make(map[string]bool, len(g))
	for _, n := range g {
		out[n] = true
	}
	return out
}

// ParseAliases reads comma separated alias groups. Lines starting with '#'
// are comments; empty cells are ignored.
func ParseAliases(r io.Reader) ([]Group, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var groups []Group
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse aliases: %w", err)
		}
		var g Group
		for _, cell := range rec {
			if cell = strings.TrimSpace(cell); cell != "" {
				g = append(g, cell)
			}
		}
		if len(g) > 0 {
			groups = append(groups, g)
		}
	}
	return groups, nil
}

// LoadAliases reads the alias file at path. A missing file is an empty
// mapping.
func LoadAliases(path string) ([]Group, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open aliases: %w", err)
	}
	defer f.Close()
	return ParseAliases(f)
}

const aliasTemplate = `# If a contact uses different names on different platforms, list them on one line.
# The first name is the one used in the merged report.
# Example:
# "john_d","john.insta","john.snap","John Doe"
# "lucie_d","lucie.snap","Lucie"
#
`

// WriteTemplate writes a commented alias file at path. An existing file is
// left untouched and reported with os.ErrExist.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("write alias template %s: %w", path, os.ErrExist)
	}
	return writeFileAtomic(path, []byte(aliasTemplate))
}

// writeFileAtomic writes data to a temporary file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

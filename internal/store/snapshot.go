package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"socialstats/internal/report"
)

// Snapshot renders each report into its own database file. The file is
// built under a temporary name and renamed into place once complete.
type Snapshot struct {
	Format string
	// PathFor maps a report name to the snapshot file path.
	PathFor func(name string) string
}

func (s Snapshot) Render(ctx context.Context, r report.Report) (err error) {
	path := s.PathFor(r.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	tmp := path + ".tmp"
	removeSnapshot(tmp)
	defer func() {
		if err != nil {
			removeSnapshot(tmp)
		}
	}()

	st, err := Open(s.Format, tmp)
	if err != nil {
		return err
	}
	if err := st.InitSchema(); err != nil {
		st.Close()
		return err
	}
	if err := ctx.Err(); err != nil {
		st.Close()
		return err
	}
	if err := st.SaveReport(r); err != nil {
		st.Close()
		return fmt.Errorf("save report %s: %w", r.Name, err)
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// removeSnapshot deletes a database file and the sidecar files its engine
// may have left next to it.
func removeSnapshot(path string) {
	for _, suffix := range []string{"", ".wal", "-wal", "-shm", "-journal"} {
		os.Remove(path + suffix)
	}
}

// OpenSnapshot opens an existing snapshot file. Unlike Open it fails when
// the file is missing instead of creating an empty database.
func OpenSnapshot(format, path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return Open(format, path)
}

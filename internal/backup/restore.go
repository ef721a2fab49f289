package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// RestoreSession copies sessionID's JSONL file out of the most recent
// complete snapshot that contains it, back to filePath (its last-known
// location under the live projects tree). encodedPath locates the session
// within a snapshot's own projects/ subtree, which mirrors the live
// layout's <encoded-cwd>/<session-id>.jsonl structure.
func (m *Manager) RestoreSession(ctx context.Context, sessionID, encodedPath, filePath string) error {
	snapshots, err := m.List(ctx)
	if err != nil {
		return fmt.Errorf("listing snapshots: %w", err)
	}

	for _, snap := range snapshots {
		src := filepath.Join(snap.Path, "projects", encodedPath, sessionID+".jsonl")
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
			return fmt.Errorf("creating destination directory: %w", err)
		}
		if err := copyFilePreserve(src, filePath); err != nil {
			return fmt.Errorf("restoring from snapshot %s: %w", snap.Name, err)
		}
		return nil
	}

	return fmt.Errorf("no snapshot contains session %s", sessionID)
}

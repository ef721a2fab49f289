// Package backup copies the projects tree into timestamped snapshots and
// restores individual sessions out of the most recent one, mirroring the
// fsync-before-close discipline the rest of this module uses for the
// index's JSONL sources.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zjrosen/transcriptdex/internal/log"
)

// sentinelName marks a snapshot directory as complete. Its presence is
// written only after every file in the snapshot has been copied and
// fsynced; list() treats a snapshot without one as a partially-written
// leftover from a process killed mid-copy.
const sentinelName = ".transcriptdex-backup-complete"

// snapshotPrefix names each snapshot directory: "sessions-<RFC3339-ish>".
const snapshotPrefix = "sessions-"

// defaultInterval is how often auto_backup creates a new snapshot.
const defaultInterval = time.Hour

// defaultMaxBackups is how many snapshots retention keeps.
const defaultMaxBackups = 10

// Snapshot describes one backup directory.
type Snapshot struct {
	Name      string
	Path      string
	CreatedAt time.Time
}

// Manager owns a backup root directory alongside a projects root to copy
// from. Mutations (Backup, evictOldest) serialize behind mu; the projects
// tree's own writer (the upstream transcript producer) is untouched by the
// copy, which only reads.
type Manager struct {
	mu           sync.Mutex
	projectsRoot string
	backupRoot   string
	interval     time.Duration
	maxBackups   int

	// now is overridable in tests; defaults to time.Now.
	now func() time.Time
}

// New constructs a Manager. projectsRoot is the transcript root (the
// directory containing "projects/"); backupRoot is where snapshot
// directories are created.
func New(projectsRoot, backupRoot string) *Manager {
	return &Manager{
		projectsRoot: projectsRoot,
		backupRoot:   backupRoot,
		interval:     defaultInterval,
		maxBackups:   defaultMaxBackups,
		now:          time.Now,
	}
}

// SetMaxBackups overrides the retention bound applied by the next Backup
// call. Used to apply the configured max_backups setting at startup.
func (m *Manager) SetMaxBackups(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxBackups = n
}

// Backup creates a new snapshot directory containing a recursive copy of
// <projectsRoot>/projects. It fails if that tree is absent; individual
// unreadable files are skipped with a log line rather than failing the
// whole backup.
func (m *Manager) Backup(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src := filepath.Join(m.projectsRoot, "projects")
	if _, err := os.Stat(src); err != nil {
		return Snapshot{}, fmt.Errorf("backup: projects tree missing: %w", err)
	}

	name := snapshotPrefix + m.now().UTC().Format("20060102T150405Z")
	dst := filepath.Join(m.backupRoot, name)
	if err := os.MkdirAll(dst, 0750); err != nil {
		return Snapshot{}, fmt.Errorf("backup: creating snapshot dir: %w", err)
	}

	if err := copyTree(ctx, src, filepath.Join(dst, "projects")); err != nil {
		_ = os.RemoveAll(dst)
		return Snapshot{}, fmt.Errorf("backup: copying projects tree: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dst, sentinelName), nil, 0600); err != nil {
		return Snapshot{}, fmt.Errorf("backup: writing completion sentinel: %w", err)
	}

	if _, err := m.evictOldestLocked(); err != nil {
		log.Warn(log.CatBackup, "retention eviction failed", "error", err.Error())
	}

	return Snapshot{Name: name, Path: dst, CreatedAt: m.now()}, nil
}

// List enumerates complete snapshots by timestamp, descending. Incomplete
// snapshots (missing the completion sentinel) are skipped.
func (m *Manager) List(_ context.Context) ([]Snapshot, error) {
	entries, err := os.ReadDir(m.backupRoot)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}

	snapshots := make([]Snapshot, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), snapshotPrefix) {
			continue
		}
		dir := filepath.Join(m.backupRoot, e.Name())
		if _, err := os.Stat(filepath.Join(dir, sentinelName)); err != nil {
			log.Warn(log.CatBackup, "skipping incomplete snapshot", "name", e.Name())
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			Name:      e.Name(),
			Path:      dir,
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Name > snapshots[j].Name
	})
	return snapshots, nil
}

// NeedsBackup reports true iff no complete snapshot exists or the most
// recent one is older than the configured interval.
func (m *Manager) NeedsBackup(ctx context.Context) bool {
	snapshots, err := m.List(ctx)
	if err != nil || len(snapshots) == 0 {
		return true
	}
	return m.now().Sub(snapshots[0].CreatedAt) > m.interval
}

// AutoBackup runs Backup iff NeedsBackup. Intended to be called once at
// process startup.
func (m *Manager) AutoBackup(ctx context.Context) error {
	if !m.NeedsBackup(ctx) {
		return nil
	}
	_, err := m.Backup(ctx)
	return err
}

// evictOldestLocked deletes the oldest snapshots until at most maxBackups
// remain. Caller must hold mu.
func (m *Manager) evictOldestLocked() (int, error) {
	entries, err := os.ReadDir(m.backupRoot)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), snapshotPrefix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	evicted := 0
	for len(names) > m.maxBackups {
		oldest := names[0]
		names = names[1:]
		if err := os.RemoveAll(filepath.Join(m.backupRoot, oldest)); err != nil {
			return evicted, fmt.Errorf("evicting snapshot %s: %w", oldest, err)
		}
		evicted++
	}
	return evicted, nil
}

// copyTree recursively copies src to dst, skipping (and logging) files it
// cannot read rather than aborting the whole backup.
func copyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Warn(log.CatBackup, "skipping unreadable path during backup", "path", path, "error", err.Error())
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0750)
		}

		if err := copyFilePreserve(path, target); err != nil {
			log.Warn(log.CatBackup, "skipping unreadable file during backup", "path", path, "error", err.Error())
		}
		return nil
	})
}

func copyFilePreserve(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: src is walked under the caller's own projects root
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var rebuildFlag bool
var watchFlag bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the index to the on-disk transcript tree",
	Long: `sync walks the configured transcript root and reconciles the index:
new files are added, changed files are re-parsed, vanished files are
soft-deleted, and previously soft-deleted files that have reappeared are
restored.

Use --rebuild to drop and recompute every row from scratch rather than
reconciling incrementally. Use --watch to keep running and re-sync
whenever the projects tree changes, instead of syncing once and exiting.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVar(&rebuildFlag, "rebuild", false, "recompute every index row from scratch")
	syncCmd.Flags().BoolVar(&watchFlag, "watch", false, "keep running, re-syncing on filesystem change")
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if err := syncOnce(ctx, a, out); err != nil {
		return err
	}
	if !watchFlag {
		return nil
	}

	return watchAndSync(ctx, a, out)
}

func syncOnce(ctx context.Context, a *app, out io.Writer) error {
	syncFn := a.index.Sync
	if rebuildFlag {
		syncFn = a.index.Rebuild
	}

	stats, err := syncFn(ctx, a.transcriptRoot)
	if err != nil {
		return fmt.Errorf("syncing index: %w", err)
	}

	fmt.Fprintf(out, "added=%d updated=%d deleted=%d restored=%d unchanged=%d (%dms)\n",
		stats.Added, stats.Updated, stats.Deleted, stats.Restored, stats.Unchanged, stats.DurationMs)
	return nil
}

// debounceWindow coalesces a burst of writes (an upstream session appends
// many lines in quick succession) into a single re-sync.
const debounceWindow = 500 * time.Millisecond

// watchAndSync watches the projects tree for changes, re-syncing on each
// debounced burst of filesystem activity until ctx is canceled.
func watchAndSync(ctx context.Context, a *app, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	projectsDir := filepath.Join(a.transcriptRoot, "projects")
	if err := addWatchTree(watcher, projectsDir); err != nil {
		return fmt.Errorf("watching %s: %w", projectsDir, err)
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		var fire <-chan time.Time
		if debounce != nil {
			fire = debounce.C
		}

		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && isDir(ev.Name) {
				_ = watcher.Add(ev.Name)
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceWindow)
			} else {
				debounce.Reset(debounceWindow)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "watch error: %v\n", err)
		case <-fire:
			debounce = nil
			if err := syncOnce(ctx, a, out); err != nil {
				fmt.Fprintf(out, "sync error: %v\n", err)
			}
		}
	}
}

func addWatchTree(watcher *fsnotify.Watcher, root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := watcher.Add(root); err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			_ = watcher.Add(filepath.Join(root, e.Name()))
		}
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

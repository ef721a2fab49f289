// Package sessionsvc is the thin facade composing the path codec, the
// transcript scanner/reader, and the index store into the operations the
// CLI and runtime actually call: discover, find, rename, move, search, and
// restore a session.
package sessionsvc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zjrosen/transcriptdex/internal/backup"
	"github.com/zjrosen/transcriptdex/internal/index"
	"github.com/zjrosen/transcriptdex/internal/log"
	"github.com/zjrosen/transcriptdex/internal/pathcodec"
	"github.com/zjrosen/transcriptdex/internal/transcript/jsonl"
	"github.com/zjrosen/transcriptdex/internal/transcript/scanner"
)

// Error taxonomy shared with the index package, plus the service-level
// additions (Ambiguous, FsConsistency) that only arise once (B)+(C) are
// composed with (D).
var (
	ErrNotFound      = index.ErrNotFound
	ErrAmbiguous     = errors.New("sessionsvc: ambiguous selector matched multiple sessions")
	ErrFsConsistency = errors.New("sessionsvc: filesystem state inconsistent with index")
)

// Service is the process-scoped facade. Construct once at entry with a
// pre-opened Store and the transcripts root; tests construct throwaway
// instances over a temporary root.
type Service struct {
	store   *index.Store
	root    string
	backups *backup.Manager
}

// New constructs a Service over an already-open index store.
func New(store *index.Store, root string, backups *backup.Manager) *Service {
	return &Service{store: store, root: root, backups: backups}
}

// DiscoverOptions controls DiscoverSessions.
type DiscoverOptions struct {
	// UseIndex, when true, serves from the index store. The zero value
	// (false) walks the filesystem directly via the scanner and JSONL
	// reader — the cold path used when the index is empty or disabled.
	UseIndex bool
}

// DiscoverSessions returns all known sessions, either from the index or by
// a direct filesystem walk.
func (s *Service) DiscoverSessions(ctx context.Context, opts DiscoverOptions) ([]index.Session, error) {
	if opts.UseIndex {
		return s.store.List(ctx, index.ListOptions{IncludeDeleted: true})
	}
	return s.discoverCold()
}

// discoverCold walks the transcript tree and parses each file directly,
// bypassing the index entirely.
func (s *Service) discoverCold() ([]index.Session, error) {
	entries, err := scanner.Scan(s.root)
	if err != nil {
		return nil, fmt.Errorf("scanning transcript tree: %w", err)
	}

	sessions := make([]index.Session, 0, len(entries))
	for _, entry := range entries {
		result, err := jsonl.ReadFile(entry.AbsolutePath)
		if err != nil && !errors.Is(err, jsonl.ErrTruncated) {
			log.Warn(log.CatSession, "skipping unreadable session in cold discovery", "session_id", entry.SessionID, "error", err.Error())
			continue
		}
		md := result.Metadata
		wd := pathcodec.Decode(entry.EncodedDir)
		if md.Cwd != "" {
			wd = md.Cwd
		}
		sessions = append(sessions, index.Session{
			SessionID:             entry.SessionID,
			EncodedPath:           entry.EncodedDir,
			WorkingDirectory:      wd,
			FilePath:              entry.AbsolutePath,
			CreatedAt:             md.CreatedAt,
			LastAccessedAt:        md.LastAccessedAt,
			MessageCount:          md.MessageCount,
			UserMessageCount:      md.UserMessageCount,
			AssistantMessageCount: md.AssistantMessageCount,
			TotalInputTokens:      md.TotalInputTokens,
			TotalOutputTokens:     md.TotalOutputTokens,
			TotalCostUSD:          md.TotalCostUSD,
			Model:                 md.Model,
			GitBranch:             md.GitBranch,
			Slug:                  md.Slug,
			FirstUserMessage:      md.FirstUserMessage,
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastAccessedAt.After(sessions[j].LastAccessedAt)
	})
	return sessions, nil
}

// FindSession resolves idOrName by exact session_id first. Failing that,
// every session whose title (override, or else the algorithmic title taken
// from the first user message), slug, or session_id prefix matches is a
// candidate, and the most recently accessed candidate is returned rather
// than erroring, mirroring the teacher's "skip corrupt, return most recent
// on ambiguity" posture.
func (s *Service) FindSession(ctx context.Context, idOrName string) (index.Session, error) {
	if sess, err := s.store.Get(ctx, idOrName); err == nil {
		return sess, nil
	}

	all, err := s.store.List(ctx, index.ListOptions{IncludeDeleted: true})
	if err != nil {
		return index.Session{}, fmt.Errorf("listing sessions: %w", err)
	}

	var candidates []index.Session
	for _, sess := range all {
		title := sess.Title
		if title == "" {
			title = sess.FirstUserMessage
		}
		if title != "" && title == idOrName {
			candidates = append(candidates, sess)
			continue
		}
		if sess.Slug != "" && sess.Slug == idOrName {
			candidates = append(candidates, sess)
			continue
		}
		if strings.HasPrefix(sess.SessionID, idOrName) {
			candidates = append(candidates, sess)
		}
	}

	if len(candidates) == 0 {
		return index.Session{}, fmt.Errorf("%w: %s", ErrNotFound, idOrName)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastAccessedAt.After(candidates[j].LastAccessedAt)
	})
	return candidates[0], nil
}

// RenameSession sets or clears the title override for id. An empty title
// clears it. Length capping, if any, is the caller's policy.
func (s *Service) RenameSession(ctx context.Context, id, title string) error {
	return s.store.Rename(ctx, id, title)
}

// RestoreDeleted locates the most recent backup snapshot containing id's
// JSONL, copies it back to the session's last-known file_path, and leaves
// is_deleted to be cleared by a subsequent Sync.
func (s *Service) RestoreDeleted(ctx context.Context, id string) error {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("locating session %s to restore: %w", id, err)
	}
	if !sess.IsDeleted {
		return fmt.Errorf("%w: session %s is not deleted", ErrFsConsistency, id)
	}

	if err := s.backups.RestoreSession(ctx, id, sess.EncodedPath, sess.FilePath); err != nil {
		return fmt.Errorf("restoring session %s from backup: %w", id, err)
	}
	return nil
}

package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zjrosen/transcriptdex/internal/log"
	"github.com/zjrosen/transcriptdex/internal/pathcodec"
	"github.com/zjrosen/transcriptdex/internal/transcript"
	"github.com/zjrosen/transcriptdex/internal/transcript/jsonl"
	"github.com/zjrosen/transcriptdex/internal/transcript/scanner"
)

var tracer = otel.Tracer("github.com/zjrosen/transcriptdex/internal/index")

// SyncStats reports the reconciliation outcome of one Sync call.
type SyncStats struct {
	Added      int
	Updated    int
	Deleted    int
	Restored   int
	Unchanged  int
	DurationMs int64
}

// Sync reconciles the index to the on-disk truth under root: added files are
// parsed and inserted, changed files are re-parsed and their messages/fts
// replaced, vanished files are soft-deleted, and previously soft-deleted
// files that have reappeared are restored. Each session's reconciliation is
// wrapped in its own transaction; the whole run is wrapped in an OpenTelemetry
// span recording the resulting counts as attributes.
func (s *Store) Sync(ctx context.Context, root string) (SyncStats, error) {
	ctx, span := tracer.Start(ctx, "index.sync")
	defer span.End()

	start := time.Now()
	var stats SyncStats

	entries, err := scanner.Scan(root)
	if err != nil {
		span.RecordError(err)
		return stats, fmt.Errorf("scanning transcript tree: %w", err)
	}

	seen := make(map[string]bool, len(entries))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("sync cancelled: %w", err)
		}

		seen[entry.SessionID] = true

		existing, found, err := s.fingerprint(ctx, entry.SessionID)
		if err != nil {
			span.RecordError(err)
			return stats, fmt.Errorf("reading fingerprint for %s: %w", entry.SessionID, err)
		}

		unchanged := found && !existing.isDeleted &&
			existing.size == entry.Info.Size() && existing.mtime == entry.Info.ModTime().Unix()

		if unchanged {
			stats.Unchanged++
			continue
		}

		result, err := jsonl.ReadFile(entry.AbsolutePath)
		if err != nil && !errors.Is(err, jsonl.ErrTruncated) {
			log.Warn(log.CatIndex, "skipping unreadable session", "session_id", entry.SessionID, "error", err.Error())
			continue
		}

		wd := pathcodec.Decode(entry.EncodedDir)
		md := result.Metadata
		if md.Cwd != "" {
			wd = md.Cwd
		}

		err = s.withWriteTx(ctx, func(tx *sql.Tx) error {
			return upsertSession(tx, entry, wd, md, result.Messages)
		})
		if err != nil {
			span.RecordError(err)
			return stats, fmt.Errorf("indexing session %s: %w", entry.SessionID, err)
		}

		switch {
		case !found:
			stats.Added++
		case existing.isDeleted:
			stats.Restored++
		default:
			stats.Updated++
		}
	}

	deleted, err := s.markMissingDeleted(ctx, seen)
	if err != nil {
		span.RecordError(err)
		return stats, fmt.Errorf("marking missing sessions deleted: %w", err)
	}
	stats.Deleted = deleted

	stats.DurationMs = time.Since(start).Milliseconds()

	if err := s.recordSyncCompletion(ctx, stats); err != nil {
		log.Warn(log.CatIndex, "recording sync completion failed", "error", err.Error())
	}

	span.SetAttributes(
		attribute.Int("sync.added", stats.Added),
		attribute.Int("sync.updated", stats.Updated),
		attribute.Int("sync.deleted", stats.Deleted),
		attribute.Int("sync.restored", stats.Restored),
		attribute.Int("sync.unchanged", stats.Unchanged),
		attribute.Int64("sync.duration_ms", stats.DurationMs),
	)
	span.SetStatus(codes.Ok, "")

	s.invalidate()
	return stats, nil
}

type fingerprintRow struct {
	size      int64
	mtime     int64
	isDeleted bool
}

func (s *Store) fingerprint(ctx context.Context, sessionID string) (fingerprintRow, bool, error) {
	var (
		fp        fingerprintRow
		isDeleted int
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT size_bytes, mtime_unix, is_deleted FROM files WHERE session_id = ?`, sessionID)
	err := row.Scan(&fp.size, &fp.mtime, &isDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return fingerprintRow{}, false, nil
	}
	if err != nil {
		return fingerprintRow{}, false, err
	}
	fp.isDeleted = isDeleted != 0
	return fp, true, nil
}

func upsertSession(tx *sql.Tx, entry scanner.Entry, workingDirectory string, md transcript.Metadata, messages []transcript.Message) error {
	_, err := tx.Exec(`
		INSERT INTO files (
			session_id, encoded_path, working_directory, file_path,
			created_at, last_accessed_at,
			message_count, user_message_count, assistant_message_count,
			total_input_tokens, total_output_tokens, total_cost_usd,
			model, git_branch, slug, first_user_message,
			size_bytes, mtime_unix, is_deleted, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL)
		ON CONFLICT(session_id) DO UPDATE SET
			encoded_path = excluded.encoded_path,
			working_directory = excluded.working_directory,
			file_path = excluded.file_path,
			created_at = excluded.created_at,
			last_accessed_at = excluded.last_accessed_at,
			message_count = excluded.message_count,
			user_message_count = excluded.user_message_count,
			assistant_message_count = excluded.assistant_message_count,
			total_input_tokens = excluded.total_input_tokens,
			total_output_tokens = excluded.total_output_tokens,
			total_cost_usd = excluded.total_cost_usd,
			model = excluded.model,
			git_branch = excluded.git_branch,
			slug = excluded.slug,
			first_user_message = excluded.first_user_message,
			size_bytes = excluded.size_bytes,
			mtime_unix = excluded.mtime_unix,
			is_deleted = 0,
			deleted_at = NULL
	`,
		entry.SessionID, entry.EncodedDir, workingDirectory, entry.AbsolutePath,
		md.CreatedAt, md.LastAccessedAt,
		md.MessageCount, md.UserMessageCount, md.AssistantMessageCount,
		md.TotalInputTokens, md.TotalOutputTokens, md.TotalCostUSD,
		nullIfEmpty(md.Model), nullIfEmpty(md.GitBranch), nullIfEmpty(md.Slug), nullIfEmpty(md.FirstUserMessage),
		entry.Info.Size(), entry.Info.ModTime().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upserting files row: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, entry.SessionID); err != nil {
		return fmt.Errorf("clearing prior messages: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO messages (session_id, ordinal, type, timestamp, text_body) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing message insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, m := range messages {
		if _, err := stmt.Exec(entry.SessionID, i, string(m.Type), m.Timestamp, m.TextBody); err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *Store) markMissingDeleted(ctx context.Context, seen map[string]bool) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM files WHERE is_deleted = 0`)
	if err != nil {
		return 0, err
	}
	var toDelete []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, err
		}
		if !seen[id] {
			toDelete = append(toDelete, id)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	_ = rows.Close()

	if len(toDelete) == 0 {
		return 0, nil
	}

	now := time.Now()
	err = s.withWriteTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`UPDATE files SET is_deleted = 1, deleted_at = ? WHERE session_id = ?`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, id := range toDelete {
			if _, err := stmt.Exec(now, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(toDelete), nil
}

func (s *Store) recordSyncCompletion(ctx context.Context, stats SyncStats) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if err := writeSetting(tx, settingLastSyncAt, time.Now().Format(time.RFC3339)); err != nil {
			return err
		}
		return writeSetting(tx, settingLastSyncMs, fmt.Sprintf("%d", stats.DurationMs))
	})
}

// Rebuild deletes every row from files, messages, and fts (the tables
// themselves are kept), preserving titles and settings, then syncs from
// empty.
func (s *Store) Rebuild(ctx context.Context, root string) (SyncStats, error) {
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM messages`,
			`DELETE FROM messages_fts`,
			`DELETE FROM files`,
		} {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("rebuild: %s: %w", stmt, err)
			}
		}
		return nil
	})
	if err != nil {
		return SyncStats{}, err
	}
	s.invalidate()
	return s.Sync(ctx, root)
}

// Package index implements the durable local index: a sqlite-backed store
// (WAL mode, FTS5 full text) of per-session metadata, per-message text, and
// title overrides, with a single-writer/many-reader concurrency discipline
// and a short-TTL read cache over its hot query paths.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/zjrosen/transcriptdex/internal/log"
)

// Sentinel errors matching the error taxonomy: NotFound, BadQuery,
// IndexCorrupt all surface here; callers wrap with fmt.Errorf("...: %w").
var (
	ErrNotFound     = errors.New("index: not found")
	ErrBadQuery     = errors.New("index: malformed search query")
	ErrIndexCorrupt = errors.New("index: store corrupt or unknown schema version")
)

// Store is the process-scoped handle to the sqlite index. Construct once at
// entry via Open and pass by reference; tests construct throwaway instances
// over a temporary directory.
type Store struct {
	db *sql.DB

	// writeMu serializes all mutations within this process. The driver's
	// WAL mode permits concurrent readers while a write transaction is
	// held, so reads never block behind writeMu.
	writeMu sync.Mutex

	cache *cache.Cache
}

const (
	cacheDefaultTTL = 5 * time.Second
	cacheCleanup    = 30 * time.Second

	// maxReadConns bounds the connection pool. WAL mode allows any number of
	// readers to run concurrently with the single in-flight writer, so this
	// is sized for read concurrency, not serialization; writeMu (not the
	// pool) is what limits writers to one at a time.
	maxReadConns = 8
)

// Open opens (creating if absent) the sqlite index at path, applies any
// pending forward-only migrations, and returns a ready Store.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening: %v", ErrIndexCorrupt, err)
	}
	// WAL permits N concurrent readers alongside the single writer writeMu
	// admits; capping the pool at 1 would force reads to queue behind
	// writes, which the concurrency model explicitly rules out.
	db.SetMaxOpenConns(maxReadConns)

	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}

	return &Store{
		db:    db,
		cache: cache.New(cacheDefaultTTL, cacheCleanup),
	}, nil
}

// Close releases the underlying sqlite connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// invalidate drops every cached read result. Called after any mutation
// (sync, rename, move, set_deleted) so the next list()/stats() re-reads
// sqlite rather than serving stale cached rows.
func (s *Store) invalidate() {
	s.cache.Flush()
}

// withWriteTx runs fn inside a single write transaction, serialized by
// writeMu, committing on success and rolling back on error or panic.
func (s *Store) withWriteTx(ctx context.Context, fn func(*sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return nil
}

// Stats summarizes the current index for diagnostics.
type Stats struct {
	FileCount    int
	MessageCount int
	DeletedCount int
	LastSyncAt   time.Time
	LastSyncMs   int64
}

// Stats returns row counts and last-sync timing. Cached for cacheDefaultTTL.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if v, ok := s.cache.Get("stats"); ok {
		return v.(Stats), nil
	}

	var st Stats
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(is_deleted), 0) FROM files`)
	if err := row.Scan(&st.FileCount, &st.DeletedCount); err != nil {
		return Stats{}, fmt.Errorf("querying file stats: %w", err)
	}

	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`)
	if err := row.Scan(&st.MessageCount); err != nil {
		return Stats{}, fmt.Errorf("querying message stats: %w", err)
	}

	if v, ok := s.readSetting(ctx, settingLastSyncAt); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			st.LastSyncAt = t
		}
	}
	if v, ok := s.readSetting(ctx, settingLastSyncMs); ok {
		_, _ = fmt.Sscanf(v, "%d", &st.LastSyncMs)
	}

	s.cache.SetDefault("stats", st)
	return st, nil
}

const (
	settingSchemaVersion = "schema_version"
	settingLastSyncAt    = "last_sync_at"
	settingLastSyncMs    = "last_sync_ms"
)

func (s *Store) readSetting(ctx context.Context, key string) (string, bool) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Warn(log.CatIndex, "reading setting failed", "key", key, "error", err.Error())
		}
		return "", false
	}
	return v, true
}

func writeSetting(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

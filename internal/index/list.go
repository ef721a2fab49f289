package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ListOptions filters and shapes a List call.
type ListOptions struct {
	// IncludeDeleted, when true, includes soft-deleted sessions in the
	// result, sorted after live rows within the same key bucket. The zero
	// value (false) excludes soft-deleted sessions.
	IncludeDeleted bool
	// ProjectPath, when non-empty, restricts results to sessions whose
	// WorkingDirectory equals this value.
	ProjectPath string
}

// List returns sessions ordered by LastAccessedAt descending.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Session, error) {
	cacheKey := fmt.Sprintf("list:%t:%s", opts.IncludeDeleted, opts.ProjectPath)
	if v, ok := s.cache.Get(cacheKey); ok {
		return v.([]Session), nil
	}

	query := `SELECT` + sessionColumns + ` ` + sessionFromJoin
	var args []any
	var where []string

	if !opts.IncludeDeleted {
		where = append(where, "f.is_deleted = 0")
	}
	if opts.ProjectPath != "" {
		where = append(where, "f.working_directory = ?")
		args = append(args, opts.ProjectPath)
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	// is_deleted ASC so that within an equal last_accessed_at bucket, live
	// rows (0) sort before deleted rows (1).
	query += ` ORDER BY f.last_accessed_at DESC, f.is_deleted ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}

	s.cache.SetDefault(cacheKey, sessions)
	return sessions, nil
}

// Get returns a single session by id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, sessionID string) (Session, error) {
	query := `SELECT` + sessionColumns + ` ` + sessionFromJoin + ` WHERE f.session_id = ?`
	row := s.db.QueryRowContext(ctx, query, sessionID)
	sess, err := scanSession(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return Session{}, fmt.Errorf("getting session %s: %w", sessionID, err)
	}
	return sess, nil
}

package index

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Rename upserts a title override for sessionID. An empty title clears the
// override rather than storing an empty string, restoring the algorithmic
// title on the next read.
func (s *Store) Rename(ctx context.Context, sessionID, title string) error {
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if title == "" {
			_, err := tx.Exec(`DELETE FROM titles WHERE session_id = ?`, sessionID)
			return err
		}
		_, err := tx.Exec(`
			INSERT INTO titles (session_id, title, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at
		`, sessionID, title, time.Now())
		return err
	})
	if err != nil {
		return fmt.Errorf("renaming session %s: %w", sessionID, err)
	}
	s.invalidate()
	return nil
}

// Move updates the encoded_path/working_directory/file_path on sessionID's
// files row. The physical file relocation is performed by the caller (the
// session service) before this is invoked; Move only re-keys the index.
func (s *Store) Move(ctx context.Context, sessionID, newEncodedPath, newWorkingDirectory, newFilePath string) error {
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE files SET encoded_path = ?, working_directory = ?, file_path = ?
			WHERE session_id = ?
		`, newEncodedPath, newWorkingDirectory, newFilePath, sessionID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("moving session %s: %w", sessionID, err)
	}
	s.invalidate()
	return nil
}

// SetDeleted sets or clears the is_deleted flag and deleted_at timestamp.
// The row and its messages are never hard-deleted from the index.
func (s *Store) SetDeleted(ctx context.Context, sessionID string, deleted bool) error {
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		var res sql.Result
		var err error
		if deleted {
			res, err = tx.Exec(`UPDATE files SET is_deleted = 1, deleted_at = ? WHERE session_id = ?`, time.Now(), sessionID)
		} else {
			res, err = tx.Exec(`UPDATE files SET is_deleted = 0, deleted_at = NULL WHERE session_id = ?`, sessionID)
		}
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("setting deleted flag on session %s: %w", sessionID, err)
	}
	s.invalidate()
	return nil
}

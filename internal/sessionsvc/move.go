package sessionsvc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zjrosen/transcriptdex/internal/index"
	"github.com/zjrosen/transcriptdex/internal/pathcodec"
)

// MoveSession relocates a session's JSONL file to newWorkingDirectory,
// rewrites the "cwd" field of every line in place, and re-keys the index
// row. All steps either fully succeed or the session is left exactly as it
// was; a failure partway through surfaces as ErrFsConsistency.
func (s *Service) MoveSession(ctx context.Context, id, newWorkingDirectory string) (index.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return index.Session{}, fmt.Errorf("locating session %s: %w", id, err)
	}

	newEncoded := pathcodec.Encode(newWorkingDirectory)
	targetDir := filepath.Join(s.root, "projects", newEncoded)
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return index.Session{}, fmt.Errorf("%w: creating target directory: %v", ErrFsConsistency, err)
	}

	newPath := filepath.Join(targetDir, id+".jsonl")

	if err := moveFile(sess.FilePath, newPath); err != nil {
		return index.Session{}, fmt.Errorf("%w: moving session file: %v", ErrFsConsistency, err)
	}

	if err := rewriteCwd(newPath, newWorkingDirectory); err != nil {
		return index.Session{}, fmt.Errorf("%w: rewriting cwd field: %v", ErrFsConsistency, err)
	}

	if err := s.store.Move(ctx, id, newEncoded, newWorkingDirectory, newPath); err != nil {
		return index.Session{}, fmt.Errorf("updating index after move: %w", err)
	}

	return s.store.Get(ctx, id)
}

// moveFile relocates src to dst. Same-filesystem moves use a plain rename;
// cross-device moves (EXDEV) fall back to copy, fsync, then unlink the
// source, with a sentinel file marking the copy in progress so a crash
// mid-copy is detectable and the stale sentinel/partial file can be cleaned
// up rather than mistaken for a complete destination.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return err
	}

	sentinel := dst + ".transcriptdex-move-inprogress"
	if err := os.WriteFile(sentinel, nil, 0600); err != nil {
		return fmt.Errorf("writing move sentinel: %w", err)
	}
	defer func() { _ = os.Remove(sentinel) }()

	if err := copyFileFsync(src, dst); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if err := os.Remove(src); err != nil {
		return fmt.Errorf("removing source after copy: %w", err)
	}
	return nil
}

func copyFileFsync(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: src is the session's own indexed file_path
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copying: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("fsyncing destination: %w", err)
	}
	return out.Close()
}

// rewriteCwd rewrites the "cwd" field of every decodable line in path to
// newCwd, writing to a sibling temp file and renaming over the original —
// required because the append-only format gives no other way to edit an
// existing line in place. Lines that fail to decode are copied through
// unchanged rather than dropped.
func rewriteCwd(path, newCwd string) error {
	in, err := os.Open(path) //nolint:gosec // G304: path is the session's own indexed file_path
	if err != nil {
		return fmt.Errorf("opening for rewrite: %w", err)
	}
	defer func() { _ = in.Close() }()

	tmpPath := path + ".transcriptdex-rewrite-tmp"
	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating rewrite temp file: %w", err)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	writer := bufio.NewWriter(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		rewritten, ok := setCwdField(line, newCwd)
		if !ok {
			rewritten = line
		}
		if _, err := writer.Write(rewritten); err != nil {
			_ = out.Close()
			_ = os.Remove(tmpPath)
			return fmt.Errorf("writing rewritten line: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			_ = out.Close()
			_ = os.Remove(tmpPath)
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("scanning for rewrite: %w", err)
	}

	if err := writer.Flush(); err != nil {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("flushing rewrite: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("fsyncing rewrite: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming rewrite temp file into place: %w", err)
	}
	return nil
}

func setCwdField(line []byte, newCwd string) ([]byte, bool) {
	if len(line) == 0 {
		return line, false
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return line, false
	}
	if _, ok := raw["cwd"]; !ok {
		return line, true
	}
	encoded, err := json.Marshal(newCwd)
	if err != nil {
		return line, false
	}
	raw["cwd"] = encoded

	out, err := json.Marshal(raw)
	if err != nil {
		return line, false
	}
	return out, true
}

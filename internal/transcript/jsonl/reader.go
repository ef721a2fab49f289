// Package jsonl implements the lenient line-delimited decoder for session
// transcript files: each line is parsed independently, malformed lines are
// skipped rather than fatal, and a deterministic Metadata summary is derived
// from the decoded sequence as it is read.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zjrosen/transcriptdex/internal/log"
	"github.com/zjrosen/transcriptdex/internal/transcript"
)

// maxLineSize bounds a single transcript line; tool output and large content
// blocks can be sizeable, so the cap sits well past the bufio default. A
// longer line is skipped and counted as a warning.
const maxLineSize = 10 * 1024 * 1024

// ErrTruncated is returned by ReadFile and ReadFileIncremental when the reader stopped
// at a non-final byte offset because the last line on disk was incomplete.
// It is not a failure: callers re-read from the returned offset once the
// producer has appended the rest of the line.
var ErrTruncated = errors.New("jsonl: trailing line truncated")

// Result bundles the decoded messages with their derived metadata summary.
type Result struct {
	Messages []transcript.Message
	Metadata transcript.Metadata
	// Offset is the byte offset immediately after the last complete line
	// consumed. A caller doing incremental reads passes this back in on the
	// next call.
	Offset int64
	// Warnings counts lines that failed to decode and were skipped.
	Warnings int
}

// ReadFile reads an entire session transcript from path. A missing file is
// not an error: it yields an empty Result, matching the producer's own
// tolerance for not-yet-created session files.
func ReadFile(path string) (Result, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is scanner-derived, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("opening transcript: %w", err)
	}
	defer func() { _ = f.Close() }()

	return read(f, 0)
}

// ReadFileIncremental reads only the lines appended since offset, matching
// the producer's append-only write discipline: the core never rewrites
// existing bytes except via the session-move rewrite path. A final
// incomplete line (no trailing newline yet, because the producer is still
// writing it) is not consumed and is signaled via ErrTruncated; the caller
// should retry later with the same offset.
func ReadFileIncremental(path string, offset int64) (Result, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is scanner-derived, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Offset: offset}, nil
		}
		return Result{}, fmt.Errorf("opening transcript: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return Result{}, fmt.Errorf("seeking transcript: %w", err)
	}

	return read(f, offset)
}

// read consumes complete newline-terminated lines from f, starting at
// startOffset. Unlike bufio.Scanner, which silently yields a final
// unterminated chunk as though it were a complete token, this uses
// bufio.Reader.ReadBytes so a trailing partial line — the producer still
// mid-write on it — can be detected and left unconsumed rather than parsed
// or counted as a skipped line.
func read(f *os.File, startOffset int64) (Result, error) {
	r := bufio.NewReaderSize(f, 64*1024)

	var (
		messages []transcript.Message
		warnings int
		offset   = startOffset
		truncated bool
	)

	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return Result{}, fmt.Errorf("reading transcript: %w", err)
			}
			if len(line) > 0 {
				// EOF reached mid-line: the producer has not yet written the
				// terminating newline. Leave this line unconsumed.
				truncated = true
			}
			break
		}

		if len(line) > maxLineSize {
			log.Warn(log.CatScanner, "transcript line exceeded max size, skipping")
			warnings++
			offset += int64(len(line))
			continue
		}

		trimmed := bytes.TrimRight(line, "\n")
		offset += int64(len(line))

		if len(trimmed) == 0 {
			continue
		}

		var m transcript.Message
		if jerr := json.Unmarshal(trimmed, &m); jerr != nil {
			log.Warn(log.CatScanner, "skipping malformed transcript line", "error", jerr.Error())
			warnings++
			continue
		}
		m.TextBody = m.Content.ExtractText()
		messages = append(messages, m)
	}

	res := Result{
		Messages: messages,
		Metadata: deriveMetadata(messages),
		Offset:   offset,
		Warnings: warnings,
	}
	if truncated {
		return res, ErrTruncated
	}
	return res, nil
}

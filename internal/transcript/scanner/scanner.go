// Package scanner enumerates project directories under a configured root
// and pairs each session JSONL file with its filesystem stat, feeding the
// jsonl reader. Unreadable directories or files are logged and skipped,
// never fatal to the overall walk.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zjrosen/transcriptdex/internal/log"
)

// Entry describes one discovered session file before it has been parsed.
type Entry struct {
	SessionID   string
	EncodedDir  string
	AbsolutePath string
	Info        fs.FileInfo
}

// Scan walks <root>/projects/, yielding one Entry per "<session-id>.jsonl"
// file found in each immediate child (encoded project) directory. A missing
// or empty projects root is not an error: it yields an empty slice.
func Scan(root string) ([]Entry, error) {
	projectsDir := filepath.Join(root, "projects")

	dirEntries, err := os.ReadDir(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		log.Warn(log.CatScanner, "cannot read projects root", "path", projectsDir, "error", err.Error())
		return []Entry{}, nil
	}

	var entries []Entry
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		encodedDir := de.Name()
		projectPath := filepath.Join(projectsDir, encodedDir)

		files, err := os.ReadDir(projectPath)
		if err != nil {
			log.Warn(log.CatScanner, "cannot read project directory", "path", projectPath, "error", err.Error())
			continue
		}

		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".jsonl") {
				continue
			}
			sessionID := strings.TrimSuffix(f.Name(), ".jsonl")
			absPath := filepath.Join(projectPath, f.Name())

			info, err := f.Info()
			if err != nil {
				log.Warn(log.CatScanner, "cannot stat session file", "path", absPath, "error", err.Error())
				continue
			}

			entries = append(entries, Entry{
				SessionID:    sessionID,
				EncodedDir:   encodedDir,
				AbsolutePath: absPath,
				Info:         info,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].EncodedDir != entries[j].EncodedDir {
			return entries[i].EncodedDir < entries[j].EncodedDir
		}
		return entries[i].SessionID < entries[j].SessionID
	})

	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// ListProjectDirs returns the sorted list of encoded project directory names
// under <root>/projects/, analogous to ListAllApplications but generalized
// from a per-application sessions.json gate to "any directory present".
func ListProjectDirs(root string) ([]string, error) {
	projectsDir := filepath.Join(root, "projects")

	dirEntries, err := os.ReadDir(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var dirs []string
	for _, de := range dirEntries {
		if de.IsDir() {
			dirs = append(dirs, de.Name())
		}
	}
	sort.Strings(dirs)

	if dirs == nil {
		dirs = []string{}
	}
	return dirs, nil
}

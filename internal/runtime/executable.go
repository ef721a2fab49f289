package runtime

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zjrosen/transcriptdex/internal/log"
)

// ErrExecutableNotFound is returned when the resumable binary cannot be
// located in known paths or PATH.
var ErrExecutableNotFound = errors.New("runtime: executable not found")

// ExecutableFinder locates the child binary a managed session spawns,
// checking an environment variable override first, then known install
// paths in priority order, and finally falling back to PATH lookup.
type ExecutableFinder struct {
	execName    string
	knownPaths  []string
	envOverride string
	goos        string

	statFn     func(string) (os.FileInfo, error)
	lookPathFn func(string) (string, error)
	userHomeFn func() (string, error)
}

// NewExecutableFinder constructs a finder for execName (e.g. "claude").
func NewExecutableFinder(execName, envOverride string, knownPaths ...string) *ExecutableFinder {
	return &ExecutableFinder{
		execName:    execName,
		envOverride: envOverride,
		knownPaths:  knownPaths,
		goos:        runtime.GOOS,
		statFn:      os.Stat,
		lookPathFn:  exec.LookPath,
		userHomeFn:  os.UserHomeDir,
	}
}

// Find resolves the executable path in priority order: env override, known
// paths, PATH.
func (f *ExecutableFinder) Find() (string, error) {
	var checked []string

	if f.envOverride != "" {
		if envPath := os.Getenv(f.envOverride); envPath != "" {
			checked = append(checked, envPath+" (from $"+f.envOverride+")")
			if f.isValidExecutable(envPath) {
				log.Debug(log.CatRuntime, "found executable via env override", "name", f.execName, "path", envPath)
				return envPath, nil
			}
		}
	}

	for _, template := range f.knownPaths {
		path, err := f.expandPath(template)
		if err != nil {
			continue
		}
		checked = append(checked, path)
		if f.isValidExecutable(path) {
			log.Debug(log.CatRuntime, "found executable in known path", "name", f.execName, "path", path)
			return path, nil
		}
	}

	path, err := f.lookPathFn(f.platformExecName())
	if err == nil {
		log.Debug(log.CatRuntime, "found executable via PATH", "name", f.execName, "path", path)
		return path, nil
	}

	pathDesc := "PATH"
	if len(checked) > 0 {
		pathDesc = strings.Join(checked, ", ") + ", PATH"
	}
	return "", fmt.Errorf("%w: %s not found in %s", ErrExecutableNotFound, f.execName, pathDesc)
}

func (f *ExecutableFinder) platformExecName() string {
	if f.goos == "windows" {
		return f.execName + ".exe"
	}
	return f.execName
}

func (f *ExecutableFinder) expandPath(template string) (string, error) {
	path := strings.ReplaceAll(template, "{name}", f.platformExecName())

	if strings.HasPrefix(path, "~") {
		home, err := f.userHomeFn()
		if err != nil {
			return "", fmt.Errorf("cannot expand ~: %w", err)
		}
		path = home + path[1:]
	}

	path = os.ExpandEnv(path)
	return filepath.Clean(path), nil
}

func (f *ExecutableFinder) isValidExecutable(path string) bool {
	info, err := f.statFn(path)
	if err != nil || info.IsDir() {
		return false
	}
	if f.goos == "windows" {
		return strings.HasSuffix(strings.ToLower(info.Name()), ".exe")
	}
	return info.Mode().Perm()&0111 != 0
}

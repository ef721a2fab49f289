package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"

	"github.com/zjrosen/transcriptdex/internal/log"
)

// ErrUnknownSession is returned by operations targeting a session_id with
// no registry entry.
var ErrUnknownSession = errors.New("runtime: unknown session")

// Registry is the process-wide table of managed sessions, keyed by
// session_id. There is at most one child process per session_id in the
// entire process: two concurrent Attach calls for the same id observe the
// same entry, and only the first spawns.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*managedSession
	finder    *ExecutableFinder
	resumeArg string
}

// NewRegistry constructs a Registry that spawns finder's resolved binary,
// passing resumeArg before the session_id (e.g. "--resume") to resume a
// prior session rather than start a new one.
func NewRegistry(finder *ExecutableFinder, resumeArg string) *Registry {
	return &Registry{
		sessions:  make(map[string]*managedSession),
		finder:    finder,
		resumeArg: resumeArg,
	}
}

// Attach looks up or creates the entry for sessionID, spawning its child if
// currently Detached, then registers clientID as a listener. The returned
// snapshot must be delivered to the client before any event from the
// returned channel.
func (r *Registry) Attach(ctx context.Context, sessionID, workingDirectory, clientID string) (snapshot []byte, events <-chan Event, err error) {
	entry := r.getOrCreate(sessionID, workingDirectory)

	if err := entry.ensureSpawned(ctx); err != nil {
		return nil, nil, err
	}

	snapshot, events = entry.attach(clientID)
	return snapshot, events, nil
}

// Detach removes clientID from sessionID's listener set.
func (r *Registry) Detach(sessionID, clientID string) {
	r.mu.Lock()
	entry, ok := r.sessions[sessionID]
	r.mu.Unlock()
	if !ok {
		return
	}
	entry.detach(clientID)
}

// SendInput writes bytes through to sessionID's child stdin.
func (r *Registry) SendInput(sessionID string, data []byte) error {
	entry, err := r.lookup(sessionID)
	if err != nil {
		return err
	}
	return entry.sendInput(data)
}

// Resize forwards a terminal size change to sessionID's PTY.
func (r *Registry) Resize(sessionID string, cols, rows int) error {
	entry, err := r.lookup(sessionID)
	if err != nil {
		return err
	}
	return entry.resize(cols, rows)
}

// Status reports sessionID's current lifecycle state and, if Exited, its
// exit code.
func (r *Registry) Status(sessionID string) (State, int, error) {
	entry, err := r.lookup(sessionID)
	if err != nil {
		return StateDetached, 0, err
	}
	state, code := entry.status()
	return state, code, nil
}

// Fingerprint reports sessionID's current scrollback fingerprint.
func (r *Registry) Fingerprint(sessionID string) (uint64, error) {
	entry, err := r.lookup(sessionID)
	if err != nil {
		return 0, err
	}
	return entry.fingerprint(), nil
}

func (r *Registry) lookup(sessionID string) (*managedSession, error) {
	r.mu.Lock()
	entry, ok := r.sessions[sessionID]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return entry, nil
}

// getOrCreate returns the existing entry for sessionID or creates and
// registers a new Detached one. Holding r.mu for the whole check-then-set
// is what guarantees the single-steward discipline: two goroutines calling
// Attach concurrently for the same id can never both observe "not present".
func (r *Registry) getOrCreate(sessionID, workingDirectory string) *managedSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.sessions[sessionID]; ok {
		return entry
	}

	entry := newManagedSession(sessionID, workingDirectory, r.spawn, r.forget)
	r.sessions[sessionID] = entry
	return entry
}

func (r *Registry) forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

func (r *Registry) spawn(ctx context.Context, sessionID, workingDirectory string) (*os.File, *exec.Cmd, error) {
	binPath, err := r.finder.Find()
	if err != nil {
		return nil, nil, fmt.Errorf("locating executable: %w", err)
	}

	var args []string
	if r.resumeArg != "" {
		args = append(args, r.resumeArg, sessionID)
	}

	cmd := exec.CommandContext(ctx, binPath, args...)
	cmd.Dir = workingDirectory

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("starting pty: %w", err)
	}

	log.Info(log.CatRuntime, "spawned managed session", "session_id", sessionID, "pid", cmd.Process.Pid, "working_directory", workingDirectory)

	return ptmx, cmd, nil
}

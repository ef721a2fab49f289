package runtime

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"

	"github.com/zjrosen/transcriptdex/internal/log"
)

// interruptByte is the byte a terminal sends its foreground process group
// on Ctrl-C; forwarding it through to the PTY reproduces SIGINT for the
// child without the host process handling the signal itself.
const interruptByte = 0x03

// spawnFn launches the resumable child for sessionID rooted at
// workingDirectory, returning its PTY master. Overridable in tests.
type spawnFn func(ctx context.Context, sessionID, workingDirectory string) (*os.File, *exec.Cmd, error)

// managedSession is one registry entry: a child process, its scrollback,
// and the set of attached clients. State transitions are serialized by mu
// so two concurrent attach calls for the same session_id observe the same
// entry and only one ever spawns.
type managedSession struct {
	mu sync.Mutex

	// handoffMu serializes the scrollback-append+broadcast pair in pump
	// against the snapshot+register pair in attach, so a chunk read from the
	// PTY is never interleaved between a new client's Snapshot() and Add():
	// either it lands in the snapshot, or the client is already registered
	// to receive it live, never both or neither.
	handoffMu sync.Mutex

	sessionID        string
	workingDirectory string

	state    State
	exitCode int

	pty *os.File
	cmd *exec.Cmd

	scroll  *scrollback
	clients *clientSet

	spawn    spawnFn
	release  func()
	onExited func(sessionID string)
}

func newManagedSession(sessionID, workingDirectory string, spawn spawnFn, onExited func(string)) *managedSession {
	return &managedSession{
		sessionID:        sessionID,
		workingDirectory: workingDirectory,
		state:            StateDetached,
		scroll:           newScrollback(defaultScrollbackBytes),
		clients:          newClientSet(),
		spawn:            spawn,
		onExited:         onExited,
	}
}

// ensureSpawned transitions Detached -> Spawning -> Active, launching the
// child exactly once.
func (m *managedSession) ensureSpawned(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateDetached {
		m.mu.Unlock()
		return nil
	}
	m.state = StateSpawning
	m.mu.Unlock()

	handle, cmd, err := m.spawn(ctx, m.sessionID, m.workingDirectory)
	if err != nil {
		m.mu.Lock()
		m.state = StateDetached
		m.mu.Unlock()
		return fmt.Errorf("spawning session %s: %w", m.sessionID, err)
	}

	m.mu.Lock()
	m.pty = handle
	m.cmd = cmd
	m.state = StateActive
	m.release = claimSignals(m.forwardSignal)
	m.mu.Unlock()

	go m.pump()
	go m.wait()

	return nil
}

// forwardSignal writes the interrupt byte through to the PTY instead of
// letting the host's default handler terminate the host.
func (m *managedSession) forwardSignal(os.Signal) {
	m.mu.Lock()
	h := m.pty
	active := m.state == StateActive
	m.mu.Unlock()
	if active && h != nil {
		_, _ = h.Write([]byte{interruptByte})
	}
}

func (m *managedSession) pump() {
	buf := make([]byte, 4096)
	for {
		n, err := m.pty.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])

			m.handoffMu.Lock()
			m.scroll.Append(data)
			m.clients.Broadcast(Event{Type: EventOutput, SessionID: m.sessionID, Data: data})
			m.handoffMu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (m *managedSession) wait() {
	err := m.cmd.Wait()
	code := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}

	m.mu.Lock()
	m.state = StateExited
	m.exitCode = code
	if m.release != nil {
		m.release()
		m.release = nil
	}
	m.mu.Unlock()

	log.Info(log.CatRuntime, "managed session exited", "session_id", m.sessionID, "exit_code", code, "state", exitedLabel(code))

	m.clients.Broadcast(Event{Type: EventExit, SessionID: m.sessionID, ExitCode: code})

	if m.clients.Len() == 0 && m.onExited != nil {
		m.onExited(m.sessionID)
	}
}

// attach registers a new client, delivering an atomic scrollback snapshot
// immediately followed by the live stream: the snapshot is taken and the
// client wired into the broadcast set back to back, so no byte read from
// the PTY after this call can be missed and none already in scrollback can
// be duplicated on the live channel.
func (m *managedSession) attach(clientID string) (snapshot []byte, events <-chan Event) {
	m.handoffMu.Lock()
	defer m.handoffMu.Unlock()
	snapshot = m.scroll.Snapshot()
	events = m.clients.Add(clientID)
	return snapshot, events
}

func (m *managedSession) detach(clientID string) {
	m.clients.Remove(clientID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clients.Len() == 0 && m.state == StateExited && m.onExited != nil {
		m.onExited(m.sessionID)
	}
}

// sendInput writes through to the child's stdin iff Active; otherwise the
// bytes are silently dropped.
func (m *managedSession) sendInput(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateActive {
		return nil
	}
	_, err := m.pty.Write(data)
	return err
}

// resize forwards a terminal size change to the PTY.
func (m *managedSession) resize(cols, rows int) error {
	m.mu.Lock()
	h := m.pty
	active := m.state == StateActive
	m.mu.Unlock()
	if !active || h == nil {
		return nil
	}
	return pty.Setsize(h, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
}

func (m *managedSession) status() (State, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.exitCode
}

// fingerprint reports the current scrollback fingerprint for the resume
// handshake described in the control-message transport.
func (m *managedSession) fingerprint() uint64 {
	return m.scroll.Fingerprint()
}

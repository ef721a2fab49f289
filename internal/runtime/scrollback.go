package runtime

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// defaultScrollbackBytes is the FIFO scrollback cap: once exceeded, the
// oldest bytes are dropped to make room for new ones.
const defaultScrollbackBytes = 1 << 20 // 1 MiB

// scrollback is a bounded FIFO byte buffer. Callers needing an atomic
// snapshot-then-live handoff (see managedSession.handoffMu) must hold their
// own lock around Snapshot and the client registration that follows it;
// scrollback's own mutex only protects the buffer itself.
type scrollback struct {
	mu  sync.Mutex
	buf []byte
	cap int
}

func newScrollback(capBytes int) *scrollback {
	if capBytes <= 0 {
		capBytes = defaultScrollbackBytes
	}
	return &scrollback{cap: capBytes}
}

// Append adds data to the buffer, trimming the oldest bytes if it would
// exceed cap.
func (s *scrollback) Append(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf = append(s.buf, data...)
	if overflow := len(s.buf) - s.cap; overflow > 0 {
		s.buf = s.buf[overflow:]
	}
}

// Snapshot returns a copy of the current buffer contents.
func (s *scrollback) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out
}

// Fingerprint hashes the current buffer contents so a reconnecting client
// can ask "do you still have the scrollback I last saw" without shipping
// the whole snapshot to compare.
func (s *scrollback) Fingerprint() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return xxhash.Sum64(s.buf)
}

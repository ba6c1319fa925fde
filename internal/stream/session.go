package stream

import (
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
)

// State is the connection status of one tailing session.
type State string

// Session states. "reconnecting" reports a transport-level failure the dial
// loop will retry; "error" reports an application-level error event from the
// server while the connection may still be open.
const (
	StateConnecting   State = "connecting"
	StateStreaming    State = "streaming"
	StateReconnecting State = "reconnecting"
	StateError        State = "error"
	StatePaused       State = "paused"
)

// DefaultBufferLimit caps the retained tail at the same size the service's
// web terminal uses.
const DefaultBufferLimit = 300000

// Session holds the live state of one tailing connection: the target file,
// the requested initial line count, the connection state, and the bounded
// append-only buffer. The buffer never exceeds the configured limit; eviction
// is prefix-truncation only.
type Session struct {
	mu sync.Mutex

	id     string
	file   string
	lines  int
	limit  int
	state  State
	status string
	buffer string
}

// Snapshot is a read-only copy of session state for display.
type Snapshot struct {
	ID     string
	File   string
	Lines  int
	State  State
	Status string
	Buffer string
}

// NewSession creates a session for the given target. A non-positive limit
// falls back to DefaultBufferLimit.
func NewSession(file string, lines int, limit int) *Session {
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	return &Session{
		id:     uuid.New().String(),
		file:   file,
		lines:  lines,
		limit:  limit,
		state:  StateConnecting,
		status: "connecting",
	}
}

// Apply folds one server-push event into the session, in arrival order.
// init and reset replace the buffer wholesale and reconcile the tracked file
// with the server's; append concatenates non-empty payloads; error records
// the error status without touching the buffer.
func (s *Session) Apply(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case EventInit, EventReset:
		s.buffer = clamp(ev.Content, s.limit)
		if ev.File != "" && ev.File != s.file {
			s.file = ev.File
		}
	case EventAppend:
		if ev.Content == "" {
			return
		}
		s.buffer = clamp(s.buffer+ev.Content, s.limit)
	case EventError:
		message := ev.Message
		if message == "" {
			message = "stream error"
		}
		s.state = StateError
		s.status = "error: " + message
	case EventPing:
	}
}

// setState records a transport-level state change.
func (s *Session) setState(state State, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.status = status
}

// Connected reports whether the session is actively streaming.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateStreaming
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:     s.id,
		File:   s.file,
		Lines:  s.lines,
		State:  s.state,
		Status: s.status,
		Buffer: s.buffer,
	}
}

// clamp retains the trailing suffix of text that fits the limit. The cut is
// advanced past any UTF-8 continuation bytes so truncation never leaves a
// broken leading rune.
func clamp(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := len(text) - limit
	for cut < len(text) && !utf8.RuneStart(text[cut]) {
		cut++
	}
	return text[cut:]
}

package stream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"yumeadmin/internal/logger"
)

// DefaultRedialDelay is the pause between reconnect attempts after a
// transport-level failure, standing in for EventSource's built-in retry.
const DefaultRedialDelay = 3 * time.Second

// URLBuilder renders the server-push endpoint URL for a target file and
// initial line count.
type URLBuilder func(file string, lines int) string

// Manager owns one log-tailing session and its connection lifecycle:
// dial, read, reconnect on transport failure, and unconditional teardown.
// At most one live connection exists at a time; changing the target tears the
// old connection down before establishing the new one.
type Manager struct {
	mu sync.Mutex

	// lifecycle serializes every teardown-then-dial sequence. Without it two
	// concurrent restarts could each observe the other's teardown as already
	// done and both register a connection, orphaning one of them.
	lifecycle sync.Mutex

	initialized bool
	client      *http.Client
	urlFor      URLBuilder
	redialDelay time.Duration
	bufferLimit int
	log         *log.Logger

	enabled bool
	file    string
	lines   int
	session *Session
	cancel  context.CancelFunc
	done    chan struct{}
	sink    func(Event)
}

// NewManager creates a stream manager. Non-positive delays and limits fall
// back to the package defaults.
func NewManager(urlFor URLBuilder, redialDelay time.Duration, bufferLimit int) *Manager {
	if redialDelay <= 0 {
		redialDelay = DefaultRedialDelay
	}
	if bufferLimit <= 0 {
		bufferLimit = DefaultBufferLimit
	}
	return &Manager{
		urlFor:      urlFor,
		redialDelay: redialDelay,
		bufferLimit: bufferLimit,
	}
}

// Name returns the service name "log_stream" for registration.
func (m *Manager) Name() string {
	return "log_stream"
}

// Initialize sets up the manager for operation. The stream's HTTP client
// carries no timeout: the connection is long-lived and liveness is inferred
// from transport open/error signals only.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.client = &http.Client{}
	m.log = logger.NewStyledLogger("LogStream")
	m.initialized = true
	return nil
}

// SetSink registers a callback invoked after each applied event. The callback
// runs on the connection goroutine and must not block.
func (m *Manager) SetSink(sink func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
}

// Start enables streaming for the given target and dials the connection.
func (m *Manager) Start(file string, lines int) error {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return fmt.Errorf("log stream service not initialized")
	}
	m.enabled = true
	m.file = file
	m.lines = lines
	m.mu.Unlock()

	m.restart()
	return nil
}

// SetTarget switches the tailed file or initial line count. While enabled,
// the prior connection is torn down before the new one is dialed; while
// paused, only the recorded target changes.
func (m *Manager) SetTarget(file string, lines int) {
	m.mu.Lock()
	if file == m.file && lines == m.lines {
		m.mu.Unlock()
		return
	}
	m.file = file
	m.lines = lines
	enabled := m.enabled
	m.mu.Unlock()

	if enabled {
		m.restart()
	}
}

// Pause suspends streaming and releases the connection.
func (m *Manager) Pause() {
	m.mu.Lock()
	m.enabled = false
	sess := m.session
	m.mu.Unlock()

	m.teardown()
	if sess != nil {
		sess.setState(StatePaused, "paused")
	}
}

// Resume re-enables streaming for the recorded target.
func (m *Manager) Resume() {
	m.mu.Lock()
	m.enabled = true
	m.mu.Unlock()
	m.restart()
}

// Close is the unconditional teardown, to be called even when the manager is
// being discarded mid-operation.
func (m *Manager) Close() {
	m.mu.Lock()
	m.enabled = false
	m.mu.Unlock()
	m.teardown()
}

// Snapshot returns the current session state for display. Before the first
// Start it reports a paused, empty session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	sess := m.session
	file, lines := m.file, m.lines
	m.mu.Unlock()

	if sess == nil {
		return Snapshot{File: file, Lines: lines, State: StatePaused, Status: "paused"}
	}
	return sess.Snapshot()
}

// restart tears down any live connection and, if enabled, starts a fresh
// session for the current target. The lifecycle lock is held across both
// halves so at most one connection can ever be registered.
func (m *Manager) restart() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.stopConnection()

	m.mu.Lock()
	if !m.enabled || !m.initialized {
		m.mu.Unlock()
		return
	}
	sess := NewSession(m.file, m.lines, m.bufferLimit)
	m.session = sess
	target := m.urlFor(m.file, m.lines)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	m.log.Debug("dialing log stream", "file", sess.Snapshot().File, "state", StateConnecting)
	go m.run(ctx, sess, target, done)
}

// teardown cancels the connection goroutine and waits for it to exit.
func (m *Manager) teardown() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.stopConnection()
}

// stopConnection does the actual cancel-and-wait. Callers must hold the
// lifecycle lock.
func (m *Manager) stopConnection() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) run(ctx context.Context, sess *Session, target string, done chan struct{}) {
	defer close(done)

	for {
		err := m.connectOnce(ctx, sess, target)
		if ctx.Err() != nil {
			return
		}

		sess.setState(StateReconnecting, "reconnecting")
		m.log.Warn("log stream disconnected", "error", err, "state", StateReconnecting)

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.redialDelay):
		}
	}
}

func (m *Manager) connectOnce(ctx context.Context, sess *Session, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream status %d", resp.StatusCode)
	}

	sess.setState(StateStreaming, "streaming")
	m.log.Debug("log stream open", "state", StateStreaming)

	reader := newSSEReader(resp.Body)
	for {
		fr, err := reader.next()
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}

		ev := decodeEvent(fr.name, []byte(fr.data))
		sess.Apply(ev)
		if ev.Kind == EventError {
			m.log.Error("log stream error event", "error", ev.Message)
		}

		m.mu.Lock()
		sink := m.sink
		m.mu.Unlock()
		if sink != nil {
			sink(ev)
		}
	}
}

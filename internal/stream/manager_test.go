package stream

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamServer serves a minimal event-stream endpoint that sends one init
// event for the requested file and then holds the connection open until the
// client goes away. It counts connections currently open.
func streamServer(t *testing.T, live *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		live.Add(1)
		defer live.Add(-1)

		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		w.Header().Set("Content-Type", "text/event-stream")
		file := r.URL.Query().Get("file")
		fmt.Fprintf(w, "event: init\ndata: {\"file\":%q,\"content\":\"tail of %s\"}\n\n", file, file)
		flusher.Flush()

		<-r.Context().Done()
	}))
}

func newTestManager(t *testing.T, baseURL string) *Manager {
	t.Helper()
	mgr := NewManager(func(file string, lines int) string {
		return fmt.Sprintf("%s/api/admin/logs/stream?file=%s&lines=%d", baseURL, file, lines)
	}, 50*time.Millisecond, 0)
	require.NoError(t, mgr.Initialize())
	return mgr
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestManager_StartReceivesInit(t *testing.T) {
	var live atomic.Int64
	server := streamServer(t, &live)
	defer server.Close()

	mgr := newTestManager(t, server.URL)
	defer mgr.Close()

	require.NoError(t, mgr.Start("bot.log", 200))
	waitFor(t, func() bool {
		return mgr.Snapshot().Buffer == "tail of bot.log"
	}, "init contents")
	assert.Equal(t, StateStreaming, mgr.Snapshot().State)
}

func TestManager_SetTargetNeverOverlapsConnections(t *testing.T) {
	var live atomic.Int64
	server := streamServer(t, &live)
	defer server.Close()

	mgr := newTestManager(t, server.URL)
	defer mgr.Close()

	require.NoError(t, mgr.Start("a.log", 200))
	waitFor(t, func() bool { return live.Load() == 1 }, "first connection")

	for _, file := range []string{"b.log", "c.log", "d.log"} {
		mgr.SetTarget(file, 200)
		waitFor(t, func() bool {
			return mgr.Snapshot().Buffer == "tail of "+file
		}, "contents of "+file)
		waitFor(t, func() bool { return live.Load() == 1 }, "old handler exit for "+file)
	}
}

func TestManager_ConcurrentTargetSwitchesLeaveNoOrphans(t *testing.T) {
	var live atomic.Int64
	server := streamServer(t, &live)
	defer server.Close()

	mgr := newTestManager(t, server.URL)
	require.NoError(t, mgr.Start("seed.log", 200))

	for round := 0; round < 5; round++ {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(round, i int) {
				defer wg.Done()
				mgr.SetTarget(fmt.Sprintf("r%d-%d.log", round, i), 200)
			}(round, i)
		}
		wg.Wait()
		waitFor(t, func() bool { return live.Load() <= 1 }, fmt.Sprintf("connection convergence in round %d", round))
	}

	mgr.Close()
	waitFor(t, func() bool { return live.Load() == 0 }, "all connections released after close")
}

func TestManager_ConcurrentResumeAndTargetSwitch(t *testing.T) {
	var live atomic.Int64
	server := streamServer(t, &live)
	defer server.Close()

	mgr := newTestManager(t, server.URL)
	require.NoError(t, mgr.Start("a.log", 200))
	waitFor(t, func() bool { return live.Load() == 1 }, "first connection")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mgr.Resume()
			mgr.SetTarget(fmt.Sprintf("b%d.log", i), 200)
		}(i)
	}
	wg.Wait()
	waitFor(t, func() bool { return live.Load() == 1 }, "single surviving connection")

	mgr.Close()
	waitFor(t, func() bool { return live.Load() == 0 }, "release after close")
}

func TestManager_SetTargetSameValuesIsNoOp(t *testing.T) {
	var live atomic.Int64
	server := streamServer(t, &live)
	defer server.Close()

	mgr := newTestManager(t, server.URL)
	defer mgr.Close()

	require.NoError(t, mgr.Start("bot.log", 200))
	waitFor(t, func() bool { return live.Load() == 1 }, "connection")

	before := mgr.Snapshot().ID
	mgr.SetTarget("bot.log", 200)
	assert.Equal(t, before, mgr.Snapshot().ID, "unchanged target must not redial")
}

func TestManager_PauseReleasesConnection(t *testing.T) {
	var live atomic.Int64
	server := streamServer(t, &live)
	defer server.Close()

	mgr := newTestManager(t, server.URL)
	defer mgr.Close()

	require.NoError(t, mgr.Start("bot.log", 200))
	waitFor(t, func() bool { return live.Load() == 1 }, "connection")

	mgr.Pause()
	waitFor(t, func() bool { return live.Load() == 0 }, "connection release")
	assert.Equal(t, StatePaused, mgr.Snapshot().State)
}

func TestManager_PausedTargetChangeDoesNotDial(t *testing.T) {
	var live atomic.Int64
	server := streamServer(t, &live)
	defer server.Close()

	mgr := newTestManager(t, server.URL)
	defer mgr.Close()

	require.NoError(t, mgr.Start("a.log", 200))
	waitFor(t, func() bool { return live.Load() == 1 }, "connection")
	mgr.Pause()
	waitFor(t, func() bool { return live.Load() == 0 }, "release")

	mgr.SetTarget("b.log", 200)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(0), live.Load())

	mgr.Resume()
	waitFor(t, func() bool {
		return mgr.Snapshot().Buffer == "tail of b.log"
	}, "resumed contents")
}

func TestManager_ReconnectsAfterServerDrop(t *testing.T) {
	var dials atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := dials.Add(1)
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		if n == 1 {
			// First connection drops straight away to force a redial.
			fmt.Fprint(w, "event: init\ndata: {\"content\":\"first\"}\n\n")
			flusher.Flush()
			return
		}
		fmt.Fprint(w, "event: init\ndata: {\"content\":\"second\"}\n\n")
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	mgr := newTestManager(t, server.URL)
	defer mgr.Close()

	require.NoError(t, mgr.Start("bot.log", 200))
	waitFor(t, func() bool {
		return mgr.Snapshot().Buffer == "second"
	}, "reconnected contents")
	assert.GreaterOrEqual(t, dials.Load(), int64(2))
}

func TestManager_SinkObservesEvents(t *testing.T) {
	var live atomic.Int64
	server := streamServer(t, &live)
	defer server.Close()

	mgr := newTestManager(t, server.URL)
	defer mgr.Close()

	var seen atomic.Int64
	mgr.SetSink(func(ev Event) {
		if ev.Kind == EventInit {
			seen.Add(1)
		}
	})

	require.NoError(t, mgr.Start("bot.log", 200))
	waitFor(t, func() bool { return seen.Load() >= 1 }, "sink delivery")
}

func TestManager_StartBeforeInitializeFails(t *testing.T) {
	mgr := NewManager(func(string, int) string { return "" }, 0, 0)
	err := mgr.Start("bot.log", 200)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestManager_SnapshotBeforeStart(t *testing.T) {
	mgr := NewManager(func(string, int) string { return "" }, 0, 0)
	require.NoError(t, mgr.Initialize())

	snap := mgr.Snapshot()
	assert.Equal(t, StatePaused, snap.State)
	assert.Empty(t, snap.Buffer)
}

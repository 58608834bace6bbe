package goTutor

import (
	"bytes"
	"context"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goTutor/internal/testserver"
	"github.com/MrEthical07/goTutor/session"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	srv     *testserver.Server
	clock   *testClock
	backend *session.MemoryBackend
	logs    *bytes.Buffer
}

func newHarness(t *testing.T, opts testserver.Options) *harness {
	t.Helper()
	clock := newTestClock()
	if opts.TokenTTL == 0 {
		// Server-side tokens outlive the client policy so tests control expiry.
		opts.TokenTTL = 4 * time.Hour
	}
	opts.Now = clock.Now
	srv, err := testserver.New(opts)
	if err != nil {
		t.Fatalf("testserver: %v", err)
	}
	t.Cleanup(srv.Close)
	return &harness{srv: srv, clock: clock, backend: session.NewMemoryBackend(), logs: &bytes.Buffer{}}
}

func (h *harness) builder() *Builder {
	cfg := DefaultConfig()
	cfg.BaseURL = h.srv.URL
	return New().
		WithConfig(cfg).
		WithBackend(h.backend).
		WithHTTPClient(h.srv.Client()).
		WithClock(h.clock.Now).
		WithLogger(log.New(h.logs, "", 0)).
		WithMetricsEnabled(true)
}

func (h *harness) manager(t *testing.T) *Manager {
	t.Helper()
	m, err := h.builder().Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func (h *harness) loggedIn(t *testing.T) *Manager {
	t.Helper()
	m := h.manager(t)
	if _, err := m.Login(context.Background(), Credentials{Email: "alice@example.com", Password: "password"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	return m
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

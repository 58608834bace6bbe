//go:build integration
// +build integration

package test

import (
	"context"
	"io"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goTutor "github.com/MrEthical07/goTutor"
	"github.com/MrEthical07/goTutor/internal/testserver"
	"github.com/MrEthical07/goTutor/session"
)

// redisMode describes which Redis backend the suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes always includes miniredis. A real standalone Redis is added when
// REDIS_ADDR is set, and a cluster when REDIS_CLUSTER_ADDRS is set (comma-separated).
// Tests use hash-tagged prefixes so all keys of one session share a cluster slot.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}

	if addrs := os.Getenv("REDIS_CLUSTER_ADDRS"); addrs != "" {
		modes = append(modes, redisMode{
			name: "cluster",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClusterClient(&redis.ClusterOptions{Addrs: splitAddrs(addrs)})
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis cluster: %v", err)
				}
				return rdb, func() { _ = rdb.Close() }
			},
		})
	}

	return modes
}

func splitAddrs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newServer(t *testing.T, opts testserver.Options) *testserver.Server {
	t.Helper()
	srv, err := testserver.New(opts)
	if err != nil {
		t.Fatalf("testserver: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

func newManager(t *testing.T, srv *testserver.Server, backend session.Backend, tune func(*goTutor.Config)) *goTutor.Manager {
	t.Helper()
	cfg := goTutor.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Metrics.Enabled = true
	if tune != nil {
		tune(&cfg)
	}
	m, err := goTutor.New().
		WithConfig(cfg).
		WithHTTPClient(srv.Client()).
		WithBackend(backend).
		WithLogger(log.New(io.Discard, "", 0)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func login(t *testing.T, m *goTutor.Manager) {
	t.Helper()
	if _, err := m.Login(context.Background(), goTutor.Credentials{Email: "alice@example.com", Password: "password"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

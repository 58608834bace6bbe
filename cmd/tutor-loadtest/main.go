// Command tutor-loadtest drives many concurrent authenticated requests through session
// managers against the in-process fake backend, with a short renewal policy and
// injected 401s, and reports how many refresh calls actually reached the backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goTutor "github.com/MrEthical07/goTutor"
	"github.com/MrEthical07/goTutor/internal/testserver"
	"github.com/MrEthical07/goTutor/session"
)

func main() {
	var (
		managers    = flag.Int("managers", 8, "number of independent session managers")
		concurrency = flag.Int("concurrency", 64, "request workers per manager")
		ops         = flag.Int("ops", 20000, "requests per manager")
		ttl         = flag.Duration("ttl", 2*time.Second, "client token TTL")
		margin      = flag.Duration("margin", time.Second, "client renewal margin")
		rejectEvery = flag.Int("reject-every", 500, "reject one resource request with 401 every N requests (0 disables)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lt", "session key prefix")
	)
	flag.Parse()

	if *managers <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "managers, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	srv, err := testserver.New(testserver.Options{TokenTTL: time.Hour})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start backend: %v\n", err)
		os.Exit(1)
	}
	defer srv.Close()

	cfg := goTutor.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Refresh.TokenTTL = *ttl
	cfg.Refresh.RenewMargin = *margin
	cfg.Refresh.CheckInterval = *margin / 2
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	quiet := log.New(io.Discard, "", 0)
	ms := make([]*goTutor.Manager, *managers)
	for i := range ms {
		m, err := goTutor.New().
			WithConfig(cfg).
			WithHTTPClient(srv.Client()).
			WithBackend(session.NewRedisBackend(client, fmt.Sprintf("%s:%d", *prefix, i))).
			WithLogger(quiet).
			Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "build manager: %v\n", err)
			os.Exit(1)
		}
		defer m.Close()
		if _, err := m.Login(ctx, goTutor.Credentials{Email: "alice@example.com", Password: "password"}); err != nil {
			fmt.Fprintf(os.Stderr, "login: %v\n", err)
			os.Exit(1)
		}
		if err := m.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "start: %v\n", err)
			os.Exit(1)
		}
		ms[i] = m
	}

	fmt.Printf("running %d managers x %d workers x %d requests...\n", *managers, *concurrency, *ops)
	stats := runRequestPhase(ctx, srv, ms, *ops, *concurrency, *rejectEvery)

	var renewals, shared, forced uint64
	for _, m := range ms {
		renewals += m.RenewalCalls()
		snap := m.MetricsSnapshot()
		shared += snap.Counters[goTutor.MetricRefreshShared]
		forced += snap.Counters[goTutor.MetricForcedLogout]
	}

	fmt.Println("---- results ----")
	printStats("request", stats)
	fmt.Printf("refresh: backend_calls=%d manager_calls=%d shared=%d forced_logouts=%d\n",
		srv.RefreshCalls(), renewals, shared, forced)
}

func runRequestPhase(ctx context.Context, srv *testserver.Server, ms []*goTutor.Manager, ops, concurrency, rejectEvery int) phaseStats {
	var (
		wg        sync.WaitGroup
		failures  int64
		sent      int64
		latencies = make([]time.Duration, 0, ops*len(ms))
		mu        sync.Mutex
	)

	start := time.Now()
	for mi, m := range ms {
		var cursor int64
		for w := 0; w < concurrency; w++ {
			wg.Add(1)
			go func(m *goTutor.Manager, worker int, cursor *int64) {
				defer wg.Done()
				r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
				for {
					i := int(atomic.AddInt64(cursor, 1)) - 1
					if i >= ops {
						return
					}
					if rejectEvery > 0 && atomic.AddInt64(&sent, 1)%int64(rejectEvery) == 0 {
						srv.RejectNextResources(1)
					}
					path := fmt.Sprintf("/api/courses/c-%d", r.Intn(1000))
					t0 := time.Now()
					err := m.Request(ctx, http.MethodGet, path, nil, nil)
					d := time.Since(t0)
					if err != nil {
						atomic.AddInt64(&failures, 1)
					}
					mu.Lock()
					latencies = append(latencies, d)
					mu.Unlock()
				}
			}(m, mi*concurrency+w, &cursor)
		}
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

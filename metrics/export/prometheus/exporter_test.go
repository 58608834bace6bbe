package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goTutor "github.com/MrEthical07/goTutor"
	"github.com/MrEthical07/goTutor/internal/testserver"
)

type fakeSource struct {
	snapshot goTutor.MetricsSnapshot
	events   goTutor.EventStats
}

func (f fakeSource) MetricsSnapshot() goTutor.MetricsSnapshot { return f.snapshot }
func (f fakeSource) EventStats() goTutor.EventStats           { return f.events }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goTutor.MetricsSnapshot{
			Counters:   map[goTutor.MetricID]uint64{},
			Histograms: map[goTutor.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goTutor.MetricsSnapshot{
			Counters: map[goTutor.MetricID]uint64{
				goTutor.MetricRefreshShared: 7,
			},
			Histograms: map[goTutor.MetricID][]uint64{
				goTutor.MetricRenewLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		events: goTutor.EventStats{
			Dropped:       2,
			DroppedByType: map[goTutor.EventType]uint64{goTutor.EventRefreshBackgroundFailed: 2},
			Coalesced:     9,
		},
	})

	out := exp.Render()
	for _, want := range []string{
		"tutor_refresh_shared_total 7",
		"tutor_renew_latency_seconds_bucket{le=\"0.025\"} 1",
		"tutor_renew_latency_seconds_bucket{le=\"+Inf\"} 36",
		"tutor_renew_latency_seconds_count 36",
		"tutor_request_latency_seconds_count 0",
		"tutor_events_dropped_total{type=\"refresh_background_failed\"} 2",
		"tutor_events_dropped_total{type=\"login\"} 0",
		"tutor_events_coalesced_total 9",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestRenderEventsOnly(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		events: goTutor.EventStats{Coalesced: 1},
	})
	out := exp.Render()
	if !strings.Contains(out, "tutor_events_coalesced_total 1") {
		t.Fatalf("events not rendered with metrics disabled:\n%s", out)
	}
	if strings.Count(out, "# TYPE tutor_events_dropped_total counter") != 1 {
		t.Fatalf("dropped family header must appear once:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goTutor.MetricsSnapshot{
			Counters:   map[goTutor.MetricID]uint64{goTutor.MetricLoginSuccess: 1},
			Histograms: map[goTutor.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestExporterReadsManager(t *testing.T) {
	srv, err := testserver.New(testserver.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	m, err := goTutor.New().
		WithBaseURL(srv.URL).
		WithHTTPClient(srv.Client()).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if _, err := m.Login(context.Background(), goTutor.Credentials{Email: "alice@example.com", Password: "password"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	out := NewPrometheusExporter(m).Render()
	if !strings.Contains(out, "tutor_login_success_total 1") {
		t.Fatalf("login not counted:\n%s", out)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goTutor.MetricsSnapshot{
			Counters: map[goTutor.MetricID]uint64{
				goTutor.MetricLoginSuccess:   1000,
				goTutor.MetricRefreshSuccess: 800,
				goTutor.MetricRefreshShared:  120,
				goTutor.MetricRequest:        50000,
				goTutor.MetricUnauthorized:   12,
			},
			Histograms: map[goTutor.MetricID][]uint64{
				goTutor.MetricRequestLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}

package otel

import (
	"context"
	"sync"
	"testing"

	goTutor "github.com/MrEthical07/goTutor"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot goTutor.MetricsSnapshot
	events   goTutor.EventStats
}

func (f *fakeSource) MetricsSnapshot() goTutor.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goTutor.MetricsSnapshot{
		Counters:   make(map[goTutor.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goTutor.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) EventStats() goTutor.EventStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.events
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("tutor-test")

	src := &fakeSource{
		snapshot: goTutor.MetricsSnapshot{
			Counters: map[goTutor.MetricID]uint64{
				goTutor.MetricLoginSuccess: 3,
			},
			Histograms: map[goTutor.MetricID][]uint64{
				goTutor.MetricRequestLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		events: goTutor.EventStats{Dropped: 1, DroppedByType: map[goTutor.EventType]uint64{goTutor.EventLogin: 1}},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}
}

func TestExporterRejectsNilSource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("tutor-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("tutor-test")

	src := &fakeSource{
		snapshot: goTutor.MetricsSnapshot{
			Counters: map[goTutor.MetricID]uint64{
				goTutor.MetricLoginSuccess: 1,
			},
			Histograms: map[goTutor.MetricID][]uint64{
				goTutor.MetricRequestLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goTutor.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}

func TestExporterObservesCounterValues(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("tutor-test")

	src := &fakeSource{
		snapshot: goTutor.MetricsSnapshot{
			Counters:   map[goTutor.MetricID]uint64{goTutor.MetricForcedLogout: 4},
			Histograms: map[goTutor.MetricID][]uint64{},
		},
		events: goTutor.EventStats{
			Dropped:       9,
			DroppedByType: map[goTutor.EventType]uint64{goTutor.EventStorageFallback: 9},
			Coalesced:     3,
		},
	}
	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatal(err)
	}
	defer exp.Close()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}

	values := map[string]int64{}
	dropped := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) == 0 {
				continue
			}
			if m.Name == "tutor_events_dropped_total" {
				for _, dp := range sum.DataPoints {
					typ, _ := dp.Attributes.Value("type")
					dropped[typ.AsString()] = dp.Value
				}
				continue
			}
			values[m.Name] = sum.DataPoints[0].Value
		}
	}
	if values["tutor_forced_logout_total"] != 4 {
		t.Fatalf("forced logout = %d", values["tutor_forced_logout_total"])
	}
	if values["tutor_events_coalesced_total"] != 3 {
		t.Fatalf("events coalesced = %d", values["tutor_events_coalesced_total"])
	}
	if len(dropped) != len(goTutor.EventTypes()) || dropped["storage_fallback"] != 9 || dropped["login"] != 0 {
		t.Fatalf("events dropped = %v", dropped)
	}
}

func TestNewOTelExporterRejectsNilManager(t *testing.T) {
	meter := sdkmetric.NewMeterProvider().Meter("tutor-test")
	if _, err := NewOTelExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("err = %v", err)
	}
}

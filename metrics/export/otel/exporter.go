package otel

import (
	"context"
	"errors"
	"fmt"

	goTutor "github.com/MrEthical07/goTutor"
	"github.com/MrEthical07/goTutor/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is read on every collection. *goTutor.Manager satisfies it.
type MetricsSource interface {
	MetricsSnapshot() goTutor.MetricsSnapshot
	EventStats() goTutor.EventStats
}

type observedCounter struct {
	id         goTutor.MetricID
	instrument metric.Int64ObservableCounter
}

type observedHistogram struct {
	id      goTutor.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes session metrics as observable instruments. Event drops are
// observed once per event type under the "type" attribute. Close unregisters the
// collection callback.
type OTelExporter struct {
	source          MetricsSource
	registration    metric.Registration
	counters        []observedCounter
	histograms      []observedHistogram
	eventsDropped   metric.Int64ObservableCounter
	eventsCoalesced metric.Int64ObservableCounter
	eventTypes      []eventType
}

type eventType struct {
	typ   goTutor.EventType
	attrs metric.ObserveOption
}

func NewOTelExporter(meter metric.Meter, m *goTutor.Manager) (*OTelExporter, error) {
	if m == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, m)
}

func NewOTelExporterFromSource(meter metric.Meter, source MetricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}
	for _, def := range internaldefs.HistogramDefs {
		h, err := newObservedHistogram(meter, def)
		if err != nil {
			return nil, err
		}
		e.histograms = append(e.histograms, h)
		observables = append(observables, h.count)
		for _, b := range h.buckets {
			observables = append(observables, b)
		}
	}

	var err error
	if e.eventsDropped, err = meter.Int64ObservableCounter(internaldefs.EventsDroppedName, metric.WithDescription(internaldefs.EventsDroppedHelp)); err != nil {
		return nil, fmt.Errorf("create events dropped counter: %w", err)
	}
	if e.eventsCoalesced, err = meter.Int64ObservableCounter(internaldefs.EventsCoalescedName, metric.WithDescription(internaldefs.EventsCoalescedHelp)); err != nil {
		return nil, fmt.Errorf("create events coalesced counter: %w", err)
	}
	observables = append(observables, e.eventsDropped, e.eventsCoalesced)
	for _, typ := range goTutor.EventTypes() {
		e.eventTypes = append(e.eventTypes, eventType{
			typ:   typ,
			attrs: metric.WithAttributes(attribute.String("type", string(typ))),
		})
	}

	if e.registration, err = meter.RegisterCallback(e.observe, observables...); err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

// newObservedHistogram creates one cumulative gauge per bucket bound plus a count gauge.
func newObservedHistogram(meter metric.Meter, def internaldefs.HistogramDef) (observedHistogram, error) {
	h := observedHistogram{id: def.ID}
	for i, suffix := range internaldefs.HistogramBoundSuffix {
		name := def.Name + "_bucket_le_" + suffix
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
		if err != nil {
			return h, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
		}
		h.buckets[i] = ins
	}
	count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Histogram total sample count."))
	if err != nil {
		return h, fmt.Errorf("create histogram count gauge %s_count: %w", def.Name, err)
	}
	h.count = count
	return h, nil
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		for i := range cumulative {
			observer.ObserveInt64(h.buckets[i], int64(cumulative[i]))
		}
		observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}

	stats := e.source.EventStats()
	for _, et := range e.eventTypes {
		observer.ObserveInt64(e.eventsDropped, int64(stats.DroppedByType[et.typ]), et.attrs)
	}
	observer.ObserveInt64(e.eventsCoalesced, int64(stats.Coalesced))
	return nil
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

package events

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MetaCoalesced is the metadata key carrying how many repeats were folded into an event.
const MetaCoalesced = "coalesced"

// Config controls dispatcher buffering and burst folding.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// CoalesceWindow folds repeats of a burst-prone type (see [Bursty]) with the same
	// trigger that arrive within the window after the last delivered one. The next
	// delivered event of that type and trigger reports the folded count under
	// [MetaCoalesced]. Zero delivers every event.
	CoalesceWindow time.Duration
}

// Bursty reports whether t tends to repeat on every check or write while a fault lasts.
func Bursty(t Type) bool {
	return t == TypeRefreshBackgroundFailed || t == TypeStorageFallback
}

// Stats is a point-in-time copy of the dispatcher counters.
type Stats struct {
	// Dropped counts events lost to a full buffer or an expired emit context.
	Dropped       uint64
	DroppedByType map[Type]uint64
	// Coalesced counts repeats folded into a later event.
	Coalesced uint64
}

type burstKey struct {
	typ     Type
	trigger string
}

type burst struct {
	last   time.Time
	folded int
}

// Dispatcher forwards events to a sink from one goroutine. A nil *Dispatcher is valid
// and discards everything; NewDispatcher returns nil when disabled.
type Dispatcher struct {
	cfg   Config
	sink  Sink
	queue chan Event
	stop  chan struct{}
	idle  chan struct{}

	mu        sync.Mutex
	closed    bool
	bursts    map[burstKey]*burst
	drops     map[Type]uint64
	dropped   uint64
	coalesced uint64
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		queue:  make(chan Event, cfg.BufferSize),
		stop:   make(chan struct{}),
		idle:   make(chan struct{}),
		bursts: make(map[burstKey]*burst),
		drops:  make(map[Type]uint64),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.idle)
	for {
		select {
		case ev := <-d.queue:
			d.sink.Emit(context.Background(), ev)
		case <-d.stop:
			for {
				select {
				case ev := <-d.queue:
					d.sink.Emit(context.Background(), ev)
				default:
					return
				}
			}
		}
	}
}

// Emit queues ev unless it is folded into a burst. With DropIfFull a full buffer drops
// the event; otherwise Emit waits for room until ctx ends, which also drops it. Both
// are counted per type.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !d.admit(&ev) {
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- ev:
		case <-d.stop:
		default:
			d.drop(ev.Type)
		}
		return
	}
	select {
	case d.queue <- ev:
	case <-d.stop:
	case <-ctx.Done():
		d.drop(ev.Type)
	}
}

// admit reports whether ev should be queued. An admitted event that ends a burst gets
// the folded count in its metadata; the caller's map is not modified.
func (d *Dispatcher) admit(ev *Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	if d.cfg.CoalesceWindow <= 0 || !Bursty(ev.Type) {
		return true
	}

	at := ev.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	key := burstKey{typ: ev.Type, trigger: ev.Trigger}
	b, ok := d.bursts[key]
	if ok && at.Sub(b.last) < d.cfg.CoalesceWindow {
		b.folded++
		d.coalesced++
		return false
	}
	if !ok {
		b = &burst{}
		d.bursts[key] = b
	}
	if b.folded > 0 {
		meta := make(map[string]string, len(ev.Metadata)+1)
		for k, v := range ev.Metadata {
			meta[k] = v
		}
		meta[MetaCoalesced] = strconv.Itoa(b.folded)
		ev.Metadata = meta
		b.folded = 0
	}
	b.last = at
	return true
}

func (d *Dispatcher) drop(t Type) {
	d.mu.Lock()
	d.dropped++
	d.drops[t]++
	d.mu.Unlock()
}

// Close stops accepting events and delivers what is buffered. Safe to call repeatedly
// and concurrently; every call returns after delivery finished.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.stop)
	}
	d.mu.Unlock()
	<-d.idle
}

func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	byType := make(map[Type]uint64, len(d.drops))
	for t, n := range d.drops {
		byType[t] = n
	}
	return Stats{Dropped: d.dropped, DroppedByType: byType, Coalesced: d.coalesced}
}

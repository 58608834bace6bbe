package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	goTutor "github.com/MrEthical07/goTutor"
	"github.com/MrEthical07/goTutor/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

// MetricsSource is what the exporter reads on every scrape. *goTutor.Manager satisfies it.
type MetricsSource interface {
	MetricsSnapshot() goTutor.MetricsSnapshot
	EventStats() goTutor.EventStats
}

// PrometheusExporter renders session metrics in Prometheus text exposition format.
// Event drops are one family labelled by event type.
type PrometheusExporter struct {
	source MetricsSource
}

func NewPrometheusExporter(m *goTutor.Manager) *PrometheusExporter {
	return &PrometheusExporter{source: m}
}

func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics, or "" when neither metrics nor events have
// anything to report.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}
	snap := p.source.MetricsSnapshot()
	stats := p.source.EventStats()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && stats.Dropped == 0 && stats.Coalesced == 0 {
		return ""
	}

	var e exposition
	e.Grow(8192)
	for _, def := range internaldefs.CounterDefs {
		e.family(def.Name, def.Help, "counter")
		e.sample(def.Name, "", snap.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		e.histogram(def.Name, def.Help, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[def.ID])))
	}

	e.family(internaldefs.EventsDroppedName, internaldefs.EventsDroppedHelp, "counter")
	for _, typ := range goTutor.EventTypes() {
		e.sample(internaldefs.EventsDroppedName, `type="`+string(typ)+`"`, stats.DroppedByType[typ])
	}
	e.family(internaldefs.EventsCoalescedName, internaldefs.EventsCoalescedHelp, "counter")
	e.sample(internaldefs.EventsCoalescedName, "", stats.Coalesced)

	return e.String()
}

// exposition accumulates text format lines.
type exposition struct {
	strings.Builder
}

func (e *exposition) family(name, help, kind string) {
	e.WriteString("# HELP " + name + " " + escapeHelp(help) + "\n")
	e.WriteString("# TYPE " + name + " " + kind + "\n")
}

func (e *exposition) sample(name, labels string, value uint64) {
	e.WriteString(name)
	if labels != "" {
		e.WriteString("{" + labels + "}")
	}
	e.WriteByte(' ')
	e.WriteString(strconv.FormatUint(value, 10))
	e.WriteByte('\n')
}

func (e *exposition) histogram(name, help string, cumulative [8]uint64) {
	e.family(name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		e.sample(name+"_bucket", `le="`+le+`"`, cumulative[i])
	}
	e.sample(name+"_count", "", cumulative[len(cumulative)-1])
	// Snapshots carry bucket counts only.
	e.sample(name+"_sum", "", 0)
}

func escapeHelp(help string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
}

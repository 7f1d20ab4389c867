package prometheus

import (
	"fmt"
	"net/http"
	"strings"

	possecure "github.com/tareeqa/possecure"
	"github.com/tareeqa/possecure/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() possecure.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders possecure metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates a Prometheus exporter that reads from the given [possecure.Engine].
func NewPrometheusExporter(engine *possecure.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource creates a Prometheus exporter from a
// custom metrics source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render writes the current metrics in Prometheus text exposition format.
// An engine with metrics disabled renders as the empty string so a
// scrape of an idle exporter stays cheap.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		family(&b, def.Name, def.Help, "counter")
		sample(&b, def.Name, snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		family(&b, def.Name, def.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			fmt.Fprintf(&b, "%s_bucket{le=%q} %d\n", def.Name, le, buckets[i])
		}
		sample(&b, def.Name+"_count", buckets[len(buckets)-1])
		// No observation sum in the snapshot; emit a stable zero so
		// scrapers that expect the full histogram triple stay happy.
		sample(&b, def.Name+"_sum", 0)
	}

	family(&b, "possecure_audit_dropped_total", "Dropped audit events due to dispatcher backpressure.", "counter")
	sample(&b, "possecure_audit_dropped_total", dropped)

	return b.String()
}

func family(b *strings.Builder, name, help, kind string) {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

func sample(b *strings.Builder, name string, value uint64) {
	fmt.Fprintf(b, "%s %d\n", name, value)
}

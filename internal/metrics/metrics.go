// Package metrics aggregates per-run pipeline counters on a private
// Prometheus registry. The pipeline is a run-to-completion batch, so the
// registry is gathered into the run summary at exit rather than scraped.
package metrics

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns the run-scoped registry and instrument families.
type Recorder struct {
	registry *prometheus.Registry

	recordsRead     *prometheus.CounterVec
	recordsCleaned  *prometheus.CounterVec
	recordsRejected *prometheus.CounterVec
	violations      prometheus.Counter
	stageDuration   *prometheus.HistogramVec
}

// New constructs a Recorder with a fresh registry.
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}
	r.recordsRead = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swatch_records_read_total",
		Help: "Raw records read per source and table.",
	}, []string{"source", "table"})
	r.recordsCleaned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swatch_records_cleaned_total",
		Help: "Records emitted in the canonical schema per source and table.",
	}, []string{"source", "table"})
	r.recordsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swatch_records_rejected_total",
		Help: "Records rejected during screening per source.",
	}, []string{"source"})
	r.violations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swatch_referential_violations_total",
		Help: "Samples excluded at merge for dangling site or method references.",
	})
	r.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swatch_stage_duration_seconds",
		Help:    "Wall time per pipeline stage.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"stage"})
	r.registry.MustRegister(r.recordsRead, r.recordsCleaned, r.recordsRejected, r.violations, r.stageDuration)
	return r
}

// Registry exposes the underlying registry (tests, optional scrape wiring).
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// AddRead counts raw records read for a source table.
func (r *Recorder) AddRead(source, table string, n int) {
	r.recordsRead.WithLabelValues(source, table).Add(float64(n))
}

// AddCleaned counts canonical records emitted for a source table.
func (r *Recorder) AddCleaned(source, table string, n int) {
	r.recordsCleaned.WithLabelValues(source, table).Add(float64(n))
}

// AddRejected counts screening rejections for a source.
func (r *Recorder) AddRejected(source string, n int) {
	r.recordsRejected.WithLabelValues(source).Add(float64(n))
}

// AddViolations counts merge-time referential integrity exclusions.
func (r *Recorder) AddViolations(n int) {
	r.violations.Add(float64(n))
}

// ObserveStage records one stage execution duration.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Summary flattens counter families into a name -> value map for the run
// summary log line. Histogram families contribute their sample counts.
func (r *Recorder) Summary() map[string]float64 {
	out := make(map[string]float64)
	families, err := r.registry.Gather()
	if err != nil {
		return out
	}
	for _, mf := range families {
		total := 0.0
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
		out[mf.GetName()] = total
	}
	return out
}

// Names returns the metric family names present in the registry, sorted.
func (r *Recorder) Names() []string {
	summary := r.Summary()
	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

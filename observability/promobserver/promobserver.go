// Package promobserver implements es.Observer by classifying the fixed set
// of messages category.Category emits and incrementing Prometheus counters
// for them, grounded on fluxor's pkg/observability/prometheus (promauto.With
// against an explicit Registerer, one struct holding every metric) and
// buckley's several per-package metrics.go files.
package promobserver

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/getpup/foldstore/es"
)

// Metrics holds every counter promobserver.Observer updates.
type Metrics struct {
	LoadsTotal       *prometheus.CounterVec
	TransactsTotal   *prometheus.CounterVec
	ConflictsTotal   prometheus.Counter
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	ErrorsTotal      *prometheus.CounterVec
}

// NewMetrics registers foldstore's metrics against registerer. Pass
// prometheus.DefaultRegisterer to publish on the process-wide default
// registry, or a scoped registerer (e.g. from
// prometheus.WrapRegistererWith) to namespace them per service.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	return &Metrics{
		LoadsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "foldstore_loads_total",
				Help: "Total number of category.Load calls, by result.",
			},
			[]string{"result"}, // cache_hit, cache_miss
		),
		TransactsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "foldstore_transacts_total",
				Help: "Total number of successful decider transactions, by stream category.",
			},
			[]string{"category"},
		),
		ConflictsTotal: promauto.With(registerer).NewCounter(
			prometheus.CounterOpts{
				Name: "foldstore_version_conflicts_total",
				Help: "Total number of optimistic-concurrency conflicts that triggered a reload.",
			},
		),
		CacheHitsTotal: promauto.With(registerer).NewCounter(
			prometheus.CounterOpts{
				Name: "foldstore_cache_hits_total",
				Help: "Total number of category cache hits.",
			},
		),
		CacheMissesTotal: promauto.With(registerer).NewCounter(
			prometheus.CounterOpts{
				Name: "foldstore_cache_misses_total",
				Help: "Total number of category cache misses.",
			},
		),
		ErrorsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "foldstore_errors_total",
				Help: "Total number of errors reported to the Observer, by message.",
			},
			[]string{"message"},
		),
	}
}

// Observer implements es.Observer by pattern-matching category.Category's
// fixed set of log messages and incrementing the matching counter. Unknown
// messages are silently ignored for Debug/Info; Error always increments
// ErrorsTotal under the literal message, since new failure messages should
// show up as a new label value rather than being dropped.
type Observer struct {
	metrics *Metrics
}

// New constructs an Observer backed by metrics.
func New(metrics *Metrics) *Observer {
	return &Observer{metrics: metrics}
}

// Debug implements es.Observer.
func (o *Observer) Debug(_ context.Context, msg string, keyvals ...interface{}) {
	switch {
	case strings.Contains(msg, "cache hit"):
		o.metrics.CacheHitsTotal.Inc()
		o.metrics.LoadsTotal.WithLabelValues("cache_hit").Inc()
	case strings.Contains(msg, "cache miss"):
		o.metrics.CacheMissesTotal.Inc()
		o.metrics.LoadsTotal.WithLabelValues("cache_miss").Inc()
	}
}

// Info implements es.Observer.
func (o *Observer) Info(_ context.Context, msg string, keyvals ...interface{}) {
	switch {
	case strings.Contains(msg, "version conflict"):
		o.metrics.ConflictsTotal.Inc()
	case strings.Contains(msg, "transact succeeded"):
		o.metrics.TransactsTotal.WithLabelValues(categoryLabel(keyvals)).Inc()
	}
}

// Error implements es.Observer.
func (o *Observer) Error(_ context.Context, msg string, _ ...interface{}) {
	o.metrics.ErrorsTotal.WithLabelValues(msg).Inc()
}

// categoryLabel pulls the stream category out of a "stream" keyval shaped
// like "Category-StreamID", falling back to "unknown" when absent or
// malformed.
func categoryLabel(keyvals []interface{}) string {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok || key != "stream" {
			continue
		}
		stream, ok := keyvals[i+1].(string)
		if !ok {
			continue
		}
		if idx := strings.Index(stream, "-"); idx > 0 {
			return stream[:idx]
		}
	}
	return "unknown"
}

var _ es.Observer = (*Observer)(nil)

// Package metrics holds the Prometheus instruments of the ledger.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics owns a private registry so several instances can coexist in one
// process, as they do in tests.
type Metrics struct {
	Registry *prometheus.Registry

	storageOps      *prometheus.CounterVec
	storageDuration *prometheus.HistogramVec
	summaryCache    *prometheus.CounterVec
	events          *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		storageOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_storage_operations_total",
				Help: "Storage operations by operation and outcome.",
			},
			[]string{"op", "status"},
		),
		storageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "budget_storage_operation_duration_seconds",
				Help:    "Duration of storage operations.",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"op"},
		),
		summaryCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_summary_cache_total",
				Help: "Month summary cache lookups by result.",
			},
			[]string{"result"},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_events_published_total",
				Help: "Ledger change events by publish outcome.",
			},
			[]string{"status"},
		),
	}
}

// ObserveStorage records one storage call. status is "ok" or "error".
func (m *Metrics) ObserveStorage(op string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.storageOps.WithLabelValues(op, status).Inc()
	m.storageDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) CacheHit()  { m.summaryCache.WithLabelValues("hit").Inc() }
func (m *Metrics) CacheMiss() { m.summaryCache.WithLabelValues("miss").Inc() }

// EventPublished counts a publish attempt. status is "ok", "error" or "skipped".
func (m *Metrics) EventPublished(status string) {
	m.events.WithLabelValues(status).Inc()
}

// Snapshot is a flattened view of the counters for printing.
type Snapshot struct {
	StorageOK     float64
	StorageErrors float64
	CacheHits     float64
	CacheMisses   float64
	EventsOK      float64
	EventsFailed  float64
}

// HitRate is hits over lookups, or 0 before any lookup.
func (s Snapshot) HitRate() float64 {
	if total := s.CacheHits + s.CacheMisses; total > 0 {
		return s.CacheHits / total
	}
	return 0
}

// Snapshot sums the counters across their labels.
func (m *Metrics) Snapshot() (Snapshot, error) {
	families, err := m.Registry.Gather()
	if err != nil {
		return Snapshot{}, err
	}

	var s Snapshot
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			v := metric.GetCounter().GetValue()
			switch mf.GetName() {
			case "budget_storage_operations_total":
				if label(metric, "status") == "ok" {
					s.StorageOK += v
				} else {
					s.StorageErrors += v
				}
			case "budget_summary_cache_total":
				if label(metric, "result") == "hit" {
					s.CacheHits += v
				} else {
					s.CacheMisses += v
				}
			case "budget_events_published_total":
				switch label(metric, "status") {
				case "ok":
					s.EventsOK += v
				case "error":
					s.EventsFailed += v
				}
			}
		}
	}
	return s, nil
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spotlight

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "entity_linker"

// Metrics collects linker telemetry. A nil *Metrics records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration prometheus.Histogram
	mentions        *prometheus.CounterVec
	merges          *prometheus.CounterVec
}

// NewMetrics creates the linker collectors and registers them on reg.
// Registering twice on the same registry returns an error.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Linking service requests by outcome (ok, http_error, transport_error).",
		}, []string{"outcome"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of linking service requests.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		mentions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "mentions_total",
			Help:      "Mentions by reconciliation result (linked, widened, dropped).",
		}, []string{"result"}),
		merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "merge_total",
			Help:      "Documents by entity merge path (append, overwrite, preserve).",
		}, []string{"path"}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.requestDuration, m.mentions, m.merges} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering linker metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) observeRequest(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.requestDuration.Observe(d.Seconds())
}

func (m *Metrics) observeMentions(counts map[reconcileResult]int) {
	if m == nil {
		return
	}
	for result, n := range counts {
		m.mentions.WithLabelValues(string(result)).Add(float64(n))
	}
}

func (m *Metrics) observeMerge(path MergePath) {
	if m == nil {
		return
	}
	m.merges.WithLabelValues(string(path)).Inc()
}

// Package metrics exposes Prometheus instruments for games and advisor searches.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fourinrow"

// Hint results recorded by ObserveHint
const (
	HintDelivered = "delivered"
	HintStale     = "stale"
	HintNoMove    = "no_move"
)

// Metrics groups the collectors of one server instance. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	searchDuration prometheus.Histogram
	searchNodes    prometheus.Histogram
	moves          *prometheus.CounterVec
	hints          *prometheus.CounterVec
	sessions       prometheus.Gauge
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		searchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "advisor_search_duration_seconds",
			Help:      "Wall time of one best-move search.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		searchNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "advisor_search_nodes",
			Help:      "Nodes visited by one best-move search.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		moves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Applied moves by resulting outcome.",
		}, []string{"outcome"}),
		hints: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hints_total",
			Help:      "Hint searches by result.",
		}, []string{"result"}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently registered in the hub.",
		}),
	}
}

// ObserveSearch records one advisor search
func (m *Metrics) ObserveSearch(d time.Duration, nodes int) {
	if m == nil {
		return
	}
	m.searchDuration.Observe(d.Seconds())
	m.searchNodes.Observe(float64(nodes))
}

// ObserveMove counts an applied move
func (m *Metrics) ObserveMove(outcome string) {
	if m == nil {
		return
	}
	m.moves.WithLabelValues(outcome).Inc()
}

// ObserveHint counts a finished hint search
func (m *Metrics) ObserveHint(result string) {
	if m == nil {
		return
	}
	m.hints.WithLabelValues(result).Inc()
}

// SessionOpened and SessionClosed track the active session gauge
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}

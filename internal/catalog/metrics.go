package catalog

import "github.com/prometheus/client_golang/prometheus"

const (
	labelOp     = "op"
	labelSource = "source"
	labelReason = "reason"
)

// Fallback reasons.
const (
	reasonUnconfigured = "unconfigured"
	reasonError        = "error"
	reasonEmpty        = "empty"
	reasonNotFound     = "not_found"
)

// Metrics counts which source served each read and why reads degraded.
type Metrics struct {
	Reads     *prometheus.CounterVec
	Fallbacks *prometheus.CounterVec
}

// NewMetrics registers the catalog counters on reg. A nil reg yields
// unregistered counters that still count.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Reads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_reads_total",
				Help: "Catalog reads by operation and serving source",
			},
			[]string{labelOp, labelSource},
		),
		Fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_fallbacks_total",
				Help: "Catalog reads that skipped the remote store, by reason",
			},
			[]string{labelOp, labelReason},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Reads, m.Fallbacks)
	}
	return m
}

func (m *Metrics) read(op string, src Source) {
	m.Reads.WithLabelValues(op, string(src)).Inc()
}

func (m *Metrics) fallback(op, reason string) {
	m.Fallbacks.WithLabelValues(op, reason).Inc()
}

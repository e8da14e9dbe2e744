package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Mints        prometheus.Counter
	FreeMints    prometheus.Counter
	MintRejected prometheus.Counter
	StageUpdates prometheus.Counter
	MintDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Mints: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zoopr_unt_mints_total",
			Help: "Total number of name tokens minted via the paid path",
		}),
		FreeMints: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zoopr_unt_free_mints_total",
			Help: "Total number of name tokens minted via the genesis pass path",
		}),
		MintRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zoopr_unt_mint_rejected_total",
			Help: "Total number of rejected mint attempts",
		}),
		StageUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zoopr_unt_stage_updates_total",
			Help: "Total number of stage reconfigurations",
		}),
		MintDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "zoopr_unt_mint_duration_seconds",
			Help:    "Duration of mint operations (voucher verification critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementMints() {
	m.Mints.Inc()
}

func (m *Metrics) IncrementFreeMints() {
	m.FreeMints.Inc()
}

func (m *Metrics) IncrementMintRejected() {
	m.MintRejected.Inc()
}

func (m *Metrics) IncrementStageUpdates() {
	m.StageUpdates.Inc()
}

func (m *Metrics) ObserveMint(start time.Time) {
	m.MintDuration.Observe(time.Since(start).Seconds())
}

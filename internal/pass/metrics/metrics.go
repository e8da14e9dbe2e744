package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Mints        prometheus.Counter
	MintRejected prometheus.Counter
	StageUpdates prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Mints: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zoopr_pass_mints_total",
			Help: "Total number of pass records minted",
		}),
		MintRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zoopr_pass_mint_rejected_total",
			Help: "Total number of rejected pass mint attempts",
		}),
		StageUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "zoopr_pass_stage_updates_total",
			Help: "Total number of pass stage reconfigurations",
		}),
	}
}

func (m *Metrics) IncrementMints() {
	m.Mints.Inc()
}

func (m *Metrics) IncrementMintRejected() {
	m.MintRejected.Inc()
}

func (m *Metrics) IncrementStageUpdates() {
	m.StageUpdates.Inc()
}

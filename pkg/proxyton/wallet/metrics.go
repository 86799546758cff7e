package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	transfers *prometheus.CounterVec
	refunds   prometheus.Counter
}

// NewMetrics registers the wallet metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transfers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proxy_ton",
			Subsystem: "wallet",
			Name:      "transfers_total",
			Help:      "Number of processed transfer requests by outcome",
		}, []string{"outcome"}),
		refunds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "proxy_ton",
			Subsystem: "wallet",
			Name:      "refunds_total",
			Help:      "Number of excesses messages emitted",
		}),
	}
}

// observe counts transfers that reached the reconciler. Bodies rejected
// before that point, such as a mint or an unknown opcode, are not transfers.
func (m *Metrics) observe(res Result) {
	if m == nil || res.Decision == nil {
		return
	}
	m.transfers.WithLabelValues(outcomeLabel(res.State)).Inc()
	if res.State != Rejected && res.Decision.RefundValue.Sign() > 0 {
		m.refunds.Inc()
	}
}

func outcomeLabel(s State) string {
	switch s {
	case Notify:
		return "notify"
	case PlainForward:
		return "plain_forward"
	case RefundOnly:
		return "refund_only"
	case Rejected:
		return "rejected"
	default:
		return "other"
	}
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics 帳本的 Prometheus 指標集合
type Metrics struct {
	Deposits       prometheus.Counter
	Withdrawals    prometheus.Counter
	DepositedUnits prometheus.Counter
	WithdrawnUnits prometheus.Counter
	Held           prometheus.Gauge
}

// New 建立並註冊所有指標
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Deposits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vault",
			Name:      "deposits_total",
			Help:      "Number of committed deposits.",
		}),
		Withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vault",
			Name:      "withdrawals_total",
			Help:      "Number of committed withdrawals.",
		}),
		DepositedUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vault",
			Name:      "deposited_units_total",
			Help:      "Total value units deposited.",
		}),
		WithdrawnUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vault",
			Name:      "withdrawn_units_total",
			Help:      "Total value units withdrawn.",
		}),
		Held: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vault",
			Name:      "held_units",
			Help:      "Value units currently held by the vault.",
		}),
	}
	reg.MustRegister(m.Deposits, m.Withdrawals, m.DepositedUnits, m.WithdrawnUnits, m.Held)
	return m
}

package event

import (
	"github.com/JoeShih716/go-vault-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-vault-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-vault-ledger/pkg/metrics"
)

// MetricsSink 把通知轉成 Prometheus 指標
type MetricsSink struct {
	m *metrics.Metrics
}

func NewMetricsSink(m *metrics.Metrics) *MetricsSink {
	return &MetricsSink{m: m}
}

func (s *MetricsSink) Emit(ev domain.Event) {
	switch ev.Kind {
	case domain.EventDeposited:
		s.m.Deposits.Inc()
		s.m.DepositedUnits.Add(float64(ev.Amount))
	case domain.EventWithdrawn:
		s.m.Withdrawals.Inc()
		s.m.WithdrawnUnits.Add(float64(ev.Amount))
	}
	s.m.Held.Set(float64(ev.Held))
}

var _ usecase.EventSink = (*MetricsSink)(nil)

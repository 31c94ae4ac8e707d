package event

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-vault-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-vault-ledger/internal/app/core/usecase"
)

// LogSink 把 Deposited / Withdrawn 通知寫成結構化 log
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ev domain.Event) {
	s.logger.Info().
		Str("event", ev.Kind.String()).
		Int64("account", ev.Account).
		Int64("amount", ev.Amount).
		Int64("new_balance", ev.NewBalance).
		Int64("held", ev.Held).
		Time("at", ev.At).
		Msg("vault event")
}

// MultiSink 把同一筆通知發給多個 sink
type MultiSink []usecase.EventSink

func (s MultiSink) Emit(ev domain.Event) {
	for _, sink := range s {
		sink.Emit(ev)
	}
}

// AsyncSink 用緩衝 channel 把通知跟帳本解耦
// Emit 永不阻塞：緩衝滿了直接丟棄，確保慢的 sink 不會拖住帳本
type AsyncSink struct {
	inner  usecase.EventSink
	ch     chan domain.Event
	logger zerolog.Logger
}

// NewAsyncSink 建立非同步 sink，建構後必須呼叫 Start
func NewAsyncSink(inner usecase.EventSink, buffer int, logger zerolog.Logger) *AsyncSink {
	if buffer <= 0 {
		buffer = 1024
	}
	return &AsyncSink{
		inner:  inner,
		ch:     make(chan domain.Event, buffer),
		logger: logger,
	}
}

// Start 啟動投遞迴圈 (非同步)，ctx 結束時停止
func (s *AsyncSink) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-s.ch:
				s.inner.Emit(ev)
			}
		}
	}()
}

func (s *AsyncSink) Emit(ev domain.Event) {
	select {
	case s.ch <- ev:
	default:
		// 通知僅供觀測，寧可丟棄也不能回壓帳本
		s.logger.Warn().
			Str("event", ev.Kind.String()).
			Int64("account", ev.Account).
			Msg("event buffer full, dropping")
	}
}

var (
	_ usecase.EventSink = (*LogSink)(nil)
	_ usecase.EventSink = (MultiSink)(nil)
	_ usecase.EventSink = (*AsyncSink)(nil)
)

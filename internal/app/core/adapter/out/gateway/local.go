package gateway

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-vault-ledger/internal/app/core/usecase"
)

// LocalGateway 單機部署用的釋出通道：一律放行，只留下稽核紀錄
// 假設實際出金由外部對帳流程非同步完成
type LocalGateway struct {
	logger zerolog.Logger
}

func NewLocalGateway(logger zerolog.Logger) *LocalGateway {
	return &LocalGateway{logger: logger}
}

func (g *LocalGateway) Release(ctx context.Context, accountID int64, amount int64) error {
	g.logger.Info().
		Int64("account", accountID).
		Int64("amount", amount).
		Msg("funds released (local)")
	return nil
}

var _ usecase.FundGateway = (*LocalGateway)(nil)

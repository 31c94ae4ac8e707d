package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-vault-ledger/internal/app/core/usecase"
	grpcpool "github.com/JoeShih716/go-vault-ledger/pkg/grpc"
	pb "github.com/JoeShih716/go-vault-ledger/proto"
)

// GrpcGateway 透過 gRPC 呼叫外部結算服務釋出資金
// 回應的成敗同步回報給帳本，作為 commit / rollback 的依據
type GrpcGateway struct {
	pool    *grpcpool.Pool
	target  string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewGrpcGateway 建立 gRPC 資金釋出通道
//
// 參數:
//
//	pool: 共用的 gRPC 連線池
//	target: 結算服務位址 (e.g., "settlement:50052" 或 K8s DNS)
//	timeout: 單次釋出的超時時間
func NewGrpcGateway(pool *grpcpool.Pool, target string, timeout time.Duration, logger zerolog.Logger) *GrpcGateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GrpcGateway{
		pool:    pool,
		target:  target,
		timeout: timeout,
		logger:  logger,
	}
}

// Release 釋出資金給指定帳戶
// 超時、連線失敗、或對方回報 success=false 都視為釋出失敗，
// 帳本收到錯誤後會回滾整筆提款
func (g *GrpcGateway) Release(ctx context.Context, accountID int64, amount int64) error {
	conn, err := g.pool.GetConnection(g.target)
	if err != nil {
		return fmt.Errorf("connect fund gateway: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client := pb.NewFundGatewayServiceClient(conn)
	resp, err := client.Release(ctx, &pb.ReleaseRequest{
		RefId:     uuid.New().String(),
		AccountId: accountID,
		Amount:    amount,
	})
	if err != nil {
		return fmt.Errorf("release rpc: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("fund gateway rejected release: %s", resp.Message)
	}

	g.logger.Debug().
		Int64("account", accountID).
		Int64("amount", amount).
		Msg("funds released")
	return nil
}

var _ usecase.FundGateway = (*GrpcGateway)(nil)

package usecase

import (
	"context"

	"github.com/JoeShih716/go-vault-ledger/internal/app/core/domain"
)

// Vault 是託管帳本的介面
// Deposit / Withdraw 回傳異動後的餘額；失敗時不留下任何狀態變更
type Vault interface {
	// Deposit 存款 (tran.Type 必須為 TransactionTypeDeposit)
	Deposit(ctx context.Context, tran *domain.Transaction) (int64, error)
	// Withdraw 提款 (tran.Type 必須為 TransactionTypeWithdraw)
	Withdraw(ctx context.Context, tran *domain.Transaction) (int64, error)
	// BalanceOf 取得帳戶餘額，未知帳戶回傳 0，永不失敗
	BalanceOf(ctx context.Context, accountID int64) (int64, error)
	// TotalHeld 取得目前總持有量
	TotalHeld(ctx context.Context) (int64, error)
	// Stats 取得統計資訊 (總持有量、操作計數、兩個上限)
	Stats(ctx context.Context) (domain.Stats, error)
	// LoadAllAccounts 載入所有帳戶 (供記憶體實作開機接手用)
	LoadAllAccounts(ctx context.Context) (map[int64]*domain.Account, error)
}

// FundGateway 是資金釋出通道 (value-transfer channel)
// 提款時在餘額扣減之後呼叫；它的成敗是 commit / rollback 的唯一依據。
// 注意: 實作不可在同一個 goroutine 內同步回呼 Vault，會造成自我死鎖
type FundGateway interface {
	Release(ctx context.Context, accountID int64, amount int64) error
}

// EventSink 接收 Deposited / Withdrawn 通知
// Emit 必須是 fire-and-forget：再慢、再壞都不能影響帳本
type EventSink interface {
	Emit(event domain.Event)
}

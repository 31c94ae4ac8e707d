package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-vault-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-vault-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-vault-ledger/pkg/wal"
)

// MutexVault 是一個使用 Mutex 實現的託管帳本 (Level 1)
//
// 寫入鎖涵蓋整個 check+effect+interaction 單元：
// 提款的資金釋出在鎖內進行，同帳戶的第二筆提款在第一筆
// 解決 (成功/失敗) 前不會開始改動狀態，關閉 re-entrancy 窗口。
// 代價是 gateway 阻塞時其他寫入也會等待；gateway 不可在
// 同一個 goroutine 內同步回呼本帳本，否則會自我死鎖
type MutexVault struct {
	book *book
	mu   sync.RWMutex
}

// NewMutexVault 建立一個新的 MutexVault 實例
//
// 參數:
//
//	limits: 政策上限 (bankCap / perWithdrawalCap)
//	accounts: 初始帳戶資料 Map (可為 nil)
//	walFile: Write-Ahead Log 實例 (可為 nil，表示不做持久化)
//	gateway: 資金釋出通道
//	sink: 事件通知 (可為 nil)
//
// 回傳:
//
//	*MutexVault: MutexVault 實例
//	error: 初始化錯誤 (如上限為負、WAL 恢復失敗)
func NewMutexVault(limits domain.Limits, accounts map[int64]*domain.Account, walFile *wal.WAL,
	gateway usecase.FundGateway, sink usecase.EventSink, logger zerolog.Logger) (*MutexVault, error) {

	b, err := newBook(limits, accounts, walFile, gateway, sink, logger)
	if err != nil {
		return nil, err
	}
	return &MutexVault{book: b}, nil
}

// Deposit 處理存款請求
//
// 參數:
//
//	ctx: 上下文
//	tran: 交易請求物件
//
// 回傳:
//
//	int64: 異動後的餘額
//	error: 處理錯誤 (如超過總量上限)
func (m *MutexVault) Deposit(ctx context.Context, tran *domain.Transaction) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.deposit(tran)
}

// Withdraw 處理提款請求
//
// 參數:
//
//	ctx: 上下文
//	tran: 交易請求物件
//
// 回傳:
//
//	int64: 異動後的餘額
//	error: 處理錯誤 (如超過單筆上限、餘額不足、釋出失敗)
func (m *MutexVault) Withdraw(ctx context.Context, tran *domain.Transaction) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.withdraw(ctx, tran)
}

// BalanceOf 取得指定帳戶的當前餘額，未知帳戶回傳 0
func (m *MutexVault) BalanceOf(ctx context.Context, accountID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.balanceOf(accountID), nil
}

// TotalHeld 取得目前總持有量
func (m *MutexVault) TotalHeld(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.held, nil
}

// Stats 取得統計資訊
func (m *MutexVault) Stats(ctx context.Context) (domain.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.stats(), nil
}

// LoadAllAccounts 載入系統所有帳戶資料 (Level 1 實作直接回傳當前 Map)
func (m *MutexVault) LoadAllAccounts(ctx context.Context) (map[int64]*domain.Account, error) {
	return m.book.accounts, nil
}

var _ usecase.Vault = (*MutexVault)(nil)

package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-vault-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-vault-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-vault-ledger/pkg/wal"
)

// ErrVaultStopped 核心迴圈停止後收到的請求一律拒絕
var ErrVaultStopped = errors.New("vault stopped")

type vaultOp uint8

const (
	opDeposit vaultOp = iota
	opWithdraw
	opBalanceOf
	opTotalHeld
	opStats
)

// vaultRequest 請求包裝 channel，讓呼叫端可以等待結果
type vaultRequest struct {
	Op      vaultOp
	Tx      *domain.Transaction
	Account int64
	Result  chan vaultResult
}

type vaultResult struct {
	Balance int64
	Stats   domain.Stats
	Err     error
}

// LMAXVault 是單一寫入執行緒的託管帳本 (Level 2)
//
// 所有操作經由輸送帶送進核心迴圈，單執行緒天然滿足
// 「check+effect+interaction 為單一單元」的序列化要求；
// 資金釋出也在迴圈內進行，期間其他請求排隊等候
type LMAXVault struct {
	book *book
	// 輸送帶 負責接收請求
	requestChan chan *vaultRequest
	// Pool 減少 GC 壓力
	requestPool sync.Pool
	// 核心迴圈結束 (含 drain) 後關閉
	stopped chan struct{}
}

// NewLMAXVault 建立一個新的 LMAXVault 實例
// 建構完成後必須呼叫 Start 啟動核心迴圈，否則所有請求都會卡住
//
// 參數:
//
//	limits: 政策上限 (bankCap / perWithdrawalCap)
//	accounts: 初始帳戶資料 Map (可為 nil)
//	walFile: Write-Ahead Log 實例 (可為 nil)
//	gateway: 資金釋出通道
//	sink: 事件通知 (可為 nil)
//
// 回傳:
//
//	*LMAXVault: LMAXVault 實例
//	error: 初始化錯誤
func NewLMAXVault(limits domain.Limits, accounts map[int64]*domain.Account, walFile *wal.WAL,
	gateway usecase.FundGateway, sink usecase.EventSink, logger zerolog.Logger) (*LMAXVault, error) {

	b, err := newBook(limits, accounts, walFile, gateway, sink, logger)
	if err != nil {
		return nil, err
	}

	return &LMAXVault{
		book:        b,
		requestChan: make(chan *vaultRequest, 1000), // Buffer 1000
		requestPool: sync.Pool{
			New: func() interface{} {
				return &vaultRequest{
					Result: make(chan vaultResult, 1),
				}
			},
		},
		stopped: make(chan struct{}),
	}, nil
}

// Start 啟動核心引擎 (非同步)
// ctx 結束時迴圈會把已排隊的請求處理完才停止；
// 停止之後的請求全部回 ErrVaultStopped
func (l *LMAXVault) Start(ctx context.Context) {
	go func() {
		l.run(ctx)
		close(l.stopped)
	}()
}

func (l *LMAXVault) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，把剩下的請求處理完
			l.drain(ctx)
			return
		case req := <-l.requestChan:
			l.process(ctx, req)
		}
	}
}

func (l *LMAXVault) drain(ctx context.Context) {
	for {
		select {
		case req := <-l.requestChan:
			l.process(ctx, req)
		default:
			return
		}
	}
}

// process 在核心迴圈內處理單一請求 (唯一會碰觸 book 的地方)
func (l *LMAXVault) process(ctx context.Context, req *vaultRequest) {
	var res vaultResult
	switch req.Op {
	case opDeposit:
		res.Balance, res.Err = l.book.deposit(req.Tx)
	case opWithdraw:
		res.Balance, res.Err = l.book.withdraw(ctx, req.Tx)
	case opBalanceOf:
		res.Balance = l.book.balanceOf(req.Account)
	case opTotalHeld:
		res.Balance = l.book.held
	case opStats:
		res.Stats = l.book.stats()
	}
	req.Result <- res
}

// post 把請求放上輸送帶並等待結果 (使用 sync.Pool 減少 GC)
// 迴圈停止後不會有接收端，必須 fast-fail 而不是卡在緩衝區
func (l *LMAXVault) post(req *vaultRequest) vaultResult {
	select {
	case l.requestChan <- req:
	case <-l.stopped:
		return vaultResult{Err: ErrVaultStopped}
	}

	select {
	case res := <-req.Result:
		l.requestPool.Put(req)
		return res
	case <-l.stopped:
		// 停止前的 drain 可能已經處理了這筆請求
		select {
		case res := <-req.Result:
			l.requestPool.Put(req)
			return res
		default:
			// 請求還留在輸送帶上，不可回收 (物件仍被 channel 引用)
			return vaultResult{Err: ErrVaultStopped}
		}
	}
}

func (l *LMAXVault) acquire(op vaultOp) *vaultRequest {
	req := l.requestPool.Get().(*vaultRequest)
	req.Op = op
	req.Tx = nil
	req.Account = 0
	// 清空 Channel (雖然理論上應該是空的，但保險起見)
	select {
	case <-req.Result:
	default:
	}
	return req
}

// Deposit 處理存款請求
func (l *LMAXVault) Deposit(ctx context.Context, tran *domain.Transaction) (int64, error) {
	req := l.acquire(opDeposit)
	req.Tx = tran
	res := l.post(req)
	return res.Balance, res.Err
}

// Withdraw 處理提款請求
func (l *LMAXVault) Withdraw(ctx context.Context, tran *domain.Transaction) (int64, error) {
	req := l.acquire(opWithdraw)
	req.Tx = tran
	res := l.post(req)
	return res.Balance, res.Err
}

// BalanceOf 取得指定帳戶的當前餘額，未知帳戶回傳 0
// 查詢一樣走核心迴圈，避免與寫入併發存取 Map
func (l *LMAXVault) BalanceOf(ctx context.Context, accountID int64) (int64, error) {
	req := l.acquire(opBalanceOf)
	req.Account = accountID
	res := l.post(req)
	return res.Balance, res.Err
}

// TotalHeld 取得目前總持有量
func (l *LMAXVault) TotalHeld(ctx context.Context) (int64, error) {
	req := l.acquire(opTotalHeld)
	res := l.post(req)
	return res.Balance, res.Err
}

// Stats 取得統計資訊
func (l *LMAXVault) Stats(ctx context.Context) (domain.Stats, error) {
	req := l.acquire(opStats)
	res := l.post(req)
	return res.Stats, res.Err
}

// LoadAllAccounts implements usecase.Vault.
// 僅供開機接手使用，啟動核心迴圈後不應再呼叫
func (l *LMAXVault) LoadAllAccounts(ctx context.Context) (map[int64]*domain.Account, error) {
	return l.book.accounts, nil
}

var _ usecase.Vault = (*LMAXVault)(nil)

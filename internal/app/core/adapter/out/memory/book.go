package memory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-vault-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-vault-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-vault-ledger/pkg/wal"
)

// book 是帳本核心狀態機，Mutex / LMAX 兩種後端共用
//
// 注意: book 本身不做任何同步，所有方法都假設呼叫端已經把
// check+effect+interaction 序列化成單一單元 (Mutex 鎖或單一寫入執行緒)
type book struct {
	accounts map[int64]*domain.Account
	// 政策上限 (不可變)
	bankCap          int64
	perWithdrawalCap int64
	// held 目前總持有量，恆等於所有帳戶餘額總和
	held int64
	// 操作計數器，僅供觀測，不參與餘額運算
	totalDeposits    uint64
	totalWithdrawals uint64
	// 全局順序號
	seq uint64
	// 已處理過的交易
	processed map[uuid.UUID]time.Time
	// Write-Ahead Logging
	wal *wal.WAL
	// 資金釋出通道，提款扣款後呼叫
	gateway usecase.FundGateway
	// 事件通知 (fire-and-forget)
	sink usecase.EventSink

	logger zerolog.Logger
}

// newBook 建立帳本核心並從 WAL 恢復
// 兩個上限皆不可為負數，否則回傳 ErrInvalidConfiguration
func newBook(limits domain.Limits, accounts map[int64]*domain.Account, walFile *wal.WAL,
	gateway usecase.FundGateway, sink usecase.EventSink, logger zerolog.Logger) (*book, error) {

	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = make(map[int64]*domain.Account)
	}

	b := &book{
		accounts:         accounts,
		bankCap:          limits.BankCap,
		perWithdrawalCap: limits.PerWithdrawalCap,
		processed:        make(map[uuid.UUID]time.Time),
		wal:              walFile,
		gateway:          gateway,
		sink:             sink,
		logger:           logger,
	}

	// 初始總持有量 = 接手帳戶的餘額總和
	for _, account := range accounts {
		b.held += account.Balance
	}

	if err := b.recoverFromWAL(); err != nil {
		return nil, err
	}
	return b, nil
}

// deposit 存款核心邏輯
// 檢查順序: 金額 > 0 -> 總量上限；任一失敗皆不留下狀態變更。
// 存款是單階段操作：入帳之後沒有任何外部呼叫
func (b *book) deposit(tran *domain.Transaction) (int64, error) {
	if tran.Amount <= 0 {
		return 0, domain.ErrZeroAmount
	}

	// Idempotency: 同一 RefID 重送直接回傳目前餘額
	if _, ok := b.processed[tran.TransactionID]; ok {
		return b.balanceOf(tran.Account), nil
	}

	// 總量上限檢查 (用減法避免 held+amount 溢位)
	if tran.Amount > b.bankCap-b.held {
		return 0, &domain.CapExceededError{Attempted: tran.Amount, Held: b.held, Cap: b.bankCap}
	}

	tran.Type = domain.TransactionTypeDeposit
	if err := b.journal(tran); err != nil {
		return 0, err
	}

	account, ok := b.accounts[tran.Account]
	if !ok {
		// 帳戶在第一筆成功入帳時建立
		account = domain.NewAccount(tran.Account, 0)
		b.accounts[tran.Account] = account
	}
	if err := account.Credit(tran.Amount); err != nil {
		return 0, err
	}
	b.held += tran.Amount
	b.totalDeposits++
	b.processed[tran.TransactionID] = time.Now()

	b.emit(domain.EventDeposited, tran.Account, tran.Amount, account.Balance)
	return account.Balance, nil
}

// withdraw 提款核心邏輯 (checks-effects-interactions)
//
// 依序檢查: 金額 > 0 -> 單筆上限 -> 餘額，任一失敗即中止且零狀態變更。
// 檢查通過後「先扣款、再釋出資金」：釋出方可能執行任意外部邏輯，
// 由於扣款已先發生，任何再進入的呼叫只會看到扣減後的餘額，
// 無法重複提領同一筆資金 —— 這個順序就是整個系統的核心安全性質。
// 釋出失敗時整筆操作原子回滾 (含先前的扣款) 並回傳 ReleaseFailedError
func (b *book) withdraw(ctx context.Context, tran *domain.Transaction) (int64, error) {
	if tran.Amount <= 0 {
		return 0, domain.ErrZeroAmount
	}

	if _, ok := b.processed[tran.TransactionID]; ok {
		return b.balanceOf(tran.Account), nil
	}

	// 單筆上限只看請求金額本身
	if tran.Amount > b.perWithdrawalCap {
		return 0, &domain.WithdrawalCapExceededError{Attempted: tran.Amount, Cap: b.perWithdrawalCap}
	}

	account, ok := b.accounts[tran.Account]
	if !ok {
		return 0, &domain.InsufficientBalanceError{Attempted: tran.Amount, Available: 0}
	}
	if account.Balance < tran.Amount {
		return 0, &domain.InsufficientBalanceError{Attempted: tran.Amount, Available: account.Balance}
	}

	// 1. 寫入 WAL (Critical Path)
	tran.Type = domain.TransactionTypeWithdraw
	if err := b.journal(tran); err != nil {
		return 0, err
	}

	// 2. 先扣款
	if err := account.Debit(tran.Amount); err != nil {
		return 0, err
	}
	b.held -= tran.Amount

	// 3. 釋出資金；成敗是 commit / rollback 的唯一依據
	if err := b.gateway.Release(ctx, tran.Account, tran.Amount); err != nil {
		b.rollbackWithdraw(tran, account)
		return 0, &domain.ReleaseFailedError{Cause: err}
	}

	// 4. Commit
	b.totalWithdrawals++
	b.processed[tran.TransactionID] = time.Now()

	b.emit(domain.EventWithdrawn, tran.Account, tran.Amount, account.Balance)
	return account.Balance, nil
}

// rollbackWithdraw 還原扣款並寫入補償紀錄，讓 WAL 重放得到與記憶體一致的狀態
func (b *book) rollbackWithdraw(tran *domain.Transaction, account *domain.Account) {
	revert := &domain.Transaction{
		Account:       tran.Account,
		Amount:        tran.Amount,
		TransactionID: tran.TransactionID,
		Type:          domain.TransactionTypeWithdrawRevert,
	}
	if err := b.journal(revert); err != nil {
		// 記憶體狀態照樣還原；重放差異只能靠人工比對，先留下紀錄
		b.logger.Error().Err(err).
			Int64("account", tran.Account).
			Int64("amount", tran.Amount).
			Msg("failed to journal withdraw revert")
	}
	account.Balance += tran.Amount
	b.held += tran.Amount
}

func (b *book) balanceOf(accountID int64) int64 {
	account, ok := b.accounts[accountID]
	if !ok {
		return 0
	}
	return account.Balance
}

func (b *book) stats() domain.Stats {
	return domain.Stats{
		TotalHeld:        b.held,
		TotalDeposits:    b.totalDeposits,
		TotalWithdrawals: b.totalWithdrawals,
		BankCap:          b.bankCap,
		PerWithdrawalCap: b.perWithdrawalCap,
	}
}

// journal 寫入 WAL 並立刻刷入硬碟
func (b *book) journal(tran *domain.Transaction) error {
	b.seq++
	tran.Sequence = b.seq
	if tran.CreatedAt == 0 {
		tran.CreatedAt = time.Now().UnixNano()
	}

	if b.wal == nil {
		return nil
	}
	if err := b.wal.Write(tran); err != nil {
		return domain.ErrWALWriteFailed
	}
	if err := b.wal.Flush(); err != nil {
		return domain.ErrWALWriteFailed
	}
	return nil
}

// emit 發送通知，sink 未設定時直接略過
func (b *book) emit(kind domain.EventKind, accountID, amount, newBalance int64) {
	if b.sink == nil {
		return
	}
	b.sink.Emit(domain.Event{
		Kind:       kind,
		Account:    accountID,
		Amount:     amount,
		NewBalance: newBalance,
		Held:       b.held,
		At:         time.Now(),
	})
}

// recoverFromWAL 從 WAL 檔案恢復帳本狀態
func (b *book) recoverFromWAL() error {
	if b.wal == nil {
		return nil
	}
	return b.wal.ReadAll(func(jsonRaw []byte) error {
		var tran domain.Transaction
		if err := json.Unmarshal(jsonRaw, &tran); err != nil {
			return err
		}
		return b.applyRecovered(&tran)
	})
}

// applyRecovered 重放單筆紀錄 (不寫 WAL、不呼叫 gateway、不發事件)
// 紀錄寫入當下已通過上限檢查，重放時不再驗證 bankCap，
// 否則縮小上限後的重啟會失敗
func (b *book) applyRecovered(tran *domain.Transaction) error {
	if tran.Sequence > b.seq {
		b.seq = tran.Sequence
	}

	switch tran.Type {
	case domain.TransactionTypeDeposit:
		account, ok := b.accounts[tran.Account]
		if !ok {
			account = domain.NewAccount(tran.Account, 0)
			b.accounts[tran.Account] = account
		}
		account.Balance += tran.Amount
		b.held += tran.Amount
		b.totalDeposits++
		b.processed[tran.TransactionID] = time.Now()

	case domain.TransactionTypeWithdraw:
		account, ok := b.accounts[tran.Account]
		if !ok {
			return &domain.InsufficientBalanceError{Attempted: tran.Amount, Available: 0}
		}
		account.Balance -= tran.Amount
		b.held -= tran.Amount
		b.totalWithdrawals++
		b.processed[tran.TransactionID] = time.Now()

	case domain.TransactionTypeWithdrawRevert:
		account, ok := b.accounts[tran.Account]
		if !ok {
			account = domain.NewAccount(tran.Account, 0)
			b.accounts[tran.Account] = account
		}
		account.Balance += tran.Amount
		b.held += tran.Amount
		b.totalWithdrawals--
		// 回滾過的 RefID 允許重試
		delete(b.processed, tran.TransactionID)
	}
	return nil
}

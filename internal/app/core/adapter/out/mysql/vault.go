package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-vault-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-vault-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-vault-ledger/pkg/mysql"
)

// sqlAccount 對應資料庫的 vault_accounts 表
type sqlAccount struct {
	ID        int64 `gorm:"primaryKey"`
	Balance   int64
	UpdatedAt int64 `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlAccount) TableName() string {
	return "vault_accounts"
}

// sqlTransaction 對應資料庫的 vault_transactions 表
type sqlTransaction struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	RefID     []byte `gorm:"column:ref_id;type:binary(16);uniqueIndex"` // 對應 domain.TransactionID
	Sequence  uint64 `gorm:"index"`
	AccountID int64
	Amount    int64
	Type      uint8
	CreatedAt int64 `gorm:"autoCreateTime:milli"` // 自動寫入時間
}

func (*sqlTransaction) TableName() string {
	return "vault_transactions"
}

// sqlVaultState 單列的全域狀態 (id 固定為 1)
// 總持有量與計數器集中在一列，配合悲觀鎖讓 bankCap 檢查
// 取得全域一致的視圖
type sqlVaultState struct {
	ID               int64 `gorm:"primaryKey"`
	Held             int64
	TotalDeposits    uint64
	TotalWithdrawals uint64
	UpdatedAt        int64 `gorm:"autoUpdateTime:milli"`
}

func (*sqlVaultState) TableName() string {
	return "vault_state"
}

const stateRowID = 1

// MySQLVault 是 GORM/MySQL 後端的託管帳本 (Level 0)
// 每筆操作包在一個資料庫交易內：資金釋出也在交易內呼叫，
// 釋出失敗時由 GORM 原生回滾整筆異動
type MySQLVault struct {
	client  *mysql.Client
	limits  domain.Limits
	gateway usecase.FundGateway
	sink    usecase.EventSink
}

func NewMySQLVault(client *mysql.Client, limits domain.Limits,
	gateway usecase.FundGateway, sink usecase.EventSink) (*MySQLVault, error) {

	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &MySQLVault{
		client:  client,
		limits:  limits,
		gateway: gateway,
		sink:    sink,
	}, nil
}

// AutoMigrate 建立帳本需要的資料表
func (v *MySQLVault) AutoMigrate() error {
	return v.client.DB().AutoMigrate(&sqlAccount{}, &sqlTransaction{}, &sqlVaultState{})
}

// Deposit 存款
func (v *MySQLVault) Deposit(ctx context.Context, tran *domain.Transaction) (int64, error) {
	if tran.Amount <= 0 {
		return 0, domain.ErrZeroAmount
	}

	var newBalance int64
	var held int64
	duplicated := false

	err := v.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先檢查是否有這筆交易記錄 (Idempotency)
		var existing sqlTransaction
		err := tx.Where("ref_id = ?", tran.TransactionID[:]).First(&existing).Error
		if err == nil {
			duplicated = true
			newBalance, err = balanceLocked(tx, tran.Account)
			return err
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// 鎖定全域狀態列，讓總量檢查有一致視圖 (悲觀鎖)
		state, err := lockState(tx)
		if err != nil {
			return err
		}
		if tran.Amount > v.limits.BankCap-state.Held {
			return &domain.CapExceededError{Attempted: tran.Amount, Held: state.Held, Cap: v.limits.BankCap}
		}

		// 鎖定帳戶；第一筆入帳時建立
		var account sqlAccount
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", tran.Account).
			First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			account = sqlAccount{ID: tran.Account}
			if err := tx.Create(&account).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		account.Balance += tran.Amount
		state.Held += tran.Amount
		state.TotalDeposits++

		if err := tx.Save(&account).Error; err != nil {
			return err
		}
		if err := tx.Save(state).Error; err != nil {
			return err
		}
		record := sqlTransaction{
			RefID:     tran.TransactionID[:],
			Sequence:  state.TotalDeposits + state.TotalWithdrawals,
			AccountID: tran.Account,
			Amount:    tran.Amount,
			Type:      uint8(domain.TransactionTypeDeposit),
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		newBalance = account.Balance
		held = state.Held
		return nil
	})
	if err != nil {
		return 0, err
	}

	if !duplicated {
		v.emit(domain.EventDeposited, tran.Account, tran.Amount, newBalance, held)
	}
	return newBalance, nil
}

// Withdraw 提款 (checks-effects-interactions)
// 扣款後才呼叫資金釋出；釋出錯誤會讓整個資料庫交易回滾，
// 不會留下「已扣款但未出金」的狀態
func (v *MySQLVault) Withdraw(ctx context.Context, tran *domain.Transaction) (int64, error) {
	if tran.Amount <= 0 {
		return 0, domain.ErrZeroAmount
	}
	// 單筆上限只看請求金額本身
	if tran.Amount > v.limits.PerWithdrawalCap {
		return 0, &domain.WithdrawalCapExceededError{Attempted: tran.Amount, Cap: v.limits.PerWithdrawalCap}
	}

	var newBalance int64
	var held int64
	duplicated := false

	err := v.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing sqlTransaction
		err := tx.Where("ref_id = ?", tran.TransactionID[:]).First(&existing).Error
		if err == nil {
			duplicated = true
			newBalance, err = balanceLocked(tx, tran.Account)
			return err
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		state, err := lockState(tx)
		if err != nil {
			return err
		}

		var account sqlAccount
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", tran.Account).
			First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &domain.InsufficientBalanceError{Attempted: tran.Amount, Available: 0}
		}
		if err != nil {
			return err
		}
		if account.Balance < tran.Amount {
			return &domain.InsufficientBalanceError{Attempted: tran.Amount, Available: account.Balance}
		}

		// 先扣款
		account.Balance -= tran.Amount
		state.Held -= tran.Amount
		state.TotalWithdrawals++

		if err := tx.Save(&account).Error; err != nil {
			return err
		}
		if err := tx.Save(state).Error; err != nil {
			return err
		}
		record := sqlTransaction{
			RefID:     tran.TransactionID[:],
			Sequence:  state.TotalDeposits + state.TotalWithdrawals,
			AccountID: tran.Account,
			Amount:    tran.Amount,
			Type:      uint8(domain.TransactionTypeWithdraw),
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		// 再釋出資金；失敗回傳錯誤讓 GORM 回滾以上所有異動
		if err := v.gateway.Release(ctx, tran.Account, tran.Amount); err != nil {
			return &domain.ReleaseFailedError{Cause: err}
		}

		newBalance = account.Balance
		held = state.Held
		return nil
	})
	if err != nil {
		return 0, err
	}

	if !duplicated {
		v.emit(domain.EventWithdrawn, tran.Account, tran.Amount, newBalance, held)
	}
	return newBalance, nil
}

// BalanceOf 取得帳戶餘額，未知帳戶回傳 0
func (v *MySQLVault) BalanceOf(ctx context.Context, accountID int64) (int64, error) {
	var account sqlAccount
	err := v.client.DB().WithContext(ctx).Where("id = ?", accountID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// TotalHeld 取得目前總持有量
func (v *MySQLVault) TotalHeld(ctx context.Context) (int64, error) {
	stats, err := v.Stats(ctx)
	if err != nil {
		return 0, err
	}
	return stats.TotalHeld, nil
}

// Stats 取得統計資訊
func (v *MySQLVault) Stats(ctx context.Context) (domain.Stats, error) {
	var state sqlVaultState
	err := v.client.DB().WithContext(ctx).Where("id = ?", stateRowID).First(&state).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Stats{}, err
	}
	return domain.Stats{
		TotalHeld:        state.Held,
		TotalDeposits:    state.TotalDeposits,
		TotalWithdrawals: state.TotalWithdrawals,
		BankCap:          v.limits.BankCap,
		PerWithdrawalCap: v.limits.PerWithdrawalCap,
	}, nil
}

// LoadAllAccounts 載入所有帳戶 (供記憶體後端開機接手)
func (v *MySQLVault) LoadAllAccounts(ctx context.Context) (map[int64]*domain.Account, error) {
	var accounts []sqlAccount
	if err := v.client.DB().WithContext(ctx).Find(&accounts).Error; err != nil {
		return nil, err
	}
	result := make(map[int64]*domain.Account, len(accounts))
	for _, account := range accounts {
		result[account.ID] = domain.NewAccount(account.ID, account.Balance)
	}
	return result, nil
}

func (v *MySQLVault) emit(kind domain.EventKind, accountID, amount, newBalance, held int64) {
	if v.sink == nil {
		return
	}
	v.sink.Emit(domain.Event{
		Kind:       kind,
		Account:    accountID,
		Amount:     amount,
		NewBalance: newBalance,
		Held:       held,
		At:         time.Now(),
	})
}

// lockState 以悲觀鎖取得全域狀態列，不存在時建立
func lockState(tx *gorm.DB) (*sqlVaultState, error) {
	var state sqlVaultState
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", stateRowID).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state = sqlVaultState{ID: stateRowID}
		if err := tx.Create(&state).Error; err != nil {
			return nil, err
		}
		return &state, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// balanceLocked 在交易內讀取帳戶餘額，未知帳戶回傳 0
func balanceLocked(tx *gorm.DB, accountID int64) (int64, error) {
	var account sqlAccount
	err := tx.Where("id = ?", accountID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

var _ usecase.Vault = (*MySQLVault)(nil)

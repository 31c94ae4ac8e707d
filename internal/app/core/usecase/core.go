package usecase

import (
	"context"

	"github.com/JoeShih716/go-vault-ledger/internal/app/core/domain"
)

// CoreUseCase 是核心業務邏輯層
type CoreUseCase struct {
	vault Vault
}

func NewCoreUseCase(vault Vault) *CoreUseCase {
	return &CoreUseCase{
		vault: vault,
	}
}

// Deposit 處理存款
func (c *CoreUseCase) Deposit(ctx context.Context, tran *domain.Transaction) (int64, error) {
	return c.vault.Deposit(ctx, tran)
}

// Withdraw 處理提款
func (c *CoreUseCase) Withdraw(ctx context.Context, tran *domain.Transaction) (int64, error) {
	return c.vault.Withdraw(ctx, tran)
}

// BalanceOf 取得帳戶餘額
func (c *CoreUseCase) BalanceOf(ctx context.Context, accountID int64) (int64, error) {
	return c.vault.BalanceOf(ctx, accountID)
}

// TotalHeld 取得總持有量
func (c *CoreUseCase) TotalHeld(ctx context.Context) (int64, error) {
	return c.vault.TotalHeld(ctx)
}

// Stats 取得統計資訊
func (c *CoreUseCase) Stats(ctx context.Context) (domain.Stats, error) {
	return c.vault.Stats(ctx)
}

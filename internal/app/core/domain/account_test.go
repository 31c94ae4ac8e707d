package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAccountCreditDebit 驗證帳戶實體的入帳/出帳基本行為
func TestAccountCreditDebit(t *testing.T) {
	a := NewAccount(1, 0)

	require.NoError(t, a.Credit(100))
	assert.Equal(t, int64(100), a.Balance)

	require.NoError(t, a.Debit(40))
	assert.Equal(t, int64(60), a.Balance)
}

// TestAccountDebitUnderflow 出帳超過餘額必須失敗且餘額不變
func TestAccountDebitUnderflow(t *testing.T) {
	a := NewAccount(1, 60)

	err := a.Debit(61)

	var insufErr *InsufficientBalanceError
	require.ErrorAs(t, err, &insufErr)
	assert.Equal(t, int64(61), insufErr.Attempted)
	assert.Equal(t, int64(60), insufErr.Available)
	assert.Equal(t, int64(60), a.Balance) // 餘額不變
}

// TestAccountZeroAmount 金額必須為正數
func TestAccountZeroAmount(t *testing.T) {
	a := NewAccount(1, 10)

	assert.ErrorIs(t, a.Credit(0), ErrZeroAmount)
	assert.ErrorIs(t, a.Credit(-1), ErrZeroAmount)
	assert.ErrorIs(t, a.Debit(0), ErrZeroAmount)
	assert.Equal(t, int64(10), a.Balance)
}

// TestLimitsValidate 上限不可為負數
func TestLimitsValidate(t *testing.T) {
	assert.NoError(t, Limits{BankCap: 0, PerWithdrawalCap: 0}.Validate())
	assert.NoError(t, Limits{BankCap: 100, PerWithdrawalCap: 10}.Validate())
	assert.ErrorIs(t, Limits{BankCap: -1, PerWithdrawalCap: 10}.Validate(), ErrInvalidConfiguration)
	assert.ErrorIs(t, Limits{BankCap: 100, PerWithdrawalCap: -1}.Validate(), ErrInvalidConfiguration)
}

// TestStructuredErrors 錯誤必須攜帶精確的診斷數字，且可被 errors.As / Unwrap 取出
func TestStructuredErrors(t *testing.T) {
	capErr := &CapExceededError{Attempted: 50, Held: 60, Cap: 100}
	assert.Contains(t, capErr.Error(), "50")
	assert.Contains(t, capErr.Error(), "60")
	assert.Contains(t, capErr.Error(), "100")

	wErr := &WithdrawalCapExceededError{Attempted: 15, Cap: 10}
	assert.Contains(t, wErr.Error(), "15")
	assert.Contains(t, wErr.Error(), "10")

	cause := errors.New("connection reset")
	relErr := &ReleaseFailedError{Cause: cause}
	assert.ErrorIs(t, relErr, cause) // Unwrap 鏈
	assert.Contains(t, relErr.Error(), "connection reset")
}

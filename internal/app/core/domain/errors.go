package domain

import (
	"errors"
	"fmt"
)

// 錯誤設計原則:
// 不帶參數的錯誤用 sentinel，帶金額/上限的錯誤用 struct，
// 讓呼叫端可以用 errors.As 取出精確的診斷資訊，而不是解析字串。

var (
	// ErrZeroAmount 金額必須為正數
	ErrZeroAmount = errors.New("amount must be positive")

	// ErrInvalidConfiguration 建構參數無法表示 (例如負數的上限)
	ErrInvalidConfiguration = errors.New("invalid vault configuration")

	// ErrWALWriteFailed WAL 寫入失敗
	ErrWALWriteFailed = errors.New("wal write failed")
)

// CapExceededError 存款會使總持有量超過 bankCap
type CapExceededError struct {
	Attempted int64 // 嘗試存入的金額
	Held      int64 // 目前總持有量
	Cap       int64 // bankCap
}

func (e *CapExceededError) Error() string {
	return fmt.Sprintf("bank cap exceeded: attempted %d with %d held, cap %d", e.Attempted, e.Held, e.Cap)
}

// WithdrawalCapExceededError 單筆提款超過 perWithdrawalCap
// 只檢查請求金額本身，不看剩餘餘額
type WithdrawalCapExceededError struct {
	Attempted int64
	Cap       int64
}

func (e *WithdrawalCapExceededError) Error() string {
	return fmt.Sprintf("withdrawal cap exceeded: attempted %d, cap %d", e.Attempted, e.Cap)
}

// InsufficientBalanceError 餘額不足
type InsufficientBalanceError struct {
	Attempted int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: attempted %d, available %d", e.Attempted, e.Available)
}

// ReleaseFailedError 資金釋出失敗，整筆提款已回滾
type ReleaseFailedError struct {
	Cause error
}

func (e *ReleaseFailedError) Error() string {
	return fmt.Sprintf("fund release failed: %v", e.Cause)
}

// Unwrap 讓 errors.Is / errors.As 可以往下比對原始錯誤
func (e *ReleaseFailedError) Unwrap() error {
	return e.Cause
}

package domain

import "github.com/google/uuid"

// amount 使用int64，並定義精度：小數點後 4 位
const (
	CurrencyScale = 10000
)

// TransactionType 交易類型
// 為了極致節省記憶體，使用 uint8
type TransactionType uint8

const (
	// 存款
	TransactionTypeDeposit TransactionType = 1
	// 提款
	TransactionTypeWithdraw TransactionType = 2
	// 提款回滾 (資金釋出失敗時寫入的補償紀錄)
	TransactionTypeWithdrawRevert TransactionType = 3
)

// Transaction 交易 注意欄位排序以避免 Padding
type Transaction struct {
	// Sequence: 全局唯一的順序號 (由核心引擎分配，1, 2, 3...)
	// 用於 WAL 重放確保順序一致
	Sequence uint64
	// Account: 帳戶 ID (存款的受款人 / 提款的出款人)
	Account int64
	// Amount: 金額
	Amount int64
	// CreatedAt: 交易時間
	CreatedAt int64
	// TransactionID: 外部追蹤號 (UUID)，同一 RefID 重送視為同一筆交易
	TransactionID uuid.UUID
	// Type: 放到最後面，利用 Padding 空間
	Type TransactionType
}

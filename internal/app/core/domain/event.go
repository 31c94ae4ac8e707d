package domain

import "time"

// EventKind 通知種類
type EventKind uint8

const (
	EventDeposited EventKind = 1
	EventWithdrawn EventKind = 2
)

func (k EventKind) String() string {
	switch k {
	case EventDeposited:
		return "deposited"
	case EventWithdrawn:
		return "withdrawn"
	default:
		return "unknown"
	}
}

// Event 對外的觀測通知 (Deposited / Withdrawn)
// 只在交易成功提交後發出；投遞為 fire-and-forget，不影響帳本狀態
type Event struct {
	Kind       EventKind `json:"kind"`
	Account    int64     `json:"account"`
	Amount     int64     `json:"amount"`
	NewBalance int64     `json:"new_balance"`
	Held       int64     `json:"held"`
	At         time.Time `json:"at"`
}

// Stats 帳本統計資訊，計數器僅供觀測，不參與餘額運算
type Stats struct {
	TotalHeld        int64
	TotalDeposits    uint64
	TotalWithdrawals uint64
	BankCap          int64
	PerWithdrawalCap int64
}

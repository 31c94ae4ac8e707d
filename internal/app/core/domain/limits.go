package domain

// Limits 帳本的兩個不可變政策上限
// 建構時設定一次，之後不得修改；兩者之間不假設任何大小關係
type Limits struct {
	// BankCap 帳本可持有的總量上限
	BankCap int64
	// PerWithdrawalCap 單筆提款上限
	PerWithdrawalCap int64
}

// Validate 上限不可為負數 (int64 表示法下的「無法表示」)
func (l Limits) Validate() error {
	if l.BankCap < 0 || l.PerWithdrawalCap < 0 {
		return ErrInvalidConfiguration
	}
	return nil
}

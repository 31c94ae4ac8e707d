package domain

// Account 帳戶實體
// 帳戶在第一筆成功存款時建立，餘額歸零後也不會刪除 (零餘額代表沒有求償權)
type Account struct {
	ID      int64
	Balance int64
}

func NewAccount(id int64, balance int64) *Account {
	return &Account{
		ID:      id,
		Balance: balance,
	}
}

// Credit 入帳
func (a *Account) Credit(amount int64) error {
	if amount <= 0 {
		return ErrZeroAmount
	}

	a.Balance = a.Balance + amount
	return nil
}

// Debit 出帳，餘額不足時回傳帶有可用餘額的錯誤
func (a *Account) Debit(amount int64) error {
	if amount <= 0 {
		return ErrZeroAmount
	}

	if a.Balance < amount {
		return &InsufficientBalanceError{Attempted: amount, Available: a.Balance}
	}

	a.Balance = a.Balance - amount
	return nil
}

package memory

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-vault-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-vault-ledger/pkg/wal"
)

// stubGateway 測試用的資金釋出通道
// err 非 nil 時模擬釋出失敗；delay 模擬慢速結算；
// onRelease 讓測試可以在釋出當下插入任意行為 (例如再進入攻擊)
type stubGateway struct {
	mu        sync.Mutex
	err       error
	delay     time.Duration
	calls     int
	onRelease func(accountID, amount int64)
}

func (g *stubGateway) Release(ctx context.Context, accountID, amount int64) error {
	g.mu.Lock()
	g.calls++
	fn := g.onRelease
	err := g.err
	delay := g.delay
	g.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fn != nil {
		fn(accountID, amount)
	}
	return err
}

func (g *stubGateway) setErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// recordSink 記錄收到的通知供測試檢查
type recordSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordSink) Emit(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordSink) all() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

func newTestVault(t *testing.T, limits domain.Limits, gw *stubGateway) (*MutexVault, *recordSink) {
	t.Helper()
	sink := &recordSink{}
	v, err := NewMutexVault(limits, nil, nil, gw, sink, zerolog.Nop())
	require.NoError(t, err)
	return v, sink
}

func makeTx(account, amount int64) *domain.Transaction {
	return &domain.Transaction{TransactionID: uuid.New(), Account: account, Amount: amount}
}

// TestMutexVaultDepositAndQueries 基本存款與查詢：
// 帳戶在第一筆入帳時建立、未知帳戶餘額為 0、totalHeld 等於餘額總和
func TestMutexVaultDepositAndQueries(t *testing.T) {
	ctx := context.Background()
	v, sink := newTestVault(t, domain.Limits{BankCap: 100, PerWithdrawalCap: 10}, &stubGateway{})

	balance, err := v.Deposit(ctx, makeTx(1, 60))
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)

	balance, err = v.BalanceOf(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)

	// 未知帳戶回傳 0，不是錯誤
	balance, err = v.BalanceOf(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	held, err := v.TotalHeld(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(60), held)

	stats, err := v.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.TotalDeposits)
	assert.Equal(t, uint64(0), stats.TotalWithdrawals)
	assert.Equal(t, int64(100), stats.BankCap)
	assert.Equal(t, int64(10), stats.PerWithdrawalCap)

	// Deposited 通知帶正確數字
	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventDeposited, events[0].Kind)
	assert.Equal(t, int64(60), events[0].Amount)
	assert.Equal(t, int64(60), events[0].NewBalance)
}

// TestMutexVaultBankCapScenario cap=100、存 60 成功、再存 50 失敗，
// 失敗的那筆不留下任何狀態變更
func TestMutexVaultBankCapScenario(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t, domain.Limits{BankCap: 100, PerWithdrawalCap: 10}, &stubGateway{})

	_, err := v.Deposit(ctx, makeTx(1, 60))
	require.NoError(t, err)

	_, err = v.Deposit(ctx, makeTx(1, 50))
	var capErr *domain.CapExceededError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, int64(50), capErr.Attempted)
	assert.Equal(t, int64(60), capErr.Held)
	assert.Equal(t, int64(100), capErr.Cap)

	balance, _ := v.BalanceOf(ctx, 1)
	assert.Equal(t, int64(60), balance)
	held, _ := v.TotalHeld(ctx)
	assert.Equal(t, int64(60), held)

	stats, _ := v.Stats(ctx)
	assert.Equal(t, uint64(1), stats.TotalDeposits)
}

// TestMutexVaultDepositZeroAmount 金額必須為正數
func TestMutexVaultDepositZeroAmount(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t, domain.Limits{BankCap: 100, PerWithdrawalCap: 10}, &stubGateway{})

	_, err := v.Deposit(ctx, makeTx(1, 0))
	assert.ErrorIs(t, err, domain.ErrZeroAmount)

	_, err = v.Deposit(ctx, makeTx(1, -5))
	assert.ErrorIs(t, err, domain.ErrZeroAmount)

	held, _ := v.TotalHeld(ctx)
	assert.Equal(t, int64(0), held)
}

// TestMutexVaultWithdrawChecks 提款的三道前置檢查依序觸發，
// 任一失敗都是零狀態變更
func TestMutexVaultWithdrawChecks(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{}
	v, _ := newTestVault(t, domain.Limits{BankCap: 100, PerWithdrawalCap: 10}, gw)

	_, err := v.Deposit(ctx, makeTx(1, 60))
	require.NoError(t, err)

	// 1. 金額必須為正數
	_, err = v.Withdraw(ctx, makeTx(1, 0))
	assert.ErrorIs(t, err, domain.ErrZeroAmount)

	// 2. 單筆上限
	_, err = v.Withdraw(ctx, makeTx(1, 15))
	var wCapErr *domain.WithdrawalCapExceededError
	require.ErrorAs(t, err, &wCapErr)
	assert.Equal(t, int64(15), wCapErr.Attempted)
	assert.Equal(t, int64(10), wCapErr.Cap)

	// 3. 餘額不足 (未知帳戶 available=0)
	_, err = v.Withdraw(ctx, makeTx(999, 5))
	var insufErr *domain.InsufficientBalanceError
	require.ErrorAs(t, err, &insufErr)
	assert.Equal(t, int64(5), insufErr.Attempted)
	assert.Equal(t, int64(0), insufErr.Available)

	// 失敗的檢查不會呼叫 gateway
	assert.Equal(t, 0, gw.callCount())

	balance, _ := v.BalanceOf(ctx, 1)
	assert.Equal(t, int64(60), balance)

	// 合法提款
	balance, err = v.Withdraw(ctx, makeTx(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)
	assert.Equal(t, 1, gw.callCount())
}

// TestMutexVaultRoundTrip 存款後提領同額，帳戶回到原本餘額
func TestMutexVaultRoundTrip(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t, domain.Limits{BankCap: 1000, PerWithdrawalCap: 1000}, &stubGateway{})

	_, err := v.Deposit(ctx, makeTx(7, 50))
	require.NoError(t, err)

	balance, err := v.Withdraw(ctx, makeTx(7, 50))
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	held, _ := v.TotalHeld(ctx)
	assert.Equal(t, int64(0), held)
}

// TestMutexVaultReleaseFailureRollsBack 釋出失敗時整筆提款原子回滾，
// 餘額、totalHeld、計數器都要回到呼叫前的狀態
func TestMutexVaultReleaseFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{err: errors.New("settlement unavailable")}
	v, sink := newTestVault(t, domain.Limits{BankCap: 100, PerWithdrawalCap: 10}, gw)

	_, err := v.Deposit(ctx, makeTx(1, 60))
	require.NoError(t, err)

	tran := makeTx(1, 10)
	_, err = v.Withdraw(ctx, tran)

	var relErr *domain.ReleaseFailedError
	require.ErrorAs(t, err, &relErr)
	assert.ErrorIs(t, err, gw.err) // Unwrap 到原始原因

	balance, _ := v.BalanceOf(ctx, 1)
	assert.Equal(t, int64(60), balance)
	held, _ := v.TotalHeld(ctx)
	assert.Equal(t, int64(60), held)
	stats, _ := v.Stats(ctx)
	assert.Equal(t, uint64(0), stats.TotalWithdrawals)

	// 回滾的提款不發 Withdrawn 通知
	for _, ev := range sink.all() {
		assert.NotEqual(t, domain.EventWithdrawn, ev.Kind)
	}

	// 同一 RefID 在修復後重試必須成功 (回滾已清除冪等標記)
	gw.setErr(nil)
	balance, err = v.Withdraw(ctx, tran)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)
}

// TestMutexVaultIdempotency 同一 RefID 重送視為同一筆交易，不重複入帳
func TestMutexVaultIdempotency(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t, domain.Limits{BankCap: 100, PerWithdrawalCap: 10}, &stubGateway{})

	tran := makeTx(1, 60)
	_, err := v.Deposit(ctx, tran)
	require.NoError(t, err)

	balance, err := v.Deposit(ctx, tran)
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)

	stats, _ := v.Stats(ctx)
	assert.Equal(t, uint64(1), stats.TotalDeposits)
	held, _ := v.TotalHeld(ctx)
	assert.Equal(t, int64(60), held)
}

// TestMutexVaultConcurrentDoubleWithdraw 餘額 60、兩筆並發的 withdraw(60)，
// 恰好一筆成功、另一筆 InsufficientBalance
func TestMutexVaultConcurrentDoubleWithdraw(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{delay: 20 * time.Millisecond}
	v, _ := newTestVault(t, domain.Limits{BankCap: 1000, PerWithdrawalCap: 100}, gw)

	_, err := v.Deposit(ctx, makeTx(1, 60))
	require.NoError(t, err)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := v.Withdraw(ctx, makeTx(1, 60))
			results <- err
		}()
	}

	var okCount, insufCount int
	for i := 0; i < 2; i++ {
		err := <-results
		if err == nil {
			okCount++
			continue
		}
		var insufErr *domain.InsufficientBalanceError
		if errors.As(err, &insufErr) {
			insufCount++
			assert.Equal(t, int64(60), insufErr.Attempted)
			assert.Equal(t, int64(0), insufErr.Available)
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, insufCount)

	balance, _ := v.BalanceOf(ctx, 1)
	assert.Equal(t, int64(0), balance)
	stats, _ := v.Stats(ctx)
	assert.Equal(t, uint64(1), stats.TotalWithdrawals)
}

// TestMutexVaultReentrantWithdraw 模擬釋出方在釋出期間發起的再進入提款：
// 它會等到第一筆解決後才開始，並且只看得到扣減後的餘額 (核心安全性質)
func TestMutexVaultReentrantWithdraw(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{}
	v, _ := newTestVault(t, domain.Limits{BankCap: 1000, PerWithdrawalCap: 100}, gw)

	_, err := v.Deposit(ctx, makeTx(1, 60))
	require.NoError(t, err)

	reentrant := make(chan error, 1)
	gw.onRelease = func(accountID, amount int64) {
		// 釋出方在另一個 goroutine 再打一筆提款 (同步回呼會自我死鎖，屬違規使用)
		go func() {
			_, err := v.Withdraw(ctx, makeTx(1, 60))
			reentrant <- err
		}()
	}

	balance, err := v.Withdraw(ctx, makeTx(1, 60))
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	err = <-reentrant
	var insufErr *domain.InsufficientBalanceError
	require.ErrorAs(t, err, &insufErr)
	assert.Equal(t, int64(0), insufErr.Available) // 看到的是扣減後的餘額
}

// TestMutexVaultWALRecovery 重啟後從 WAL 重放出與提交時完全一致的狀態，
// 包含回滾過的提款 (補償紀錄) 與冪等標記
func TestMutexVaultWALRecovery(t *testing.T) {
	ctx := context.Background()
	walPath := filepath.Join(t.TempDir(), "wal.log")
	limits := domain.Limits{BankCap: 1000, PerWithdrawalCap: 100}

	wal1, err := wal.NewWAL(walPath)
	require.NoError(t, err)

	gw := &stubGateway{}
	v1, err := NewMutexVault(limits, nil, wal1, gw, nil, zerolog.Nop())
	require.NoError(t, err)

	depositRef := makeTx(1, 100)
	_, err = v1.Deposit(ctx, depositRef)
	require.NoError(t, err)

	_, err = v1.Withdraw(ctx, makeTx(1, 30))
	require.NoError(t, err)

	// 釋出失敗 → 補償紀錄
	gw.setErr(errors.New("boom"))
	revertedRef := makeTx(1, 20)
	_, err = v1.Withdraw(ctx, revertedRef)
	require.Error(t, err)
	require.NoError(t, wal1.Close())

	// 重啟
	wal2, err := wal.NewWAL(walPath)
	require.NoError(t, err)
	defer wal2.Close()

	v2, err := NewMutexVault(limits, nil, wal2, &stubGateway{}, nil, zerolog.Nop())
	require.NoError(t, err)

	balance, _ := v2.BalanceOf(ctx, 1)
	assert.Equal(t, int64(70), balance)
	held, _ := v2.TotalHeld(ctx)
	assert.Equal(t, int64(70), held)

	stats, _ := v2.Stats(ctx)
	assert.Equal(t, uint64(1), stats.TotalDeposits)
	assert.Equal(t, uint64(1), stats.TotalWithdrawals)

	// 已提交的 RefID 重送仍然是 no-op
	balance, err = v2.Deposit(ctx, depositRef)
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)

	// 回滾過的 RefID 可以重試
	balance, err = v2.Withdraw(ctx, revertedRef)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)
}

// TestMutexVaultInvalidConfiguration 負數上限擋在建構期
func TestMutexVaultInvalidConfiguration(t *testing.T) {
	_, err := NewMutexVault(domain.Limits{BankCap: -1}, nil, nil, &stubGateway{}, nil, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, err = NewMutexVault(domain.Limits{PerWithdrawalCap: -1}, nil, nil, &stubGateway{}, nil, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

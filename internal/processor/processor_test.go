package processor

import (
	"bank_manager/internal/currency"
	"bank_manager/internal/domain"
	"bank_manager/internal/repository"
	"bank_manager/internal/repository/memory"
	"bank_manager/pkg/validator"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

type recorderSpy struct {
	mu         sync.Mutex
	operations map[string][]error
	balances   map[string]float64
}

func newRecorderSpy() *recorderSpy {
	return &recorderSpy{operations: map[string][]error{}, balances: map[string]float64{}}
}

func (r *recorderSpy) RecordOperation(operation string, duration time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations[operation] = append(r.operations[operation], err)
}

func (r *recorderSpy) UpdateAccountBalance(accountID, currency string, balance float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[accountID] = balance
}

func setup(t *testing.T) (*TransactionProcessor, *memory.AccountRepository, *recorderSpy) {
	t.Helper()
	conv, err := currency.NewConverter(currency.DefaultRate)
	if err != nil {
		t.Fatalf("converter: %v", err)
	}
	repo := memory.NewAccountRepository()
	spy := newRecorderSpy()
	return NewTransactionProcessor(repo, conv, spy, nil), repo, spy
}

func mustSave(t *testing.T, repo *memory.AccountRepository, kind, id string, balance int64) {
	t.Helper()
	acc, err := domain.NewAccount(kind, id, "holder-"+id, decimal.NewFromInt(balance), "pw")
	if err != nil {
		t.Fatalf("new account: %v", err)
	}
	if err := repo.Save(context.Background(), acc); err != nil {
		t.Fatalf("save account failed: %v", err)
	}
}

func balanceOf(t *testing.T, repo *memory.AccountRepository, id string) decimal.Decimal {
	t.Helper()
	acc, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return acc.Balance
}

func TestTransactionProcessor_Deposit(t *testing.T) {
	proc, repo, spy := setup(t)
	mustSave(t, repo, "dollar", "a1", 100)

	tx, err := proc.Deposit(context.Background(), "a1", decimal.NewFromInt(150))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := balanceOf(t, repo, "a1"); !got.Equal(decimal.NewFromInt(250)) {
		t.Errorf("expected 250, got %s", got)
	}
	if tx.Type != domain.TypeDeposit || !tx.BalanceAfter.Equal(decimal.NewFromInt(250)) || tx.ID == "" {
		t.Errorf("unexpected receipt: %+v", tx)
	}
	if len(spy.operations["deposit"]) != 1 || spy.operations["deposit"][0] != nil {
		t.Errorf("expected one successful deposit recorded, got %v", spy.operations["deposit"])
	}
	if spy.balances["a1"] != 250 {
		t.Errorf("expected published balance 250, got %v", spy.balances["a1"])
	}
}

func TestTransactionProcessor_DepositUnknownAccount(t *testing.T) {
	proc, _, _ := setup(t)

	_, err := proc.Deposit(context.Background(), "ghost", decimal.NewFromInt(1))

	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransactionProcessor_WithdrawInsufficientFunds(t *testing.T) {
	proc, repo, spy := setup(t)
	mustSave(t, repo, "dollar", "a1", 100)

	_, err := proc.Withdraw(context.Background(), "a1", decimal.NewFromInt(200))

	if !errors.Is(err, repository.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := balanceOf(t, repo, "a1"); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100, got %s", got)
	}
	if errs := spy.operations["withdrawal"]; len(errs) != 1 || errs[0] == nil {
		t.Errorf("expected one failed withdrawal recorded, got %v", errs)
	}
}

func TestTransactionProcessor_WithdrawWholeBalance(t *testing.T) {
	proc, repo, _ := setup(t)
	mustSave(t, repo, "tenge", "a1", 100)

	if _, err := proc.Withdraw(context.Background(), "a1", decimal.NewFromInt(100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := balanceOf(t, repo, "a1"); !got.IsZero() {
		t.Errorf("expected 0, got %s", got)
	}
}

func TestTransactionProcessor_WithdrawProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		proc, repo, _ := setup(t)
		start := rapid.Int64Range(0, 1_000_000).Draw(rt, "balance")
		amount := rapid.Int64Range(1, 2_000_000).Draw(rt, "amount")
		mustSave(t, repo, "dollar", "a1", start)

		_, err := proc.Withdraw(context.Background(), "a1", decimal.NewFromInt(amount))

		got := balanceOf(t, repo, "a1")
		if amount <= start {
			if err != nil {
				rt.Fatalf("withdraw %d from %d: unexpected error %v", amount, start, err)
			}
			if !got.Equal(decimal.NewFromInt(start - amount)) {
				rt.Fatalf("withdraw %d from %d: balance %s", amount, start, got)
			}
			return
		}
		if !errors.Is(err, repository.ErrInsufficientFunds) {
			rt.Fatalf("withdraw %d from %d: expected ErrInsufficientFunds, got %v", amount, start, err)
		}
		if !got.Equal(decimal.NewFromInt(start)) {
			rt.Fatalf("withdraw %d from %d: balance changed to %s", amount, start, got)
		}
	})
}

func TestTransactionProcessor_NonPositiveAmountsMutateNothing(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		proc, repo, _ := setup(t)
		mustSave(t, repo, "dollar", "s", 100)
		mustSave(t, repo, "tenge", "r", 100)
		amount := decimal.New(rapid.Int64Range(-1_000_000, 0).Draw(rt, "cents"), -2)
		ctx := context.Background()

		_, errDeposit := proc.Deposit(ctx, "s", amount)
		_, errWithdraw := proc.Withdraw(ctx, "s", amount)
		_, errTransfer := proc.Transfer(ctx, "s", "r", amount)

		for _, err := range []error{errDeposit, errWithdraw, errTransfer} {
			if !errors.Is(err, validator.ErrInvalidAmount) {
				rt.Fatalf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
			}
		}
		if !balanceOf(t, repo, "s").Equal(decimal.NewFromInt(100)) || !balanceOf(t, repo, "r").Equal(decimal.NewFromInt(100)) {
			rt.Fatalf("amount %s: balances changed", amount)
		}
	})
}

func TestTransactionProcessor_TransferAcrossCurrencies(t *testing.T) {
	proc, repo, _ := setup(t)
	mustSave(t, repo, "dollar", "S", 100)
	mustSave(t, repo, "tenge", "R", 0)

	tx, err := proc.Transfer(context.Background(), "S", "R", decimal.NewFromInt(10))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := balanceOf(t, repo, "S"); !got.Equal(decimal.NewFromInt(90)) {
		t.Errorf("expected sender 90, got %s", got)
	}
	if got := balanceOf(t, repo, "R"); !got.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("expected recipient 5000, got %s", got)
	}
	if !tx.ConvertedAmount.Equal(decimal.NewFromInt(5000)) || tx.ToCurrency != domain.CurrencyKZT || tx.Currency != domain.CurrencyUSD {
		t.Errorf("unexpected receipt: %+v", tx)
	}
}

func TestTransactionProcessor_TransferTengeToDollar(t *testing.T) {
	proc, repo, _ := setup(t)
	mustSave(t, repo, "tenge", "S", 1000)
	mustSave(t, repo, "dollar", "R", 1)

	if _, err := proc.Transfer(context.Background(), "S", "R", decimal.NewFromInt(250)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := balanceOf(t, repo, "S"); !got.Equal(decimal.NewFromInt(750)) {
		t.Errorf("expected sender 750, got %s", got)
	}
	if got := balanceOf(t, repo, "R"); !got.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("expected recipient 1.5, got %s", got)
	}
}

func TestTransactionProcessor_TransferSameCurrency(t *testing.T) {
	proc, repo, _ := setup(t)
	mustSave(t, repo, "dollar", "S", 1000)
	mustSave(t, repo, "dollar", "R", 500)

	if _, err := proc.Transfer(context.Background(), "S", "R", decimal.NewFromInt(200)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := balanceOf(t, repo, "S"); !got.Equal(decimal.NewFromInt(800)) {
		t.Errorf("expected 800, got %s", got)
	}
	if got := balanceOf(t, repo, "R"); !got.Equal(decimal.NewFromInt(700)) {
		t.Errorf("expected 700, got %s", got)
	}
}

func TestTransactionProcessor_TransferFailures(t *testing.T) {
	tests := []struct {
		name      string
		recipient string
		amount    int64
		wantErr   error
	}{
		{"non-positive amount", "R", 0, validator.ErrInvalidAmount},
		{"unknown recipient", "nobody", 10, ErrRecipientNotFound},
		{"self transfer", "S", 10, validator.ErrSelfTransfer},
		{"insufficient funds", "R", 101, repository.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, repo, _ := setup(t)
			mustSave(t, repo, "dollar", "S", 100)
			mustSave(t, repo, "tenge", "R", 0)

			_, err := proc.Transfer(context.Background(), "S", tt.recipient, decimal.NewFromInt(tt.amount))

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if got := balanceOf(t, repo, "S"); !got.Equal(decimal.NewFromInt(100)) {
				t.Errorf("sender balance changed to %s", got)
			}
			if got := balanceOf(t, repo, "R"); !got.IsZero() {
				t.Errorf("recipient balance changed to %s", got)
			}
		})
	}
}

// vanishingRepository drops one account right before the next batch update.
type vanishingRepository struct {
	*memory.AccountRepository
	vanish string
}

func (r *vanishingRepository) ApplyBalanceUpdates(ctx context.Context, updates ...domain.BalanceUpdate) ([]domain.Account, error) {
	r.Delete(ctx, r.vanish)
	return r.AccountRepository.ApplyBalanceUpdates(ctx, updates...)
}

func TestTransactionProcessor_TransferRecipientRemovedMidway(t *testing.T) {
	conv, err := currency.NewConverter(currency.DefaultRate)
	if err != nil {
		t.Fatalf("converter: %v", err)
	}
	store := memory.NewAccountRepository()
	mustSave(t, store, "dollar", "s", 100)
	mustSave(t, store, "tenge", "r", 0)
	proc := NewTransactionProcessor(&vanishingRepository{AccountRepository: store, vanish: "r"}, conv, nil, nil)

	_, err = proc.Transfer(context.Background(), "s", "r", decimal.NewFromInt(10))

	if !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("expected ErrRecipientNotFound, got %v", err)
	}
	if got := balanceOf(t, store, "s"); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("sender balance changed to %s", got)
	}
}

func TestTransactionProcessor_TransferUnsupportedConversion(t *testing.T) {
	proc, repo, _ := setup(t)
	mustSave(t, repo, "dollar", "S", 100)
	euro := &domain.Account{ID: "E", Holder: "Euro", Currency: domain.Currency("EUR"), Balance: decimal.Zero}
	if err := repo.Save(context.Background(), euro); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err := proc.Transfer(context.Background(), "S", "E", decimal.NewFromInt(10))

	if !errors.Is(err, currency.ErrUnsupportedConversion) {
		t.Fatalf("expected ErrUnsupportedConversion, got %v", err)
	}
	if got := balanceOf(t, repo, "S"); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("sender balance changed to %s", got)
	}
	if got := balanceOf(t, repo, "E"); !got.IsZero() {
		t.Errorf("recipient balance changed to %s", got)
	}
}

func TestTransactionProcessor_CheckBalance(t *testing.T) {
	proc, repo, _ := setup(t)
	mustSave(t, repo, "tenge", "a1", 42)

	balance, cur, err := proc.CheckBalance(context.Background(), "a1")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(42)) || cur != domain.CurrencyKZT {
		t.Errorf("expected 42 KZT, got %s %s", balance, cur)
	}
	if _, _, err := proc.CheckBalance(context.Background(), "ghost"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransactionProcessor_ConcurrentOpposingTransfers(t *testing.T) {
	proc, repo, _ := setup(t)
	mustSave(t, repo, "dollar", "A", 1000)
	mustSave(t, repo, "dollar", "B", 1000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = proc.Transfer(context.Background(), "A", "B", decimal.NewFromInt(7))
		}()
		go func() {
			defer wg.Done()
			_, _ = proc.Transfer(context.Background(), "B", "A", decimal.NewFromInt(5))
		}()
	}
	wg.Wait()

	a, b := balanceOf(t, repo, "A"), balanceOf(t, repo, "B")
	if !a.Add(b).Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected total 2000, got %s + %s", a, b)
	}
	if a.IsNegative() || b.IsNegative() {
		t.Fatalf("balance went negative: %s, %s", a, b)
	}
}

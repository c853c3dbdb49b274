package memory

import (
	"bank_manager/internal/domain"
	"bank_manager/internal/repository"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	sealed   map[string]bool
	order    []string
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[string]*domain.Account),
		sealed:   make(map[string]bool),
	}
}

func (r *AccountRepository) Save(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.ID]; exists {
		return fmt.Errorf("%w: account %s", repository.ErrDuplicate, account.ID)
	}

	stored := *account
	now := time.Now()
	stored.CreatedAt = now
	stored.LastActivityAt = now
	r.accounts[account.ID] = &stored
	r.order = append(r.order, account.ID)

	account.CreatedAt = now
	account.LastActivityAt = now

	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return domain.Account{}, fmt.Errorf("%w: account %s", repository.ErrNotFound, id)
	}
	return *account, nil
}

func (r *AccountRepository) Seal(ctx context.Context, id string) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return domain.Account{}, fmt.Errorf("%w: account %s", repository.ErrNotFound, id)
	}

	r.sealed[id] = true
	return *account, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return domain.Account{}, fmt.Errorf("%w: account %s", repository.ErrNotFound, id)
	}

	delete(r.accounts, id)
	delete(r.sealed, id)
	r.order = slices.DeleteFunc(r.order, func(existing string) bool {
		return existing == id
	})

	return *account, nil
}

// List returns snapshots in insertion order.
func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Account, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, *r.accounts[id])
	}

	return result, nil
}

func (r *AccountRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts), nil
}

// ApplyBalanceUpdates applies every update or none of them. Missing and
// sealed accounts fail the batch with an AccountNotFoundError. A negative
// update that would leave its account below zero fails it with
// ErrInsufficientFunds; balances already negative from registration may
// still receive credits.
func (r *AccountRepository) ApplyBalanceUpdates(ctx context.Context, updates ...domain.BalanceUpdate) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make(map[string]domain.Account, len(updates))
	for _, u := range updates {
		account, ok := pending[u.AccountID]
		if !ok {
			stored, exists := r.accounts[u.AccountID]
			if !exists || r.sealed[u.AccountID] {
				return nil, &repository.AccountNotFoundError{ID: u.AccountID}
			}
			account = *stored
		}

		next := account.Balance.Add(u.Amount)
		if u.Amount.IsNegative() && next.IsNegative() {
			return nil, fmt.Errorf("%w: account %s has %s, needs %s",
				repository.ErrInsufficientFunds, u.AccountID, account.Balance, u.Amount.Neg())
		}

		account.Balance = next
		if u.Timestamp.IsZero() {
			account.LastActivityAt = time.Now()
		} else {
			account.LastActivityAt = u.Timestamp
		}
		pending[u.AccountID] = account
	}

	result := make([]domain.Account, 0, len(updates))
	for _, u := range updates {
		account := pending[u.AccountID]
		*r.accounts[u.AccountID] = account
		result = append(result, account)
	}

	return result, nil
}

package repository

import (
	"bank_manager/internal/domain"
	"context"
	"errors"
	"fmt"
)

// AccountRepository is the authoritative identifier → account store.
// Reads return copies; balances change only through ApplyBalanceUpdates.
type AccountRepository interface {
	Save(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (domain.Account, error)
	// Seal stops balance updates to the account and returns its final
	// snapshot. The account stays readable until Delete.
	Seal(ctx context.Context, id string) (domain.Account, error)
	Delete(ctx context.Context, id string) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Count(ctx context.Context) (int, error)
	ApplyBalanceUpdates(ctx context.Context, updates ...domain.BalanceUpdate) ([]domain.Account, error)
}

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate identifier")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// AccountNotFoundError names the account a batch update could not reach.
type AccountNotFoundError struct {
	ID string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("%s: account %s", ErrNotFound, e.ID)
}

func (e *AccountNotFoundError) Unwrap() error {
	return ErrNotFound
}

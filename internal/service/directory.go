package service

import (
	"bank_manager/internal/domain"
	"bank_manager/internal/repository"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
)

// Directory is the account registry. It owns the lifecycle notifications:
// Registered fires after a successful insert, Deleted fires with the
// pre-removal snapshot before the entry is dropped.
type Directory struct {
	accounts repository.AccountRepository
	notifier *Notifier
	removeMu sync.Mutex
	logger   *slog.Logger
}

func NewDirectory(accounts repository.AccountRepository, notifier *Notifier, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NewNotifier(logger)
	}

	return &Directory{
		accounts: accounts,
		notifier: notifier,
		logger:   logger,
	}
}

func (d *Directory) Notifier() *Notifier {
	return d.notifier
}

func (d *Directory) Register(ctx context.Context, account *domain.Account) error {
	if err := d.accounts.Save(ctx, account); err != nil {
		return err
	}

	d.logger.InfoContext(ctx, "Account registered",
		slog.String("account_id", account.ID),
		slog.String("currency", string(account.Currency)))

	d.notifier.Notify(ctx, domain.EventRegistered, *account)
	return nil
}

// Create runs the account factory and registers the result.
func (d *Directory) Create(
	ctx context.Context,
	kind, id, holder string,
	initialBalance decimal.Decimal,
	credential string,
) (domain.Account, error) {
	account, err := domain.NewAccount(kind, id, holder, initialBalance, credential)
	if err != nil {
		return domain.Account{}, err
	}

	if err := d.Register(ctx, account); err != nil {
		return domain.Account{}, err
	}
	return *account, nil
}

func (d *Directory) Remove(ctx context.Context, id string) error {
	d.removeMu.Lock()
	defer d.removeMu.Unlock()

	snapshot, err := d.accounts.Seal(ctx, id)
	if err != nil {
		return err
	}

	d.notifier.Notify(ctx, domain.EventDeleted, snapshot)

	if _, err := d.accounts.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}

	d.logger.InfoContext(ctx, "Account removed", slog.String("account_id", id))
	return nil
}

func (d *Directory) Lookup(ctx context.Context, id string) (domain.Account, bool) {
	account, err := d.accounts.GetByID(ctx, id)
	if err != nil {
		return domain.Account{}, false
	}
	return account, true
}

// Count reports how many accounts are registered.
func (d *Directory) Count(ctx context.Context) (int, error) {
	return d.accounts.Count(ctx)
}

func (d *Directory) ListAll(ctx context.Context) []domain.Account {
	accounts, err := d.accounts.List(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to list accounts", slog.String("error", err.Error()))
		return nil
	}
	return accounts
}

package processor

import (
	"bank_manager/internal/currency"
	"bank_manager/internal/domain"
	"bank_manager/internal/repository"
	"bank_manager/pkg/validator"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

var ErrRecipientNotFound = errors.New("recipient account not found")

// Recorder observes finished operations. A nil error means success.
type Recorder interface {
	RecordOperation(operation string, duration time.Duration, err error)
	UpdateAccountBalance(accountID, currency string, balance float64)
}

type TransactionProcessor struct {
	accountRepo repository.AccountRepository
	converter   *currency.Converter
	validator   *validator.Validator
	recorder    Recorder
	logger      *slog.Logger
}

func NewTransactionProcessor(
	accountRepo repository.AccountRepository,
	converter *currency.Converter,
	recorder Recorder,
	logger *slog.Logger,
) *TransactionProcessor {
	if logger == nil {
		logger = slog.Default()
	}

	return &TransactionProcessor{
		accountRepo: accountRepo,
		converter:   converter,
		validator:   validator.New(),
		recorder:    recorder,
		logger:      logger,
	}
}

func (p *TransactionProcessor) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (tx *domain.Transaction, err error) {
	defer p.observe(string(domain.TypeDeposit), time.Now(), &err)

	p.logger.InfoContext(ctx, "Processing deposit",
		slog.String("to_account", accountID),
		slog.String("amount", amount.String()))

	if err := p.validator.ValidateAmount(amount); err != nil {
		return nil, err
	}

	account, err := p.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	updated, err := p.accountRepo.ApplyBalanceUpdates(ctx, domain.BalanceUpdate{
		AccountID: accountID,
		Amount:    amount,
		Type:      domain.TypeDeposit,
		Timestamp: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	tx = domain.NewTransaction(domain.TypeDeposit, amount, account.Currency).WithAccounts("", accountID)
	tx.BalanceAfter = updated[0].Balance
	p.publishBalances(updated...)

	p.logger.InfoContext(ctx, "Deposit completed successfully",
		slog.String("transaction_id", tx.ID),
		slog.String("balance", tx.BalanceAfter.String()))
	return tx, nil
}

func (p *TransactionProcessor) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (tx *domain.Transaction, err error) {
	defer p.observe(string(domain.TypeWithdrawal), time.Now(), &err)

	p.logger.InfoContext(ctx, "Processing withdrawal",
		slog.String("from_account", accountID),
		slog.String("amount", amount.String()))

	if err := p.validator.ValidateAmount(amount); err != nil {
		return nil, err
	}

	account, err := p.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if amount.GreaterThan(account.Balance) {
		return nil, fmt.Errorf("%w: available balance %s", repository.ErrInsufficientFunds, account.Balance)
	}

	updated, err := p.accountRepo.ApplyBalanceUpdates(ctx, domain.BalanceUpdate{
		AccountID: accountID,
		Amount:    amount.Neg(),
		Type:      domain.TypeWithdrawal,
		Timestamp: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	tx = domain.NewTransaction(domain.TypeWithdrawal, amount, account.Currency).WithAccounts(accountID, "")
	tx.BalanceAfter = updated[0].Balance
	p.publishBalances(updated...)

	p.logger.InfoContext(ctx, "Withdrawal completed successfully",
		slog.String("transaction_id", tx.ID),
		slog.String("balance", tx.BalanceAfter.String()))
	return tx, nil
}

// Transfer debits amount from the sender in the sender's currency and
// credits the converted amount to the recipient. Both balances change in
// one store operation or neither does.
func (p *TransactionProcessor) Transfer(ctx context.Context, senderID, recipientID string, amount decimal.Decimal) (tx *domain.Transaction, err error) {
	defer p.observe(string(domain.TypeTransfer), time.Now(), &err)

	p.logger.InfoContext(ctx, "Processing transfer",
		slog.String("from_account", senderID),
		slog.String("to_account", recipientID),
		slog.String("amount", amount.String()))

	if err := p.validator.ValidateAmount(amount); err != nil {
		return nil, err
	}

	sender, err := p.accountRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get from account: %w", err)
	}

	recipient, err := p.accountRepo.GetByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRecipientNotFound, recipientID)
		}
		return nil, fmt.Errorf("failed to get to account: %w", err)
	}

	if err := p.validator.ValidateTransfer(senderID, recipientID, amount); err != nil {
		return nil, err
	}

	if sender.Balance.LessThan(amount) {
		return nil, fmt.Errorf("%w: available balance %s", repository.ErrInsufficientFunds, sender.Balance)
	}

	converted := amount
	if sender.Currency != recipient.Currency {
		converted, err = p.converter.Convert(amount, sender.Currency, recipient.Currency)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	updated, err := p.accountRepo.ApplyBalanceUpdates(ctx,
		domain.BalanceUpdate{AccountID: senderID, Amount: amount.Neg(), Type: domain.TypeTransfer, Timestamp: now},
		domain.BalanceUpdate{AccountID: recipientID, Amount: converted, Type: domain.TypeTransfer, Timestamp: now},
	)
	if err != nil {
		var missing *repository.AccountNotFoundError
		if errors.As(err, &missing) && missing.ID == recipientID {
			return nil, fmt.Errorf("%w: %s", ErrRecipientNotFound, recipientID)
		}
		return nil, fmt.Errorf("failed to apply transfer: %w", err)
	}

	tx = domain.NewTransaction(domain.TypeTransfer, amount, sender.Currency).
		WithAccounts(senderID, recipientID).
		WithConversion(converted, recipient.Currency)
	tx.BalanceAfter = updated[0].Balance
	p.publishBalances(updated...)

	p.logger.InfoContext(ctx, "Transfer completed successfully",
		slog.String("transaction_id", tx.ID),
		slog.String("sent", fmt.Sprintf("%s %s", amount, sender.Currency)),
		slog.String("received", fmt.Sprintf("%s %s", converted, recipient.Currency)))
	return tx, nil
}

func (p *TransactionProcessor) CheckBalance(ctx context.Context, accountID string) (decimal.Decimal, domain.Currency, error) {
	account, err := p.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("failed to get account: %w", err)
	}
	return account.Balance, account.Currency, nil
}

func (p *TransactionProcessor) observe(operation string, start time.Time, err *error) {
	if p.recorder == nil {
		return
	}
	p.recorder.RecordOperation(operation, time.Since(start), *err)
}

func (p *TransactionProcessor) publishBalances(accounts ...domain.Account) {
	if p.recorder == nil {
		return
	}
	for _, a := range accounts {
		p.recorder.UpdateAccountBalance(a.ID, string(a.Currency), a.Balance.InexactFloat64())
	}
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeTransfer   TransactionType = "transfer"
)

// Transaction is the receipt of a completed money movement. It is returned
// to the caller and never stored.
type Transaction struct {
	ID              string          `json:"id"`
	Type            TransactionType `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        Currency        `json:"currency"`
	FromAccountID   string          `json:"from_account_id,omitempty"`
	ToAccountID     string          `json:"to_account_id,omitempty"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	ToCurrency      Currency        `json:"to_currency,omitempty"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
	CreatedAt       time.Time       `json:"created_at"`
}

func NewTransaction(t TransactionType, amount decimal.Decimal, currency Currency) *Transaction {
	return &Transaction{
		ID:              uuid.New().String(),
		Type:            t,
		Amount:          amount,
		Currency:        currency,
		ConvertedAmount: amount,
		ToCurrency:      currency,
		CreatedAt:       time.Now(),
	}
}

func (tx *Transaction) WithAccounts(fromID, toID string) *Transaction {
	tx.FromAccountID = fromID
	tx.ToAccountID = toID
	return tx
}

func (tx *Transaction) WithConversion(amount decimal.Decimal, currency Currency) *Transaction {
	tx.ConvertedAmount = amount
	tx.ToCurrency = currency
	return tx
}

package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyKZT Currency = "KZT"
)

func (c Currency) Valid() bool {
	return c == CurrencyUSD || c == CurrencyKZT
}

type AccountKind string

const (
	KindDollar AccountKind = "dollar"
	KindTenge  AccountKind = "tenge"
)

var ErrInvalidAccountKind = errors.New("invalid bank account type")

// kindCurrencies maps every account kind the factory can build to the
// currency its balance is held in.
var kindCurrencies = map[AccountKind]Currency{
	KindDollar: CurrencyUSD,
	KindTenge:  CurrencyKZT,
}

type Account struct {
	ID             string          `json:"id"`
	Holder         string          `json:"holder"`
	Balance        decimal.Decimal `json:"balance"`
	Currency       Currency        `json:"currency"`
	Kind           AccountKind     `json:"kind"`
	Credential     string          `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	LastActivityAt time.Time       `json:"last_activity_at"`
}

// NewAccount builds an account of the given kind. Identifier uniqueness is
// the directory's concern and is not checked here.
func NewAccount(kind string, id, holder string, initialBalance decimal.Decimal, credential string) (*Account, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}

	return &Account{
		ID:         id,
		Holder:     holder,
		Balance:    initialBalance,
		Currency:   k.Currency(),
		Kind:       k,
		Credential: credential,
	}, nil
}

// ParseKind matches an account kind case-insensitively.
func ParseKind(kind string) (AccountKind, error) {
	k := AccountKind(strings.ToLower(strings.TrimSpace(kind)))
	if _, ok := kindCurrencies[k]; !ok {
		return "", fmt.Errorf("%w: %q, expected one of %v", ErrInvalidAccountKind, kind, Kinds())
	}
	return k, nil
}

func Kinds() []AccountKind {
	kinds := make([]AccountKind, 0, len(kindCurrencies))
	for k := range kindCurrencies {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (k AccountKind) Currency() Currency {
	return kindCurrencies[k]
}

// CredentialMatches compares credentials exactly, case included.
func (a *Account) CredentialMatches(credential string) bool {
	return a.Credential == credential
}

type BalanceUpdate struct {
	AccountID string
	Amount    decimal.Decimal
	Type      TransactionType
	Timestamp time.Time
}

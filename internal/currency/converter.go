// Package currency converts amounts between the two supported account
// currencies using one fixed exchange rate.
package currency

import (
	"bank_manager/internal/domain"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrUnsupportedConversion = errors.New("unsupported currency conversion")

// DefaultRate is the number of tenge in one dollar.
var DefaultRate = decimal.NewFromInt(500)

type Adapter interface {
	Convert(amount decimal.Decimal) decimal.Decimal
}

type dollarToTenge struct{ rate decimal.Decimal }

func (a dollarToTenge) Convert(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(a.rate)
}

type tengeToDollar struct{ rate decimal.Decimal }

func (a tengeToDollar) Convert(amount decimal.Decimal) decimal.Decimal {
	return amount.Div(a.rate)
}

type pair struct {
	from, to domain.Currency
}

type Converter struct {
	rate     decimal.Decimal
	adapters map[pair]Adapter
}

// NewConverter returns a converter for USD/KZT where KZT = USD × rate.
func NewConverter(rate decimal.Decimal) (*Converter, error) {
	if !rate.IsPositive() {
		return nil, fmt.Errorf("exchange rate must be positive, got %s", rate)
	}

	return &Converter{
		rate: rate,
		adapters: map[pair]Adapter{
			{domain.CurrencyUSD, domain.CurrencyKZT}: dollarToTenge{rate: rate},
			{domain.CurrencyKZT, domain.CurrencyUSD}: tengeToDollar{rate: rate},
		},
	}, nil
}

func (c *Converter) Rate() decimal.Decimal {
	return c.rate
}

func (c *Converter) Supported(from, to domain.Currency) bool {
	if from == to {
		return from.Valid()
	}
	_, ok := c.adapters[pair{from, to}]
	return ok
}

func (c *Converter) Adapter(from, to domain.Currency) (Adapter, error) {
	adapter, ok := c.adapters[pair{from, to}]
	if !ok {
		return nil, fmt.Errorf("%w: %s -> %s", ErrUnsupportedConversion, from, to)
	}
	return adapter, nil
}

// Convert returns amount unchanged for a valid same-currency pair and
// fails with ErrUnsupportedConversion for any pair Supported rejects.
func (c *Converter) Convert(amount decimal.Decimal, from, to domain.Currency) (decimal.Decimal, error) {
	if !c.Supported(from, to) {
		return decimal.Zero, fmt.Errorf("%w: %s -> %s", ErrUnsupportedConversion, from, to)
	}
	if from == to {
		return amount, nil
	}

	adapter, err := c.Adapter(from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return adapter.Convert(amount), nil
}

package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrMissingField  = errors.New("all fields must be filled out")
	ErrSelfTransfer  = errors.New("cannot transfer to same account")
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

func (v *Validator) ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, amount)
	}
	return nil
}

func (v *Validator) ValidateTransfer(fromID, toID string, amount decimal.Decimal) error {
	if err := v.ValidateAmount(amount); err != nil {
		return err
	}
	if fromID == toID {
		return ErrSelfTransfer
	}
	return nil
}

type Registration struct {
	Kind           string
	ID             string
	Holder         string
	InitialBalance *decimal.Decimal
	Credential     string
}

// ValidateRegistration reports every blank field at once.
func (v *Validator) ValidateRegistration(r Registration) error {
	var missing []string
	if strings.TrimSpace(r.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(r.Holder) == "" {
		missing = append(missing, "holder")
	}
	if r.InitialBalance == nil {
		missing = append(missing, "initial_balance")
	}
	if r.Credential == "" {
		missing = append(missing, "credential")
	}
	if strings.TrimSpace(r.Kind) == "" {
		missing = append(missing, "kind")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return nil
}

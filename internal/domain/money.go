package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a draft does not name a currency
const DefaultCurrency = "ARS"

// Prices are stored as NUMERIC(14, 2)
const priceScale = 2

var maxAmount = decimal.New(1, 12)

// Money is an immutable positive amount in an ISO-4217 currency
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney validates amount > 0 and a three-letter currency code
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	code, err := ParseCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	if err := checkAmount("price", amount); err != nil {
		return Money{}, err
	}
	return Money{amount: amount, currency: code}, nil
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }

func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + m.currency
}

// ParseCurrency upper-cases and validates an ISO-4217 style code
func ParseCurrency(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != 3 {
		return "", NewValidationError("currency", "must be a three-letter ISO code", raw)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", NewValidationError("currency", "must be a three-letter ISO code", raw)
		}
	}
	return code, nil
}

// checkAmount enforces a positive amount with at most two decimal places
// below maxAmount
func checkAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewValidationError(field, "must be greater than zero", amount.String())
	}
	if !amount.Equal(amount.Truncate(priceScale)) {
		return NewValidationError(field, fmt.Sprintf("must have at most %d decimal places", priceScale), amount.String())
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return NewValidationError(field, "must be less than "+maxAmount.String(), amount.String())
	}
	return nil
}

// checkCompareAtPrice enforces compareAtPrice >= price when present
func checkCompareAtPrice(field string, price decimal.Decimal, compareAt *decimal.Decimal) error {
	if compareAt == nil {
		return nil
	}
	if err := checkAmount(field, *compareAt); err != nil {
		return err
	}
	if compareAt.LessThan(price) {
		return NewValidationError(field, "must be greater than or equal to price", compareAt.String())
	}
	return nil
}

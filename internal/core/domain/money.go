package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sulimanbank/bankcore/internal/apperrors"
)

// Money is an exact fixed-point amount: an integer count of minor currency
// units (e.g. cents) plus a currency tag. It is an immutable value type;
// arithmetic between different currency tags fails.
type Money struct {
	Amount       int64  `json:"amount"`       // Signed count of minor units
	CurrencyCode string `json:"currencyCode"` // E.g. "USD", "NIS"
}

// NewMoney creates a Money value from minor units.
func NewMoney(amount int64, currencyCode string) Money {
	return Money{Amount: amount, CurrencyCode: currencyCode}
}

// Zero returns the zero amount in the given currency.
func Zero(currencyCode string) Money {
	return Money{Amount: 0, CurrencyCode: currencyCode}
}

func (m Money) sameCurrency(other Money) error {
	if m.CurrencyCode != other.CurrencyCode {
		return fmt.Errorf("%w: %s vs %s", apperrors.ErrCurrencyMismatch, m.CurrencyCode, other.CurrencyCode)
	}
	return nil
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, CurrencyCode: m.CurrencyCode}, nil
}

// Subtract returns m - other.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, CurrencyCode: m.CurrencyCode}, nil
}

// Compare returns -1, 0 or 1 when m is less than, equal to or greater than other.
func (m Money) Compare(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	switch {
	case m.Amount < other.Amount:
		return -1, nil
	case m.Amount > other.Amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Amount < 0
}

// IsPositive reports whether the amount is above zero.
func (m Money) IsPositive() bool {
	return m.Amount > 0
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Neg returns the amount with its sign flipped.
func (m Money) Neg() Money {
	return Money{Amount: -m.Amount, CurrencyCode: m.CurrencyCode}
}

// Scale multiplies the amount by an arbitrary rational factor, rounding
// half-to-even on minor units. All interest computation goes through here so
// rounding is reproducible everywhere.
func (m Money) Scale(by decimal.Decimal) Money {
	scaled := decimal.NewFromInt(m.Amount).Mul(by).RoundBank(0)
	return Money{Amount: scaled.IntPart(), CurrencyCode: m.CurrencyCode}
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.CurrencyCode)
}

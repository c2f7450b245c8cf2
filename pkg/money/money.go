// Package money holds monetary amounts as integer minor units (cents)
// tagged with an ISO 4217 currency code. Rate math that needs fractions
// goes through shopspring/decimal and is rounded back to a whole minor
// unit before it touches an amount again; float64 never enters.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// minorScale is the number of decimal places a minor unit represents.
const minorScale = 2

var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// Money is an immutable amount in minor units of a single currency.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// New returns an amount expressed in minor units (e.g. 150050 => 1500.50).
func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Zero returns the zero amount of a currency.
func Zero(currency string) Money {
	return Money{Currency: currency}
}

// FromDecimal converts a major-unit decimal into Money, rounding half away
// from zero at the second decimal place.
func FromDecimal(d decimal.Decimal, currency string) Money {
	return Money{
		Amount:   d.Round(minorScale).Shift(minorScale).IntPart(),
		Currency: currency,
	}
}

// Decimal returns the exact major-unit value (1234.50 for 123450 cents).
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -minorScale)
}

func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}, nil
}

func (m Money) Sub(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return Money{Amount: m.Amount - o.Amount, Currency: m.Currency}, nil
}

// Percent returns rate% of the amount, rounded to a whole minor unit.
func (m Money) Percent(rate decimal.Decimal) Money {
	v := m.Decimal().Mul(rate).Div(decimal.NewFromInt(100))
	return FromDecimal(v, m.Currency)
}

// DivRound splits the amount into n equal parts, each rounded to a whole
// minor unit. Callers pairing this with a running total must let the last
// part absorb the rounding residual.
func (m Money) DivRound(n int64) Money {
	v := m.Decimal().Div(decimal.NewFromInt(n))
	return FromDecimal(v, m.Currency)
}

func (m Money) IsZero() bool     { return m.Amount == 0 }
func (m Money) IsPositive() bool { return m.Amount > 0 }
func (m Money) IsNegative() bool { return m.Amount < 0 }

// GreaterThan reports m > o. Comparing across currencies is a programming
// error and panics rather than returning a silent wrong answer.
func (m Money) GreaterThan(o Money) bool {
	mustSameCurrency(m, o)
	return m.Amount > o.Amount
}

func (m Money) LessThan(o Money) bool {
	mustSameCurrency(m, o)
	return m.Amount < o.Amount
}

func (m Money) Equal(o Money) bool {
	return m.Currency == o.Currency && m.Amount == o.Amount
}

func mustSameCurrency(a, b Money) {
	if a.Currency != b.Currency {
		panic(fmt.Sprintf("money: comparing %s with %s", a.Currency, b.Currency))
	}
}

// String renders the major-unit value with the currency code, e.g. "1500.50 KES".
func (m Money) String() string {
	return m.Decimal().StringFixed(minorScale) + " " + m.Currency
}

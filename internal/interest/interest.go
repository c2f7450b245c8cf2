// Package interest computes amortization schedules. It is pure: no
// clock, no I/O, and the same inputs always produce the same schedule,
// which is what lets approval regenerate the exact schedule the
// application quoted.
package interest

import (
	"github.com/shopspring/decimal"

	"chama-engine/internal/domain/fault"
	"chama-engine/internal/domain/loan"
	"chama-engine/pkg/money"
)

// Line is one month of the schedule. Amounts are exact minor units.
type Line struct {
	Sequence  int
	Principal money.Money
	Interest  money.Money
}

type Schedule struct {
	Lines          []Line
	TotalInterest  money.Money
	TotalRepayable money.Money
}

// Compute builds the repayment schedule for a principal at ratePercent
// over termMonths. FLAT charges the rate once on the original principal;
// REDUCING treats it as a monthly rate on the remaining balance.
//
// Sum of line principals always equals the principal exactly, and for
// FLAT the sum of line interests equals the one-time charge exactly: the
// final line absorbs all rounding residue.
func Compute(principal money.Money, ratePercent decimal.Decimal, termMonths int, typ loan.InterestType) (*Schedule, error) {
	if !principal.IsPositive() {
		return nil, fault.New(fault.Validation, "principal must be positive")
	}
	if termMonths <= 0 {
		return nil, fault.New(fault.Validation, "term must be at least one month")
	}
	if ratePercent.IsNegative() {
		return nil, fault.New(fault.Validation, "interest rate cannot be negative")
	}

	switch typ {
	case loan.InterestFlat:
		return flat(principal, ratePercent, termMonths)
	case loan.InterestReducing:
		return reducing(principal, ratePercent, termMonths)
	default:
		return nil, loan.ErrBadInterestType
	}
}

func flat(principal money.Money, rate decimal.Decimal, n int) (*Schedule, error) {
	cur := principal.Currency
	totalInterest := principal.Percent(rate)
	perPrincipal := principal.DivRound(int64(n))
	perInterest := totalInterest.DivRound(int64(n))

	lines := make([]Line, n)
	var paidP, paidI int64
	for i := 0; i < n; i++ {
		p, iv := perPrincipal, perInterest
		if i == n-1 {
			p = money.New(principal.Amount-paidP, cur)
			iv = money.New(totalInterest.Amount-paidI, cur)
		}
		if p.IsNegative() || iv.IsNegative() {
			return nil, fault.Newf(fault.Validation, "principal %s does not spread over %d months", principal, n)
		}
		paidP += p.Amount
		paidI += iv.Amount
		lines[i] = Line{Sequence: i + 1, Principal: p, Interest: iv}
	}

	return &Schedule{
		Lines:          lines,
		TotalInterest:  totalInterest,
		TotalRepayable: money.New(principal.Amount+totalInterest.Amount, cur),
	}, nil
}

func reducing(principal money.Money, rate decimal.Decimal, n int) (*Schedule, error) {
	cur := principal.Currency
	r := rate.Div(decimal.NewFromInt(100))
	remaining := principal.Decimal()
	months := decimal.NewFromInt(int64(n))

	// Annuity payment; plain P/n when the rate is zero.
	var payment decimal.Decimal
	if r.IsZero() {
		payment = remaining.Div(months)
	} else {
		one := decimal.NewFromInt(1)
		pow := one.Add(r).Pow(months)
		payment = remaining.Mul(r).Mul(pow).Div(pow.Sub(one))
	}

	lines := make([]Line, n)
	var totalInterest int64
	for m := 1; m <= n; m++ {
		iv := remaining.Mul(r).Round(2)

		var p decimal.Decimal
		if m == n {
			// Force the balance to land on exactly zero.
			p = remaining
		} else {
			p = payment.Sub(iv).Round(2)
			if p.IsNegative() {
				p = decimal.Zero
			}
			if p.GreaterThan(remaining) {
				p = remaining
			}
		}
		remaining = remaining.Sub(p)

		im := money.FromDecimal(iv, cur)
		totalInterest += im.Amount
		lines[m-1] = Line{Sequence: m, Principal: money.FromDecimal(p, cur), Interest: im}
	}

	return &Schedule{
		Lines:          lines,
		TotalInterest:  money.New(totalInterest, cur),
		TotalRepayable: money.New(principal.Amount+totalInterest, cur),
	}, nil
}

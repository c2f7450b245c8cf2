package uowmock

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"chama-engine/internal/domain/loan"
	"chama-engine/internal/domain/rotation"
	"chama-engine/internal/domain/uow"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return
// errUnimplemented.
type UoW struct {
	WithinTxFn      func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinLoanTxFn  func(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error
	WithinCycleTxFn func(ctx context.Context, cycleID string, fn func(r uow.Repos, c *rotation.Cycle) error) error
}

func New() *UoW { return &UoW{} }

func (m *UoW) Reset() { *m = UoW{} }

// PassThrough returns a UoW that runs every closure immediately against
// the given repos, loading aggregate roots through them the way the real
// transaction manager would. Most usecase tests want exactly this.
func PassThrough(r uow.Repos) *UoW {
	return &UoW{
		WithinTxFn: func(ctx context.Context, fn func(uow.Repos) error) error {
			return fn(r)
		},
		WithinLoanTxFn: func(ctx context.Context, loanID string, fn func(uow.Repos, *loan.Loan) error) error {
			l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return loan.ErrNotFound
				}
				return err
			}
			return fn(r, l)
		},
		WithinCycleTxFn: func(ctx context.Context, cycleID string, fn func(uow.Repos, *rotation.Cycle) error) error {
			c, err := r.Rotations.GetByCycleIDForUpdate(ctx, cycleID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return rotation.ErrCycleNotFound
				}
				return err
			}
			return fn(r, c)
		},
	}
}

// Methods implementing UnitOfWork
func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	if m.WithinLoanTxFn != nil {
		return m.WithinLoanTxFn(ctx, loanID, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinCycleTx(ctx context.Context, cycleID string, fn func(r uow.Repos, c *rotation.Cycle) error) error {
	if m.WithinCycleTxFn != nil {
		return m.WithinCycleTxFn(ctx, cycleID, fn)
	}
	return errUnimplemented
}

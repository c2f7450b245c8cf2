package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"chama-engine/internal/domain/loan"
	"chama-engine/internal/domain/rotation"
	"chama-engine/internal/domain/uow"
)

var _ uow.UnitOfWork = (*GormUoW)(nil)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func txRepos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Chamas:    &ChamaRepository{db: tx},
		Loans:     &LoanRepository{db: tx},
		Rotations: &RotationRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txRepos(tx))
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := txRepos(tx)
		// lock the loan row up-front to prevent races
		l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return loan.ErrNotFound
			}
			return err
		}
		return fn(r, l)
	})
}

func (u *GormUoW) WithinCycleTx(ctx context.Context, cycleID string, fn func(r uow.Repos, c *rotation.Cycle) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := txRepos(tx)
		c, err := r.Rotations.GetByCycleIDForUpdate(ctx, cycleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return rotation.ErrCycleNotFound
			}
			return err
		}
		return fn(r, c)
	})
}

package loanmock

import (
	"context"
	"errors"
	"time"

	domain "chama-engine/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

var errUnimplemented = errors.New("loanmock: method not implemented")

// Repo is a function-backed mock satisfying domain.Repository. Fill in
// the fields a test needs; unfilled writes succeed, unfilled reads fail.
type Repo struct {
	CreateFn                func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn           func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByLoanIDForUpdateFn  func(ctx context.Context, loanID string) (*domain.Loan, error)
	SaveFn                  func(ctx context.Context, l *domain.Loan) error
	CountActiveByBorrowerFn func(ctx context.Context, chamaID, borrowerID string) (int64, error)
	ListAccruableLoanIDsFn  func(ctx context.Context, asOf time.Time) ([]string, error)

	CreateInstallmentsFn func(ctx context.Context, items []domain.Installment) error
	ListInstallmentsFn   func(ctx context.Context, loanID uint64) ([]domain.Installment, error)
	SaveInstallmentFn    func(ctx context.Context, it *domain.Installment) error

	CreateGuarantorFn func(ctx context.Context, g *domain.Guarantor) error
	GetGuarantorFn    func(ctx context.Context, loanID uint64, memberID string) (*domain.Guarantor, error)
	ListGuarantorsFn  func(ctx context.Context, loanID uint64) ([]domain.Guarantor, error)
	SaveGuarantorFn   func(ctx context.Context, g *domain.Guarantor) error

	CreateRepaymentFn   func(ctx context.Context, r *domain.Repayment) error
	GetRepaymentByKeyFn func(ctx context.Context, loanID uint64, idempotencyKey string) (*domain.Repayment, error)
	CreateAllocationsFn func(ctx context.Context, rows []domain.RepaymentAllocation) error
	ListAllocationsFn   func(ctx context.Context, repaymentID uint64) ([]domain.RepaymentAllocation, error)

	CreatePenaltyAccrualFn func(ctx context.Context, pa *domain.PenaltyAccrual) error
	GetPenaltyAccrualFn    func(ctx context.Context, loanID, installmentID uint64, period string) (*domain.PenaltyAccrual, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDForUpdateFn != nil {
		return m.GetByLoanIDForUpdateFn(ctx, loanID)
	}
	return nil, errUnimplemented
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) CountActiveByBorrower(ctx context.Context, chamaID, borrowerID string) (int64, error) {
	if m.CountActiveByBorrowerFn != nil {
		return m.CountActiveByBorrowerFn(ctx, chamaID, borrowerID)
	}
	return 0, nil
}

func (m *Repo) ListAccruableLoanIDs(ctx context.Context, asOf time.Time) ([]string, error) {
	if m.ListAccruableLoanIDsFn != nil {
		return m.ListAccruableLoanIDsFn(ctx, asOf)
	}
	return nil, errUnimplemented
}

func (m *Repo) CreateInstallments(ctx context.Context, items []domain.Installment) error {
	if m.CreateInstallmentsFn != nil {
		return m.CreateInstallmentsFn(ctx, items)
	}
	return nil
}

func (m *Repo) ListInstallments(ctx context.Context, loanID uint64) ([]domain.Installment, error) {
	if m.ListInstallmentsFn != nil {
		return m.ListInstallmentsFn(ctx, loanID)
	}
	return nil, errUnimplemented
}

func (m *Repo) SaveInstallment(ctx context.Context, it *domain.Installment) error {
	if m.SaveInstallmentFn != nil {
		return m.SaveInstallmentFn(ctx, it)
	}
	return nil
}

func (m *Repo) CreateGuarantor(ctx context.Context, g *domain.Guarantor) error {
	if m.CreateGuarantorFn != nil {
		return m.CreateGuarantorFn(ctx, g)
	}
	return nil
}

func (m *Repo) GetGuarantor(ctx context.Context, loanID uint64, memberID string) (*domain.Guarantor, error) {
	if m.GetGuarantorFn != nil {
		return m.GetGuarantorFn(ctx, loanID, memberID)
	}
	return nil, errUnimplemented
}

func (m *Repo) ListGuarantors(ctx context.Context, loanID uint64) ([]domain.Guarantor, error) {
	if m.ListGuarantorsFn != nil {
		return m.ListGuarantorsFn(ctx, loanID)
	}
	return nil, errUnimplemented
}

func (m *Repo) SaveGuarantor(ctx context.Context, g *domain.Guarantor) error {
	if m.SaveGuarantorFn != nil {
		return m.SaveGuarantorFn(ctx, g)
	}
	return nil
}

func (m *Repo) CreateRepayment(ctx context.Context, r *domain.Repayment) error {
	if m.CreateRepaymentFn != nil {
		return m.CreateRepaymentFn(ctx, r)
	}
	return nil
}

func (m *Repo) GetRepaymentByKey(ctx context.Context, loanID uint64, idempotencyKey string) (*domain.Repayment, error) {
	if m.GetRepaymentByKeyFn != nil {
		return m.GetRepaymentByKeyFn(ctx, loanID, idempotencyKey)
	}
	return nil, errUnimplemented
}

func (m *Repo) CreateAllocations(ctx context.Context, rows []domain.RepaymentAllocation) error {
	if m.CreateAllocationsFn != nil {
		return m.CreateAllocationsFn(ctx, rows)
	}
	return nil
}

func (m *Repo) ListAllocations(ctx context.Context, repaymentID uint64) ([]domain.RepaymentAllocation, error) {
	if m.ListAllocationsFn != nil {
		return m.ListAllocationsFn(ctx, repaymentID)
	}
	return nil, errUnimplemented
}

func (m *Repo) CreatePenaltyAccrual(ctx context.Context, pa *domain.PenaltyAccrual) error {
	if m.CreatePenaltyAccrualFn != nil {
		return m.CreatePenaltyAccrualFn(ctx, pa)
	}
	return nil
}

func (m *Repo) GetPenaltyAccrual(ctx context.Context, loanID, installmentID uint64, period string) (*domain.PenaltyAccrual, error) {
	if m.GetPenaltyAccrualFn != nil {
		return m.GetPenaltyAccrualFn(ctx, loanID, installmentID, period)
	}
	return nil, errUnimplemented
}

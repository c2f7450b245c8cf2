package loan

import (
	"context"
	"time"
)

// Repository covers the whole loan aggregate: the loan row plus its
// installment, guarantor, repayment and penalty-accrual children.
// Child lookups key on the numeric loan PK; entry points key on the
// public 32-char id.
type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// GetByLoanIDForUpdate takes a row lock; only meaningful inside a
	// transaction.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	Save(ctx context.Context, l *Loan) error
	CountActiveByBorrower(ctx context.Context, chamaID, borrowerID string) (int64, error)
	// ListAccruableLoanIDs returns public ids of ACTIVE loans holding at
	// least one unsettled installment due on or before asOf.
	ListAccruableLoanIDs(ctx context.Context, asOf time.Time) ([]string, error)

	CreateInstallments(ctx context.Context, items []Installment) error
	// ListInstallments returns the schedule ordered by due date, then
	// sequence. The allocator depends on this ordering.
	ListInstallments(ctx context.Context, loanID uint64) ([]Installment, error)
	SaveInstallment(ctx context.Context, it *Installment) error

	CreateGuarantor(ctx context.Context, g *Guarantor) error
	GetGuarantor(ctx context.Context, loanID uint64, memberID string) (*Guarantor, error)
	ListGuarantors(ctx context.Context, loanID uint64) ([]Guarantor, error)
	SaveGuarantor(ctx context.Context, g *Guarantor) error

	CreateRepayment(ctx context.Context, r *Repayment) error
	GetRepaymentByKey(ctx context.Context, loanID uint64, idempotencyKey string) (*Repayment, error)
	CreateAllocations(ctx context.Context, rows []RepaymentAllocation) error
	ListAllocations(ctx context.Context, repaymentID uint64) ([]RepaymentAllocation, error)

	CreatePenaltyAccrual(ctx context.Context, pa *PenaltyAccrual) error
	GetPenaltyAccrual(ctx context.Context, loanID, installmentID uint64, period string) (*PenaltyAccrual, error)
}

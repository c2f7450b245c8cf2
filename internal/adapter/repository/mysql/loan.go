package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	loanDomain "chama-engine/internal/domain/loan"
)

var _ loanDomain.Repository = (*LoanRepository)(nil)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	return &out, res.Error
}

// GetByLoanIDForUpdate locks the loan row for the rest of the
// transaction. The sqlite driver drops the locking clause, which is
// fine: tests run single-connection.
func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) CountActiveByBorrower(ctx context.Context, chamaID, borrowerID string) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Where("chama_id = ? AND borrower_id = ? AND status = ?", chamaID, borrowerID, loanDomain.StatusActive).
		Count(&n)
	return n, res.Error
}

func (r *LoanRepository) ListAccruableLoanIDs(ctx context.Context, asOf time.Time) ([]string, error) {
	var ids []string
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Joins("JOIN installments ON installments.loan_id = loans.id").
		Where("loans.status = ?", loanDomain.StatusActive).
		Where("installments.status <> ?", loanDomain.InstallmentPaid).
		Where("installments.due_date <= ?", asOf).
		Distinct().
		Order("loans.loan_id ASC").
		Pluck("loans.loan_id", &ids)
	return ids, res.Error
}

func (r *LoanRepository) CreateInstallments(ctx context.Context, items []loanDomain.Installment) error {
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *LoanRepository) ListInstallments(ctx context.Context, loanID uint64) ([]loanDomain.Installment, error) {
	var out []loanDomain.Installment
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("due_date ASC, sequence ASC").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) SaveInstallment(ctx context.Context, it *loanDomain.Installment) error {
	return r.db.WithContext(ctx).Save(it).Error
}

func (r *LoanRepository) CreateGuarantor(ctx context.Context, g *loanDomain.Guarantor) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *LoanRepository) GetGuarantor(ctx context.Context, loanID uint64, memberID string) (*loanDomain.Guarantor, error) {
	var out loanDomain.Guarantor
	res := r.db.WithContext(ctx).
		Where("loan_id = ? AND member_id = ?", loanID, memberID).
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) ListGuarantors(ctx context.Context, loanID uint64) ([]loanDomain.Guarantor, error) {
	var out []loanDomain.Guarantor
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) SaveGuarantor(ctx context.Context, g *loanDomain.Guarantor) error {
	return r.db.WithContext(ctx).Save(g).Error
}

func (r *LoanRepository) CreateRepayment(ctx context.Context, rp *loanDomain.Repayment) error {
	return r.db.WithContext(ctx).Create(rp).Error
}

func (r *LoanRepository) GetRepaymentByKey(ctx context.Context, loanID uint64, idempotencyKey string) (*loanDomain.Repayment, error) {
	var out loanDomain.Repayment
	res := r.db.WithContext(ctx).
		Where("loan_id = ? AND idempotency_key = ?", loanID, idempotencyKey).
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) CreateAllocations(ctx context.Context, rows []loanDomain.RepaymentAllocation) error {
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *LoanRepository) ListAllocations(ctx context.Context, repaymentID uint64) ([]loanDomain.RepaymentAllocation, error) {
	var out []loanDomain.RepaymentAllocation
	res := r.db.WithContext(ctx).
		Where("repayment_id = ?", repaymentID).
		Order("sequence ASC").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) CreatePenaltyAccrual(ctx context.Context, pa *loanDomain.PenaltyAccrual) error {
	return r.db.WithContext(ctx).Create(pa).Error
}

func (r *LoanRepository) GetPenaltyAccrual(ctx context.Context, loanID, installmentID uint64, period string) (*loanDomain.PenaltyAccrual, error) {
	var out loanDomain.PenaltyAccrual
	res := r.db.WithContext(ctx).
		Where("loan_id = ? AND installment_id = ? AND period = ?", loanID, installmentID, period).
		First(&out)
	return &out, res.Error
}

package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// All monetary columns are BIGINT minor units in the loan's currency.
// Loans are never deleted; terminal rows stay for audit.
type Loan struct {
	ID         uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	LoanID     string `gorm:"column:loan_id;type:char(32);not null;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	ChamaID    string `gorm:"column:chama_id;type:char(32);not null;index:idx_loans_chama" json:"chama_id"`
	BorrowerID string `gorm:"column:borrower_id;type:char(32);not null;index:idx_loans_borrower_status,priority:1" json:"borrower_id"`
	Currency   string `gorm:"column:currency;type:char(3);not null" json:"currency"`

	Principal    int64           `gorm:"column:principal;not null" json:"principal"`
	InterestType InterestType    `gorm:"column:interest_type;type:enum('FLAT','REDUCING');not null" json:"interest_type"`
	InterestRate decimal.Decimal `gorm:"column:interest_rate;type:decimal(7,4);not null" json:"interest_rate"`
	TermMonths   int             `gorm:"column:term_months;not null" json:"term_months"`
	Purpose      string          `gorm:"column:purpose;type:text;not null" json:"purpose"`

	Status          Status    `gorm:"column:status;type:enum('PENDING_GUARANTOR','PENDING_APPROVAL','ACTIVE','COMPLETED','DEFAULTED','REJECTED','CANCELLED');not null;default:'PENDING_GUARANTOR';index:idx_loans_borrower_status,priority:2" json:"status"`
	StatusUpdatedAt time.Time `gorm:"column:status_updated_at;not null" json:"status_updated_at"`

	TotalRepayable       int64 `gorm:"column:total_repayable;not null" json:"total_repayable"`
	AmountPaid           int64 `gorm:"column:amount_paid;not null;default:0" json:"amount_paid"`
	PrincipalOutstanding int64 `gorm:"column:principal_outstanding;not null" json:"principal_outstanding"`
	InterestOutstanding  int64 `gorm:"column:interest_outstanding;not null" json:"interest_outstanding"`
	PenaltyOutstanding   int64 `gorm:"column:penalty_outstanding;not null;default:0" json:"penalty_outstanding"`

	ApprovedBy *string    `gorm:"column:approved_by;type:char(32)" json:"approved_by,omitempty"`
	ApprovedAt *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
	DueDate    *time.Time `gorm:"column:due_date;type:date" json:"due_date,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// Outstanding is the full balance still owed across all three buckets.
func (l *Loan) Outstanding() int64 {
	return l.PenaltyOutstanding + l.InterestOutstanding + l.PrincipalOutstanding
}

type Installment struct {
	ID       uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	LoanID   uint64    `gorm:"column:loan_id;not null;uniqueIndex:ux_installments_loan_seq,priority:1" json:"-"`
	Sequence int       `gorm:"column:sequence;not null;uniqueIndex:ux_installments_loan_seq,priority:2" json:"sequence"`
	DueDate  time.Time `gorm:"column:due_date;type:date;not null;index:idx_installments_due" json:"due_date"`

	// Due amounts are written once at activation and never changed;
	// PenaltyAmount grows with accrual, Paid* grow with repayments.
	PrincipalAmount int64 `gorm:"column:principal_amount;not null" json:"principal_amount"`
	InterestAmount  int64 `gorm:"column:interest_amount;not null" json:"interest_amount"`
	PenaltyAmount   int64 `gorm:"column:penalty_amount;not null;default:0" json:"penalty_amount"`
	PaidPrincipal   int64 `gorm:"column:paid_principal;not null;default:0" json:"paid_principal"`
	PaidInterest    int64 `gorm:"column:paid_interest;not null;default:0" json:"paid_interest"`
	PaidPenalty     int64 `gorm:"column:paid_penalty;not null;default:0" json:"paid_penalty"`

	Status InstallmentStatus `gorm:"column:status;type:enum('PENDING','PARTIALLY_PAID','PAID','OVERDUE');not null;default:'PENDING'" json:"status"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Installment) TableName() string { return "installments" }

func (i *Installment) PenaltyOutstanding() int64   { return i.PenaltyAmount - i.PaidPenalty }
func (i *Installment) InterestOutstanding() int64  { return i.InterestAmount - i.PaidInterest }
func (i *Installment) PrincipalOutstanding() int64 { return i.PrincipalAmount - i.PaidPrincipal }

func (i *Installment) AmountPaid() int64 {
	return i.PaidPenalty + i.PaidInterest + i.PaidPrincipal
}

func (i *Installment) Settled() bool {
	return i.PenaltyOutstanding() == 0 && i.InterestOutstanding() == 0 && i.PrincipalOutstanding() == 0
}

type Guarantor struct {
	ID          uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	GuarantorID string `gorm:"column:guarantor_id;type:char(32);not null;uniqueIndex:ux_guarantors_guarantor_id" json:"guarantor_id"`
	LoanID      uint64 `gorm:"column:loan_id;not null;uniqueIndex:ux_guarantors_loan_member,priority:1" json:"-"`
	MemberID    string `gorm:"column:member_id;type:char(32);not null;uniqueIndex:ux_guarantors_loan_member,priority:2" json:"member_id"`

	GuaranteedAmount int64           `gorm:"column:guaranteed_amount;not null" json:"guaranteed_amount"`
	Status           GuarantorStatus `gorm:"column:status;type:enum('PENDING','APPROVED','REJECTED');not null;default:'PENDING'" json:"status"`
	RespondedAt      *time.Time      `gorm:"column:responded_at" json:"responded_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Guarantor) TableName() string { return "guarantors" }

// Repayment rows are write-once; the allocation children are the audit
// trail of how the amount spread over installments.
type Repayment struct {
	ID             uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	RepaymentID    string `gorm:"column:repayment_id;type:char(32);not null;uniqueIndex:ux_repayments_repayment_id" json:"repayment_id"`
	LoanID         uint64 `gorm:"column:loan_id;not null;uniqueIndex:ux_repayments_loan_key,priority:1" json:"-"`
	IdempotencyKey string `gorm:"column:idempotency_key;size:64;not null;uniqueIndex:ux_repayments_loan_key,priority:2" json:"idempotency_key"`

	Amount        int64     `gorm:"column:amount;not null" json:"amount"`
	PenaltyPaid   int64     `gorm:"column:penalty_paid;not null" json:"penalty_paid"`
	InterestPaid  int64     `gorm:"column:interest_paid;not null" json:"interest_paid"`
	PrincipalPaid int64     `gorm:"column:principal_paid;not null" json:"principal_paid"`
	AppliedAt     time.Time `gorm:"column:applied_at;not null" json:"applied_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Repayment) TableName() string { return "repayments" }

type RepaymentAllocation struct {
	ID            uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	RepaymentID   uint64 `gorm:"column:repayment_id;not null;index:idx_allocations_repayment" json:"-"`
	InstallmentID uint64 `gorm:"column:installment_id;not null;index:idx_allocations_installment" json:"-"`
	Sequence      int    `gorm:"column:sequence;not null" json:"sequence"`

	Penalty   int64 `gorm:"column:penalty;not null" json:"penalty"`
	Interest  int64 `gorm:"column:interest;not null" json:"interest"`
	Principal int64 `gorm:"column:principal;not null" json:"principal"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (RepaymentAllocation) TableName() string { return "repayment_allocations" }

// PenaltyAccrual keys one charge to (loan, installment, period) so a
// re-run of the same period can never double-charge.
type PenaltyAccrual struct {
	ID            uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	LoanID        uint64 `gorm:"column:loan_id;not null;uniqueIndex:ux_penalty_accruals_key,priority:1" json:"-"`
	InstallmentID uint64 `gorm:"column:installment_id;not null;uniqueIndex:ux_penalty_accruals_key,priority:2" json:"-"`
	Period        string `gorm:"column:period;type:char(7);not null;uniqueIndex:ux_penalty_accruals_key,priority:3" json:"period"`

	Amount int64 `gorm:"column:amount;not null" json:"amount"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (PenaltyAccrual) TableName() string { return "penalty_accruals" }

package mysql

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	loanDomain "chama-engine/internal/domain/loan"
	rotationDomain "chama-engine/internal/domain/rotation"
)

// --- SQLite-friendly schema only for tests (no ENUM) ---
//
// Tables whose domain structs carry MySQL enum column types get a
// text-typed shadow here under the same table name. Enum-free domain
// structs migrate directly, so their unique indexes stay real.

type chamaSQLite struct {
	ID       uint64 `gorm:"primaryKey;column:id"`
	ChamaID  string `gorm:"size:32;column:chama_id;uniqueIndex"`
	Name     string `gorm:"size:120;column:name"`
	Currency string `gorm:"size:3;column:currency"`

	LoanInterestType       string          `gorm:"type:text;column:loan_interest_type"`
	LoanInterestRate       decimal.Decimal `gorm:"type:decimal(7,4);column:loan_interest_rate"`
	LoanMultiplier         decimal.Decimal `gorm:"type:decimal(6,2);column:loan_multiplier"`
	LoanMaxRepaymentMonths int             `gorm:"column:loan_max_repayment_months"`
	LoanMaxConcurrentLoans int             `gorm:"column:loan_max_concurrent_loans"`
	LoanPenaltyRate        decimal.Decimal `gorm:"type:decimal(7,4);column:loan_penalty_rate"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (chamaSQLite) TableName() string { return "chamas" }

type memberSQLite struct {
	ID             uint64    `gorm:"primaryKey;column:id"`
	ChamaID        string    `gorm:"size:32;column:chama_id;uniqueIndex:ux_members_chama_member,priority:1"`
	MemberID       string    `gorm:"size:32;column:member_id;uniqueIndex:ux_members_chama_member,priority:2"`
	Name           string    `gorm:"size:120;column:name"`
	Role           string    `gorm:"type:text;column:role"`
	SavingsBalance int64     `gorm:"column:savings_balance"`
	IsActive       bool      `gorm:"column:is_active"`
	JoinedAt       time.Time `gorm:"column:joined_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (memberSQLite) TableName() string { return "chama_members" }

type loanSQLite struct {
	ID         uint64 `gorm:"primaryKey;column:id"`
	LoanID     string `gorm:"size:32;column:loan_id;uniqueIndex"`
	ChamaID    string `gorm:"size:32;column:chama_id"`
	BorrowerID string `gorm:"size:32;column:borrower_id"`
	Currency   string `gorm:"size:3;column:currency"`

	Principal    int64           `gorm:"column:principal"`
	InterestType string          `gorm:"type:text;column:interest_type"`
	InterestRate decimal.Decimal `gorm:"type:decimal(7,4);column:interest_rate"`
	TermMonths   int             `gorm:"column:term_months"`
	Purpose      string          `gorm:"type:text;column:purpose"`

	Status          string    `gorm:"type:text;column:status"`
	StatusUpdatedAt time.Time `gorm:"column:status_updated_at"`

	TotalRepayable       int64 `gorm:"column:total_repayable"`
	AmountPaid           int64 `gorm:"column:amount_paid"`
	PrincipalOutstanding int64 `gorm:"column:principal_outstanding"`
	InterestOutstanding  int64 `gorm:"column:interest_outstanding"`
	PenaltyOutstanding   int64 `gorm:"column:penalty_outstanding"`

	ApprovedBy *string    `gorm:"size:32;column:approved_by"`
	ApprovedAt *time.Time `gorm:"column:approved_at"`
	DueDate    *time.Time `gorm:"type:date;column:due_date"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (loanSQLite) TableName() string { return "loans" }

type installmentSQLite struct {
	ID       uint64    `gorm:"primaryKey;column:id"`
	LoanID   uint64    `gorm:"column:loan_id;uniqueIndex:ux_installments_loan_seq,priority:1"`
	Sequence int       `gorm:"column:sequence;uniqueIndex:ux_installments_loan_seq,priority:2"`
	DueDate  time.Time `gorm:"type:date;column:due_date"`

	PrincipalAmount int64 `gorm:"column:principal_amount"`
	InterestAmount  int64 `gorm:"column:interest_amount"`
	PenaltyAmount   int64 `gorm:"column:penalty_amount"`
	PaidPrincipal   int64 `gorm:"column:paid_principal"`
	PaidInterest    int64 `gorm:"column:paid_interest"`
	PaidPenalty     int64 `gorm:"column:paid_penalty"`

	Status    string    `gorm:"type:text;column:status"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (installmentSQLite) TableName() string { return "installments" }

type guarantorSQLite struct {
	ID          uint64 `gorm:"primaryKey;column:id"`
	GuarantorID string `gorm:"size:32;column:guarantor_id;uniqueIndex"`
	LoanID      uint64 `gorm:"column:loan_id;uniqueIndex:ux_guarantors_loan_member,priority:1"`
	MemberID    string `gorm:"size:32;column:member_id;uniqueIndex:ux_guarantors_loan_member,priority:2"`

	GuaranteedAmount int64      `gorm:"column:guaranteed_amount"`
	Status           string     `gorm:"type:text;column:status"`
	RespondedAt      *time.Time `gorm:"column:responded_at"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (guarantorSQLite) TableName() string { return "guarantors" }

type cycleSQLite struct {
	ID       uint64 `gorm:"primaryKey;column:id"`
	CycleID  string `gorm:"size:32;column:cycle_id;uniqueIndex"`
	ChamaID  string `gorm:"size:32;column:chama_id"`
	Currency string `gorm:"size:3;column:currency"`

	AmountPerMember int64     `gorm:"column:amount_per_member"`
	Frequency       string    `gorm:"type:text;column:frequency"`
	IsActive        bool      `gorm:"column:is_active"`
	StartedAt       time.Time `gorm:"column:started_at"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (cycleSQLite) TableName() string { return "rotation_cycles" }

type payoutSQLite struct {
	ID             uint64 `gorm:"primaryKey;column:id"`
	PayoutID       string `gorm:"size:32;column:payout_id;uniqueIndex"`
	CycleID        uint64 `gorm:"column:cycle_id;uniqueIndex:ux_payouts_cycle_key,priority:1"`
	SlotID         uint64 `gorm:"column:slot_id;uniqueIndex:ux_payouts_slot"`
	RecipientID    string `gorm:"size:32;column:recipient_id"`
	IdempotencyKey string `gorm:"size:64;column:idempotency_key;uniqueIndex:ux_payouts_cycle_key,priority:2"`

	Amount     int64     `gorm:"column:amount"`
	PayoutDate time.Time `gorm:"type:date;column:payout_date"`
	Status     string    `gorm:"type:text;column:status"`

	CreatedAt time.Time `gorm:"column:created_at"`
}

func (payoutSQLite) TableName() string { return "payouts" }

type swapSQLite struct {
	ID      uint64 `gorm:"primaryKey;column:id"`
	SwapID  string `gorm:"size:32;column:swap_id;uniqueIndex"`
	CycleID uint64 `gorm:"column:cycle_id"`

	RequesterID       string `gorm:"size:32;column:requester_id"`
	RequesterPosition int    `gorm:"column:requester_position"`
	TargetPosition    int    `gorm:"column:target_position"`
	Reason            string `gorm:"type:text;column:reason"`

	Status      string     `gorm:"type:text;column:status"`
	RespondedAt *time.Time `gorm:"column:responded_at"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (swapSQLite) TableName() string { return "swap_requests" }

// openTestDB creates an in-memory sqlite DB with every engine table.
// TranslateError matches the production config: idempotent writes are
// detected through gorm.ErrDuplicatedKey.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&chamaSQLite{}, &memberSQLite{},
		&loanSQLite{}, &installmentSQLite{}, &guarantorSQLite{},
		&loanDomain.Repayment{}, &loanDomain.RepaymentAllocation{}, &loanDomain.PenaltyAccrual{},
		&cycleSQLite{}, &rotationDomain.Slot{}, &payoutSQLite{}, &swapSQLite{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

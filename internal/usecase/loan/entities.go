package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// All amounts are integer minor units of the chama's currency.

type GuarantorInput struct {
	MemberID string `json:"member_id"`
	Amount   int64  `json:"amount"`
}

type ApplyInput struct {
	ChamaID    string           `json:"chama_id"`
	BorrowerID string           `json:"borrower_id"`
	Principal  int64            `json:"principal"`
	TermMonths int              `json:"term_months"`
	Purpose    string           `json:"purpose"`
	Guarantors []GuarantorInput `json:"guarantors"`
}

type ApproveInput struct {
	LoanID     string
	ApproverID string
}

type RejectInput struct {
	LoanID     string
	ApproverID string
}

type CancelInput struct {
	LoanID     string
	BorrowerID string
}

type MarkDefaultedInput struct {
	LoanID     string
	OfficialID string
}

type InstallmentDTO struct {
	Sequence        int       `json:"sequence"`
	DueDate         time.Time `json:"due_date"`
	PrincipalAmount int64     `json:"principal_amount"`
	InterestAmount  int64     `json:"interest_amount"`
	PenaltyAmount   int64     `json:"penalty_amount"`
	AmountPaid      int64     `json:"amount_paid"`
	Status          string    `json:"status"`
}

type GuarantorDTO struct {
	GuarantorID      string     `json:"guarantor_id"`
	MemberID         string     `json:"member_id"`
	GuaranteedAmount int64      `json:"guaranteed_amount"`
	Status           string     `json:"status"`
	RespondedAt      *time.Time `json:"responded_at,omitempty"`
}

type LoanDTO struct {
	LoanID     string `json:"loan_id"`
	ChamaID    string `json:"chama_id"`
	BorrowerID string `json:"borrower_id"`
	Currency   string `json:"currency"`

	Principal    int64           `json:"principal"`
	InterestType string          `json:"interest_type"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	TermMonths   int             `json:"term_months"`
	Purpose      string          `json:"purpose"`
	Status       string          `json:"status"`

	TotalRepayable       int64 `json:"total_repayable"`
	AmountPaid           int64 `json:"amount_paid"`
	PrincipalOutstanding int64 `json:"principal_outstanding"`
	InterestOutstanding  int64 `json:"interest_outstanding"`
	PenaltyOutstanding   int64 `json:"penalty_outstanding"`

	ApprovedBy *string    `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	Installments []InstallmentDTO `json:"installments,omitempty"`
	Guarantors   []GuarantorDTO   `json:"guarantors,omitempty"`
}

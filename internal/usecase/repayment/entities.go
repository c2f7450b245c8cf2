package repayment

import "time"

type RepayInput struct {
	LoanID         string `json:"loan_id"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

type AllocationDTO struct {
	Sequence  int   `json:"sequence"`
	Penalty   int64 `json:"penalty"`
	Interest  int64 `json:"interest"`
	Principal int64 `json:"principal"`
}

type RepaymentDTO struct {
	RepaymentID   string    `json:"repayment_id"`
	LoanID        string    `json:"loan_id"`
	Amount        int64     `json:"amount"`
	PenaltyPaid   int64     `json:"penalty_paid"`
	InterestPaid  int64     `json:"interest_paid"`
	PrincipalPaid int64     `json:"principal_paid"`
	AppliedAt     time.Time `json:"applied_at"`

	LoanStatus  string `json:"loan_status"`
	Outstanding int64  `json:"outstanding"`

	Allocations []AllocationDTO `json:"allocations"`

	// Replayed is true when the idempotency key matched an earlier
	// repayment and nothing was applied. Not serialized: a replayed
	// response must be byte-identical to the original.
	Replayed bool `json:"-"`
}

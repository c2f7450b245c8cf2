package guarantor

import "time"

type NominateInput struct {
	LoanID   string `json:"loan_id"`
	MemberID string `json:"member_id"`
	Amount   int64  `json:"amount"`
}

type RespondInput struct {
	LoanID   string `json:"loan_id"`
	MemberID string `json:"member_id"`
	Accept   bool   `json:"accept"`
}

type GuarantorDTO struct {
	GuarantorID      string     `json:"guarantor_id"`
	LoanID           string     `json:"loan_id"`
	MemberID         string     `json:"member_id"`
	GuaranteedAmount int64      `json:"guaranteed_amount"`
	Status           string     `json:"status"`
	RespondedAt      *time.Time `json:"responded_at,omitempty"`
}

// RespondResult reports the response together with the coverage picture
// it produced, so a caller can see whether the loan advanced.
type RespondResult struct {
	Guarantor      GuarantorDTO `json:"guarantor"`
	LoanStatus     string       `json:"loan_status"`
	Coverage       int64        `json:"coverage"`
	TotalRepayable int64        `json:"total_repayable"`
}

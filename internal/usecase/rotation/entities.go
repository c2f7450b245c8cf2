package rotation

import "time"

type StartCycleInput struct {
	ChamaID         string `json:"chama_id"`
	AmountPerMember int64  `json:"amount_per_member"`
	Frequency       string `json:"frequency"`
}

type ProcessPayoutInput struct {
	CycleID        string `json:"cycle_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

type RequestSwapInput struct {
	CycleID        string `json:"cycle_id"`
	RequesterID    string `json:"requester_id"`
	TargetPosition int    `json:"target_position"`
	Reason         string `json:"reason"`
}

type RespondSwapInput struct {
	SwapID      string `json:"swap_id"`
	ResponderID string `json:"responder_id"`
	Approve     bool   `json:"approve"`
}

type SlotDTO struct {
	Position int    `json:"position"`
	MemberID string `json:"member_id"`
	Paid     bool   `json:"paid"`
}

type CycleDTO struct {
	CycleID         string    `json:"cycle_id"`
	ChamaID         string    `json:"chama_id"`
	Currency        string    `json:"currency"`
	AmountPerMember int64     `json:"amount_per_member"`
	Frequency       string    `json:"frequency"`
	IsActive        bool      `json:"is_active"`
	StartedAt       time.Time `json:"started_at"`
	Slots           []SlotDTO `json:"slots,omitempty"`
}

// RecipientDTO names who the next payout goes to and for how much.
type RecipientDTO struct {
	CycleID  string `json:"cycle_id"`
	Position int    `json:"position"`
	MemberID string `json:"member_id"`
	Amount   int64  `json:"amount"`
}

type PayoutDTO struct {
	PayoutID    string    `json:"payout_id"`
	CycleID     string    `json:"cycle_id"`
	Position    int       `json:"position"`
	RecipientID string    `json:"recipient_id"`
	Amount      int64     `json:"amount"`
	PayoutDate  time.Time `json:"payout_date"`
	Status      string    `json:"status"`

	// Replayed is true when the idempotency key matched an earlier
	// payout. Not serialized: a replayed response must be
	// byte-identical to the original.
	Replayed bool `json:"-"`
}

type SwapDTO struct {
	SwapID            string     `json:"swap_id"`
	CycleID           string     `json:"cycle_id"`
	RequesterID       string     `json:"requester_id"`
	RequesterPosition int        `json:"requester_position"`
	TargetPosition    int        `json:"target_position"`
	Reason            string     `json:"reason,omitempty"`
	Status            string     `json:"status"`
	RespondedAt       *time.Time `json:"responded_at,omitempty"`
}

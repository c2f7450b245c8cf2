package rotation

import "time"

type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly:
		return Frequency(s), nil
	default:
		return "", ErrBadFrequency
	}
}

// Cycle is a ROSCA round: every member holds one slot and each slot
// receives exactly one payout before the cycle is exhausted.
type Cycle struct {
	ID       uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	CycleID  string `gorm:"column:cycle_id;type:char(32);not null;uniqueIndex:ux_cycles_cycle_id" json:"cycle_id"`
	ChamaID  string `gorm:"column:chama_id;type:char(32);not null;index:idx_cycles_chama" json:"chama_id"`
	Currency string `gorm:"column:currency;type:char(3);not null" json:"currency"`

	AmountPerMember int64     `gorm:"column:amount_per_member;not null" json:"amount_per_member"`
	Frequency       Frequency `gorm:"column:frequency;type:enum('weekly','monthly','quarterly');not null" json:"frequency"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	StartedAt       time.Time `gorm:"column:started_at;not null" json:"started_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Cycle) TableName() string { return "rotation_cycles" }

// Slot positions form a contiguous permutation of 1..N. A swap approval
// exchanges the two Position values in place, preserving that invariant.
type Slot struct {
	ID       uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	CycleID  uint64 `gorm:"column:cycle_id;not null;uniqueIndex:ux_slots_cycle_position,priority:1;uniqueIndex:ux_slots_cycle_member,priority:1" json:"-"`
	MemberID string `gorm:"column:member_id;type:char(32);not null;uniqueIndex:ux_slots_cycle_member,priority:2" json:"member_id"`
	Position int    `gorm:"column:position;not null;uniqueIndex:ux_slots_cycle_position,priority:2" json:"position"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Slot) TableName() string { return "rotation_slots" }

type PayoutStatus string

const PayoutCompleted PayoutStatus = "COMPLETED"

// The unique slot index is what makes a concurrent double payout
// structurally impossible, independent of the row lock.
type Payout struct {
	ID             uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	PayoutID       string `gorm:"column:payout_id;type:char(32);not null;uniqueIndex:ux_payouts_payout_id" json:"payout_id"`
	CycleID        uint64 `gorm:"column:cycle_id;not null;uniqueIndex:ux_payouts_cycle_key,priority:1" json:"-"`
	SlotID         uint64 `gorm:"column:slot_id;not null;uniqueIndex:ux_payouts_slot" json:"-"`
	RecipientID    string `gorm:"column:recipient_id;type:char(32);not null" json:"recipient_id"`
	IdempotencyKey string `gorm:"column:idempotency_key;size:64;not null;uniqueIndex:ux_payouts_cycle_key,priority:2" json:"idempotency_key"`

	Amount     int64        `gorm:"column:amount;not null" json:"amount"`
	PayoutDate time.Time    `gorm:"column:payout_date;type:date;not null" json:"payout_date"`
	Status     PayoutStatus `gorm:"column:status;type:enum('COMPLETED');not null;default:'COMPLETED'" json:"status"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Payout) TableName() string { return "payouts" }

type SwapStatus string

const (
	SwapPending  SwapStatus = "PENDING"
	SwapApproved SwapStatus = "APPROVED"
	SwapRejected SwapStatus = "REJECTED"
)

type SwapRequest struct {
	ID      uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	SwapID  string `gorm:"column:swap_id;type:char(32);not null;uniqueIndex:ux_swaps_swap_id" json:"swap_id"`
	CycleID uint64 `gorm:"column:cycle_id;not null;index:idx_swaps_cycle" json:"-"`

	RequesterID       string `gorm:"column:requester_id;type:char(32);not null" json:"requester_id"`
	RequesterPosition int    `gorm:"column:requester_position;not null" json:"requester_position"`
	TargetPosition    int    `gorm:"column:target_position;not null" json:"target_position"`
	Reason            string `gorm:"column:reason;type:text" json:"reason"`

	Status      SwapStatus `gorm:"column:status;type:enum('PENDING','APPROVED','REJECTED');not null;default:'PENDING'" json:"status"`
	RespondedAt *time.Time `gorm:"column:responded_at" json:"responded_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (SwapRequest) TableName() string { return "swap_requests" }

package rotation

import (
	"context"

	"chama-engine/internal/domain/fault"
)

var (
	ErrCycleNotFound = fault.New(fault.NotFound, "rotation cycle not found")
	ErrSlotNotFound  = fault.New(fault.NotFound, "rotation slot not found")
	ErrSwapNotFound  = fault.New(fault.NotFound, "swap request not found")

	ErrSlotAlreadyPaid   = fault.New(fault.Conflict, "slot already has a payout")
	ErrPendingSwapExists = fault.New(fault.Conflict, "requester already has a pending swap request")
	ErrSwapClosed        = fault.New(fault.Conflict, "swap request has already been answered")

	ErrCycleExhausted  = fault.New(fault.Policy, "every slot in the cycle has been paid out")
	ErrCycleInactive   = fault.New(fault.Policy, "rotation cycle is not active")
	ErrNotTargetHolder = fault.New(fault.Policy, "only the member holding the target position may respond")

	ErrBadFrequency = fault.New(fault.Validation, "frequency must be weekly, monthly or quarterly")
)

type Repository interface {
	CreateCycle(ctx context.Context, c *Cycle) error
	GetByCycleID(ctx context.Context, cycleID string) (*Cycle, error)
	// GetByCycleIDForUpdate takes a row lock; only meaningful inside a
	// transaction.
	GetByCycleIDForUpdate(ctx context.Context, cycleID string) (*Cycle, error)
	// GetCycleByPK resolves a child row's numeric FK back to its cycle.
	GetCycleByPK(ctx context.Context, pk uint64) (*Cycle, error)
	SaveCycle(ctx context.Context, c *Cycle) error

	CreateSlots(ctx context.Context, slots []Slot) error
	// ListSlots returns slots ordered by position.
	ListSlots(ctx context.Context, cycleID uint64) ([]Slot, error)
	GetSlotByMember(ctx context.Context, cycleID uint64, memberID string) (*Slot, error)
	GetSlotByPosition(ctx context.Context, cycleID uint64, position int) (*Slot, error)
	// SwapSlotPositions exchanges the two slots' positions without ever
	// tripping the unique (cycle, position) index, and writes the new
	// positions back into a and b.
	SwapSlotPositions(ctx context.Context, a, b *Slot) error

	CreatePayout(ctx context.Context, p *Payout) error
	ListPayouts(ctx context.Context, cycleID uint64) ([]Payout, error)
	GetPayoutByKey(ctx context.Context, cycleID uint64, idempotencyKey string) (*Payout, error)

	CreateSwap(ctx context.Context, s *SwapRequest) error
	GetBySwapID(ctx context.Context, swapID string) (*SwapRequest, error)
	GetPendingSwapByRequester(ctx context.Context, cycleID uint64, requesterID string) (*SwapRequest, error)
	SaveSwap(ctx context.Context, s *SwapRequest) error
}

package rotationmock

import (
	"context"
	"errors"

	domain "chama-engine/internal/domain/rotation"
)

var _ domain.Repository = (*Repo)(nil)

var errUnimplemented = errors.New("rotationmock: method not implemented")

// Repo is a function-backed mock satisfying domain.Repository.
type Repo struct {
	CreateCycleFn           func(ctx context.Context, c *domain.Cycle) error
	GetByCycleIDFn          func(ctx context.Context, cycleID string) (*domain.Cycle, error)
	GetByCycleIDForUpdateFn func(ctx context.Context, cycleID string) (*domain.Cycle, error)
	GetCycleByPKFn          func(ctx context.Context, pk uint64) (*domain.Cycle, error)
	SaveCycleFn             func(ctx context.Context, c *domain.Cycle) error

	CreateSlotsFn       func(ctx context.Context, slots []domain.Slot) error
	ListSlotsFn         func(ctx context.Context, cycleID uint64) ([]domain.Slot, error)
	GetSlotByMemberFn   func(ctx context.Context, cycleID uint64, memberID string) (*domain.Slot, error)
	GetSlotByPositionFn func(ctx context.Context, cycleID uint64, position int) (*domain.Slot, error)
	SwapSlotPositionsFn func(ctx context.Context, a, b *domain.Slot) error

	CreatePayoutFn   func(ctx context.Context, p *domain.Payout) error
	ListPayoutsFn    func(ctx context.Context, cycleID uint64) ([]domain.Payout, error)
	GetPayoutByKeyFn func(ctx context.Context, cycleID uint64, idempotencyKey string) (*domain.Payout, error)

	CreateSwapFn                func(ctx context.Context, s *domain.SwapRequest) error
	GetBySwapIDFn               func(ctx context.Context, swapID string) (*domain.SwapRequest, error)
	GetPendingSwapByRequesterFn func(ctx context.Context, cycleID uint64, requesterID string) (*domain.SwapRequest, error)
	SaveSwapFn                  func(ctx context.Context, s *domain.SwapRequest) error
}

func (m *Repo) CreateCycle(ctx context.Context, c *domain.Cycle) error {
	if m.CreateCycleFn != nil {
		return m.CreateCycleFn(ctx, c)
	}
	return nil
}

func (m *Repo) GetByCycleID(ctx context.Context, cycleID string) (*domain.Cycle, error) {
	if m.GetByCycleIDFn != nil {
		return m.GetByCycleIDFn(ctx, cycleID)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetByCycleIDForUpdate(ctx context.Context, cycleID string) (*domain.Cycle, error) {
	if m.GetByCycleIDForUpdateFn != nil {
		return m.GetByCycleIDForUpdateFn(ctx, cycleID)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetCycleByPK(ctx context.Context, pk uint64) (*domain.Cycle, error) {
	if m.GetCycleByPKFn != nil {
		return m.GetCycleByPKFn(ctx, pk)
	}
	return nil, errUnimplemented
}

func (m *Repo) SaveCycle(ctx context.Context, c *domain.Cycle) error {
	if m.SaveCycleFn != nil {
		return m.SaveCycleFn(ctx, c)
	}
	return nil
}

func (m *Repo) CreateSlots(ctx context.Context, slots []domain.Slot) error {
	if m.CreateSlotsFn != nil {
		return m.CreateSlotsFn(ctx, slots)
	}
	return nil
}

func (m *Repo) ListSlots(ctx context.Context, cycleID uint64) ([]domain.Slot, error) {
	if m.ListSlotsFn != nil {
		return m.ListSlotsFn(ctx, cycleID)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetSlotByMember(ctx context.Context, cycleID uint64, memberID string) (*domain.Slot, error) {
	if m.GetSlotByMemberFn != nil {
		return m.GetSlotByMemberFn(ctx, cycleID, memberID)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetSlotByPosition(ctx context.Context, cycleID uint64, position int) (*domain.Slot, error) {
	if m.GetSlotByPositionFn != nil {
		return m.GetSlotByPositionFn(ctx, cycleID, position)
	}
	return nil, errUnimplemented
}

func (m *Repo) SwapSlotPositions(ctx context.Context, a, b *domain.Slot) error {
	if m.SwapSlotPositionsFn != nil {
		return m.SwapSlotPositionsFn(ctx, a, b)
	}
	a.Position, b.Position = b.Position, a.Position
	return nil
}

func (m *Repo) CreatePayout(ctx context.Context, p *domain.Payout) error {
	if m.CreatePayoutFn != nil {
		return m.CreatePayoutFn(ctx, p)
	}
	return nil
}

func (m *Repo) ListPayouts(ctx context.Context, cycleID uint64) ([]domain.Payout, error) {
	if m.ListPayoutsFn != nil {
		return m.ListPayoutsFn(ctx, cycleID)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetPayoutByKey(ctx context.Context, cycleID uint64, idempotencyKey string) (*domain.Payout, error) {
	if m.GetPayoutByKeyFn != nil {
		return m.GetPayoutByKeyFn(ctx, cycleID, idempotencyKey)
	}
	return nil, errUnimplemented
}

func (m *Repo) CreateSwap(ctx context.Context, s *domain.SwapRequest) error {
	if m.CreateSwapFn != nil {
		return m.CreateSwapFn(ctx, s)
	}
	return nil
}

func (m *Repo) GetBySwapID(ctx context.Context, swapID string) (*domain.SwapRequest, error) {
	if m.GetBySwapIDFn != nil {
		return m.GetBySwapIDFn(ctx, swapID)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetPendingSwapByRequester(ctx context.Context, cycleID uint64, requesterID string) (*domain.SwapRequest, error) {
	if m.GetPendingSwapByRequesterFn != nil {
		return m.GetPendingSwapByRequesterFn(ctx, cycleID, requesterID)
	}
	return nil, errUnimplemented
}

func (m *Repo) SaveSwap(ctx context.Context, s *domain.SwapRequest) error {
	if m.SaveSwapFn != nil {
		return m.SaveSwapFn(ctx, s)
	}
	return nil
}

// Package rotation runs ROSCA cycles: every member holds one slot in a
// 1..N rotation, the lowest unpaid position receives the next payout,
// and members trade positions through approved swap requests. Payouts
// are idempotent per (cycle, key) and structurally unique per slot.
package rotation

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"chama-engine/internal/domain/chama"
	"chama-engine/internal/domain/fault"
	domain "chama-engine/internal/domain/rotation"
	"chama-engine/internal/domain/uow"
	"chama-engine/internal/notify"
	"chama-engine/pkg/clock"
	"chama-engine/pkg/id"
)

type Usecase struct {
	repos    uow.Repos
	uow      uow.UnitOfWork
	clk      clock.Clock
	notifier notify.Notifier
}

func NewUsecase(repos uow.Repos, tx uow.UnitOfWork, clk clock.Clock, n notify.Notifier) *Usecase {
	return &Usecase{repos: repos, uow: tx, clk: clk, notifier: n}
}

// StartCycle opens a rotation over the chama's active members, one slot
// each in join order. A rotation needs at least two members to rotate.
func (u *Usecase) StartCycle(ctx context.Context, in StartCycleInput) (*CycleDTO, error) {
	if in.AmountPerMember <= 0 {
		return nil, fault.New(fault.Validation, "amount per member must be positive")
	}
	freq, err := domain.ParseFrequency(in.Frequency)
	if err != nil {
		return nil, err
	}

	var dto *CycleDTO
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		ch, err := r.Chamas.GetByChamaID(ctx, in.ChamaID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return chama.ErrNotFound
			}
			return err
		}

		members, err := r.Chamas.ListActiveMembers(ctx, in.ChamaID)
		if err != nil {
			return err
		}
		if len(members) < 2 {
			return fault.New(fault.Policy, "a rotation needs at least two active members")
		}

		now := u.clk.Now().UTC()
		c := &domain.Cycle{
			CycleID:         id.NewID32(),
			ChamaID:         in.ChamaID,
			Currency:        ch.Currency,
			AmountPerMember: in.AmountPerMember,
			Frequency:       freq,
			IsActive:        true,
			StartedAt:       now,
		}
		if err := r.Rotations.CreateCycle(ctx, c); err != nil {
			return err
		}

		slots := make([]domain.Slot, len(members))
		for i, m := range members {
			slots[i] = domain.Slot{CycleID: c.ID, MemberID: m.MemberID, Position: i + 1}
		}
		if err := r.Rotations.CreateSlots(ctx, slots); err != nil {
			return err
		}

		dto = toCycleDTO(c)
		for _, s := range slots {
			dto.Slots = append(dto.Slots, SlotDTO{Position: s.Position, MemberID: s.MemberID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// GetCycle returns the cycle with its slots and their payout state.
func (u *Usecase) GetCycle(ctx context.Context, cycleID string) (*CycleDTO, error) {
	c, err := u.repos.Rotations.GetByCycleID(ctx, cycleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCycleNotFound
		}
		return nil, err
	}

	slots, paid, err := u.slotsWithPayouts(ctx, u.repos, c.ID)
	if err != nil {
		return nil, err
	}

	dto := toCycleDTO(c)
	for _, s := range slots {
		dto.Slots = append(dto.Slots, SlotDTO{Position: s.Position, MemberID: s.MemberID, Paid: paid[s.ID]})
	}
	return dto, nil
}

// NextRecipient names the lowest unpaid position. The answer is advisory
// outside a transaction; ProcessPayout recomputes it under the lock.
func (u *Usecase) NextRecipient(ctx context.Context, cycleID string) (*RecipientDTO, error) {
	c, err := u.repos.Rotations.GetByCycleID(ctx, cycleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCycleNotFound
		}
		return nil, err
	}

	slots, paid, err := u.slotsWithPayouts(ctx, u.repos, c.ID)
	if err != nil {
		return nil, err
	}
	next := firstUnpaid(slots, paid)
	if next == nil {
		return nil, domain.ErrCycleExhausted
	}

	return &RecipientDTO{
		CycleID:  c.CycleID,
		Position: next.Position,
		MemberID: next.MemberID,
		Amount:   c.AmountPerMember * int64(len(slots)),
	}, nil
}

// ProcessPayout pays the lowest unpaid position. The unpaid set is
// recomputed under the cycle lock, so two concurrent calls cannot pay
// the same slot or skip one. The final payout deactivates the cycle.
func (u *Usecase) ProcessPayout(ctx context.Context, in ProcessPayoutInput) (*PayoutDTO, error) {
	if in.IdempotencyKey == "" {
		return nil, fault.New(fault.Validation, "idempotency key is required")
	}

	var (
		dto    *PayoutDTO
		events []notify.Event
	)
	err := u.uow.WithinCycleTx(ctx, in.CycleID, func(r uow.Repos, c *domain.Cycle) error {
		existing, err := r.Rotations.GetPayoutByKey(ctx, c.ID, in.IdempotencyKey)
		if err == nil {
			dto, err = u.replayDTO(ctx, r, c, existing)
			return err
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		slots, paid, err := u.slotsWithPayouts(ctx, r, c.ID)
		if err != nil {
			return err
		}
		next := firstUnpaid(slots, paid)
		if next == nil {
			return domain.ErrCycleExhausted
		}
		if !c.IsActive {
			return domain.ErrCycleInactive
		}

		now := u.clk.Now().UTC()
		p := &domain.Payout{
			PayoutID:       id.NewID32(),
			CycleID:        c.ID,
			SlotID:         next.ID,
			RecipientID:    next.MemberID,
			IdempotencyKey: in.IdempotencyKey,
			Amount:         c.AmountPerMember * int64(len(slots)),
			PayoutDate:     dateOnly(now),
			Status:         domain.PayoutCompleted,
		}
		if err := r.Rotations.CreatePayout(ctx, p); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrSlotAlreadyPaid
			}
			return err
		}

		// That was the last unpaid slot: the rotation is finished.
		if countUnpaid(slots, paid) == 1 {
			c.IsActive = false
			if err := r.Rotations.SaveCycle(ctx, c); err != nil {
				return err
			}
		}

		dto = toPayoutDTO(p, c.CycleID, next.Position)
		events = append(events, notify.Event{
			Type:     notify.PayoutProcessed,
			ChamaID:  c.ChamaID,
			CycleID:  c.CycleID,
			MemberID: next.MemberID,
			Payload:  map[string]any{"position": next.Position, "amount": p.Amount},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.publish(ctx, events)
	return dto, nil
}

// RequestSwap opens a position trade. The requester must hold a slot,
// the target must be a different unpaid position, and a member can only
// have one open request at a time.
func (u *Usecase) RequestSwap(ctx context.Context, in RequestSwapInput) (*SwapDTO, error) {
	if in.TargetPosition <= 0 {
		return nil, fault.New(fault.Validation, "target position must be positive")
	}

	var (
		dto    *SwapDTO
		events []notify.Event
	)
	err := u.uow.WithinCycleTx(ctx, in.CycleID, func(r uow.Repos, c *domain.Cycle) error {
		if !c.IsActive {
			return domain.ErrCycleInactive
		}

		mine, err := r.Rotations.GetSlotByMember(ctx, c.ID, in.RequesterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrSlotNotFound
			}
			return err
		}
		if mine.Position == in.TargetPosition {
			return fault.New(fault.Validation, "cannot swap a position with itself")
		}

		target, err := r.Rotations.GetSlotByPosition(ctx, c.ID, in.TargetPosition)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrSlotNotFound
			}
			return err
		}

		if err := u.requireUnpaid(ctx, r, c.ID, mine, target); err != nil {
			return err
		}

		if _, err := r.Rotations.GetPendingSwapByRequester(ctx, c.ID, in.RequesterID); err == nil {
			return domain.ErrPendingSwapExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		s := &domain.SwapRequest{
			SwapID:            id.NewID32(),
			CycleID:           c.ID,
			RequesterID:       in.RequesterID,
			RequesterPosition: mine.Position,
			TargetPosition:    in.TargetPosition,
			Reason:            in.Reason,
			Status:            domain.SwapPending,
		}
		if err := r.Rotations.CreateSwap(ctx, s); err != nil {
			return err
		}

		dto = toSwapDTO(s, c.CycleID)
		events = append(events, notify.Event{
			Type:     notify.SwapRequested,
			ChamaID:  c.ChamaID,
			CycleID:  c.CycleID,
			MemberID: target.MemberID,
			Payload: map[string]any{
				"swap_id":            s.SwapID,
				"requester_id":       in.RequesterID,
				"requester_position": mine.Position,
				"target_position":    in.TargetPosition,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.publish(ctx, events)
	return dto, nil
}

// RespondSwap settles a swap request. Only the member currently holding
// the target position may answer; approval exchanges the two positions
// in place, which keeps the 1..N permutation intact.
func (u *Usecase) RespondSwap(ctx context.Context, in RespondSwapInput) (*SwapDTO, error) {
	// The swap row carries only the cycle's numeric FK; resolve the
	// public id first, then re-read everything under the cycle lock.
	probe, err := u.repos.Rotations.GetBySwapID(ctx, in.SwapID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSwapNotFound
		}
		return nil, err
	}
	cycleRef, err := u.repos.Rotations.GetCycleByPK(ctx, probe.CycleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCycleNotFound
		}
		return nil, err
	}

	var (
		dto    *SwapDTO
		events []notify.Event
	)
	err = u.uow.WithinCycleTx(ctx, cycleRef.CycleID, func(r uow.Repos, c *domain.Cycle) error {
		s, err := r.Rotations.GetBySwapID(ctx, in.SwapID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrSwapNotFound
			}
			return err
		}
		if s.Status != domain.SwapPending {
			return domain.ErrSwapClosed
		}

		target, err := r.Rotations.GetSlotByPosition(ctx, c.ID, s.TargetPosition)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrSlotNotFound
			}
			return err
		}
		if target.MemberID != in.ResponderID {
			return domain.ErrNotTargetHolder
		}

		now := u.clk.Now().UTC()
		event := notify.SwapRejected
		if in.Approve {
			mine, err := r.Rotations.GetSlotByMember(ctx, c.ID, s.RequesterID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.ErrSlotNotFound
				}
				return err
			}
			// The board may have changed since the request was made;
			// approving a stale picture would trade the wrong slots.
			if mine.Position != s.RequesterPosition {
				return fault.New(fault.Conflict, "positions changed since the swap was requested")
			}
			if err := u.requireUnpaid(ctx, r, c.ID, mine, target); err != nil {
				return err
			}
			if err := r.Rotations.SwapSlotPositions(ctx, mine, target); err != nil {
				return err
			}
			s.Status = domain.SwapApproved
			event = notify.SwapApproved
		} else {
			s.Status = domain.SwapRejected
		}
		s.RespondedAt = &now
		if err := r.Rotations.SaveSwap(ctx, s); err != nil {
			return err
		}

		dto = toSwapDTO(s, c.CycleID)
		events = append(events, notify.Event{
			Type:     event,
			ChamaID:  c.ChamaID,
			CycleID:  c.CycleID,
			MemberID: s.RequesterID,
			Payload: map[string]any{
				"swap_id":            s.SwapID,
				"requester_position": s.RequesterPosition,
				"target_position":    s.TargetPosition,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.publish(ctx, events)
	return dto, nil
}

func (u *Usecase) publish(ctx context.Context, events []notify.Event) {
	for _, e := range events {
		u.notifier.Publish(ctx, e)
	}
}

// slotsWithPayouts loads the cycle's slots in position order plus the
// set of slot ids that already received a payout.
func (u *Usecase) slotsWithPayouts(ctx context.Context, r uow.Repos, cyclePK uint64) ([]domain.Slot, map[uint64]bool, error) {
	slots, err := r.Rotations.ListSlots(ctx, cyclePK)
	if err != nil {
		return nil, nil, err
	}
	payouts, err := r.Rotations.ListPayouts(ctx, cyclePK)
	if err != nil {
		return nil, nil, err
	}
	paid := make(map[uint64]bool, len(payouts))
	for _, p := range payouts {
		paid[p.SlotID] = true
	}
	return slots, paid, nil
}

func (u *Usecase) requireUnpaid(ctx context.Context, r uow.Repos, cyclePK uint64, slots ...*domain.Slot) error {
	payouts, err := r.Rotations.ListPayouts(ctx, cyclePK)
	if err != nil {
		return err
	}
	for _, p := range payouts {
		for _, s := range slots {
			if p.SlotID == s.ID {
				return domain.ErrSlotAlreadyPaid
			}
		}
	}
	return nil
}

func (u *Usecase) replayDTO(ctx context.Context, r uow.Repos, c *domain.Cycle, p *domain.Payout) (*PayoutDTO, error) {
	slots, err := r.Rotations.ListSlots(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	position := 0
	for _, s := range slots {
		if s.ID == p.SlotID {
			position = s.Position
			break
		}
	}
	dto := toPayoutDTO(p, c.CycleID, position)
	dto.Replayed = true
	return dto, nil
}

func firstUnpaid(slots []domain.Slot, paid map[uint64]bool) *domain.Slot {
	for i := range slots {
		if !paid[slots[i].ID] {
			return &slots[i]
		}
	}
	return nil
}

func countUnpaid(slots []domain.Slot, paid map[uint64]bool) int {
	n := 0
	for i := range slots {
		if !paid[slots[i].ID] {
			n++
		}
	}
	return n
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func toCycleDTO(c *domain.Cycle) *CycleDTO {
	return &CycleDTO{
		CycleID:         c.CycleID,
		ChamaID:         c.ChamaID,
		Currency:        c.Currency,
		AmountPerMember: c.AmountPerMember,
		Frequency:       string(c.Frequency),
		IsActive:        c.IsActive,
		StartedAt:       c.StartedAt,
	}
}

func toPayoutDTO(p *domain.Payout, cycleID string, position int) *PayoutDTO {
	return &PayoutDTO{
		PayoutID:    p.PayoutID,
		CycleID:     cycleID,
		Position:    position,
		RecipientID: p.RecipientID,
		Amount:      p.Amount,
		PayoutDate:  p.PayoutDate,
		Status:      string(p.Status),
	}
}

func toSwapDTO(s *domain.SwapRequest, cycleID string) *SwapDTO {
	return &SwapDTO{
		SwapID:            s.SwapID,
		CycleID:           cycleID,
		RequesterID:       s.RequesterID,
		RequesterPosition: s.RequesterPosition,
		TargetPosition:    s.TargetPosition,
		Reason:            s.Reason,
		Status:            string(s.Status),
		RespondedAt:       s.RespondedAt,
	}
}

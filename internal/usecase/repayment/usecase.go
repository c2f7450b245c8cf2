// Package repayment applies payments to an active loan. An amount is
// spread in three passes over the schedule, oldest installment first:
// every penalty bucket drains before any interest does, and every
// interest bucket before any principal. The split is recorded per
// installment so each shilling's destination is auditable.
package repayment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"chama-engine/internal/domain/fault"
	"chama-engine/internal/domain/loan"
	"chama-engine/internal/domain/uow"
	"chama-engine/internal/notify"
	"chama-engine/pkg/clock"
	"chama-engine/pkg/id"
)

type Usecase struct {
	uow      uow.UnitOfWork
	clk      clock.Clock
	notifier notify.Notifier
}

func NewUsecase(tx uow.UnitOfWork, clk clock.Clock, n notify.Notifier) *Usecase {
	return &Usecase{uow: tx, clk: clk, notifier: n}
}

// Repay applies amount to the loan under its row lock. A repeated
// idempotency key returns the original repayment unchanged. Paying the
// whole balance completes the loan in the same transaction.
func (u *Usecase) Repay(ctx context.Context, in RepayInput) (*RepaymentDTO, error) {
	if in.Amount <= 0 {
		return nil, fault.New(fault.Validation, "repayment amount must be positive")
	}
	if in.IdempotencyKey == "" {
		return nil, fault.New(fault.Validation, "idempotency key is required")
	}

	var (
		dto    *RepaymentDTO
		events []notify.Event
	)
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		existing, err := r.Loans.GetRepaymentByKey(ctx, l.ID, in.IdempotencyKey)
		if err == nil {
			dto, err = u.replayDTO(ctx, r, l, existing)
			return err
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if l.Status != loan.StatusActive {
			return loan.ErrLoanNotActive
		}
		if in.Amount > l.Outstanding() {
			return loan.ErrOverpayment
		}

		items, err := r.Loans.ListInstallments(ctx, l.ID)
		if err != nil {
			return err
		}

		now := u.clk.Now().UTC()
		split, err := allocate(items, in.Amount, now)
		if err != nil {
			return err
		}
		rep := &loan.Repayment{
			RepaymentID:    id.NewID32(),
			LoanID:         l.ID,
			IdempotencyKey: in.IdempotencyKey,
			Amount:         in.Amount,
			PenaltyPaid:    split.penalty,
			InterestPaid:   split.interest,
			PrincipalPaid:  split.principal,
			AppliedAt:      now,
		}
		if err := r.Loans.CreateRepayment(ctx, rep); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fault.New(fault.Conflict, "repayment with this idempotency key already exists")
			}
			return err
		}

		rows := make([]loan.RepaymentAllocation, 0, len(split.parts))
		for _, p := range split.parts {
			it := p.installment
			it.PaidPenalty += p.penalty
			it.PaidInterest += p.interest
			it.PaidPrincipal += p.principal
			settleStatus(it)
			if err := r.Loans.SaveInstallment(ctx, it); err != nil {
				return err
			}
			rows = append(rows, loan.RepaymentAllocation{
				RepaymentID:   rep.ID,
				InstallmentID: it.ID,
				Sequence:      it.Sequence,
				Penalty:       p.penalty,
				Interest:      p.interest,
				Principal:     p.principal,
			})
		}
		if err := r.Loans.CreateAllocations(ctx, rows); err != nil {
			return err
		}

		l.AmountPaid += in.Amount
		l.PenaltyOutstanding -= split.penalty
		l.InterestOutstanding -= split.interest
		l.PrincipalOutstanding -= split.principal

		events = append(events, notify.Event{
			Type:    notify.RepaymentReceived,
			ChamaID: l.ChamaID,
			LoanID:  l.LoanID,
			Payload: map[string]any{
				"amount":    in.Amount,
				"penalty":   split.penalty,
				"interest":  split.interest,
				"principal": split.principal,
			},
		})

		if l.Outstanding() == 0 {
			if err := l.Transition(loan.StatusCompleted, now); err != nil {
				return err
			}
			events = append(events, notify.Event{
				Type:    notify.LoanCompleted,
				ChamaID: l.ChamaID,
				LoanID:  l.LoanID,
			})
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		dto = toDTO(rep, l, rows)
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

// replayDTO rebuilds the original response from the stored rows.
func (u *Usecase) replayDTO(ctx context.Context, r uow.Repos, l *loan.Loan, rep *loan.Repayment) (*RepaymentDTO, error) {
	rows, err := r.Loans.ListAllocations(ctx, rep.ID)
	if err != nil {
		return nil, err
	}
	dto := toDTO(rep, l, rows)
	dto.Replayed = true
	return dto, nil
}

// part is one installment's share of a repayment.
type part struct {
	installment *loan.Installment
	penalty     int64
	interest    int64
	principal   int64
}

type allocation struct {
	penalty   int64
	interest  int64
	principal int64
	parts     []*part
}

// allocate drains amount across the schedule. Bucket order: penalties,
// then interest already due, then principal, then interest on future
// installments. Interest not yet due is money the borrower still owes
// but cannot be forced to service early, so a remainder beyond the due
// amounts prepays principal; the final pass exists so a payer clearing
// the whole balance also covers the remaining interest. Each pass walks
// the installments oldest-due first; items must already be in that
// order (the repository guarantees it).
func allocate(items []loan.Installment, amount int64, asOf time.Time) (*allocation, error) {
	parts := make([]*part, len(items))
	for i := range items {
		parts[i] = &part{installment: &items[i]}
	}
	due := func(p *part) bool { return !p.installment.DueDate.After(asOf) }

	remaining := amount
	for _, p := range parts {
		if remaining == 0 {
			break
		}
		take := min(p.installment.PenaltyOutstanding(), remaining)
		p.penalty = take
		remaining -= take
	}
	for _, p := range parts {
		if remaining == 0 {
			break
		}
		if !due(p) {
			continue
		}
		take := min(p.installment.InterestOutstanding(), remaining)
		p.interest = take
		remaining -= take
	}
	for _, p := range parts {
		if remaining == 0 {
			break
		}
		take := min(p.installment.PrincipalOutstanding(), remaining)
		p.principal = take
		remaining -= take
	}
	for _, p := range parts {
		if remaining == 0 {
			break
		}
		if due(p) {
			continue
		}
		take := min(p.installment.InterestOutstanding(), remaining)
		p.interest = take
		remaining -= take
	}
	if remaining != 0 {
		// The overpayment guard should make this unreachable; a hit
		// means the loan aggregates disagree with the schedule.
		return nil, fmt.Errorf("repayment: %d left unapplied after allocation", remaining)
	}

	out := &allocation{}
	for _, p := range parts {
		if p.penalty == 0 && p.interest == 0 && p.principal == 0 {
			continue
		}
		out.penalty += p.penalty
		out.interest += p.interest
		out.principal += p.principal
		out.parts = append(out.parts, p)
	}
	return out, nil
}

// settleStatus moves an installment's status after a payment. OVERDUE
// sticks until the row fully settles; PARTIALLY_PAID only ever replaces
// PENDING.
func settleStatus(it *loan.Installment) {
	switch {
	case it.Settled():
		it.Status = loan.InstallmentPaid
	case it.Status == loan.InstallmentPending && it.AmountPaid() > 0:
		it.Status = loan.InstallmentPartiallyPaid
	}
}

func toDTO(rep *loan.Repayment, l *loan.Loan, rows []loan.RepaymentAllocation) *RepaymentDTO {
	dto := &RepaymentDTO{
		RepaymentID:   rep.RepaymentID,
		LoanID:        l.LoanID,
		Amount:        rep.Amount,
		PenaltyPaid:   rep.PenaltyPaid,
		InterestPaid:  rep.InterestPaid,
		PrincipalPaid: rep.PrincipalPaid,
		AppliedAt:     rep.AppliedAt,
		LoanStatus:    string(l.Status),
		Outstanding:   l.Outstanding(),
	}
	for _, row := range rows {
		dto.Allocations = append(dto.Allocations, AllocationDTO{
			Sequence:  row.Sequence,
			Penalty:   row.Penalty,
			Interest:  row.Interest,
			Principal: row.Principal,
		})
	}
	return dto
}

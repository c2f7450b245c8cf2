// Package guarantor maintains the guarantor ledger of a pending loan:
// nominating members and recording their responses. Coverage is the sum
// of APPROVED guaranteed amounts; once it reaches the loan's total
// repayable the loan advances to PENDING_APPROVAL in the same
// transaction that recorded the deciding response.
package guarantor

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"chama-engine/internal/domain/chama"
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

// Nominate adds a PENDING guarantor to a loan still gathering coverage.
// The borrower uses this to replace a guarantor who rejected; the loan's
// status is untouched.
func (u *Usecase) Nominate(ctx context.Context, in NominateInput) (*GuarantorDTO, error) {
	if in.Amount <= 0 {
		return nil, fault.New(fault.Validation, "guaranteed amount must be positive")
	}
	if in.MemberID == "" {
		return nil, fault.New(fault.Validation, "member id is required")
	}

	var (
		dto    *GuarantorDTO
		events []notify.Event
	)
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		if l.Status != loan.StatusPendingGuarantor {
			return loan.ErrNotAwaitingGuarantors
		}
		if in.MemberID == l.BorrowerID {
			return loan.ErrSelfGuarantee
		}

		m, err := r.Chamas.GetMember(ctx, l.ChamaID, in.MemberID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return chama.ErrMemberNotFound
			}
			return err
		}
		if !m.IsActive {
			return chama.ErrInactiveMember
		}

		if _, err := r.Loans.GetGuarantor(ctx, l.ID, in.MemberID); err == nil {
			return loan.ErrAlreadyGuarantor
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		row := &loan.Guarantor{
			GuarantorID:      id.NewID32(),
			LoanID:           l.ID,
			MemberID:         in.MemberID,
			GuaranteedAmount: in.Amount,
			Status:           loan.GuarantorPending,
		}
		if err := r.Loans.CreateGuarantor(ctx, row); err != nil {
			return err
		}

		dto = toDTO(row, l.LoanID)
		events = append(events, notify.Event{
			Type:     notify.GuarantorRequested,
			ChamaID:  l.ChamaID,
			LoanID:   l.LoanID,
			MemberID: in.MemberID,
			Payload:  map[string]any{"guaranteed_amount": in.Amount},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.publish(ctx, events)
	return dto, nil
}

// Respond records the nominated member's accept or reject. Only the
// member named on a PENDING row may respond; a second response fails
// with ErrAlreadyResponded. An accept that lifts coverage to the total
// repayable advances the loan atomically, so two concurrent deciding
// accepts cannot both advance it.
func (u *Usecase) Respond(ctx context.Context, in RespondInput) (*RespondResult, error) {
	var (
		res    *RespondResult
		events []notify.Event
	)
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		if l.Status != loan.StatusPendingGuarantor {
			return loan.ErrNotAwaitingGuarantors
		}

		row, err := r.Loans.GetGuarantor(ctx, l.ID, in.MemberID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return loan.ErrGuarantorNotFound
			}
			return err
		}
		if row.Status != loan.GuarantorPending {
			return loan.ErrAlreadyResponded
		}

		now := u.clk.Now().UTC()
		if in.Accept {
			row.Status = loan.GuarantorApproved
		} else {
			row.Status = loan.GuarantorRejected
		}
		row.RespondedAt = &now
		if err := r.Loans.SaveGuarantor(ctx, row); err != nil {
			return err
		}

		event := notify.GuarantorRejected
		if in.Accept {
			event = notify.GuarantorAccepted
		}
		events = append(events, notify.Event{
			Type:     event,
			ChamaID:  l.ChamaID,
			LoanID:   l.LoanID,
			MemberID: in.MemberID,
		})

		coverage, err := approvedCoverage(ctx, r, l.ID)
		if err != nil {
			return err
		}

		if in.Accept && coverage >= l.TotalRepayable {
			if err := l.Transition(loan.StatusPendingApproval, now); err != nil {
				return err
			}
			if err := r.Loans.Save(ctx, l); err != nil {
				return err
			}
			events = append(events, notify.Event{
				Type:    notify.LoanCoverageMet,
				ChamaID: l.ChamaID,
				LoanID:  l.LoanID,
				Payload: map[string]any{"coverage": coverage, "total_repayable": l.TotalRepayable},
			})
		}

		res = &RespondResult{
			Guarantor:      *toDTO(row, l.LoanID),
			LoanStatus:     string(l.Status),
			Coverage:       coverage,
			TotalRepayable: l.TotalRepayable,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.publish(ctx, events)
	return res, nil
}

func (u *Usecase) publish(ctx context.Context, events []notify.Event) {
	for _, e := range events {
		u.notifier.Publish(ctx, e)
	}
}

// approvedCoverage sums APPROVED guaranteed amounts for the loan.
func approvedCoverage(ctx context.Context, r uow.Repos, loanPK uint64) (int64, error) {
	rows, err := r.Loans.ListGuarantors(ctx, loanPK)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, g := range rows {
		if g.Status == loan.GuarantorApproved {
			total += g.GuaranteedAmount
		}
	}
	return total, nil
}

func toDTO(g *loan.Guarantor, loanID string) *GuarantorDTO {
	return &GuarantorDTO{
		GuarantorID:      g.GuarantorID,
		LoanID:           loanID,
		MemberID:         g.MemberID,
		GuaranteedAmount: g.GuaranteedAmount,
		Status:           string(g.Status),
		RespondedAt:      g.RespondedAt,
	}
}

package loan

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	domainChama "chama-engine/internal/domain/chama"
	"chama-engine/internal/domain/fault"
	domainLoan "chama-engine/internal/domain/loan"
	"chama-engine/internal/domain/uow"
	"chama-engine/internal/interest"
	"chama-engine/internal/notify"
	"chama-engine/pkg/clock"
	"chama-engine/pkg/id"
	"chama-engine/pkg/money"
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

// Apply validates a loan application against the chama's lending policy,
// persists the loan in PENDING_GUARANTOR together with its nominated
// guarantors, and asks each nominee to respond.
func (u *Usecase) Apply(ctx context.Context, in ApplyInput) (*LoanDTO, error) {
	if in.Principal <= 0 {
		return nil, fault.New(fault.Validation, "principal must be positive")
	}
	if in.TermMonths <= 0 {
		return nil, fault.New(fault.Validation, "term must be at least one month")
	}
	if in.Purpose == "" {
		return nil, fault.New(fault.Validation, "purpose is required")
	}
	if len(in.Guarantors) == 0 {
		return nil, fault.New(fault.Validation, "at least one guarantor must be nominated")
	}
	seen := make(map[string]bool, len(in.Guarantors))
	for _, g := range in.Guarantors {
		if g.Amount <= 0 {
			return nil, fault.New(fault.Validation, "guaranteed amount must be positive")
		}
		if g.MemberID == in.BorrowerID {
			return nil, domainLoan.ErrSelfGuarantee
		}
		if seen[g.MemberID] {
			return nil, domainLoan.ErrAlreadyGuarantor
		}
		seen[g.MemberID] = true
	}

	var (
		dto    *LoanDTO
		events []notify.Event
	)
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		ch, err := r.Chamas.GetByChamaID(ctx, in.ChamaID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainChama.ErrNotFound
			}
			return err
		}
		cfg := ch.LoanConfig

		borrower, err := activeMember(ctx, r, in.ChamaID, in.BorrowerID)
		if err != nil {
			return err
		}

		if in.TermMonths > cfg.MaxRepaymentMonths {
			return fault.Newf(fault.Policy, "term %d exceeds the maximum of %d months", in.TermMonths, cfg.MaxRepaymentMonths)
		}

		// Max loan is multiplier x verified savings.
		maxLoan := money.FromDecimal(
			money.New(borrower.SavingsBalance, ch.Currency).Decimal().Mul(cfg.Multiplier),
			ch.Currency,
		)
		principal := money.New(in.Principal, ch.Currency)
		if principal.GreaterThan(maxLoan) {
			return domainLoan.ErrExceedsMultiplier
		}

		active, err := r.Loans.CountActiveByBorrower(ctx, in.ChamaID, in.BorrowerID)
		if err != nil {
			return err
		}
		if active >= int64(cfg.MaxConcurrentLoans) {
			return domainLoan.ErrTooManyActiveLoans
		}

		for _, g := range in.Guarantors {
			if _, err := activeMember(ctx, r, in.ChamaID, g.MemberID); err != nil {
				return err
			}
		}

		sched, err := interest.Compute(principal, cfg.InterestRate, in.TermMonths, cfg.InterestType)
		if err != nil {
			return err
		}

		now := u.clk.Now().UTC()
		l := &domainLoan.Loan{
			LoanID:               id.NewID32(),
			ChamaID:              in.ChamaID,
			BorrowerID:           in.BorrowerID,
			Currency:             ch.Currency,
			Principal:            in.Principal,
			InterestType:         cfg.InterestType,
			InterestRate:         cfg.InterestRate,
			TermMonths:           in.TermMonths,
			Purpose:              in.Purpose,
			Status:               domainLoan.StatusPendingGuarantor,
			StatusUpdatedAt:      now,
			TotalRepayable:       sched.TotalRepayable.Amount,
			PrincipalOutstanding: in.Principal,
			InterestOutstanding:  sched.TotalInterest.Amount,
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}

		guarantors := make([]GuarantorDTO, 0, len(in.Guarantors))
		for _, g := range in.Guarantors {
			row := &domainLoan.Guarantor{
				GuarantorID:      id.NewID32(),
				LoanID:           l.ID,
				MemberID:         g.MemberID,
				GuaranteedAmount: g.Amount,
				Status:           domainLoan.GuarantorPending,
			}
			if err := r.Loans.CreateGuarantor(ctx, row); err != nil {
				return err
			}
			guarantors = append(guarantors, toGuarantorDTO(row))
			events = append(events, notify.Event{
				Type:     notify.GuarantorRequested,
				ChamaID:  l.ChamaID,
				LoanID:   l.LoanID,
				MemberID: g.MemberID,
				Payload:  map[string]any{"guaranteed_amount": g.Amount},
			})
		}

		dto = toLoanDTO(l)
		dto.Guarantors = guarantors
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.publish(ctx, events)
	return dto, nil
}

// Approve regenerates the deterministic schedule, persists the
// installments with due dates counted in months from the approval date,
// and activates the loan. Officials only; PENDING_APPROVAL only.
func (u *Usecase) Approve(ctx context.Context, in ApproveInput) (*LoanDTO, error) {
	var (
		dto    *LoanDTO
		events []notify.Event
	)
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if err := mustOfficial(ctx, r, l.ChamaID, in.ApproverID); err != nil {
			return err
		}

		now := u.clk.Now().UTC()
		if err := l.Transition(domainLoan.StatusActive, now); err != nil {
			return err
		}

		sched, err := interest.Compute(
			money.New(l.Principal, l.Currency), l.InterestRate, l.TermMonths, l.InterestType)
		if err != nil {
			return err
		}

		items := make([]domainLoan.Installment, len(sched.Lines))
		for i, line := range sched.Lines {
			items[i] = domainLoan.Installment{
				LoanID:          l.ID,
				Sequence:        line.Sequence,
				DueDate:         dateOnly(now.AddDate(0, line.Sequence, 0)),
				PrincipalAmount: line.Principal.Amount,
				InterestAmount:  line.Interest.Amount,
				Status:          domainLoan.InstallmentPending,
			}
		}
		if err := r.Loans.CreateInstallments(ctx, items); err != nil {
			return err
		}

		lastDue := items[len(items)-1].DueDate
		l.ApprovedBy = &in.ApproverID
		l.ApprovedAt = &now
		l.DueDate = &lastDue
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		dto = toLoanDTO(l)
		dto.Installments = toInstallmentDTOs(items)
		events = append(events, notify.Event{
			Type:    notify.LoanApproved,
			ChamaID: l.ChamaID,
			LoanID:  l.LoanID,
			Payload: map[string]any{"approved_by": in.ApproverID, "total_repayable": l.TotalRepayable},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.publish(ctx, events)
	return dto, nil
}

// Reject closes a PENDING_APPROVAL loan. Officials only.
func (u *Usecase) Reject(ctx context.Context, in RejectInput) (*LoanDTO, error) {
	return u.close(ctx, in.LoanID, domainLoan.StatusRejected, notify.LoanRejected, func(r uow.Repos, l *domainLoan.Loan) error {
		return mustOfficial(ctx, r, l.ChamaID, in.ApproverID)
	})
}

// Cancel withdraws a pending loan. Borrower only; allowed from both
// pending statuses.
func (u *Usecase) Cancel(ctx context.Context, in CancelInput) (*LoanDTO, error) {
	return u.close(ctx, in.LoanID, domainLoan.StatusCancelled, notify.LoanCancelled, func(_ uow.Repos, l *domainLoan.Loan) error {
		if l.BorrowerID != in.BorrowerID {
			return domainLoan.ErrNotBorrower
		}
		return nil
	})
}

// MarkDefaulted moves an ACTIVE loan to DEFAULTED. Officials only.
func (u *Usecase) MarkDefaulted(ctx context.Context, in MarkDefaultedInput) (*LoanDTO, error) {
	return u.close(ctx, in.LoanID, domainLoan.StatusDefaulted, notify.LoanDefaulted, func(r uow.Repos, l *domainLoan.Loan) error {
		return mustOfficial(ctx, r, l.ChamaID, in.OfficialID)
	})
}

// close is the shared guard-transition-save path for terminal moves.
func (u *Usecase) close(ctx context.Context, loanID string, target domainLoan.Status, event notify.EventType, guard func(uow.Repos, *domainLoan.Loan) error) (*LoanDTO, error) {
	var (
		dto     *LoanDTO
		chamaID string
	)
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if err := guard(r, l); err != nil {
			return err
		}
		if err := l.Transition(target, u.clk.Now().UTC()); err != nil {
			return err
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		dto = toLoanDTO(l)
		chamaID = l.ChamaID
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.publish(ctx, []notify.Event{{Type: event, ChamaID: chamaID, LoanID: loanID}})
	return dto, nil
}

// Get returns the loan with its schedule and guarantor ledger.
func (u *Usecase) Get(ctx context.Context, loanID string) (*LoanDTO, error) {
	l, err := u.repos.Loans.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainLoan.ErrNotFound
		}
		return nil, err
	}

	dto := toLoanDTO(l)

	items, err := u.repos.Loans.ListInstallments(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	dto.Installments = toInstallmentDTOs(items)

	gs, err := u.repos.Loans.ListGuarantors(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	for i := range gs {
		dto.Guarantors = append(dto.Guarantors, toGuarantorDTO(&gs[i]))
	}
	return dto, nil
}

func (u *Usecase) publish(ctx context.Context, events []notify.Event) {
	for _, e := range events {
		u.notifier.Publish(ctx, e)
	}
}

// activeMember loads a member and requires it to be active.
func activeMember(ctx context.Context, r uow.Repos, chamaID, memberID string) (*domainChama.Member, error) {
	m, err := r.Chamas.GetMember(ctx, chamaID, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainChama.ErrMemberNotFound
		}
		return nil, err
	}
	if !m.IsActive {
		return nil, domainChama.ErrInactiveMember
	}
	return m, nil
}

// mustOfficial requires the member to hold an official role.
func mustOfficial(ctx context.Context, r uow.Repos, chamaID, memberID string) error {
	m, err := activeMember(ctx, r, chamaID, memberID)
	if err != nil {
		return err
	}
	if !m.Role.IsOfficial() {
		return domainLoan.ErrNotOfficial
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func toLoanDTO(l *domainLoan.Loan) *LoanDTO {
	return &LoanDTO{
		LoanID:               l.LoanID,
		ChamaID:              l.ChamaID,
		BorrowerID:           l.BorrowerID,
		Currency:             l.Currency,
		Principal:            l.Principal,
		InterestType:         string(l.InterestType),
		InterestRate:         l.InterestRate,
		TermMonths:           l.TermMonths,
		Purpose:              l.Purpose,
		Status:               string(l.Status),
		TotalRepayable:       l.TotalRepayable,
		AmountPaid:           l.AmountPaid,
		PrincipalOutstanding: l.PrincipalOutstanding,
		InterestOutstanding:  l.InterestOutstanding,
		PenaltyOutstanding:   l.PenaltyOutstanding,
		ApprovedBy:           l.ApprovedBy,
		ApprovedAt:           l.ApprovedAt,
		DueDate:              l.DueDate,
		CreatedAt:            l.CreatedAt,
	}
}

func toInstallmentDTOs(items []domainLoan.Installment) []InstallmentDTO {
	out := make([]InstallmentDTO, len(items))
	for i := range items {
		it := &items[i]
		out[i] = InstallmentDTO{
			Sequence:        it.Sequence,
			DueDate:         it.DueDate,
			PrincipalAmount: it.PrincipalAmount,
			InterestAmount:  it.InterestAmount,
			PenaltyAmount:   it.PenaltyAmount,
			AmountPaid:      it.AmountPaid(),
			Status:          string(it.Status),
		}
	}
	return out
}

func toGuarantorDTO(g *domainLoan.Guarantor) GuarantorDTO {
	return GuarantorDTO{
		GuarantorID:      g.GuarantorID,
		MemberID:         g.MemberID,
		GuaranteedAmount: g.GuaranteedAmount,
		Status:           string(g.Status),
		RespondedAt:      g.RespondedAt,
	}
}

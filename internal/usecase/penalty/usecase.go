// Package penalty runs the scheduled late-fee sweep. Each run is labeled
// with a YYYY-MM period; a charge is keyed (loan, installment, period),
// so running the same period twice, or retrying a half-failed run, never
// charges an installment double.
package penalty

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"chama-engine/internal/domain/chama"
	"chama-engine/internal/domain/fault"
	"chama-engine/internal/domain/loan"
	"chama-engine/internal/domain/uow"
	"chama-engine/internal/notify"
	"chama-engine/internal/pkg/logger"
	"chama-engine/pkg/clock"
	"chama-engine/pkg/money"
)

type Usecase struct {
	repos    uow.Repos
	uow      uow.UnitOfWork
	clk      clock.Clock
	notifier notify.Notifier

	workers int
	buffer  int
}

func NewUsecase(repos uow.Repos, tx uow.UnitOfWork, clk clock.Clock, n notify.Notifier) *Usecase {
	return &Usecase{repos: repos, uow: tx, clk: clk, notifier: n, workers: 1, buffer: 16}
}

// SetWorkers bounds the fan-out of a sweep. Loans lock independently,
// so charging them in parallel is safe; workers only caps how many row
// locks one run holds at a time.
func (u *Usecase) SetWorkers(count, buffer int) {
	if count > 0 {
		u.workers = count
	}
	if buffer > 0 {
		u.buffer = buffer
	}
}

// CurrentPeriod formats the clock's month as an accrual period label.
func CurrentPeriod(clk clock.Clock) string {
	return clk.Now().UTC().Format("2006-01")
}

// AccruePenalties sweeps active loans with past-due installments: marks
// them OVERDUE and charges penaltyRate% of each one's unpaid principal,
// once per period. Loans are processed in separate transactions; a
// failing loan is logged and skipped so the rest of the run proceeds.
func (u *Usecase) AccruePenalties(ctx context.Context, period string) (*RunSummary, error) {
	if _, err := time.Parse("2006-01", period); err != nil {
		return nil, fault.Newf(fault.Validation, "period %q is not a YYYY-MM label", period)
	}

	now := u.clk.Now().UTC()
	ids, err := u.repos.Loans.ListAccruableLoanIDs(ctx, now)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{Period: period, LoansScanned: len(ids)}

	type result struct {
		loanID  string
		charged int64
		err     error
	}
	idCh := make(chan string, u.buffer)
	resCh := make(chan result, u.buffer)

	var wg sync.WaitGroup
	for i := 0; i < u.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for loanID := range idCh {
				charged, err := u.accrueLoan(ctx, loanID, period, now)
				resCh <- result{loanID: loanID, charged: charged, err: err}
			}
		}()
	}
	go func() {
		for _, loanID := range ids {
			idCh <- loanID
		}
		close(idCh)
		wg.Wait()
		close(resCh)
	}()

	for res := range resCh {
		if res.err != nil {
			summary.Failed++
			logger.CtxError(ctx, "penalty accrual failed, will retry next run", res.err,
				slog.String("loan_id", res.loanID),
				slog.String("period", period))
			continue
		}
		if res.charged > 0 {
			summary.LoansCharged++
			summary.TotalCharged += res.charged
		}
	}

	logger.CtxInfo(ctx, "penalty accrual run finished",
		slog.String("period", period),
		slog.Int("loans_scanned", summary.LoansScanned),
		slog.Int("loans_charged", summary.LoansCharged),
		slog.Int64("total_charged", summary.TotalCharged),
		slog.Int("failed", summary.Failed))
	return summary, nil
}

// accrueLoan charges one loan under its row lock and returns the total
// charged. A loan that left ACTIVE between the scan and the lock is
// skipped without error.
func (u *Usecase) accrueLoan(ctx context.Context, loanID, period string, now time.Time) (int64, error) {
	var (
		charged int64
		events  []notify.Event
	)
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if l.Status != loan.StatusActive {
			return nil
		}

		ch, err := r.Chamas.GetByChamaID(ctx, l.ChamaID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return chama.ErrNotFound
			}
			return err
		}
		rate := ch.LoanConfig.PenaltyRate

		items, err := r.Loans.ListInstallments(ctx, l.ID)
		if err != nil {
			return err
		}

		today := dateOnly(now)
		for i := range items {
			it := &items[i]
			if it.Settled() || !it.DueDate.Before(today) {
				continue
			}

			dirty := false
			if it.Status != loan.InstallmentOverdue {
				it.Status = loan.InstallmentOverdue
				dirty = true
			}

			charge := money.New(it.PrincipalOutstanding(), l.Currency).Percent(rate).Amount
			if charge > 0 {
				fresh, err := u.recordCharge(ctx, r, l.ID, it.ID, period, charge)
				if err != nil {
					return err
				}
				if fresh {
					it.PenaltyAmount += charge
					l.PenaltyOutstanding += charge
					charged += charge
					dirty = true
				}
			}

			if dirty {
				if err := r.Loans.SaveInstallment(ctx, it); err != nil {
					return err
				}
			}
		}

		if charged == 0 {
			return nil
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		events = append(events, notify.Event{
			Type:    notify.PenaltyAccrued,
			ChamaID: l.ChamaID,
			LoanID:  l.LoanID,
			Payload: map[string]any{"period": period, "amount": charged},
		})
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, e := range events {
		u.notifier.Publish(ctx, e)
	}
	return charged, nil
}

// recordCharge inserts the accrual row for (loan, installment, period).
// Returns false when the period was already charged, either by an
// earlier run (row found) or a concurrent one (duplicate key).
func (u *Usecase) recordCharge(ctx context.Context, r uow.Repos, loanPK, installmentPK uint64, period string, amount int64) (bool, error) {
	if _, err := r.Loans.GetPenaltyAccrual(ctx, loanPK, installmentPK, period); err == nil {
		return false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	err := r.Loans.CreatePenaltyAccrual(ctx, &loan.PenaltyAccrual{
		LoanID:        loanPK,
		InstallmentID: installmentPK,
		Period:        period,
		Amount:        amount,
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

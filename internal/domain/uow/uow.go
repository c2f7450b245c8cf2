package uow

import (
	"context"

	"chama-engine/internal/domain/chama"
	"chama-engine/internal/domain/loan"
	"chama-engine/internal/domain/rotation"
)

// Repos bundles the per-aggregate repositories bound to one transaction
// (or to the base connection outside one).
type Repos struct {
	Chamas    chama.Repository
	Loans     loan.Repository
	Rotations rotation.Repository
}

// UnitOfWork runs a closure atomically. The aggregate-locking variants
// take a FOR UPDATE lock on the root row first and hand the loaded row
// to the closure, so every state-changing operation is one
// read-modify-write unit and no torn state is observable.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
	WithinCycleTx(ctx context.Context, cycleID string, fn func(r Repos, c *rotation.Cycle) error) error
}

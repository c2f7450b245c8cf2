// Package notify emits engine events to whatever notification layer is
// attached. Publishing is fire-and-forget: a failed emit is logged and
// dropped, it never fails the operation that produced it. Callers emit
// only after their transaction has committed.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"chama-engine/internal/pkg/logger"
	"chama-engine/pkg/clock"
)

type EventType string

const (
	GuarantorRequested EventType = "guarantor.requested"
	GuarantorAccepted  EventType = "guarantor.accepted"
	GuarantorRejected  EventType = "guarantor.rejected"

	LoanCoverageMet   EventType = "loan.coverage_met"
	LoanApproved      EventType = "loan.approved"
	LoanRejected      EventType = "loan.rejected"
	LoanCancelled     EventType = "loan.cancelled"
	LoanCompleted     EventType = "loan.completed"
	LoanDefaulted     EventType = "loan.defaulted"
	RepaymentReceived EventType = "loan.repayment_received"
	PenaltyAccrued    EventType = "loan.penalty_accrued"

	PayoutProcessed EventType = "rotation.payout_processed"
	SwapRequested   EventType = "rotation.swap_requested"
	SwapApproved    EventType = "rotation.swap_approved"
	SwapRejected    EventType = "rotation.swap_rejected"
)

type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	ChamaID    string         `json:"chama_id,omitempty"`
	LoanID     string         `json:"loan_id,omitempty"`
	CycleID    string         `json:"cycle_id,omitempty"`
	MemberID   string         `json:"member_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type Notifier interface {
	Publish(ctx context.Context, e Event)
}

// LogNotifier writes events to the structured log. It stamps an id and
// occurrence time on events that arrive without one.
type LogNotifier struct {
	clk clock.Clock
}

func NewLogNotifier(clk clock.Clock) *LogNotifier {
	return &LogNotifier{clk: clk}
}

func (n *LogNotifier) Publish(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = n.clk.Now()
	}

	body, err := json.Marshal(e)
	if err != nil {
		logger.CtxWarn(ctx, "event encode failed",
			slog.String("event_type", string(e.Type)),
			slog.String("event_id", e.ID))
		return
	}
	logger.CtxInfo(ctx, "event published",
		slog.String("event_type", string(e.Type)),
		slog.String("event", string(body)))
}

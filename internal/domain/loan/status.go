package loan

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPendingGuarantor Status = "PENDING_GUARANTOR"
	StatusPendingApproval  Status = "PENDING_APPROVAL"
	StatusActive           Status = "ACTIVE"
	StatusCompleted        Status = "COMPLETED"
	StatusDefaulted        Status = "DEFAULTED"
	StatusRejected         Status = "REJECTED"
	StatusCancelled        Status = "CANCELLED"
)

// transitions is the single source of truth for the loan lifecycle.
// Everything not listed is illegal, including any move out of a
// terminal status.
var transitions = map[Status]map[Status]bool{
	StatusPendingGuarantor: {
		StatusPendingApproval: true,
		StatusCancelled:       true,
	},
	StatusPendingApproval: {
		StatusActive:    true,
		StatusRejected:  true,
		StatusCancelled: true,
	},
	StatusActive: {
		StatusCompleted: true,
		StatusDefaulted: true,
	},
}

func (s Status) CanTransitionTo(next Status) bool { return transitions[s][next] }

func (s Status) Terminal() bool { return len(transitions[s]) == 0 }

// Transition moves the loan to next or fails with ErrInvalidTransition,
// leaving the loan untouched.
func (l *Loan) Transition(next Status, at time.Time) error {
	if !l.Status.CanTransitionTo(next) {
		return fmt.Errorf("loan %s: %s -> %s: %w", l.LoanID, l.Status, next, ErrInvalidTransition)
	}
	l.Status = next
	l.StatusUpdatedAt = at
	return nil
}

type InterestType string

const (
	InterestFlat     InterestType = "FLAT"
	InterestReducing InterestType = "REDUCING"
)

func ParseInterestType(s string) (InterestType, error) {
	switch InterestType(s) {
	case InterestFlat:
		return InterestFlat, nil
	case InterestReducing:
		return InterestReducing, nil
	default:
		return "", fmt.Errorf("unknown interest type %q: %w", s, ErrBadInterestType)
	}
}

type InstallmentStatus string

const (
	InstallmentPending       InstallmentStatus = "PENDING"
	InstallmentPartiallyPaid InstallmentStatus = "PARTIALLY_PAID"
	InstallmentPaid          InstallmentStatus = "PAID"
	InstallmentOverdue       InstallmentStatus = "OVERDUE"
)

type GuarantorStatus string

const (
	GuarantorPending  GuarantorStatus = "PENDING"
	GuarantorApproved GuarantorStatus = "APPROVED"
	GuarantorRejected GuarantorStatus = "REJECTED"
)

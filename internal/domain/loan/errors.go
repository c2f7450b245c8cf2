package loan

import "chama-engine/internal/domain/fault"

var (
	ErrNotFound          = fault.New(fault.NotFound, "loan not found")
	ErrGuarantorNotFound = fault.New(fault.NotFound, "guarantor not found")

	ErrInvalidTransition     = fault.New(fault.Conflict, "invalid loan status transition")
	ErrAlreadyGuarantor      = fault.New(fault.Conflict, "member is already a guarantor on this loan")
	ErrAlreadyResponded      = fault.New(fault.Conflict, "guarantor has already responded")
	ErrNotAwaitingGuarantors = fault.New(fault.Conflict, "loan is not awaiting guarantor responses")
	ErrLoanNotActive         = fault.New(fault.Conflict, "loan is not active")

	ErrExceedsMultiplier  = fault.New(fault.Policy, "principal exceeds the savings multiplier limit")
	ErrTooManyActiveLoans = fault.New(fault.Policy, "borrower has reached the concurrent active loan limit")
	ErrOverpayment        = fault.New(fault.Policy, "amount exceeds the outstanding balance")
	ErrNotBorrower        = fault.New(fault.Policy, "only the borrower may perform this action")
	ErrNotOfficial        = fault.New(fault.Policy, "only a chama official may perform this action")

	ErrSelfGuarantee   = fault.New(fault.Validation, "borrower cannot guarantee their own loan")
	ErrBadInterestType = fault.New(fault.Validation, "interest type must be FLAT or REDUCING")
)

package service

import (
	"errors"
	"fmt"
)

// --- Error Definitions (lifecycle taxonomy) ---
var (
	ErrMembershipNotFound = errors.New("membership not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrPlanNotFound       = errors.New("unknown membership plan")

	// ErrNotApprovable means the membership status precondition failed:
	// only pending and grace_period memberships can be approved.
	ErrNotApprovable = errors.New("membership is not in an approvable state")

	// ErrApprovalConflict means the conditional status write lost a race
	// against a concurrent approval.
	ErrApprovalConflict = errors.New("membership was modified concurrently, approval aborted")

	// ErrMissingReference means data required for an operation is absent,
	// generally corrupt or legacy rows.
	ErrMissingReference = errors.New("required reference is missing")
)

// Eligibility constraints for trainer renewal checks.
type EligibilityConstraint string

const (
	ConstraintNotActive             EligibilityConstraint = "NotActive"
	ConstraintMissingEndDate        EligibilityConstraint = "MissingEndDate"
	ConstraintInsufficientRemaining EligibilityConstraint = "InsufficientRemainingDuration"
)

// NotEligibleError reports a failed renewal precondition with the specific
// failing constraint and a human-readable reason. The renewal UI surfaces
// the reason verbatim, so it must be specific rather than generic.
type NotEligibleError struct {
	Constraint    EligibilityConstraint
	Reason        string
	RemainingDays int
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("not eligible (%s): %s", e.Constraint, e.Reason)
}

package service

import (
	"fmt"
	"time"

	"gymdesk/membership-app/internal/dates"
	"gymdesk/membership-app/internal/domain"
)

// Eligibility is the successful result of a trainer renewal check.
// MaxTrainerRenewalDays caps any renewal window at the remaining membership
// duration: a renewal can never be scheduled to outlive the membership.
type Eligibility struct {
	RemainingDays         int `json:"remainingDays"`
	MaxTrainerRenewalDays int `json:"maxTrainerRenewalDays"`
}

// CheckTrainerRenewalEligibility decides whether a trainer-only renewal is
// permitted for a membership in the given state. Returns *NotEligibleError
// with the failing constraint when not.
func CheckTrainerRenewalEligibility(status domain.MembershipStatus, endDate *time.Time, now time.Time) (Eligibility, error) {
	if status != domain.StatusActive {
		return Eligibility{}, &NotEligibleError{
			Constraint: ConstraintNotActive,
			Reason:     fmt.Sprintf("membership status is %q, must be active", status),
		}
	}
	if endDate == nil {
		return Eligibility{}, &NotEligibleError{
			Constraint: ConstraintMissingEndDate,
			Reason:     "membership has no end date recorded",
		}
	}

	remaining := dates.DaysUntil(now, *endDate)
	if remaining < MinTrainerRenewalDays {
		return Eligibility{}, &NotEligibleError{
			Constraint:    ConstraintInsufficientRemaining,
			Reason:        fmt.Sprintf("remaining plan duration is %d days, minimum required is %d", remaining, MinTrainerRenewalDays),
			RemainingDays: remaining,
		}
	}

	return Eligibility{
		RemainingDays:         remaining,
		MaxTrainerRenewalDays: remaining,
	}, nil
}

// MaxTrainerRenewalPeriod returns the cap on a trainer renewal window in
// days, zero when the membership end has already passed.
func MaxTrainerRenewalPeriod(membershipEnd, now time.Time) int {
	remaining := dates.DaysUntil(now, membershipEnd)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TrainerRenewalEndDate materializes a concrete renewal window end: the
// naive months projection from start, clamped to the membership end date
// when it overshoots.
func TrainerRenewalEndDate(start, membershipEnd time.Time, months int) time.Time {
	end := dates.AddMonths(start, months)
	if end.After(membershipEnd) {
		return membershipEnd
	}
	return end
}

package service

import (
	"time"

	"gymdesk/membership-app/internal/dates"
	"gymdesk/membership-app/internal/domain"
)

// Grace window constants. These are domain rules, not deployment
// configuration.
const (
	// MembershipGraceDays is the window after expiry during which a
	// renewal reactivates the same membership row.
	MembershipGraceDays = 15
	// TrainerGraceDays is the analogous window for trainer access.
	TrainerGraceDays = 5
	// MinTrainerRenewalDays is the minimum remaining plan duration that
	// permits a trainer renewal.
	MinTrainerRenewalDays = 30
)

// GraceMilestones are the exact remaining-day counts at which milestone
// notifications fire. A skipped day (process downtime) silently loses that
// milestone; it is not retried.
var GraceMilestones = []int{15, 7, 2, 1}

// GracePeriodEnd computes the membership grace window end for an end date.
func GracePeriodEnd(endDate time.Time) time.Time {
	return endDate.AddDate(0, 0, MembershipGraceDays)
}

// TrainerGracePeriodEnd computes the trainer grace window end.
func TrainerGracePeriodEnd(trainerPeriodEnd time.Time) time.Time {
	return trainerPeriodEnd.AddDate(0, 0, TrainerGraceDays)
}

// IsInGracePeriod reports whether now falls inside [endDate, graceEnd].
// Returns false if either bound is missing.
func IsInGracePeriod(endDate, graceEnd *time.Time, now time.Time) bool {
	if endDate == nil || graceEnd == nil {
		return false
	}
	return !now.Before(*endDate) && !now.After(*graceEnd)
}

// ShouldTransitionToGracePeriod reports whether an active membership has
// passed its end date and has no grace end recorded yet. The missing grace
// end prevents the sweep from re-triggering the transition.
func ShouldTransitionToGracePeriod(status domain.MembershipStatus, endDate, graceEnd *time.Time, now time.Time) bool {
	if status != domain.StatusActive {
		return false
	}
	if endDate == nil || graceEnd != nil {
		return false
	}
	return !now.Before(*endDate)
}

// DaysRemaining returns ceil((graceEnd - now) / 1 day). Negative once grace
// has lapsed; callers must treat negative as expired, not clamp silently.
func DaysRemaining(graceEnd, now time.Time) int {
	return dates.DaysUntil(now, graceEnd)
}

// ShouldReactivateMembership reports whether a renewal payment approved now
// reactivates the same membership row rather than creating a new one.
func ShouldReactivateMembership(status domain.MembershipStatus, graceEnd *time.Time, now time.Time) bool {
	if status != domain.StatusGracePeriod || graceEnd == nil {
		return false
	}
	return DaysRemaining(*graceEnd, now) > 0
}

// IsGraceMilestone reports whether a remaining-day count is one of the
// notification milestones.
func IsGraceMilestone(daysLeft int) bool {
	for _, m := range GraceMilestones {
		if daysLeft == m {
			return true
		}
	}
	return false
}

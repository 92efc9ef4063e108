package service

import (
	"time"

	"gymdesk/membership-app/internal/dates"
	"gymdesk/membership-app/internal/domain"
)

// Trainer addon renewals always extend by one month; the plan duration does
// not apply to them.
const trainerAddonMonths = 1

// TrainerPeriodInput carries everything the coordinator needs to compute a
// trainer access window.
type TrainerPeriodInput struct {
	PlanName        string
	PlanMode        domain.PlanMode
	HasTrainerAddon bool

	MembershipStart time.Time
	MembershipEnd   time.Time

	// CurrentTrainerEnd is the end of a prior trainer window, if one
	// exists. Addon extensions start from the later of now and this.
	CurrentTrainerEnd *time.Time

	Now time.Time
}

// TrainerPeriod is a computed trainer access window.
type TrainerPeriod struct {
	Start time.Time
	End   time.Time
}

// ComputeTrainerPeriod applies the plan-tier rules and returns the trainer
// window, or ok=false when the plan grants no trainer access. The computed
// end never exceeds the membership end date.
func ComputeTrainerPeriod(in TrainerPeriodInput) (TrainerPeriod, bool) {
	var period TrainerPeriod

	switch {
	case domain.IsRegularMonthly(in.PlanName):
		// Regular Monthly tiers carry no included allowance; trainer
		// access exists only when an addon was purchased, and it spans
		// the full renewed membership. On renewal the window resets
		// from the new membership dates, never extending a prior
		// (possibly long-expired) trainer end.
		if !in.HasTrainerAddon {
			return TrainerPeriod{}, false
		}
		period = TrainerPeriod{Start: in.MembershipStart, End: in.MembershipEnd}

	case in.HasTrainerAddon:
		// Addon on a non-regular tier: one month starting from the
		// later of now and the current trainer period end.
		start := in.Now
		if in.CurrentTrainerEnd != nil && in.CurrentTrainerEnd.After(start) {
			start = *in.CurrentTrainerEnd
		}
		period = TrainerPeriod{Start: start, End: dates.AddMonths(start, trainerAddonMonths)}

	default:
		// Included free allowance from membership start (Premium 7d,
		// Elite 30d).
		freeDays := domain.FreeTrainerDaysFor(in.PlanName)
		if freeDays <= 0 {
			return TrainerPeriod{}, false
		}
		period = TrainerPeriod{
			Start: in.MembershipStart,
			End:   in.MembershipStart.AddDate(0, 0, freeDays),
		}
	}

	// Trainer access is bounded by the membership period.
	if period.End.After(in.MembershipEnd) {
		period.End = in.MembershipEnd
	}
	return period, true
}

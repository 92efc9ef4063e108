package domain

import (
	"strings"
	"time"
)

// PlanMode type to distinguish delivery modes
type PlanMode string

const (
	ModeOnline PlanMode = "online"
	ModeInGym  PlanMode = "in_gym"
)

// Plan describes a purchasable membership tier. The catalog is fixed in
// code; plan management is out of scope.
type Plan struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	DurationMonths  int      `json:"durationMonths"`
	Price           float64  `json:"price"`
	Mode            PlanMode `json:"mode"`
	FreeTrainerDays int      `json:"freeTrainerDays"`
	Features        []string `json:"features"`
}

// Free trainer allowances for the non-regular tiers.
const (
	PremiumFreeTrainerDays = 7
	EliteFreeTrainerDays   = 30
)

// IsRegularMonthly reports whether a plan name belongs to the Regular
// Monthly tier, whose renewal semantics always reset dates from the
// approval instant rather than extending a prior end date.
func IsRegularMonthly(planName string) bool {
	return strings.Contains(strings.ToLower(planName), "regular monthly")
}

// FreeTrainerDaysFor returns the included trainer allowance for a plan name.
// Regular Monthly tiers have no fixed allowance; their trainer access, when
// purchased, spans the whole membership instead.
func FreeTrainerDaysFor(planName string) int {
	name := strings.ToLower(planName)
	switch {
	case strings.Contains(name, "elite"):
		return EliteFreeTrainerDays
	case strings.Contains(name, "premium"):
		return PremiumFreeTrainerDays
	}
	return 0
}

// DefaultPlans returns the built-in plan catalog.
func DefaultPlans() []Plan {
	return []Plan{
		{
			Name:           "Regular Monthly",
			Description:    "Month-to-month access to gym equipment and basic facilities",
			DurationMonths: 1,
			Price:          1499,
			Mode:           ModeInGym,
			Features: []string{
				"Access to gym equipment",
				"Locker room access",
				"Mobile app access",
			},
		},
		{
			Name:            "Premium",
			Description:     "All Regular features plus group classes and a 7-day trainer introduction",
			DurationMonths:  3,
			Price:           3999,
			Mode:            ModeInGym,
			FreeTrainerDays: PremiumFreeTrainerDays,
			Features: []string{
				"All Regular Monthly features",
				"Unlimited group classes",
				"7 days of personal trainer access",
				"Nutrition consultation",
			},
		},
		{
			Name:            "Elite",
			Description:     "Full access with a 30-day included personal trainer window",
			DurationMonths:  6,
			Price:           6999,
			Mode:            ModeInGym,
			FreeTrainerDays: EliteFreeTrainerDays,
			Features: []string{
				"All Premium features",
				"30 days of personal trainer access",
				"Extended gym hours",
				"Guest pass (2 per month)",
			},
		},
		{
			Name:           "Regular Monthly Online",
			Description:    "Month-to-month remote coaching programs",
			DurationMonths: 1,
			Price:          999,
			Mode:           ModeOnline,
			Features: []string{
				"Remote program access",
				"Mobile app access",
			},
		},
	}
}

// FindPlan looks up a catalog plan by name (case-insensitive).
func FindPlan(name string) (Plan, bool) {
	for _, p := range DefaultPlans() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Plan{}, false
}

// TrainerResponsibility names the party responsible for a member's program
// at a point in time: the assigned trainer while a trainer period is live,
// the admin staff otherwise.
func TrainerResponsibility(trainerPeriodEnd *time.Time, now time.Time) string {
	if trainerPeriodEnd != nil && !now.After(*trainerPeriodEnd) {
		return "trainer"
	}
	return "admin"
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsRegularMonthly(t *testing.T) {
	assert.True(t, IsRegularMonthly("Regular Monthly"))
	assert.True(t, IsRegularMonthly("Regular Monthly Online"))
	assert.True(t, IsRegularMonthly("regular monthly"))
	assert.False(t, IsRegularMonthly("Premium"))
	assert.False(t, IsRegularMonthly("Elite"))
	assert.False(t, IsRegularMonthly("Regular"))
}

func TestFreeTrainerDaysFor(t *testing.T) {
	assert.Equal(t, 30, FreeTrainerDaysFor("Elite"))
	assert.Equal(t, 7, FreeTrainerDaysFor("Premium"))
	assert.Equal(t, 0, FreeTrainerDaysFor("Regular Monthly"))
	assert.Equal(t, 0, FreeTrainerDaysFor("Regular Monthly Online"))
}

func TestFindPlan(t *testing.T) {
	plan, ok := FindPlan("elite")
	require.True(t, ok)
	assert.Equal(t, "Elite", plan.Name)
	assert.Equal(t, 6, plan.DurationMonths)

	_, ok = FindPlan("Platinum")
	assert.False(t, ok)
}

func TestKnownPurpose(t *testing.T) {
	assert.True(t, KnownPurpose(PurposeInitialPurchase))
	assert.True(t, KnownPurpose(PurposeMembershipRenewal))
	assert.True(t, KnownPurpose(PurposeTrainerRenewal))
	assert.False(t, KnownPurpose(PaymentPurpose("legacy_import")))
	assert.False(t, KnownPurpose(PaymentPurpose("")))
}

func TestEffectiveDatesPreferLegacyMirrors(t *testing.T) {
	primary := date(2024, time.January, 1)
	legacy := date(2024, time.February, 1)

	m := &Membership{StartDate: &primary, MembershipStartDate: &legacy}
	assert.Equal(t, &legacy, m.EffectiveStartDate())

	m = &Membership{StartDate: &primary}
	assert.Equal(t, &primary, m.EffectiveStartDate())

	m = &Membership{}
	assert.Nil(t, m.EffectiveEndDate())
}

func TestIsApprovable(t *testing.T) {
	for status, want := range map[MembershipStatus]bool{
		StatusPending:         true,
		StatusGracePeriod:     true,
		StatusAwaitingPayment: false,
		StatusActive:          false,
		StatusExpired:         false,
		StatusRejected:        false,
		StatusCancelled:       false,
	} {
		m := &Membership{Status: status}
		assert.Equal(t, want, m.IsApprovable(), "status %s", status)
	}
}

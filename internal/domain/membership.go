package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipStatus type for the membership lifecycle
type MembershipStatus string

const (
	StatusAwaitingPayment MembershipStatus = "awaiting_payment" // Plan submitted, no payment proof yet
	StatusPending         MembershipStatus = "pending"          // Payment proof submitted, awaiting admin review
	StatusActive          MembershipStatus = "active"
	StatusGracePeriod     MembershipStatus = "grace_period" // Past end date, renewal still reactivates this row
	StatusExpired         MembershipStatus = "expired"
	StatusRejected        MembershipStatus = "rejected"
	StatusCancelled       MembershipStatus = "cancelled"
)

// Membership is the root aggregate: payments, addons and trainer assignments
// are owned by it and cascade-deleted with it.
type Membership struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"userId" json:"userId"`

	// Plan snapshot taken at purchase time.
	PlanName           string   `bson:"planName" json:"planName"`
	PlanDurationMonths int      `bson:"planDurationMonths" json:"planDurationMonths"`
	PlanPrice          float64  `bson:"planPrice" json:"planPrice"`
	PlanMode           PlanMode `bson:"planMode" json:"planMode"`

	Status MembershipStatus `bson:"status" json:"status"`

	StartDate *time.Time `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate   *time.Time `bson:"endDate,omitempty" json:"endDate,omitempty"`

	// Legacy mirrors of StartDate/EndDate. Older rows only carry these;
	// when both sets exist the membership* fields are authoritative.
	MembershipStartDate *time.Time `bson:"membershipStartDate,omitempty" json:"membershipStartDate,omitempty"`
	MembershipEndDate   *time.Time `bson:"membershipEndDate,omitempty" json:"membershipEndDate,omitempty"`

	GracePeriodEnd *time.Time `bson:"gracePeriodEnd,omitempty" json:"gracePeriodEnd,omitempty"`

	// --- Trainer access ---
	TrainerID             *primitive.ObjectID `bson:"trainerId,omitempty" json:"trainerId,omitempty"`
	TrainerAssigned       bool                `bson:"trainerAssigned" json:"trainerAssigned"`
	TrainerPeriodEnd      *time.Time          `bson:"trainerPeriodEnd,omitempty" json:"trainerPeriodEnd,omitempty"`
	TrainerGracePeriodEnd *time.Time          `bson:"trainerGracePeriodEnd,omitempty" json:"trainerGracePeriodEnd,omitempty"`

	// Explicit renewal provenance. Nil on legacy rows, where renewal is
	// inferred from the verified payment count instead.
	RenewalOfMembershipID *primitive.ObjectID `bson:"renewalOfMembershipId,omitempty" json:"renewalOfMembershipId,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// EffectiveStartDate resolves the legacy field mirroring: the membership*
// fields win when present.
func (m *Membership) EffectiveStartDate() *time.Time {
	if m.MembershipStartDate != nil {
		return m.MembershipStartDate
	}
	return m.StartDate
}

// EffectiveEndDate resolves the legacy field mirroring for the end date.
func (m *Membership) EffectiveEndDate() *time.Time {
	if m.MembershipEndDate != nil {
		return m.MembershipEndDate
	}
	return m.EndDate
}

// IsApprovable reports whether an admin approval may act on this membership.
func (m *Membership) IsApprovable() bool {
	return m.Status == StatusPending || m.Status == StatusGracePeriod
}

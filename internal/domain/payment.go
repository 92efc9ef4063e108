package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus type for payment verification lifecycle
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
	PaymentRejected PaymentStatus = "rejected"
)

// PaymentPurpose is the classified intent of a payment. It drives invoice
// type and the reset-vs-extend date logic on approval.
type PaymentPurpose string

const (
	PurposeInitialPurchase   PaymentPurpose = "initial_purchase"
	PurposeMembershipRenewal PaymentPurpose = "membership_renewal"
	PurposeTrainerRenewal    PaymentPurpose = "trainer_renewal"
)

// KnownPurpose reports whether s maps onto the purpose enum. Legacy rows may
// carry arbitrary strings written before explicit tagging existed.
func KnownPurpose(s PaymentPurpose) bool {
	switch s {
	case PurposeInitialPurchase, PurposeMembershipRenewal, PurposeTrainerRenewal:
		return true
	}
	return false
}

// Payment records a user-submitted proof of payment against a membership.
// Rows are never deleted except via the membership cascade.
type Payment struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MembershipID primitive.ObjectID `bson:"membershipId" json:"membershipId"`
	Amount       float64            `bson:"amount" json:"amount"`
	Status       PaymentStatus      `bson:"status" json:"status"`

	// Purpose is nil for rows created before explicit tagging; absence
	// triggers heuristic classification.
	Purpose *PaymentPurpose `bson:"paymentPurpose,omitempty" json:"paymentPurpose,omitempty"`

	ProofObjectKey string `bson:"proofObjectKey,omitempty" json:"proofObjectKey,omitempty"`

	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
	VerifiedAt *time.Time          `bson:"verifiedAt,omitempty" json:"verifiedAt,omitempty"`
	VerifiedBy *primitive.ObjectID `bson:"verifiedBy,omitempty" json:"verifiedBy,omitempty"`
}

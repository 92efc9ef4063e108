package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddonType type for purchasable add-on entitlements
type AddonType string

const (
	AddonPersonalTrainer AddonType = "personal_trainer"
	AddonInGym           AddonType = "in_gym"
)

// AddonStatus type for addon lifecycle
type AddonStatus string

const (
	AddonPending AddonStatus = "pending"
	AddonActive  AddonStatus = "active"
)

// Addon is an entitlement layered on a base plan. Created at form/payment
// submission; flips pending -> active on approval.
type Addon struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MembershipID primitive.ObjectID `bson:"membershipId" json:"membershipId"`
	Type         AddonType          `bson:"addonType" json:"addonType"`
	Price        float64            `bson:"price" json:"price"`
	Status       AddonStatus        `bson:"status" json:"status"`

	// TrainerID may be backfilled at assignment time for trainer addons.
	TrainerID *primitive.ObjectID `bson:"trainerId,omitempty" json:"trainerId,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

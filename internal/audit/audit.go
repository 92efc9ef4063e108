// Package audit provides a structured audit-event sink with a defined
// schema. Lifecycle operations record what happened and with what
// provenance; failures to record are logged by callers, never escalated.
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Well-known audit actions.
const (
	ActionMembershipApproved = "membership.approved"
	ActionMembershipRejected = "membership.rejected"
	ActionMembershipExpired  = "membership.expired"
	ActionMembershipDeleted  = "membership.deleted"
	ActionGraceEntered       = "membership.grace_entered"
	ActionPaymentVerified    = "payment.verified"
	ActionPaymentRejected    = "payment.rejected"
	ActionPaymentClassified  = "payment.classified"
	ActionTrainerAssigned    = "trainer.assigned"
	ActionTrainerLapsed      = "trainer.lapsed"
)

// Event is one audit record. Provenance distinguishes confident facts from
// degraded inferences (heuristic classification, payment-count renewal
// detection) so the latter stay auditable.
type Event struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ActorID    string             `bson:"actorId" json:"actorId"` // admin id or "system"
	Action     string             `bson:"action" json:"action"`
	EntityType string             `bson:"entityType" json:"entityType"`
	EntityID   string             `bson:"entityId" json:"entityId"`
	Provenance string             `bson:"provenance,omitempty" json:"provenance,omitempty"`
	Details    map[string]string  `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// Sink persists audit events.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

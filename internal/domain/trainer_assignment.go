package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentType distinguishes how trainer access was acquired.
type AssignmentType string

const (
	AssignmentAddon        AssignmentType = "addon"
	AssignmentPlanIncluded AssignmentType = "plan_included"
)

// AssignmentStatus type for assignment lifecycle
type AssignmentStatus string

const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentAssigned AssignmentStatus = "assigned"
)

// AssignmentMetadata carries explicit back-references so renewal flows do
// not have to rely on ambiguous time-window matching.
type AssignmentMetadata struct {
	PaymentID *primitive.ObjectID `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	AddonID   *primitive.ObjectID `bson:"addonId,omitempty" json:"addonId,omitempty"`
}

// TrainerAssignment connects a Trainer to a Membership for a bounded period.
// Created when a trainer-bearing plan or addon is purchased; the period is
// recalculated and status flipped to assigned on approval.
type TrainerAssignment struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MembershipID primitive.ObjectID `bson:"membershipId" json:"membershipId"`
	TrainerID    primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	Type         AssignmentType     `bson:"assignmentType" json:"assignmentType"`
	Status       AssignmentStatus   `bson:"status" json:"status"`

	PeriodStart *time.Time `bson:"periodStart,omitempty" json:"periodStart,omitempty"`
	PeriodEnd   *time.Time `bson:"periodEnd,omitempty" json:"periodEnd,omitempty"`

	Metadata AssignmentMetadata `bson:"metadata,omitempty" json:"metadata,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

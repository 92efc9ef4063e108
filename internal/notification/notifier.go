// Package notification defines the outbound notification sink. Delivery is
// fire-and-forget: callers log failures and never let them affect the
// primary operation's outcome.
package notification

import (
	"context"
	"log"
)

// Notification types emitted by the lifecycle services.
const (
	TypeMembershipApproved = "membership_approved"
	TypeMembershipRejected = "membership_rejected"
	TypeGracePeriodStarted = "grace_period_started"
	TypeGraceMilestone     = "grace_milestone"
	TypeMembershipExpired  = "membership_expired"
	TypeTrainerAssigned    = "trainer_assigned"
)

// Notifier delivers a notification to a recipient. Implementations may fail
// silently; the interface exists so tests can assert what was attempted.
type Notifier interface {
	Notify(ctx context.Context, recipientID, notificationType, content string) error
}

// logNotifier writes notifications to the process log. Stands in for a push
// or email transport in development deployments.
type logNotifier struct{}

// NewLogNotifier returns a Notifier that only logs.
func NewLogNotifier() Notifier {
	return logNotifier{}
}

func (logNotifier) Notify(_ context.Context, recipientID, notificationType, content string) error {
	log.Printf("notify %s [%s]: %s", recipientID, notificationType, content)
	return nil
}

// Package invoice renders purpose-keyed membership invoices as PDFs and
// stores them in object storage. Generation runs post-approval and is
// best-effort: a failed invoice never affects the approval outcome.
package invoice

import (
	"context"
	"time"
)

// Request carries everything needed to render one invoice.
type Request struct {
	PaymentID    string
	MembershipID string
	// Purpose selects the invoice heading (initial purchase, membership
	// renewal, trainer renewal).
	Purpose    string
	Amount     float64
	MemberName string
	PlanName   string
	ApprovedBy string
	IssuedAt   time.Time

	// AddonID and AssignmentID identify the trainer addon/assignment a
	// trainer renewal payment resolved to. Empty for membership invoices.
	AddonID      string
	AssignmentID string
}

// Ref identifies a generated invoice.
type Ref struct {
	ID        string `json:"id"`
	ObjectKey string `json:"objectKey"`
	URL       string `json:"url,omitempty"`
}

// Generator produces and stores an invoice document.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Ref, error)
}

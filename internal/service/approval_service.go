package service

import (
	"context"
	"errors"
	"log"
	"time"

	"gymdesk/membership-app/internal/audit"
	"gymdesk/membership-app/internal/dates"
	"gymdesk/membership-app/internal/domain"
	"gymdesk/membership-app/internal/invoice"
	"gymdesk/membership-app/internal/metrics"
	"gymdesk/membership-app/internal/notification"
	"gymdesk/membership-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RenewalProvenance records how an approval decided it was dealing with a
// renewal. Explicit(ref) comes from renewal_of_membership_id; the
// payment-count inference is the legacy fallback and stays distinguishable
// in audit records.
type RenewalProvenance struct {
	Explicit bool                `json:"explicit"`
	Ref      *primitive.ObjectID `json:"ref,omitempty"`
}

func (p RenewalProvenance) String() string {
	if p.Explicit {
		return "explicit_reference"
	}
	return "inferred_from_payment_count"
}

// EffectAttempt is one outbound side effect the approval attempted.
// Collected on the result so callers and tests can assert what was tried
// without conflating it with the primary transactional outcome.
type EffectAttempt struct {
	Kind   string `json:"kind"` // "notification" | "invoice" | "audit"
	Target string `json:"target"`
	Detail string `json:"detail,omitempty"`
}

// ApprovalResult is the outcome of a successful approval.
type ApprovalResult struct {
	Membership     *domain.Membership
	Payment        *domain.Payment
	Classification *Classification
	IsRenewal      bool
	Renewal        RenewalProvenance

	// TrainerMatch is the resolved addon/assignment when the approval was
	// a trainer-only renewal.
	TrainerMatch *TrainerPurchaseMatch

	Attempted []EffectAttempt
}

// --- Service Interface ---
type ApprovalService interface {
	// Approve transitions a pending or grace_period membership to active,
	// verifying the newest pending payment, demoting its siblings,
	// recomputing dates and trainer access, and committing the status
	// via a conditional write. On an active membership whose newest
	// pending payment is a trainer renewal, only the trainer window is
	// extended; membership dates and status stay untouched. Returns
	// ErrNotApprovable or ErrApprovalConflict per the failure taxonomy.
	Approve(ctx context.Context, membershipID, adminID primitive.ObjectID) (*ApprovalResult, error)

	// Reject unconditionally sets the membership to rejected and
	// notifies the owner. No date or trainer recomputation.
	Reject(ctx context.Context, membershipID, adminID primitive.ObjectID, reason string) error
}

// --- Service Implementation ---

type approvalService struct {
	membershipRepo repository.MembershipRepository
	paymentRepo    repository.PaymentRepository
	addonRepo      repository.AddonRepository
	assignmentRepo repository.TrainerAssignmentRepository
	userRepo       repository.UserRepository
	classifier     PaymentClassifier
	notifier       notification.Notifier
	invoices       invoice.Generator
	auditSink      audit.Sink
	now            func() time.Time
}

// NewApprovalService creates a new instance of approvalService.
func NewApprovalService(
	membershipRepo repository.MembershipRepository,
	paymentRepo repository.PaymentRepository,
	addonRepo repository.AddonRepository,
	assignmentRepo repository.TrainerAssignmentRepository,
	userRepo repository.UserRepository,
	classifier PaymentClassifier,
	notifier notification.Notifier,
	invoices invoice.Generator,
	auditSink audit.Sink,
) ApprovalService {
	return &approvalService{
		membershipRepo: membershipRepo,
		paymentRepo:    paymentRepo,
		addonRepo:      addonRepo,
		assignmentRepo: assignmentRepo,
		userRepo:       userRepo,
		classifier:     classifier,
		notifier:       notifier,
		invoices:       invoices,
		auditSink:      auditSink,
		now:            time.Now,
	}
}

// approvableStatuses is the CAS guard set for the final commit.
var approvableStatuses = []domain.MembershipStatus{domain.StatusPending, domain.StatusGracePeriod}

func (s *approvalService) Approve(ctx context.Context, membershipID, adminID primitive.ObjectID) (*ApprovalResult, error) {
	now := s.now().UTC()
	result := &ApprovalResult{}

	// 1. Status precondition. Checked again at commit time by the
	// conditional write; this early check just fails fast.
	m, err := s.membershipRepo.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	if !m.IsApprovable() {
		// Active memberships take the trainer-only path: a pending
		// trainer renewal payment extends the trainer window without a
		// membership transition.
		if m.Status == domain.StatusActive {
			return s.approveTrainerRenewal(ctx, m, adminID, now)
		}
		metrics.ApprovalsTotal.WithLabelValues("not_approvable").Inc()
		return nil, ErrNotApprovable
	}

	// 2. Renewal provenance: explicit reference, else inferred from the
	// verified payment history (legacy rows).
	result.Renewal = RenewalProvenance{Explicit: m.RenewalOfMembershipID != nil, Ref: m.RenewalOfMembershipID}
	if result.Renewal.Explicit {
		result.IsRenewal = true
	} else {
		verified, err := s.paymentRepo.CountVerifiedByMembershipID(ctx, membershipID)
		if err != nil {
			return nil, err
		}
		result.IsRenewal = verified > 0 || m.Status == domain.StatusGracePeriod
	}

	// 3. Verify the newest pending payment and demote its siblings:
	// at most one payment is accepted per approval cycle. Failures here
	// are best-effort; the approval is defined by the status write.
	pending, err := s.paymentRepo.GetPendingByMembershipID(ctx, membershipID)
	if err != nil {
		log.Printf("ERROR: approve %s: listing pending payments: %v", membershipID.Hex(), err)
	}
	if len(pending) > 0 {
		chosen := pending[len(pending)-1] // newest; repo orders oldest first
		for _, p := range pending {
			if p.ID == chosen.ID {
				continue
			}
			if err := s.paymentRepo.MarkRejected(ctx, p.ID); err != nil {
				log.Printf("ERROR: approve %s: rejecting sibling payment %s: %v", membershipID.Hex(), p.ID.Hex(), err)
				continue
			}
			s.recordAudit(ctx, result, audit.Event{
				ActorID:    adminID.Hex(),
				Action:     audit.ActionPaymentRejected,
				EntityType: "payment",
				EntityID:   p.ID.Hex(),
				Details: map[string]string{
					"membershipId": membershipID.Hex(),
					"supersededBy": chosen.ID.Hex(),
				},
			})
		}
		if err := s.paymentRepo.MarkVerified(ctx, chosen.ID, adminID, now); err != nil {
			log.Printf("ERROR: approve %s: verifying payment %s: %v", membershipID.Hex(), chosen.ID.Hex(), err)
		} else {
			chosen.Status = domain.PaymentVerified
			chosen.VerifiedAt = &now
			chosen.VerifiedBy = &adminID
			result.Payment = &chosen

			classification, cerr := s.classifier.ClassifyPayment(ctx, chosen)
			if cerr != nil {
				log.Printf("ERROR: approve %s: classifying payment %s: %v", membershipID.Hex(), chosen.ID.Hex(), cerr)
			} else {
				result.Classification = &classification
				s.recordAudit(ctx, result, audit.Event{
					ActorID:    "system",
					Action:     audit.ActionPaymentClassified,
					EntityType: "payment",
					EntityID:   chosen.ID.Hex(),
					Provenance: string(classification.Provenance),
					Details:    map[string]string{"purpose": string(classification.Purpose)},
				})
			}

			// Recorded even if the later CAS fails: a verified payment
			// on a non-active membership is repairable only if it is
			// visible.
			s.recordAudit(ctx, result, audit.Event{
				ActorID:    adminID.Hex(),
				Action:     audit.ActionPaymentVerified,
				EntityType: "payment",
				EntityID:   chosen.ID.Hex(),
				Details:    map[string]string{"membershipId": membershipID.Hex()},
			})
		}
	}

	// 4. Compute new membership dates. Regular Monthly always resets from
	// the approval instant; other tiers extend from max(current end, now)
	// when renewing.
	startDate, endDate := s.computeDates(m, result.IsRenewal, now)

	update := repository.MembershipUpdate{
		Status:              domain.StatusActive,
		StartDate:           &startDate,
		EndDate:             &endDate,
		ClearGracePeriodEnd: true,
	}

	// 5. Resolve trainer assignment for the new period.
	s.resolveTrainer(ctx, m, startDate, endDate, now, &update, result)

	// 6. Commit via the conditional write. This is the one write whose
	// failure is fatal to the operation; the verified payment above is
	// intentionally not rolled back (logged inconsistency window).
	err = s.membershipRepo.UpdateStatusConditional(ctx, membershipID, approvableStatuses, update)
	if err != nil {
		if errors.Is(err, repository.ErrUpdateConflict) {
			metrics.ApprovalsTotal.WithLabelValues("conflict").Inc()
			log.Printf("WARN: approve %s: lost approval race; payment verification not rolled back", membershipID.Hex())
			return nil, ErrApprovalConflict
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}

	if m.Status == domain.StatusGracePeriod {
		metrics.GraceTransitionsTotal.WithLabelValues("reactivated").Inc()
	}
	metrics.ApprovalsTotal.WithLabelValues("approved").Inc()

	// Reflect the committed state on the returned membership.
	m.Status = domain.StatusActive
	m.StartDate = &startDate
	m.EndDate = &endDate
	m.MembershipStartDate = &startDate
	m.MembershipEndDate = &endDate
	m.GracePeriodEnd = nil
	if update.TrainerAssigned != nil {
		m.TrainerAssigned = *update.TrainerAssigned
	}
	if update.TrainerID != nil {
		m.TrainerID = update.TrainerID
	}
	if update.TrainerPeriodEnd != nil {
		m.TrainerPeriodEnd = update.TrainerPeriodEnd
	}
	result.Membership = m

	s.recordAudit(ctx, result, audit.Event{
		ActorID:    adminID.Hex(),
		Action:     audit.ActionMembershipApproved,
		EntityType: "membership",
		EntityID:   membershipID.Hex(),
		Provenance: result.Renewal.String(),
		Details: map[string]string{
			"renewal": boolString(result.IsRenewal),
			"endDate": endDate.Format(time.RFC3339),
		},
	})

	// 7. Fire-and-forget side effects: owner notification and invoice
	// generation. Errors are logged, never propagated.
	s.notify(ctx, result, m.UserID.Hex(), notification.TypeMembershipApproved,
		"Your "+m.PlanName+" membership has been approved.")
	if update.TrainerAssigned != nil && *update.TrainerAssigned && update.TrainerPeriodEnd != nil {
		s.notify(ctx, result, m.UserID.Hex(), notification.TypeTrainerAssigned,
			"Personal trainer access on your "+m.PlanName+" membership runs until "+update.TrainerPeriodEnd.Format("2 January 2006")+".")
	}
	s.generateInvoiceAsync(result, m, adminID)

	return result, nil
}

// approveTrainerRenewal verifies a pending trainer renewal payment on an
// active membership and extends only the trainer window: one month from the
// later of now and the current trainer end, clamped to the membership end.
// Membership dates and status are not touched.
func (s *approvalService) approveTrainerRenewal(ctx context.Context, m *domain.Membership, adminID primitive.ObjectID, now time.Time) (*ApprovalResult, error) {
	result := &ApprovalResult{}

	// 1. The newest pending payment must classify as a trainer renewal;
	// anything else leaves the active membership alone.
	pending, err := s.paymentRepo.GetPendingByMembershipID(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		metrics.ApprovalsTotal.WithLabelValues("not_approvable").Inc()
		return nil, ErrNotApprovable
	}
	chosen := pending[len(pending)-1]

	classification, err := s.classifier.ClassifyPayment(ctx, chosen)
	if err != nil {
		return nil, err
	}
	if classification.Purpose != domain.PurposeTrainerRenewal {
		metrics.ApprovalsTotal.WithLabelValues("not_approvable").Inc()
		return nil, ErrNotApprovable
	}
	result.Classification = &classification

	// The clamp needs a membership end; only corrupt legacy rows lack one
	// while active.
	membershipEnd := m.EffectiveEndDate()
	if membershipEnd == nil {
		return nil, ErrMissingReference
	}

	// 2. Resolve which addon/assignment the payment bought. Legacy rows
	// may resolve with degraded confidence or not at all; the window still
	// extends.
	match, err := s.classifier.ResolveTrainerPurchase(ctx, chosen)
	if err != nil {
		if !errors.Is(err, ErrMissingReference) {
			return nil, err
		}
		log.Printf("WARN: approve %s: trainer renewal payment %s has no addon or assignment rows", m.ID.Hex(), chosen.ID.Hex())
	}
	result.TrainerMatch = match

	// 3. Verify the payment. Nothing has been committed yet, so a failure
	// here aborts cleanly.
	if err := s.paymentRepo.MarkVerified(ctx, chosen.ID, adminID, now); err != nil {
		return nil, err
	}
	chosen.Status = domain.PaymentVerified
	chosen.VerifiedAt = &now
	chosen.VerifiedBy = &adminID
	result.Payment = &chosen

	s.recordAudit(ctx, result, audit.Event{
		ActorID:    adminID.Hex(),
		Action:     audit.ActionPaymentVerified,
		EntityType: "payment",
		EntityID:   chosen.ID.Hex(),
		Details:    map[string]string{"membershipId": m.ID.Hex()},
	})
	s.recordAudit(ctx, result, audit.Event{
		ActorID:    "system",
		Action:     audit.ActionPaymentClassified,
		EntityType: "payment",
		EntityID:   chosen.ID.Hex(),
		Provenance: string(classification.Provenance),
		Details:    map[string]string{"purpose": string(classification.Purpose)},
	})

	// 4. Extend the trainer window.
	extendFrom := now
	if m.TrainerPeriodEnd != nil && m.TrainerPeriodEnd.After(now) {
		extendFrom = *m.TrainerPeriodEnd
	}
	periodStart := extendFrom
	periodEnd := TrainerRenewalEndDate(extendFrom, *membershipEnd, trainerAddonMonths)

	assigned := true
	update := repository.MembershipUpdate{
		Status:               domain.StatusActive,
		TrainerAssigned:      &assigned,
		TrainerPeriodEnd:     &periodEnd,
		ClearTrainerGraceEnd: true,
	}
	var trainerID *primitive.ObjectID
	if match != nil {
		if match.Assignment != nil {
			trainerID = &match.Assignment.TrainerID
		} else if match.Addon != nil && match.Addon.TrainerID != nil {
			trainerID = match.Addon.TrainerID
		}
	}
	if trainerID != nil {
		update.TrainerID = trainerID
	}

	// 5. Commit, guarded on the membership still being active.
	err = s.membershipRepo.UpdateStatusConditional(ctx, m.ID, []domain.MembershipStatus{domain.StatusActive}, update)
	if err != nil {
		if errors.Is(err, repository.ErrUpdateConflict) {
			metrics.ApprovalsTotal.WithLabelValues("conflict").Inc()
			log.Printf("WARN: approve %s: lost trainer renewal race; payment verification not rolled back", m.ID.Hex())
			return nil, ErrApprovalConflict
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	metrics.ApprovalsTotal.WithLabelValues("trainer_renewal").Inc()

	// 6. Flip the purchased rows.
	if match != nil {
		if match.Assignment != nil {
			match.Assignment.Status = domain.AssignmentAssigned
			match.Assignment.PeriodStart = &periodStart
			match.Assignment.PeriodEnd = &periodEnd
			if err := s.assignmentRepo.Update(ctx, match.Assignment); err != nil {
				log.Printf("ERROR: approve %s: updating assignment %s: %v", m.ID.Hex(), match.Assignment.ID.Hex(), err)
			}
		}
		if match.Addon != nil {
			if err := s.addonRepo.UpdateStatus(ctx, match.Addon.ID, domain.AddonActive); err != nil {
				log.Printf("ERROR: approve %s: activating addon %s: %v", m.ID.Hex(), match.Addon.ID.Hex(), err)
			}
			if trainerID != nil {
				if err := s.addonRepo.SetTrainer(ctx, match.Addon.ID, *trainerID); err != nil {
					log.Printf("ERROR: approve %s: backfilling addon trainer %s: %v", m.ID.Hex(), match.Addon.ID.Hex(), err)
				}
			}
		}
		if match.Assignment != nil {
			s.recordAudit(ctx, result, audit.Event{
				ActorID:    "system",
				Action:     audit.ActionTrainerAssigned,
				EntityType: "trainer_assignment",
				EntityID:   match.Assignment.ID.Hex(),
				Provenance: string(match.Confidence),
				Details: map[string]string{
					"membershipId": m.ID.Hex(),
					"periodEnd":    periodEnd.Format(time.RFC3339),
				},
			})
		}
	}

	m.TrainerAssigned = true
	m.TrainerPeriodEnd = &periodEnd
	m.TrainerGracePeriodEnd = nil
	if trainerID != nil {
		m.TrainerID = trainerID
	}
	result.Membership = m

	// 7. Fire-and-forget side effects.
	s.notify(ctx, result, m.UserID.Hex(), notification.TypeTrainerAssigned,
		"Your personal trainer access has been extended until "+periodEnd.Format("2 January 2006")+".")
	s.generateInvoiceAsync(result, m, adminID)

	return result, nil
}

// computeDates implements the reset-vs-extend rule.
func (s *approvalService) computeDates(m *domain.Membership, isRenewal bool, now time.Time) (time.Time, time.Time) {
	months := m.PlanDurationMonths
	if months <= 0 {
		months = 1
	}

	if domain.IsRegularMonthly(m.PlanName) {
		return now, dates.AddMonths(now, months)
	}

	if isRenewal {
		if currentEnd := m.EffectiveEndDate(); currentEnd != nil {
			extendFrom := *currentEnd
			if now.After(extendFrom) {
				extendFrom = now
			}
			start := now
			if currentStart := m.EffectiveStartDate(); currentStart != nil {
				start = *currentStart
			}
			return start, dates.AddMonths(extendFrom, months)
		}
	}
	return now, dates.AddMonths(now, months)
}

// resolveTrainer recomputes trainer access for the approved period and
// flips the pending assignment/addon rows. All failures are best-effort.
func (s *approvalService) resolveTrainer(ctx context.Context, m *domain.Membership, startDate, endDate, now time.Time, update *repository.MembershipUpdate, result *ApprovalResult) {
	pendingAssignment, err := s.assignmentRepo.GetPendingByMembershipID(ctx, m.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Printf("ERROR: approve %s: loading pending assignment: %v", m.ID.Hex(), err)
		return
	}

	hasTrainerAddon := pendingAssignment != nil && pendingAssignment.Type == domain.AssignmentAddon

	period, ok := ComputeTrainerPeriod(TrainerPeriodInput{
		PlanName:          m.PlanName,
		PlanMode:          m.PlanMode,
		HasTrainerAddon:   hasTrainerAddon,
		MembershipStart:   startDate,
		MembershipEnd:     endDate,
		CurrentTrainerEnd: m.TrainerPeriodEnd,
		Now:               now,
	})
	if !ok && pendingAssignment == nil {
		return
	}
	if !ok {
		// A pending assignment exists but the tier grants nothing;
		// span the membership so the purchased access is honoured.
		period = TrainerPeriod{Start: startDate, End: endDate}
	}

	assigned := true
	update.TrainerAssigned = &assigned
	update.TrainerPeriodEnd = &period.End
	update.ClearTrainerGraceEnd = true

	if pendingAssignment == nil {
		return
	}

	update.TrainerID = &pendingAssignment.TrainerID

	pendingAssignment.Status = domain.AssignmentAssigned
	pendingAssignment.PeriodStart = &period.Start
	pendingAssignment.PeriodEnd = &period.End
	if err := s.assignmentRepo.Update(ctx, pendingAssignment); err != nil {
		log.Printf("ERROR: approve %s: updating assignment %s: %v", m.ID.Hex(), pendingAssignment.ID.Hex(), err)
	}

	if pendingAssignment.Metadata.AddonID != nil {
		addonID := *pendingAssignment.Metadata.AddonID
		if err := s.addonRepo.UpdateStatus(ctx, addonID, domain.AddonActive); err != nil {
			log.Printf("ERROR: approve %s: activating addon %s: %v", m.ID.Hex(), addonID.Hex(), err)
		}
		if err := s.addonRepo.SetTrainer(ctx, addonID, pendingAssignment.TrainerID); err != nil {
			log.Printf("ERROR: approve %s: backfilling addon trainer %s: %v", m.ID.Hex(), addonID.Hex(), err)
		}
	}

	s.recordAudit(ctx, result, audit.Event{
		ActorID:    "system",
		Action:     audit.ActionTrainerAssigned,
		EntityType: "trainer_assignment",
		EntityID:   pendingAssignment.ID.Hex(),
		Details: map[string]string{
			"membershipId": m.ID.Hex(),
			"periodEnd":    period.End.Format(time.RFC3339),
		},
	})
}

func (s *approvalService) Reject(ctx context.Context, membershipID, adminID primitive.ObjectID, reason string) error {
	m, err := s.membershipRepo.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMembershipNotFound
		}
		return err
	}

	err = s.membershipRepo.UpdateStatus(ctx, membershipID, repository.MembershipUpdate{
		Status: domain.StatusRejected,
	})
	if err != nil {
		return err
	}

	metrics.ApprovalsTotal.WithLabelValues("rejected").Inc()

	if aerr := s.auditSink.Record(ctx, audit.Event{
		ActorID:    adminID.Hex(),
		Action:     audit.ActionMembershipRejected,
		EntityType: "membership",
		EntityID:   membershipID.Hex(),
		Details:    map[string]string{"reason": reason},
	}); aerr != nil {
		log.Printf("ERROR: reject %s: recording audit event: %v", membershipID.Hex(), aerr)
	}

	content := "Your " + m.PlanName + " membership was rejected."
	if reason != "" {
		content += " Reason: " + reason
	}
	if nerr := s.notifier.Notify(ctx, m.UserID.Hex(), notification.TypeMembershipRejected, content); nerr != nil {
		log.Printf("ERROR: reject %s: notifying owner: %v", membershipID.Hex(), nerr)
	}
	return nil
}

// notify delivers a notification and records the attempt on the result.
func (s *approvalService) notify(ctx context.Context, result *ApprovalResult, recipientID, notificationType, content string) {
	result.Attempted = append(result.Attempted, EffectAttempt{
		Kind:   "notification",
		Target: recipientID,
		Detail: notificationType,
	})
	if err := s.notifier.Notify(ctx, recipientID, notificationType, content); err != nil {
		log.Printf("ERROR: notifying %s (%s): %v", recipientID, notificationType, err)
	}
}

// recordAudit persists an audit event and records the attempt.
func (s *approvalService) recordAudit(ctx context.Context, result *ApprovalResult, event audit.Event) {
	result.Attempted = append(result.Attempted, EffectAttempt{
		Kind:   "audit",
		Target: event.EntityID,
		Detail: event.Action,
	})
	if err := s.auditSink.Record(ctx, event); err != nil {
		log.Printf("ERROR: recording audit event %s for %s: %v", event.Action, event.EntityID, err)
	}
}

// generateInvoiceAsync triggers invoice generation keyed by the payment's
// resolved purpose. Runs detached; the approval outcome never depends on it.
func (s *approvalService) generateInvoiceAsync(result *ApprovalResult, m *domain.Membership, adminID primitive.ObjectID) {
	if result.Payment == nil || result.Classification == nil {
		return
	}
	payment := *result.Payment
	purpose := string(result.Classification.Purpose)

	result.Attempted = append(result.Attempted, EffectAttempt{
		Kind:   "invoice",
		Target: payment.ID.Hex(),
		Detail: purpose,
	})

	memberName := ""
	userID := m.UserID
	membershipID := m.ID
	planName := m.PlanName
	amount := payment.Amount

	var addonID, assignmentID string
	if result.TrainerMatch != nil {
		if result.TrainerMatch.Addon != nil {
			addonID = result.TrainerMatch.Addon.ID.Hex()
		}
		if result.TrainerMatch.Assignment != nil {
			assignmentID = result.TrainerMatch.Assignment.ID.Hex()
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if user, err := s.userRepo.GetByID(ctx, userID); err == nil {
			memberName = user.Name
		}

		_, err := s.invoices.Generate(ctx, invoice.Request{
			PaymentID:    payment.ID.Hex(),
			MembershipID: membershipID.Hex(),
			Purpose:      purpose,
			Amount:       amount,
			MemberName:   memberName,
			PlanName:     planName,
			ApprovedBy:   adminID.Hex(),
			IssuedAt:     s.now().UTC(),
			AddonID:      addonID,
			AssignmentID: assignmentID,
		})
		if err != nil {
			metrics.InvoicesGeneratedTotal.WithLabelValues(purpose, "error").Inc()
			log.Printf("ERROR: generating invoice for payment %s: %v", payment.ID.Hex(), err)
			return
		}
		metrics.InvoicesGeneratedTotal.WithLabelValues(purpose, "ok").Inc()
	}()
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

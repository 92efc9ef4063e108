package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gymdesk/membership-app/internal/audit"
	"gymdesk/membership-app/internal/domain"
	"gymdesk/membership-app/internal/metrics"
	"gymdesk/membership-app/internal/notification"
	"gymdesk/membership-app/internal/repository"
	"gymdesk/membership-app/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Expiry for payment-proof upload URLs. Longer than the storage default
// because members fill the purchase form while the URL is live.
const proofUploadURLExpiry = 30 * time.Minute

// PurchaseInput is the membership purchase form.
type PurchaseInput struct {
	PlanName string `json:"planName" binding:"required"`

	// WithTrainerAddon requests personal trainer access on top of the
	// plan. Required for trainer access on Regular Monthly tiers.
	WithTrainerAddon bool                `json:"withTrainerAddon"`
	TrainerID        *primitive.ObjectID `json:"trainerId,omitempty"`

	// RenewalOfMembershipID marks this purchase as an explicit renewal of
	// a prior membership.
	RenewalOfMembershipID *primitive.ObjectID `json:"renewalOfMembershipId,omitempty"`
}

// PurchaseResult is the created membership plus the presigned URL the member
// uploads their payment proof to.
type PurchaseResult struct {
	Membership     *domain.Membership `json:"membership"`
	Addon          *domain.Addon      `json:"addon,omitempty"`
	ProofUploadURL string             `json:"proofUploadUrl"`
	ProofObjectKey string             `json:"proofObjectKey"`
}

// SubmitPaymentInput records a payment proof against a membership.
type SubmitPaymentInput struct {
	Amount         float64                `json:"amount" binding:"required,gt=0"`
	Purpose        *domain.PaymentPurpose `json:"purpose,omitempty"`
	ProofObjectKey string                 `json:"proofObjectKey" binding:"required"`
}

// TrainerRenewalInput requests additional trainer months on an active
// membership.
type TrainerRenewalInput struct {
	TrainerID primitive.ObjectID `json:"trainerId" binding:"required"`
	Months    int                `json:"months" binding:"required,min=1"`
	Amount    float64            `json:"amount" binding:"required,gt=0"`
}

// TrainerRenewalResult carries the created rows and the window the renewal
// will cover once approved.
type TrainerRenewalResult struct {
	Eligibility Eligibility               `json:"eligibility"`
	Payment     *domain.Payment           `json:"payment"`
	Addon       *domain.Addon             `json:"addon"`
	Assignment  *domain.TrainerAssignment `json:"assignment"`
	PeriodEnd   time.Time                 `json:"periodEnd"`
}

// EligibilityView is the answer to a trainer renewal pre-check. Unlike
// RequestTrainerRenewal it never creates rows; an ineligible membership is a
// normal answer here, not an error.
type EligibilityView struct {
	Eligible              bool                  `json:"eligible"`
	Constraint            EligibilityConstraint `json:"constraint,omitempty"`
	Reason                string                `json:"reason,omitempty"`
	RemainingDays         int                   `json:"remainingDays"`
	MaxTrainerRenewalDays int                   `json:"maxTrainerRenewalDays"`
}

// MembershipView decorates a membership with derived lifecycle facts for the
// API layer.
type MembershipView struct {
	domain.Membership
	GraceDaysRemaining *int   `json:"graceDaysRemaining,omitempty"`
	Responsibility     string `json:"responsibility"`

	// CanReactivate reports whether approving a renewal payment right now
	// would reactivate this membership (in grace, grace window still open).
	CanReactivate bool `json:"canReactivate"`
}

// SweepReport summarizes one grace sweep pass.
type SweepReport struct {
	EnteredGrace    int `json:"enteredGrace"`
	MilestonesSent  int `json:"milestonesSent"`
	Expired         int `json:"expired"`
	TrainersInGrace int `json:"trainersInGrace"`
	TrainersLapsed  int `json:"trainersLapsed"`
}

// --- Service Interface ---
type MembershipService interface {
	// ListPlans returns the purchasable plan catalog.
	ListPlans() []domain.Plan

	// Purchase creates an awaiting_payment membership with a plan
	// snapshot, plus the trainer addon/assignment rows when requested.
	Purchase(ctx context.Context, userID primitive.ObjectID, input PurchaseInput) (*PurchaseResult, error)

	// SubmitPayment records a payment proof and moves an
	// awaiting_payment membership to pending. Payments against a
	// grace_period membership leave the status untouched; approval
	// handles reactivation.
	SubmitPayment(ctx context.Context, userID, membershipID primitive.ObjectID, input SubmitPaymentInput) (*domain.Payment, error)

	// TrainerRenewalEligibility answers the 30-day pre-check without
	// creating any rows.
	TrainerRenewalEligibility(ctx context.Context, userID, membershipID primitive.ObjectID) (*EligibilityView, error)

	// RequestTrainerRenewal checks the 30-day eligibility rule and, when
	// it passes, creates the pending payment, addon and assignment rows
	// with explicit back-references.
	RequestTrainerRenewal(ctx context.Context, userID, membershipID primitive.ObjectID, input TrainerRenewalInput) (*TrainerRenewalResult, error)

	// GetMembership returns one membership with derived lifecycle facts,
	// enforcing ownership unless the caller is an admin.
	GetMembership(ctx context.Context, callerID primitive.ObjectID, isAdmin bool, membershipID primitive.ObjectID) (*MembershipView, error)

	// ListUserMemberships returns a user's memberships, newest first.
	ListUserMemberships(ctx context.Context, userID primitive.ObjectID) ([]MembershipView, error)

	// ListByStatus lists memberships in a given status (admin review
	// queues).
	ListByStatus(ctx context.Context, status domain.MembershipStatus) ([]domain.Membership, error)

	// RunGraceSweep advances every membership's grace state machine to
	// the current instant: entry into grace, milestone notifications,
	// expiry, and the parallel trainer grace ladder.
	RunGraceSweep(ctx context.Context) (*SweepReport, error)

	// Delete removes a membership and cascades to its payments, addons,
	// assignments and stored proof objects.
	Delete(ctx context.Context, adminID, membershipID primitive.ObjectID) error

	// ProofDownloadURL returns a presigned URL for a payment's proof
	// object (admin review).
	ProofDownloadURL(ctx context.Context, paymentID primitive.ObjectID) (string, error)
}

// --- Service Implementation ---

type membershipService struct {
	membershipRepo repository.MembershipRepository
	paymentRepo    repository.PaymentRepository
	addonRepo      repository.AddonRepository
	assignmentRepo repository.TrainerAssignmentRepository
	fileStorage    storage.FileStorage
	notifier       notification.Notifier
	auditSink      audit.Sink
	now            func() time.Time
}

// NewMembershipService creates a new instance of membershipService.
func NewMembershipService(
	membershipRepo repository.MembershipRepository,
	paymentRepo repository.PaymentRepository,
	addonRepo repository.AddonRepository,
	assignmentRepo repository.TrainerAssignmentRepository,
	fileStorage storage.FileStorage,
	notifier notification.Notifier,
	auditSink audit.Sink,
) MembershipService {
	return &membershipService{
		membershipRepo: membershipRepo,
		paymentRepo:    paymentRepo,
		addonRepo:      addonRepo,
		assignmentRepo: assignmentRepo,
		fileStorage:    fileStorage,
		notifier:       notifier,
		auditSink:      auditSink,
		now:            time.Now,
	}
}

func (s *membershipService) ListPlans() []domain.Plan {
	return domain.DefaultPlans()
}

func (s *membershipService) Purchase(ctx context.Context, userID primitive.ObjectID, input PurchaseInput) (*PurchaseResult, error) {
	plan, ok := domain.FindPlan(input.PlanName)
	if !ok {
		return nil, ErrPlanNotFound
	}

	// Explicit renewal reference must point at a membership the caller
	// actually owns.
	if input.RenewalOfMembershipID != nil {
		prior, err := s.membershipRepo.GetByID(ctx, *input.RenewalOfMembershipID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrMembershipNotFound
			}
			return nil, err
		}
		if prior.UserID != userID {
			return nil, ErrMembershipNotFound
		}
	}

	m := &domain.Membership{
		UserID:                userID,
		PlanName:              plan.Name,
		PlanDurationMonths:    plan.DurationMonths,
		PlanPrice:             plan.Price,
		PlanMode:              plan.Mode,
		Status:                domain.StatusAwaitingPayment,
		RenewalOfMembershipID: input.RenewalOfMembershipID,
	}
	membershipID, err := s.membershipRepo.Create(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("creating membership: %w", err)
	}
	m.ID = membershipID

	result := &PurchaseResult{Membership: m}

	// Trainer addon rows exist from purchase time so the approval can
	// find them; assignment metadata carries the addon back-reference.
	if input.WithTrainerAddon {
		// A bundled addon carries no price of its own: the payment covers
		// the plan, and a nonzero addon price would collide with the
		// price-based correlation fallback on legacy rows.
		addon := &domain.Addon{
			MembershipID: membershipID,
			Type:         domain.AddonPersonalTrainer,
			Price:        0,
			Status:       domain.AddonPending,
			TrainerID:    input.TrainerID,
		}
		addonID, err := s.addonRepo.Create(ctx, addon)
		if err != nil {
			return nil, fmt.Errorf("creating trainer addon: %w", err)
		}
		addon.ID = addonID
		result.Addon = addon

		if input.TrainerID != nil {
			assignment := &domain.TrainerAssignment{
				MembershipID: membershipID,
				TrainerID:    *input.TrainerID,
				Type:         domain.AssignmentAddon,
				Status:       domain.AssignmentPending,
				Metadata:     domain.AssignmentMetadata{AddonID: &addonID},
			}
			if _, err := s.assignmentRepo.Create(ctx, assignment); err != nil {
				return nil, fmt.Errorf("creating trainer assignment: %w", err)
			}
		}
	} else if input.TrainerID != nil && domain.FreeTrainerDaysFor(plan.Name) > 0 {
		// Premium/Elite included allowance: record the chosen trainer as
		// a plan_included assignment awaiting approval.
		assignment := &domain.TrainerAssignment{
			MembershipID: membershipID,
			TrainerID:    *input.TrainerID,
			Type:         domain.AssignmentPlanIncluded,
			Status:       domain.AssignmentPending,
		}
		if _, err := s.assignmentRepo.Create(ctx, assignment); err != nil {
			return nil, fmt.Errorf("creating trainer assignment: %w", err)
		}
	}

	// Presigned upload slot for the payment proof.
	result.ProofObjectKey = fmt.Sprintf("payment-proofs/%s/%s", membershipID.Hex(), uuid.NewString())
	url, err := s.fileStorage.GeneratePresignedUploadURL(ctx, result.ProofObjectKey, "image/jpeg", proofUploadURLExpiry)
	if err != nil {
		// Non-fatal: the membership exists; the client can request a
		// fresh URL when submitting the payment.
		log.Printf("WARN: purchase %s: generating proof upload URL: %v", membershipID.Hex(), err)
	}
	result.ProofUploadURL = url

	return result, nil
}

func (s *membershipService) SubmitPayment(ctx context.Context, userID, membershipID primitive.ObjectID, input SubmitPaymentInput) (*domain.Payment, error) {
	m, err := s.membershipRepo.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	if m.UserID != userID {
		return nil, ErrMembershipNotFound
	}

	// Default the explicit purpose when the caller omitted it: the first
	// payment of a membership buys it, later ones renew it.
	purpose := input.Purpose
	if purpose == nil {
		existing, err := s.paymentRepo.GetByMembershipID(ctx, membershipID)
		if err != nil {
			return nil, err
		}
		p := domain.PurposeInitialPurchase
		if len(existing) > 0 {
			p = domain.PurposeMembershipRenewal
		}
		purpose = &p
	}

	payment := &domain.Payment{
		MembershipID:   membershipID,
		Amount:         input.Amount,
		Status:         domain.PaymentPending,
		Purpose:        purpose,
		ProofObjectKey: input.ProofObjectKey,
	}
	paymentID, err := s.paymentRepo.Create(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("creating payment: %w", err)
	}
	payment.ID = paymentID

	// First proof moves the membership into the admin review queue. A
	// grace_period membership keeps its status; approval reactivates it.
	if m.Status == domain.StatusAwaitingPayment {
		err = s.membershipRepo.UpdateStatusConditional(ctx, membershipID,
			[]domain.MembershipStatus{domain.StatusAwaitingPayment},
			repository.MembershipUpdate{Status: domain.StatusPending})
		if err != nil && !errors.Is(err, repository.ErrUpdateConflict) {
			return nil, err
		}
	}

	return payment, nil
}

func (s *membershipService) TrainerRenewalEligibility(ctx context.Context, userID, membershipID primitive.ObjectID) (*EligibilityView, error) {
	now := s.now().UTC()

	m, err := s.membershipRepo.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	if m.UserID != userID {
		return nil, ErrMembershipNotFound
	}

	eligibility, err := CheckTrainerRenewalEligibility(m.Status, m.EffectiveEndDate(), now)
	if err != nil {
		var notEligible *NotEligibleError
		if errors.As(err, &notEligible) {
			return &EligibilityView{
				Constraint:    notEligible.Constraint,
				Reason:        notEligible.Reason,
				RemainingDays: notEligible.RemainingDays,
			}, nil
		}
		return nil, err
	}

	return &EligibilityView{
		Eligible:              true,
		RemainingDays:         eligibility.RemainingDays,
		MaxTrainerRenewalDays: eligibility.MaxTrainerRenewalDays,
	}, nil
}

func (s *membershipService) RequestTrainerRenewal(ctx context.Context, userID, membershipID primitive.ObjectID, input TrainerRenewalInput) (*TrainerRenewalResult, error) {
	now := s.now().UTC()

	m, err := s.membershipRepo.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	if m.UserID != userID {
		return nil, ErrMembershipNotFound
	}

	eligibility, err := CheckTrainerRenewalEligibility(m.Status, m.EffectiveEndDate(), now)
	if err != nil {
		return nil, err
	}

	// Pending rows created together with explicit back-references: the
	// payment carries the trainer_renewal tag and the assignment points
	// back at both payment and addon.
	purpose := domain.PurposeTrainerRenewal
	payment := &domain.Payment{
		MembershipID: membershipID,
		Amount:       input.Amount,
		Status:       domain.PaymentPending,
		Purpose:      &purpose,
	}
	paymentID, err := s.paymentRepo.Create(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("creating trainer renewal payment: %w", err)
	}
	payment.ID = paymentID

	addon := &domain.Addon{
		MembershipID: membershipID,
		Type:         domain.AddonPersonalTrainer,
		Price:        input.Amount,
		Status:       domain.AddonPending,
		TrainerID:    &input.TrainerID,
	}
	addonID, err := s.addonRepo.Create(ctx, addon)
	if err != nil {
		return nil, fmt.Errorf("creating trainer renewal addon: %w", err)
	}
	addon.ID = addonID

	assignment := &domain.TrainerAssignment{
		MembershipID: membershipID,
		TrainerID:    input.TrainerID,
		Type:         domain.AssignmentAddon,
		Status:       domain.AssignmentPending,
		Metadata: domain.AssignmentMetadata{
			PaymentID: &paymentID,
			AddonID:   &addonID,
		},
	}
	if _, err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("creating trainer renewal assignment: %w", err)
	}

	periodEnd := TrainerRenewalEndDate(now, *m.EffectiveEndDate(), input.Months)

	return &TrainerRenewalResult{
		Eligibility: eligibility,
		Payment:     payment,
		Addon:       addon,
		Assignment:  assignment,
		PeriodEnd:   periodEnd,
	}, nil
}

func (s *membershipService) GetMembership(ctx context.Context, callerID primitive.ObjectID, isAdmin bool, membershipID primitive.ObjectID) (*MembershipView, error) {
	m, err := s.membershipRepo.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	if !isAdmin && m.UserID != callerID {
		return nil, ErrMembershipNotFound
	}
	view := s.buildView(*m)
	return &view, nil
}

func (s *membershipService) ListUserMemberships(ctx context.Context, userID primitive.ObjectID) ([]MembershipView, error) {
	memberships, err := s.membershipRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]MembershipView, 0, len(memberships))
	for _, m := range memberships {
		views = append(views, s.buildView(m))
	}
	return views, nil
}

func (s *membershipService) ListByStatus(ctx context.Context, status domain.MembershipStatus) ([]domain.Membership, error) {
	return s.membershipRepo.ListByStatus(ctx, status)
}

func (s *membershipService) buildView(m domain.Membership) MembershipView {
	now := s.now().UTC()
	view := MembershipView{
		Membership:     m,
		Responsibility: domain.TrainerResponsibility(m.TrainerPeriodEnd, now),
		CanReactivate:  ShouldReactivateMembership(m.Status, m.GracePeriodEnd, now),
	}
	if m.Status == domain.StatusGracePeriod && m.GracePeriodEnd != nil {
		remaining := DaysRemaining(*m.GracePeriodEnd, now)
		view.GraceDaysRemaining = &remaining
	}
	return view
}

// RunGraceSweep is the scheduled lifecycle pass. Each membership advances
// independently; a failure on one row is logged and the sweep continues.
func (s *membershipService) RunGraceSweep(ctx context.Context) (*SweepReport, error) {
	now := s.now().UTC()
	report := &SweepReport{}

	// 1. Active memberships past their end date enter the grace period.
	active, err := s.membershipRepo.ListByStatus(ctx, domain.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("listing active memberships: %w", err)
	}
	for i := range active {
		m := active[i]
		if ShouldTransitionToGracePeriod(m.Status, m.EffectiveEndDate(), m.GracePeriodEnd, now) {
			s.enterGrace(ctx, &m, now, report)
		}
		s.sweepTrainer(ctx, &m, now, report)
	}

	// 2. Grace memberships either get milestone notifications or expire.
	inGrace, err := s.membershipRepo.ListByStatus(ctx, domain.StatusGracePeriod)
	if err != nil {
		return nil, fmt.Errorf("listing grace memberships: %w", err)
	}
	for i := range inGrace {
		m := inGrace[i]
		if m.GracePeriodEnd == nil {
			log.Printf("WARN: sweep: membership %s in grace_period without gracePeriodEnd", m.ID.Hex())
			continue
		}
		daysLeft := DaysRemaining(*m.GracePeriodEnd, now)
		if daysLeft <= 0 {
			s.expire(ctx, &m, report)
			continue
		}
		if IsGraceMilestone(daysLeft) {
			content := fmt.Sprintf("Your %s membership expires in %d day(s). Renew now to keep your access.", m.PlanName, daysLeft)
			if err := s.notifier.Notify(ctx, m.UserID.Hex(), notification.TypeGraceMilestone, content); err != nil {
				log.Printf("ERROR: sweep: milestone notification for %s: %v", m.ID.Hex(), err)
			} else {
				report.MilestonesSent++
			}
		}
		s.sweepTrainer(ctx, &m, now, report)
	}

	return report, nil
}

func (s *membershipService) enterGrace(ctx context.Context, m *domain.Membership, now time.Time, report *SweepReport) {
	graceEnd := GracePeriodEnd(*m.EffectiveEndDate())
	err := s.membershipRepo.UpdateStatusConditional(ctx, m.ID,
		[]domain.MembershipStatus{domain.StatusActive},
		repository.MembershipUpdate{
			Status:         domain.StatusGracePeriod,
			GracePeriodEnd: &graceEnd,
		})
	if err != nil {
		// A concurrent renewal approval winning the race is expected.
		if !errors.Is(err, repository.ErrUpdateConflict) {
			log.Printf("ERROR: sweep: grace transition for %s: %v", m.ID.Hex(), err)
		}
		return
	}
	report.EnteredGrace++
	metrics.GraceTransitionsTotal.WithLabelValues("entered_grace").Inc()

	if aerr := s.auditSink.Record(ctx, audit.Event{
		ActorID:    "system",
		Action:     audit.ActionGraceEntered,
		EntityType: "membership",
		EntityID:   m.ID.Hex(),
		Details:    map[string]string{"graceEnd": graceEnd.Format(time.RFC3339)},
	}); aerr != nil {
		log.Printf("ERROR: sweep: recording grace audit for %s: %v", m.ID.Hex(), aerr)
	}

	content := fmt.Sprintf("Your %s membership has ended. You have %d days to renew before it expires.", m.PlanName, MembershipGraceDays)
	if nerr := s.notifier.Notify(ctx, m.UserID.Hex(), notification.TypeGracePeriodStarted, content); nerr != nil {
		log.Printf("ERROR: sweep: grace notification for %s: %v", m.ID.Hex(), nerr)
	}
}

func (s *membershipService) expire(ctx context.Context, m *domain.Membership, report *SweepReport) {
	err := s.membershipRepo.UpdateStatusConditional(ctx, m.ID,
		[]domain.MembershipStatus{domain.StatusGracePeriod},
		repository.MembershipUpdate{Status: domain.StatusExpired})
	if err != nil {
		if !errors.Is(err, repository.ErrUpdateConflict) {
			log.Printf("ERROR: sweep: expiring %s: %v", m.ID.Hex(), err)
		}
		return
	}
	report.Expired++
	metrics.GraceTransitionsTotal.WithLabelValues("expired").Inc()

	if aerr := s.auditSink.Record(ctx, audit.Event{
		ActorID:    "system",
		Action:     audit.ActionMembershipExpired,
		EntityType: "membership",
		EntityID:   m.ID.Hex(),
	}); aerr != nil {
		log.Printf("ERROR: sweep: recording expiry audit for %s: %v", m.ID.Hex(), aerr)
	}

	content := fmt.Sprintf("Your %s membership has expired.", m.PlanName)
	if nerr := s.notifier.Notify(ctx, m.UserID.Hex(), notification.TypeMembershipExpired, content); nerr != nil {
		log.Printf("ERROR: sweep: expiry notification for %s: %v", m.ID.Hex(), nerr)
	}
}

// sweepTrainer advances the parallel trainer grace ladder: a lapsed trainer
// period first opens a 5-day trainer grace window, then drops the
// assignment. Status stays whatever the membership ladder says; the trainer
// fields move independently.
func (s *membershipService) sweepTrainer(ctx context.Context, m *domain.Membership, now time.Time, report *SweepReport) {
	if !m.TrainerAssigned || m.TrainerPeriodEnd == nil {
		return
	}
	if now.Before(*m.TrainerPeriodEnd) {
		return
	}

	if m.TrainerGracePeriodEnd == nil {
		trainerGraceEnd := TrainerGracePeriodEnd(*m.TrainerPeriodEnd)
		err := s.membershipRepo.UpdateStatus(ctx, m.ID, repository.MembershipUpdate{
			Status:                m.Status,
			TrainerGracePeriodEnd: &trainerGraceEnd,
		})
		if err != nil {
			log.Printf("ERROR: sweep: trainer grace for %s: %v", m.ID.Hex(), err)
			return
		}
		report.TrainersInGrace++
		metrics.GraceTransitionsTotal.WithLabelValues("trainer_grace").Inc()
		return
	}

	if now.After(*m.TrainerGracePeriodEnd) {
		assigned := false
		err := s.membershipRepo.UpdateStatus(ctx, m.ID, repository.MembershipUpdate{
			Status:               m.Status,
			TrainerAssigned:      &assigned,
			ClearTrainerGraceEnd: true,
		})
		if err != nil {
			log.Printf("ERROR: sweep: trainer lapse for %s: %v", m.ID.Hex(), err)
			return
		}
		report.TrainersLapsed++
		metrics.GraceTransitionsTotal.WithLabelValues("trainer_lapsed").Inc()

		if aerr := s.auditSink.Record(ctx, audit.Event{
			ActorID:    "system",
			Action:     audit.ActionTrainerLapsed,
			EntityType: "membership",
			EntityID:   m.ID.Hex(),
		}); aerr != nil {
			log.Printf("ERROR: sweep: recording trainer lapse audit for %s: %v", m.ID.Hex(), aerr)
		}
	}
}

// Delete removes a membership and everything it owns. Proof objects are
// deleted best-effort before the rows.
func (s *membershipService) Delete(ctx context.Context, adminID, membershipID primitive.ObjectID) error {
	if _, err := s.membershipRepo.GetByID(ctx, membershipID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMembershipNotFound
		}
		return err
	}

	payments, err := s.paymentRepo.GetByMembershipID(ctx, membershipID)
	if err != nil {
		return fmt.Errorf("listing payments for cascade: %w", err)
	}
	for _, p := range payments {
		if p.ProofObjectKey == "" {
			continue
		}
		if derr := s.fileStorage.DeleteObject(ctx, p.ProofObjectKey); derr != nil {
			log.Printf("WARN: delete %s: removing proof object %q: %v", membershipID.Hex(), p.ProofObjectKey, derr)
		}
	}

	if err := s.paymentRepo.DeleteByMembershipID(ctx, membershipID); err != nil {
		return fmt.Errorf("cascading payments: %w", err)
	}
	if err := s.addonRepo.DeleteByMembershipID(ctx, membershipID); err != nil {
		return fmt.Errorf("cascading addons: %w", err)
	}
	if err := s.assignmentRepo.DeleteByMembershipID(ctx, membershipID); err != nil {
		return fmt.Errorf("cascading trainer assignments: %w", err)
	}
	if err := s.membershipRepo.Delete(ctx, membershipID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMembershipNotFound
		}
		return err
	}

	if aerr := s.auditSink.Record(ctx, audit.Event{
		ActorID:    adminID.Hex(),
		Action:     audit.ActionMembershipDeleted,
		EntityType: "membership",
		EntityID:   membershipID.Hex(),
		Details:    map[string]string{"cascadedPayments": fmt.Sprintf("%d", len(payments))},
	}); aerr != nil {
		log.Printf("ERROR: delete %s: recording audit event: %v", membershipID.Hex(), aerr)
	}
	return nil
}

func (s *membershipService) ProofDownloadURL(ctx context.Context, paymentID primitive.ObjectID) (string, error) {
	p, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrPaymentNotFound
		}
		return "", err
	}
	if p.ProofObjectKey == "" {
		return "", ErrMissingReference
	}
	return s.fileStorage.GeneratePresignedDownloadURL(ctx, p.ProofObjectKey, storage.DefaultPresignedURLExpiry)
}

package service

import (
	"context"
	"testing"
	"time"

	"gymdesk/membership-app/internal/audit"
	"gymdesk/membership-app/internal/domain"
	"gymdesk/membership-app/internal/notification"
	"gymdesk/membership-app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type approvalFixture struct {
	memberships *fakeMembershipRepo
	payments    *fakePaymentRepo
	addons      *fakeAddonRepo
	assignments *fakeAssignmentRepo
	users       *fakeUserRepo
	notifier    *fakeNotifier
	auditSink   *fakeAuditSink
	invoices    *fakeInvoiceGenerator
	svc         *approvalService
	now         time.Time
	adminID     primitive.ObjectID
}

func newApprovalFixture(t *testing.T) *approvalFixture {
	t.Helper()
	f := &approvalFixture{
		memberships: newFakeMembershipRepo(),
		payments:    newFakePaymentRepo(),
		addons:      newFakeAddonRepo(),
		assignments: newFakeAssignmentRepo(),
		users:       newFakeUserRepo(),
		notifier:    &fakeNotifier{},
		auditSink:   &fakeAuditSink{},
		invoices:    &fakeInvoiceGenerator{},
		now:         date(2024, time.March, 1),
		adminID:     primitive.NewObjectID(),
	}
	classifier := NewPaymentClassifier(f.payments, f.addons, f.assignments)
	svc := NewApprovalService(f.memberships, f.payments, f.addons, f.assignments, f.users, classifier, f.notifier, f.invoices, f.auditSink)
	f.svc = svc.(*approvalService)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *approvalFixture) pendingMembership(planName string, months int) *domain.Membership {
	m := &domain.Membership{
		UserID:             primitive.NewObjectID(),
		PlanName:           planName,
		PlanDurationMonths: months,
		PlanPrice:          1499,
		PlanMode:           domain.ModeInGym,
		Status:             domain.StatusPending,
		CreatedAt:          f.now.Add(-time.Hour),
	}
	return f.memberships.put(m)
}

func (f *approvalFixture) pendingPayment(membershipID primitive.ObjectID, createdAt time.Time) *domain.Payment {
	p := &domain.Payment{
		MembershipID: membershipID,
		Amount:       1499,
		Status:       domain.PaymentPending,
		CreatedAt:    createdAt,
	}
	return f.payments.put(p)
}

func TestApproveInitialPurchase(t *testing.T) {
	f := newApprovalFixture(t)
	m := f.pendingMembership("Regular Monthly", 1)
	payment := f.pendingPayment(m.ID, f.now.Add(-30*time.Minute))

	result, err := f.svc.Approve(context.Background(), m.ID, f.adminID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusActive, result.Membership.Status)
	require.NotNil(t, result.Membership.StartDate)
	require.NotNil(t, result.Membership.EndDate)
	assert.Equal(t, f.now.UTC(), *result.Membership.StartDate)
	assert.Equal(t, date(2024, time.April, 1), *result.Membership.EndDate)

	assert.False(t, result.IsRenewal)
	assert.Equal(t, "inferred_from_payment_count", result.Renewal.String())

	require.NotNil(t, result.Payment)
	assert.Equal(t, payment.ID, result.Payment.ID)
	assert.Equal(t, domain.PaymentVerified, result.Payment.Status)
	require.NotNil(t, result.Classification)
	assert.Equal(t, domain.PurposeInitialPurchase, result.Classification.Purpose)

	// Legacy mirrors move in lockstep.
	stored, err := f.memberships.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.StartDate, stored.MembershipStartDate)
	assert.Equal(t, stored.EndDate, stored.MembershipEndDate)

	approvedNotes := f.notifier.byType(notification.TypeMembershipApproved)
	require.Len(t, approvedNotes, 1)
	assert.Equal(t, m.UserID.Hex(), approvedNotes[0].RecipientID)

	assert.Len(t, f.auditSink.byAction(audit.ActionMembershipApproved), 1)
	assert.Len(t, f.auditSink.byAction(audit.ActionPaymentVerified), 1)

	var invoiceAttempted bool
	for _, a := range result.Attempted {
		if a.Kind == "invoice" {
			invoiceAttempted = true
		}
	}
	assert.True(t, invoiceAttempted, "invoice generation recorded as attempted")
}

func TestApproveVerifiesNewestPaymentRejectsSiblings(t *testing.T) {
	f := newApprovalFixture(t)
	m := f.pendingMembership("Premium", 3)

	oldest := f.pendingPayment(m.ID, f.now.Add(-3*time.Hour))
	middle := f.pendingPayment(m.ID, f.now.Add(-2*time.Hour))
	newest := f.pendingPayment(m.ID, f.now.Add(-time.Hour))

	result, err := f.svc.Approve(context.Background(), m.ID, f.adminID)
	require.NoError(t, err)
	assert.Equal(t, newest.ID, result.Payment.ID)

	all, err := f.payments.GetByMembershipID(context.Background(), m.ID)
	require.NoError(t, err)
	byID := make(map[primitive.ObjectID]domain.PaymentStatus, len(all))
	for _, p := range all {
		byID[p.ID] = p.Status
	}
	assert.Equal(t, domain.PaymentVerified, byID[newest.ID])
	assert.Equal(t, domain.PaymentRejected, byID[oldest.ID])
	assert.Equal(t, domain.PaymentRejected, byID[middle.ID])
}

func TestApproveNotApprovable(t *testing.T) {
	f := newApprovalFixture(t)
	m := f.pendingMembership("Premium", 3)
	require.NoError(t, f.memberships.UpdateStatus(context.Background(), m.ID, repository.MembershipUpdate{Status: domain.StatusActive}))

	_, err := f.svc.Approve(context.Background(), m.ID, f.adminID)
	assert.ErrorIs(t, err, ErrNotApprovable)
}

func TestApproveMembershipNotFound(t *testing.T) {
	f := newApprovalFixture(t)
	_, err := f.svc.Approve(context.Background(), primitive.NewObjectID(), f.adminID)
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}

// conflictingMembershipRepo simulates losing the conditional write race: the
// status guard fails even though the early read saw an approvable row.
type conflictingMembershipRepo struct {
	*fakeMembershipRepo
}

func (r *conflictingMembershipRepo) UpdateStatusConditional(context.Context, primitive.ObjectID, []domain.MembershipStatus, repository.MembershipUpdate) error {
	return repository.ErrUpdateConflict
}

func TestApproveConflictLeavesPaymentVerified(t *testing.T) {
	f := newApprovalFixture(t)
	m := f.pendingMembership("Premium", 3)
	payment := f.pendingPayment(m.ID, f.now.Add(-time.Hour))

	f.svc.membershipRepo = &conflictingMembershipRepo{f.memberships}

	_, err := f.svc.Approve(context.Background(), m.ID, f.adminID)
	assert.ErrorIs(t, err, ErrApprovalConflict)

	// The verified payment is intentionally not rolled back; the audit
	// event makes the inconsistency discoverable.
	stored, err := f.payments.GetByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentVerified, stored.Status)
	assert.Len(t, f.auditSink.byAction(audit.ActionPaymentVerified), 1)
	assert.Empty(t, f.auditSink.byAction(audit.ActionMembershipApproved))
}

func TestApproveRenewalExtendsNonRegularTier(t *testing.T) {
	f := newApprovalFixture(t)
	m := f.pendingMembership("Premium", 3)

	// Grace-period renewal: ended five days ago, renewal payment pending.
	start := f.now.AddDate(0, -3, 0)
	end := f.now.AddDate(0, 0, -5)
	graceEnd := GracePeriodEnd(end)
	m.Status = domain.StatusGracePeriod
	m.StartDate = &start
	m.MembershipStartDate = &start
	m.EndDate = &end
	m.MembershipEndDate = &end
	m.GracePeriodEnd = &graceEnd
	f.memberships.put(m)
	f.pendingPayment(m.ID, f.now.Add(-time.Hour))

	result, err := f.svc.Approve(context.Background(), m.ID, f.adminID)
	require.NoError(t, err)

	assert.True(t, result.IsRenewal, "grace-period approval is a renewal")
	assert.Equal(t, domain.StatusActive, result.Membership.Status)
	assert.Nil(t, result.Membership.GracePeriodEnd, "grace end cleared on reactivation")

	// End date lapsed, so the extension anchors at the approval instant.
	assert.Equal(t, date(2024, time.June, 1), *result.Membership.EndDate)
	assert.Equal(t, start, *result.Membership.StartDate, "original start preserved on extension")
}

func TestApproveRenewalExplicitReference(t *testing.T) {
	f := newApprovalFixture(t)
	prior := f.pendingMembership("Premium", 3)
	m := f.pendingMembership("Premium", 3)
	m.RenewalOfMembershipID = &prior.ID
	f.memberships.put(m)
	f.pendingPayment(m.ID, f.now.Add(-time.Hour))

	result, err := f.svc.Approve(context.Background(), m.ID, f.adminID)
	require.NoError(t, err)
	assert.True(t, result.IsRenewal)
	assert.Equal(t, "explicit_reference", result.Renewal.String())
}

func TestApproveRegularMonthlyRenewalResetsDates(t *testing.T) {
	f := newApprovalFixture(t)
	m := f.pendingMembership("Regular Monthly", 1)

	// Still ten days of runway left; the regular tier resets anyway.
	start := f.now.AddDate(0, -1, 0)
	end := f.now.AddDate(0, 0, 10)
	graceEnd := GracePeriodEnd(end)
	m.Status = domain.StatusGracePeriod
	m.StartDate = &start
	m.EndDate = &end
	m.GracePeriodEnd = &graceEnd
	f.memberships.put(m)
	f.pendingPayment(m.ID, f.now.Add(-time.Hour))

	result, err := f.svc.Approve(context.Background(), m.ID, f.adminID)
	require.NoError(t, err)

	assert.Equal(t, f.now.UTC(), *result.Membership.StartDate, "reset from approval instant")
	assert.Equal(t, date(2024, time.April, 1), *result.Membership.EndDate)
}

func TestApproveActivatesTrainerAddon(t *testing.T) {
	f := newApprovalFixture(t)
	m := f.pendingMembership("Regular Monthly", 1)
	f.pendingPayment(m.ID, f.now.Add(-time.Hour))

	trainerID := primitive.NewObjectID()
	addonID, err := f.addons.Create(context.Background(), &domain.Addon{
		MembershipID: m.ID,
		Type:         domain.AddonPersonalTrainer,
		Price:        500,
	})
	require.NoError(t, err)
	assignmentID, err := f.assignments.Create(context.Background(), &domain.TrainerAssignment{
		MembershipID: m.ID,
		TrainerID:    trainerID,
		Type:         domain.AssignmentAddon,
		Metadata:     domain.AssignmentMetadata{AddonID: &addonID},
	})
	require.NoError(t, err)

	result, err := f.svc.Approve(context.Background(), m.ID, f.adminID)
	require.NoError(t, err)

	assert.True(t, result.Membership.TrainerAssigned)
	require.NotNil(t, result.Membership.TrainerID)
	assert.Equal(t, trainerID, *result.Membership.TrainerID)
	require.NotNil(t, result.Membership.TrainerPeriodEnd)
	// Regular Monthly addon spans the whole membership.
	assert.Equal(t, *result.Membership.EndDate, *result.Membership.TrainerPeriodEnd)

	assignment, err := f.assignments.GetByID(context.Background(), assignmentID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentAssigned, assignment.Status)
	require.NotNil(t, assignment.PeriodEnd)

	addon, err := f.addons.GetByID(context.Background(), addonID)
	require.NoError(t, err)
	assert.Equal(t, domain.AddonActive, addon.Status)
	require.NotNil(t, addon.TrainerID)
	assert.Equal(t, trainerID, *addon.TrainerID)

	assert.Len(t, f.auditSink.byAction(audit.ActionTrainerAssigned), 1)
}

func TestApproveEliteGrantsFreeTrainerWindow(t *testing.T) {
	f := newApprovalFixture(t)
	m := f.pendingMembership("Elite", 6)
	f.pendingPayment(m.ID, f.now.Add(-time.Hour))

	result, err := f.svc.Approve(context.Background(), m.ID, f.adminID)
	require.NoError(t, err)

	assert.True(t, result.Membership.TrainerAssigned)
	require.NotNil(t, result.Membership.TrainerPeriodEnd)
	assert.Equal(t, f.now.UTC().AddDate(0, 0, 30), *result.Membership.TrainerPeriodEnd)
}

// activeMembership seeds an active membership with dates around the fixture
// clock.
func (f *approvalFixture) activeMembership(planName string, start, end time.Time) *domain.Membership {
	m := &domain.Membership{
		UserID:              primitive.NewObjectID(),
		PlanName:            planName,
		PlanDurationMonths:  3,
		PlanPrice:           1499,
		PlanMode:            domain.ModeInGym,
		Status:              domain.StatusActive,
		StartDate:           &start,
		MembershipStartDate: &start,
		EndDate:             &end,
		MembershipEndDate:   &end,
		CreatedAt:           start,
	}
	return f.memberships.put(m)
}

// trainerRenewalRows seeds the payment, addon and assignment a trainer
// renewal request creates, with explicit back-references.
func (f *approvalFixture) trainerRenewalRows(membershipID, trainerID primitive.ObjectID, amount float64) (*domain.Payment, primitive.ObjectID, primitive.ObjectID) {
	purpose := domain.PurposeTrainerRenewal
	payment := f.payments.put(&domain.Payment{
		MembershipID: membershipID,
		Amount:       amount,
		Status:       domain.PaymentPending,
		Purpose:      &purpose,
		CreatedAt:    f.now.Add(-time.Hour),
	})
	addonID, _ := f.addons.Create(context.Background(), &domain.Addon{
		MembershipID: membershipID,
		Type:         domain.AddonPersonalTrainer,
		Price:        amount,
		Status:       domain.AddonPending,
		TrainerID:    &trainerID,
	})
	assignmentID, _ := f.assignments.Create(context.Background(), &domain.TrainerAssignment{
		MembershipID: membershipID,
		TrainerID:    trainerID,
		Type:         domain.AssignmentAddon,
		Status:       domain.AssignmentPending,
		Metadata:     domain.AssignmentMetadata{PaymentID: &payment.ID, AddonID: &addonID},
	})
	return payment, addonID, assignmentID
}

func TestApproveTrainerRenewalExtendsWindowOnly(t *testing.T) {
	f := newApprovalFixture(t)
	start := f.now.AddDate(0, -3, 0)
	end := f.now.AddDate(0, 3, 0)
	m := f.activeMembership("Elite", start, end)

	currentTrainerEnd := f.now.AddDate(0, 0, 10)
	m.TrainerAssigned = true
	m.TrainerPeriodEnd = &currentTrainerEnd
	f.memberships.put(m)

	trainerID := primitive.NewObjectID()
	payment, addonID, assignmentID := f.trainerRenewalRows(m.ID, trainerID, 500)

	result, err := f.svc.Approve(context.Background(), m.ID, f.adminID)
	require.NoError(t, err)

	// Membership status and dates are untouched.
	stored, err := f.memberships.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, stored.Status)
	assert.Equal(t, start, *stored.StartDate)
	assert.Equal(t, end, *stored.EndDate)

	// The trainer window extends one month from the current trainer end.
	require.NotNil(t, stored.TrainerPeriodEnd)
	assert.Equal(t, date(2024, time.April, 11), *stored.TrainerPeriodEnd)
	require.NotNil(t, stored.TrainerID)
	assert.Equal(t, trainerID, *stored.TrainerID)

	verified, err := f.payments.GetByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentVerified, verified.Status)

	addon, err := f.addons.GetByID(context.Background(), addonID)
	require.NoError(t, err)
	assert.Equal(t, domain.AddonActive, addon.Status)

	assignment, err := f.assignments.GetByID(context.Background(), assignmentID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentAssigned, assignment.Status)
	require.NotNil(t, assignment.PeriodStart)
	assert.Equal(t, currentTrainerEnd, *assignment.PeriodStart)
	assert.Equal(t, date(2024, time.April, 11), *assignment.PeriodEnd)

	require.NotNil(t, result.TrainerMatch)
	assert.Equal(t, ConfidenceExplicitReference, result.TrainerMatch.Confidence)

	assert.Len(t, f.notifier.byType(notification.TypeTrainerAssigned), 1)
	assert.Len(t, f.auditSink.byAction(audit.ActionTrainerAssigned), 1)
	assert.Empty(t, f.auditSink.byAction(audit.ActionMembershipApproved))

	var invoicePurpose string
	for _, a := range result.Attempted {
		if a.Kind == "invoice" {
			invoicePurpose = a.Detail
		}
	}
	assert.Equal(t, string(domain.PurposeTrainerRenewal), invoicePurpose)
}

func TestApproveTrainerRenewalClampedToMembershipEnd(t *testing.T) {
	f := newApprovalFixture(t)
	start := f.now.AddDate(0, -2, 0)
	end := f.now.AddDate(0, 0, 20)
	m := f.activeMembership("Premium", start, end)

	f.trainerRenewalRows(m.ID, primitive.NewObjectID(), 500)

	_, err := f.svc.Approve(context.Background(), m.ID, f.adminID)
	require.NoError(t, err)

	stored, err := f.memberships.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TrainerPeriodEnd)
	assert.Equal(t, end, *stored.TrainerPeriodEnd, "window never outlives the membership")
}

func TestApproveActiveNonTrainerPaymentNotApprovable(t *testing.T) {
	f := newApprovalFixture(t)
	start := f.now.AddDate(0, -1, 0)
	end := f.now.AddDate(0, 2, 0)
	m := f.activeMembership("Premium", start, end)

	f.payments.put(&domain.Payment{
		MembershipID: m.ID,
		Amount:       1499,
		Status:       domain.PaymentVerified,
		CreatedAt:    start,
	})
	pending := f.payments.put(&domain.Payment{
		MembershipID: m.ID,
		Amount:       1499,
		Status:       domain.PaymentPending,
		CreatedAt:    f.now.Add(-time.Hour),
	})

	_, err := f.svc.Approve(context.Background(), m.ID, f.adminID)
	assert.ErrorIs(t, err, ErrNotApprovable)

	// The non-trainer payment is untouched.
	stored, err := f.payments.GetByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, stored.Status)
}

func TestRejectIsUnconditional(t *testing.T) {
	f := newApprovalFixture(t)
	m := f.pendingMembership("Premium", 3)
	require.NoError(t, f.memberships.UpdateStatus(context.Background(), m.ID, repository.MembershipUpdate{Status: domain.StatusActive}))

	err := f.svc.Reject(context.Background(), m.ID, f.adminID, "duplicate purchase")
	require.NoError(t, err)

	stored, err := f.memberships.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, stored.Status)

	rejectedNotes := f.notifier.byType(notification.TypeMembershipRejected)
	require.Len(t, rejectedNotes, 1)
	assert.Contains(t, rejectedNotes[0].Content, "duplicate purchase")

	events := f.auditSink.byAction(audit.ActionMembershipRejected)
	require.Len(t, events, 1)
	assert.Equal(t, "duplicate purchase", events[0].Details["reason"])
}

func TestRejectNotFound(t *testing.T) {
	f := newApprovalFixture(t)
	err := f.svc.Reject(context.Background(), primitive.NewObjectID(), f.adminID, "")
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}

package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gymdesk/membership-app/internal/audit"
	"gymdesk/membership-app/internal/domain"
	"gymdesk/membership-app/internal/invoice"
	"gymdesk/membership-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory fakes mirroring the Mongo repositories' contracts (ordering,
// sentinel errors, conditional-update semantics) closely enough for service
// tests.

type fakeMembershipRepo struct {
	mu          sync.Mutex
	memberships map[primitive.ObjectID]*domain.Membership
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{memberships: make(map[primitive.ObjectID]*domain.Membership)}
}

func (r *fakeMembershipRepo) put(m *domain.Membership) *domain.Membership {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == primitive.NilObjectID {
		m.ID = primitive.NewObjectID()
	}
	r.memberships[m.ID] = m
	return m
}

func (r *fakeMembershipRepo) Create(_ context.Context, m *domain.Membership) (primitive.ObjectID, error) {
	if m.Status == "" {
		m.Status = domain.StatusAwaitingPayment
	}
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	return r.put(m).ID, nil
}

func (r *fakeMembershipRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *m
	return &clone, nil
}

func (r *fakeMembershipRepo) GetByUserID(_ context.Context, userID primitive.ObjectID) ([]domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Membership
	for _, m := range r.memberships {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMembershipRepo) ListByStatus(_ context.Context, status domain.MembershipStatus) ([]domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Membership
	for _, m := range r.memberships {
		if m.Status == status {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMembershipRepo) apply(m *domain.Membership, update repository.MembershipUpdate) {
	m.Status = update.Status
	m.UpdatedAt = time.Now().UTC()
	if update.StartDate != nil {
		m.StartDate = update.StartDate
		m.MembershipStartDate = update.StartDate
	}
	if update.EndDate != nil {
		m.EndDate = update.EndDate
		m.MembershipEndDate = update.EndDate
	}
	if update.GracePeriodEnd != nil {
		m.GracePeriodEnd = update.GracePeriodEnd
	}
	if update.ClearGracePeriodEnd {
		m.GracePeriodEnd = nil
	}
	if update.TrainerID != nil {
		m.TrainerID = update.TrainerID
	}
	if update.TrainerAssigned != nil {
		m.TrainerAssigned = *update.TrainerAssigned
	}
	if update.TrainerPeriodEnd != nil {
		m.TrainerPeriodEnd = update.TrainerPeriodEnd
	}
	if update.TrainerGracePeriodEnd != nil {
		m.TrainerGracePeriodEnd = update.TrainerGracePeriodEnd
	}
	if update.ClearTrainerGraceEnd {
		m.TrainerGracePeriodEnd = nil
	}
}

func (r *fakeMembershipRepo) UpdateStatusConditional(_ context.Context, id primitive.ObjectID, expected []domain.MembershipStatus, update repository.MembershipUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[id]
	if !ok {
		return repository.ErrNotFound
	}
	matched := false
	for _, s := range expected {
		if m.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return repository.ErrUpdateConflict
	}
	r.apply(m, update)
	return nil
}

func (r *fakeMembershipRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, update repository.MembershipUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.apply(m, update)
	return nil
}

func (r *fakeMembershipRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.memberships[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.memberships, id)
	return nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments []*domain.Payment
}

func newFakePaymentRepo() *fakePaymentRepo { return &fakePaymentRepo{} }

func (r *fakePaymentRepo) put(p *domain.Payment) *domain.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == primitive.NilObjectID {
		p.ID = primitive.NewObjectID()
	}
	r.payments = append(r.payments, p)
	return p
}

func (r *fakePaymentRepo) Create(_ context.Context, p *domain.Payment) (primitive.ObjectID, error) {
	if p.Status == "" {
		p.Status = domain.PaymentPending
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return r.put(p).ID, nil
}

func (r *fakePaymentRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ID == id {
			clone := *p
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePaymentRepo) forMembership(membershipID primitive.ObjectID) []domain.Payment {
	var out []domain.Payment
	for _, p := range r.payments {
		if p.MembershipID == membershipID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *fakePaymentRepo) GetByMembershipID(_ context.Context, membershipID primitive.ObjectID) ([]domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.forMembership(membershipID), nil
}

func (r *fakePaymentRepo) GetPendingByMembershipID(_ context.Context, membershipID primitive.ObjectID) ([]domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Payment
	for _, p := range r.forMembership(membershipID) {
		if p.Status == domain.PaymentPending {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) CountVerifiedByMembershipID(_ context.Context, membershipID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.payments {
		if p.MembershipID == membershipID && p.Status == domain.PaymentVerified {
			n++
		}
	}
	return n, nil
}

func (r *fakePaymentRepo) MarkVerified(_ context.Context, id primitive.ObjectID, verifiedBy primitive.ObjectID, verifiedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ID == id {
			p.Status = domain.PaymentVerified
			p.VerifiedBy = &verifiedBy
			p.VerifiedAt = &verifiedAt
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakePaymentRepo) MarkRejected(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ID == id {
			p.Status = domain.PaymentRejected
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakePaymentRepo) DeleteByMembershipID(_ context.Context, membershipID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.payments[:0]
	for _, p := range r.payments {
		if p.MembershipID != membershipID {
			kept = append(kept, p)
		}
	}
	r.payments = kept
	return nil
}

type fakeAddonRepo struct {
	mu     sync.Mutex
	addons []*domain.Addon
}

func newFakeAddonRepo() *fakeAddonRepo { return &fakeAddonRepo{} }

func (r *fakeAddonRepo) Create(_ context.Context, a *domain.Addon) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == primitive.NilObjectID {
		a.ID = primitive.NewObjectID()
	}
	if a.Status == "" {
		a.Status = domain.AddonPending
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	r.addons = append(r.addons, a)
	return a.ID, nil
}

func (r *fakeAddonRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Addon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.addons {
		if a.ID == id {
			clone := *a
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAddonRepo) GetByMembershipID(_ context.Context, membershipID primitive.ObjectID) ([]domain.Addon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Addon
	for _, a := range r.addons {
		if a.MembershipID == membershipID {
			out = append(out, *a)
		}
	}
	// Newest first, matching the Mongo repository.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeAddonRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, status domain.AddonStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.addons {
		if a.ID == id {
			a.Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeAddonRepo) SetTrainer(_ context.Context, id, trainerID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.addons {
		if a.ID == id {
			a.TrainerID = &trainerID
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeAddonRepo) DeleteByMembershipID(_ context.Context, membershipID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.addons[:0]
	for _, a := range r.addons {
		if a.MembershipID != membershipID {
			kept = append(kept, a)
		}
	}
	r.addons = kept
	return nil
}

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	assignments []*domain.TrainerAssignment
}

func newFakeAssignmentRepo() *fakeAssignmentRepo { return &fakeAssignmentRepo{} }

func (r *fakeAssignmentRepo) Create(_ context.Context, a *domain.TrainerAssignment) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == primitive.NilObjectID {
		a.ID = primitive.NewObjectID()
	}
	if a.Status == "" {
		a.Status = domain.AssignmentPending
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	r.assignments = append(r.assignments, a)
	return a.ID, nil
}

func (r *fakeAssignmentRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.TrainerAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assignments {
		if a.ID == id {
			clone := *a
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAssignmentRepo) GetByMembershipID(_ context.Context, membershipID primitive.ObjectID) ([]domain.TrainerAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TrainerAssignment
	for _, a := range r.assignments {
		if a.MembershipID == membershipID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeAssignmentRepo) GetPendingByMembershipID(_ context.Context, membershipID primitive.ObjectID) (*domain.TrainerAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newest *domain.TrainerAssignment
	for _, a := range r.assignments {
		if a.MembershipID != membershipID || a.Status != domain.AssignmentPending {
			continue
		}
		if newest == nil || a.CreatedAt.After(newest.CreatedAt) {
			newest = a
		}
	}
	if newest == nil {
		return nil, repository.ErrNotFound
	}
	clone := *newest
	return &clone, nil
}

func (r *fakeAssignmentRepo) GetByPaymentRef(_ context.Context, paymentID primitive.ObjectID) (*domain.TrainerAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assignments {
		if a.Metadata.PaymentID != nil && *a.Metadata.PaymentID == paymentID {
			clone := *a
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAssignmentRepo) Update(_ context.Context, updated *domain.TrainerAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.assignments {
		if a.ID == updated.ID {
			clone := *updated
			r.assignments[i] = &clone
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeAssignmentRepo) DeleteByMembershipID(_ context.Context, membershipID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.assignments[:0]
	for _, a := range r.assignments {
		if a.MembershipID != membershipID {
			kept = append(kept, a)
		}
	}
	r.assignments = kept
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == primitive.NilObjectID {
		u.ID = primitive.NewObjectID()
	}
	r.users[u.ID] = u
	return u.ID, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

type sentNotification struct {
	RecipientID string
	Type        string
	Content     string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *fakeNotifier) Notify(_ context.Context, recipientID, notificationType, content string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{recipientID, notificationType, content})
	return nil
}

func (n *fakeNotifier) byType(notificationType string) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.Type == notificationType {
			out = append(out, s)
		}
	}
	return out
}

type fakeAuditSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *fakeAuditSink) Record(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *fakeAuditSink) byAction(action string) []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fakeInvoiceGenerator struct {
	mu       sync.Mutex
	requests []invoice.Request
}

func (g *fakeInvoiceGenerator) Generate(_ context.Context, req invoice.Request) (*invoice.Ref, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return &invoice.Ref{ID: "inv-" + req.PaymentID, ObjectKey: "invoices/" + req.PaymentID}, nil
}

type fakeFileStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeFileStorage() *fakeFileStorage {
	return &fakeFileStorage{objects: make(map[string][]byte)}
}

func (f *fakeFileStorage) GeneratePresignedUploadURL(_ context.Context, objectKey, _ string, _ time.Duration) (string, error) {
	return "https://storage.test/upload/" + objectKey, nil
}

func (f *fakeFileStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://storage.test/download/" + objectKey, nil
}

func (f *fakeFileStorage) UploadObject(_ context.Context, objectKey, _ string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectKey] = body
	return nil
}

func (f *fakeFileStorage) DeleteObject(_ context.Context, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectKey)
	f.deleted = append(f.deleted, objectKey)
	return nil
}

package repository

import (
	"context"
	"time"

	"gymdesk/membership-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound       = RepositoryError("not found")
	ErrUpdateFailed   = RepositoryError("update failed")
	ErrUpdateConflict = RepositoryError("conditional update lost the race")
	ErrDeleteFailed   = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// MembershipUpdate is the field set a conditional status transition may
// write. Nil pointers are left untouched; the Clear* flags unset fields.
type MembershipUpdate struct {
	Status                domain.MembershipStatus
	StartDate             *time.Time
	EndDate               *time.Time
	GracePeriodEnd        *time.Time
	ClearGracePeriodEnd   bool
	TrainerID             *primitive.ObjectID
	TrainerAssigned       *bool
	TrainerPeriodEnd      *time.Time
	TrainerGracePeriodEnd *time.Time
	ClearTrainerGraceEnd  bool
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// MembershipRepository defines the interface for interacting with
// membership data. Status transitions go through UpdateStatusConditional,
// a compare-and-swap style write that only succeeds while the stored
// status is still in the expected set.
type MembershipRepository interface {
	Create(ctx context.Context, m *domain.Membership) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Membership, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Membership, error)
	ListByStatus(ctx context.Context, status domain.MembershipStatus) ([]domain.Membership, error)
	// UpdateStatusConditional applies update iff the stored status is in
	// expected. Returns ErrUpdateConflict when the guard does not match.
	UpdateStatusConditional(ctx context.Context, id primitive.ObjectID, expected []domain.MembershipStatus, update MembershipUpdate) error
	// UpdateStatus applies update without a status guard (rejection is
	// unconditional).
	UpdateStatus(ctx context.Context, id primitive.ObjectID, update MembershipUpdate) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// PaymentRepository defines the interface for interacting with payment data.
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Payment, error)
	// GetByMembershipID returns payments ordered by createdAt ascending.
	GetByMembershipID(ctx context.Context, membershipID primitive.ObjectID) ([]domain.Payment, error)
	GetPendingByMembershipID(ctx context.Context, membershipID primitive.ObjectID) ([]domain.Payment, error)
	CountVerifiedByMembershipID(ctx context.Context, membershipID primitive.ObjectID) (int64, error)
	MarkVerified(ctx context.Context, id primitive.ObjectID, verifiedBy primitive.ObjectID, verifiedAt time.Time) error
	MarkRejected(ctx context.Context, id primitive.ObjectID) error
	DeleteByMembershipID(ctx context.Context, membershipID primitive.ObjectID) error
}

// AddonRepository defines the interface for interacting with addon data.
type AddonRepository interface {
	Create(ctx context.Context, a *domain.Addon) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Addon, error)
	GetByMembershipID(ctx context.Context, membershipID primitive.ObjectID) ([]domain.Addon, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.AddonStatus) error
	SetTrainer(ctx context.Context, id, trainerID primitive.ObjectID) error
	DeleteByMembershipID(ctx context.Context, membershipID primitive.ObjectID) error
}

// TrainerAssignmentRepository defines the interface for interacting with
// trainer assignment data.
type TrainerAssignmentRepository interface {
	Create(ctx context.Context, a *domain.TrainerAssignment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainerAssignment, error)
	GetByMembershipID(ctx context.Context, membershipID primitive.ObjectID) ([]domain.TrainerAssignment, error)
	GetPendingByMembershipID(ctx context.Context, membershipID primitive.ObjectID) (*domain.TrainerAssignment, error)
	// GetByPaymentRef resolves an assignment through its explicit
	// metadata.paymentId back-reference.
	GetByPaymentRef(ctx context.Context, paymentID primitive.ObjectID) (*domain.TrainerAssignment, error)
	Update(ctx context.Context, a *domain.TrainerAssignment) error
	DeleteByMembershipID(ctx context.Context, membershipID primitive.ObjectID) error
}

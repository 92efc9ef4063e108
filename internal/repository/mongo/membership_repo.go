package mongo

import (
	"context"
	"errors"
	"time"

	"gymdesk/membership-app/internal/domain"
	"gymdesk/membership-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const membershipCollectionName = "memberships"

// mongoMembershipRepository implements repository.MembershipRepository
type mongoMembershipRepository struct {
	collection *mongo.Collection
}

// NewMongoMembershipRepository creates a new Membership repository backed by MongoDB.
func NewMongoMembershipRepository(db *mongo.Database) repository.MembershipRepository {
	return &mongoMembershipRepository{
		collection: db.Collection(membershipCollectionName),
	}
}

// Create inserts a new membership into the database.
func (r *mongoMembershipRepository) Create(ctx context.Context, m *domain.Membership) (primitive.ObjectID, error) {
	if m.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("membership requires userId")
	}
	if m.PlanName == "" {
		return primitive.NilObjectID, errors.New("membership requires a plan name")
	}

	m.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.Status == "" {
		m.Status = domain.StatusAwaitingPayment
	}

	result, err := r.collection.InsertOne(ctx, m)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted membership ID")
	}
	return insertedID, nil
}

// GetByID retrieves a membership by its ID.
func (r *mongoMembershipRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Membership, error) {
	var m domain.Membership
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetByUserID retrieves all memberships owned by a user, newest first.
func (r *mongoMembershipRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Membership, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

// ListByStatus retrieves all memberships currently in the given status.
func (r *mongoMembershipRepository) ListByStatus(ctx context.Context, status domain.MembershipStatus) ([]domain.Membership, error) {
	return r.find(ctx, bson.M{"status": status})
}

func (r *mongoMembershipRepository) find(ctx context.Context, filter bson.M) ([]domain.Membership, error) {
	var memberships []domain.Membership
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &memberships); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return memberships, nil
}

// UpdateStatusConditional performs the compare-and-swap status write: the
// update only matches while the stored status is still in the expected set,
// so two concurrent approvals cannot both succeed.
func (r *mongoMembershipRepository) UpdateStatusConditional(ctx context.Context, id primitive.ObjectID, expected []domain.MembershipStatus, update repository.MembershipUpdate) error {
	if id == primitive.NilObjectID {
		return errors.New("membership ID is required for update")
	}
	if len(expected) == 0 {
		return errors.New("expected status set must not be empty")
	}

	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": expected},
	}

	result, err := r.collection.UpdateOne(ctx, filter, buildMembershipUpdate(update))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Either the row is gone or the status guard failed; distinguish
		// so callers can report a conflict instead of a missing row.
		exists, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if err == nil && exists == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrUpdateConflict
	}
	return nil
}

// UpdateStatus applies an update without a status guard. Rejection and the
// trainer grace fields go through here; they apply regardless of the
// membership's current status.
func (r *mongoMembershipRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, update repository.MembershipUpdate) error {
	if id == primitive.NilObjectID {
		return errors.New("membership ID is required for update")
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, buildMembershipUpdate(update))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// buildMembershipUpdate translates a MembershipUpdate into the Mongo update
// document. Legacy date mirrors are kept in lockstep with the primary
// fields; older readers only look at the membership* names.
func buildMembershipUpdate(update repository.MembershipUpdate) bson.M {
	setFields := bson.M{
		"status":    update.Status,
		"updatedAt": time.Now().UTC(),
	}
	unsetFields := bson.M{}

	if update.StartDate != nil {
		setFields["startDate"] = *update.StartDate
		setFields["membershipStartDate"] = *update.StartDate
	}
	if update.EndDate != nil {
		setFields["endDate"] = *update.EndDate
		setFields["membershipEndDate"] = *update.EndDate
	}
	if update.GracePeriodEnd != nil {
		setFields["gracePeriodEnd"] = *update.GracePeriodEnd
	}
	if update.ClearGracePeriodEnd {
		unsetFields["gracePeriodEnd"] = ""
	}
	if update.TrainerID != nil {
		setFields["trainerId"] = *update.TrainerID
	}
	if update.TrainerAssigned != nil {
		setFields["trainerAssigned"] = *update.TrainerAssigned
	}
	if update.TrainerPeriodEnd != nil {
		setFields["trainerPeriodEnd"] = *update.TrainerPeriodEnd
	}
	if update.TrainerGracePeriodEnd != nil {
		setFields["trainerGracePeriodEnd"] = *update.TrainerGracePeriodEnd
	}
	if update.ClearTrainerGraceEnd {
		unsetFields["trainerGracePeriodEnd"] = ""
	}

	updateDoc := bson.M{"$set": setFields}
	if len(unsetFields) > 0 {
		updateDoc["$unset"] = unsetFields
	}
	return updateDoc
}

// Delete removes a membership row. Cascading of owned payments, addons and
// assignments is the service layer's job.
func (r *mongoMembershipRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureMembershipIndexes creates necessary indexes for the memberships collection.
func EnsureMembershipIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index(),
		},
		{
			// The grace sweep scans by status and end date.
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "endDate", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "gracePeriodEnd", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}

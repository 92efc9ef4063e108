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

const assignmentCollectionName = "trainer_assignments"

// mongoAssignmentRepository implements repository.TrainerAssignmentRepository
type mongoAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoAssignmentRepository creates a new TrainerAssignment repository backed by MongoDB.
func NewMongoAssignmentRepository(db *mongo.Database) repository.TrainerAssignmentRepository {
	return &mongoAssignmentRepository{
		collection: db.Collection(assignmentCollectionName),
	}
}

// Create inserts a new trainer assignment into the database.
func (r *mongoAssignmentRepository) Create(ctx context.Context, a *domain.TrainerAssignment) (primitive.ObjectID, error) {
	if a.MembershipID == primitive.NilObjectID || a.TrainerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("assignment requires membershipId and trainerId")
	}

	a.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = domain.AssignmentPending
	}

	result, err := r.collection.InsertOne(ctx, a)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted assignment ID")
	}
	return insertedID, nil
}

// GetByID retrieves a trainer assignment by its ID.
func (r *mongoAssignmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainerAssignment, error) {
	var a domain.TrainerAssignment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetByMembershipID retrieves all trainer assignments for a membership,
// newest first.
func (r *mongoAssignmentRepository) GetByMembershipID(ctx context.Context, membershipID primitive.ObjectID) ([]domain.TrainerAssignment, error) {
	var assignments []domain.TrainerAssignment
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"membershipId": membershipID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// GetPendingByMembershipID retrieves the newest pending assignment for a
// membership, or ErrNotFound.
func (r *mongoAssignmentRepository) GetPendingByMembershipID(ctx context.Context, membershipID primitive.ObjectID) (*domain.TrainerAssignment, error) {
	var a domain.TrainerAssignment
	filter := bson.M{"membershipId": membershipID, "status": domain.AssignmentPending}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetByPaymentRef resolves an assignment through its explicit
// metadata.paymentId back-reference. This is the confident correlation
// path; time-window and price matching are fallbacks for legacy rows.
func (r *mongoAssignmentRepository) GetByPaymentRef(ctx context.Context, paymentID primitive.ObjectID) (*domain.TrainerAssignment, error) {
	var a domain.TrainerAssignment
	err := r.collection.FindOne(ctx, bson.M{"metadata.paymentId": paymentID}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Update modifies an existing assignment's period, status and trainer.
func (r *mongoAssignmentRepository) Update(ctx context.Context, a *domain.TrainerAssignment) error {
	if a.ID == primitive.NilObjectID {
		return errors.New("assignment ID is required for update")
	}

	setFields := bson.M{
		"status":    a.Status,
		"trainerId": a.TrainerID,
		"metadata":  a.Metadata,
		"updatedAt": time.Now().UTC(),
	}
	if a.PeriodStart != nil {
		setFields["periodStart"] = *a.PeriodStart
	}
	if a.PeriodEnd != nil {
		setFields["periodEnd"] = *a.PeriodEnd
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": a.ID}, bson.M{"$set": setFields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByMembershipID removes all assignments owned by a membership (cascade).
func (r *mongoAssignmentRepository) DeleteByMembershipID(ctx context.Context, membershipID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"membershipId": membershipID})
	return err
}

// EnsureAssignmentIndexes creates necessary indexes for the assignments collection.
func EnsureAssignmentIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "membershipId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "metadata.paymentId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}

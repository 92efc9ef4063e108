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

const paymentCollectionName = "membership_payments"

// mongoPaymentRepository implements repository.PaymentRepository
type mongoPaymentRepository struct {
	collection *mongo.Collection
}

// NewMongoPaymentRepository creates a new Payment repository backed by MongoDB.
func NewMongoPaymentRepository(db *mongo.Database) repository.PaymentRepository {
	return &mongoPaymentRepository{
		collection: db.Collection(paymentCollectionName),
	}
}

// Create inserts a new payment into the database.
func (r *mongoPaymentRepository) Create(ctx context.Context, p *domain.Payment) (primitive.ObjectID, error) {
	if p.MembershipID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("payment requires membershipId")
	}

	p.ID = primitive.NewObjectID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Status == "" {
		p.Status = domain.PaymentPending
	}

	result, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted payment ID")
	}
	return insertedID, nil
}

// GetByID retrieves a payment by its ID.
func (r *mongoPaymentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Payment, error) {
	var p domain.Payment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetByMembershipID retrieves all payments for a membership, oldest first.
// The ascending order matters: the classifier treats the chronologically
// first payment as the initial purchase.
func (r *mongoPaymentRepository) GetByMembershipID(ctx context.Context, membershipID primitive.ObjectID) ([]domain.Payment, error) {
	return r.find(ctx, bson.M{"membershipId": membershipID})
}

// GetPendingByMembershipID retrieves pending payments for a membership,
// oldest first.
func (r *mongoPaymentRepository) GetPendingByMembershipID(ctx context.Context, membershipID primitive.ObjectID) ([]domain.Payment, error) {
	return r.find(ctx, bson.M{"membershipId": membershipID, "status": domain.PaymentPending})
}

func (r *mongoPaymentRepository) find(ctx context.Context, filter bson.M) ([]domain.Payment, error) {
	var payments []domain.Payment
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

// CountVerifiedByMembershipID counts verified payments; used as the legacy
// renewal inference when no explicit renewal reference exists.
func (r *mongoPaymentRepository) CountVerifiedByMembershipID(ctx context.Context, membershipID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"membershipId": membershipID,
		"status":       domain.PaymentVerified,
	})
}

// MarkVerified flips a payment to verified and records the verifier.
func (r *mongoPaymentRepository) MarkVerified(ctx context.Context, id primitive.ObjectID, verifiedBy primitive.ObjectID, verifiedAt time.Time) error {
	update := bson.M{"$set": bson.M{
		"status":     domain.PaymentVerified,
		"verifiedBy": verifiedBy,
		"verifiedAt": verifiedAt,
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkRejected flips a payment to rejected.
func (r *mongoPaymentRepository) MarkRejected(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status": domain.PaymentRejected,
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByMembershipID removes all payments owned by a membership (cascade).
func (r *mongoPaymentRepository) DeleteByMembershipID(ctx context.Context, membershipID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"membershipId": membershipID})
	return err
}

// EnsurePaymentIndexes creates necessary indexes for the payments collection.
func EnsurePaymentIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "membershipId", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "membershipId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}

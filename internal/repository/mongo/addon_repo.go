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

const addonCollectionName = "membership_addons"

// mongoAddonRepository implements repository.AddonRepository
type mongoAddonRepository struct {
	collection *mongo.Collection
}

// NewMongoAddonRepository creates a new Addon repository backed by MongoDB.
func NewMongoAddonRepository(db *mongo.Database) repository.AddonRepository {
	return &mongoAddonRepository{
		collection: db.Collection(addonCollectionName),
	}
}

// Create inserts a new addon into the database.
func (r *mongoAddonRepository) Create(ctx context.Context, a *domain.Addon) (primitive.ObjectID, error) {
	if a.MembershipID == primitive.NilObjectID || a.Type == "" {
		return primitive.NilObjectID, errors.New("addon requires membershipId and addonType")
	}

	a.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = domain.AddonPending
	}

	result, err := r.collection.InsertOne(ctx, a)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted addon ID")
	}
	return insertedID, nil
}

// GetByID retrieves an addon by its ID.
func (r *mongoAddonRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Addon, error) {
	var a domain.Addon
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetByMembershipID retrieves all addons for a membership, newest first.
func (r *mongoAddonRepository) GetByMembershipID(ctx context.Context, membershipID primitive.ObjectID) ([]domain.Addon, error) {
	var addons []domain.Addon
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"membershipId": membershipID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &addons); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return addons, nil
}

// UpdateStatus flips the addon status (pending -> active on approval).
func (r *mongoAddonRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.AddonStatus) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetTrainer backfills the trainer reference on a trainer addon.
func (r *mongoAddonRepository) SetTrainer(ctx context.Context, id, trainerID primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"trainerId": trainerID,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByMembershipID removes all addons owned by a membership (cascade).
func (r *mongoAddonRepository) DeleteByMembershipID(ctx context.Context, membershipID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"membershipId": membershipID})
	return err
}

// EnsureAddonIndexes creates necessary indexes for the addons collection.
func EnsureAddonIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "membershipId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "addonType", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}

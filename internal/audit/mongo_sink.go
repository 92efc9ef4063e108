package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const auditCollectionName = "audit_events"

// mongoSink implements Sink against an audit_events collection.
type mongoSink struct {
	collection *mongo.Collection
}

// NewMongoSink creates an audit sink backed by MongoDB.
func NewMongoSink(db *mongo.Database) Sink {
	return &mongoSink{collection: db.Collection(auditCollectionName)}
}

// Record inserts one audit event.
func (s *mongoSink) Record(ctx context.Context, event Event) error {
	event.ID = primitive.NewObjectID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.collection.InsertOne(ctx, event)
	return err
}

// EnsureAuditIndexes creates necessary indexes for the audit collection.
func EnsureAuditIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "entityType", Value: 1}, {Key: "entityId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "action", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}

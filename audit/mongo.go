package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoRecorder stores entries in a capped-by-TTL collection
type MongoRecorder struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        *zap.Logger
}

func NewMongoRecorder(uri, database, collection string, log *zap.Logger) (*MongoRecorder, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(90 * 24 * 3600)},
	})
	if err != nil {
		log.Warn("Failed to create audit indexes", zap.Error(err))
	}

	return &MongoRecorder{client: client, collection: coll, log: log}, nil
}

func (m *MongoRecorder) Record(ctx context.Context, e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	// the request context may be cancelled once the response is written
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if _, err := m.collection.InsertOne(ctx, e); err != nil {
		m.log.Error("Failed to write audit entry", zap.String("action", e.Action), zap.Error(err))
	}
}

// Recent returns the newest entries for a user
func (m *MongoRecorder) Recent(ctx context.Context, userID string, limit int64) ([]Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := m.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	return readEntries(ctx, cursor)
}

// readEntries drains the cursor; no documents yields an empty, non-nil slice
func readEntries(ctx context.Context, cursor *mongo.Cursor) ([]Entry, error) {
	defer cursor.Close(ctx)

	entries := []Entry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (m *MongoRecorder) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

var _ Reader = (*MongoRecorder)(nil)

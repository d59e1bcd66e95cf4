package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNotConnected is returned by Save and History when the initial connection
// never succeeded. Callers are expected to degrade rather than fail.
var ErrNotConnected = errors.New("conversation store is not connected")

// MongoStore persists conversation records in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoStore connects to MongoDB, verifies liveness with a ping bounded by
// timeout, and ensures the (session_id, timestamp desc) index used by history
// queries.
func NewMongoStore(uri, database, collection string, timeout time.Duration) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		// Release whatever the driver allocated; the caller only sees the
		// failed probe.
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), timeout)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, fmt.Errorf("MongoDB liveness probe failed: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "session_id", Value: 1},
			{Key: "timestamp", Value: -1},
		},
	}
	if _, err := coll.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, fmt.Errorf("failed to create history index: %w", err)
	}

	return &MongoStore{client: client, collection: coll, timeout: timeout}, nil
}

// Save appends a conversation record stamped with the current UTC time.
func (s *MongoStore) Save(ctx context.Context, sessionID, question, answer string, metadata map[string]string) error {
	if s == nil || s.collection == nil {
		return ErrNotConnected
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	record := ConversationRecord{
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// History returns up to limit records for the session, newest first. An
// unknown session yields an empty slice, not an error.
func (s *MongoStore) History(ctx context.Context, sessionID string, limit int64) ([]ConversationRecord, error) {
	if s == nil || s.collection == nil {
		return nil, ErrNotConnected
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)
	cursor, err := s.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer cursor.Close(ctx)

	var records []ConversationRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return records, nil
}

// Close releases the connection. Idempotent and safe even if the connection
// was never established.
func (s *MongoStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := s.client.Disconnect(ctx)
	s.client = nil
	if err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
		return err
	}
	return nil
}

// Package storage persists job summaries outside the process.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoJobStore writes one summary document per terminal job.
type MongoJobStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoJobStore connects to uri and verifies the connection.
func NewMongoJobStore(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoJobStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoJobStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_job_store"),
	}, nil
}

// Record upserts the summary of a terminal job keyed by its id.
func (s *MongoJobStore) Record(ctx context.Context, state models.JobState) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": state.JobID},
		jobDocument(state),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongodb upsert job %s: %w", state.JobID, err)
	}
	s.logger.Debug("job recorded", slog.String("job_id", state.JobID), slog.String("status", string(state.Status)))
	return nil
}

// Close disconnects the client.
func (s *MongoJobStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func jobDocument(state models.JobState) bson.M {
	doc := bson.M{
		"_id":           state.JobID,
		"status":        string(state.Status),
		"total_pages":   state.TotalPages,
		"scraped_pages": state.ScrapedPages,
		"total_items":   state.TotalItems,
		"scraped_items": state.ScrapedItems,
		"kept_items":    state.KeptItems,
		"export_bytes":  len(state.Export),
	}
	if state.Reason != "" {
		doc["reason"] = state.Reason
	}
	if state.StartedAt != nil {
		doc["started_at"] = *state.StartedAt
	}
	if state.FinishedAt != nil {
		doc["finished_at"] = *state.FinishedAt
	}
	return doc
}

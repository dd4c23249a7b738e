package historyRepo

import (
	"context"
	"fmt"
	"time"

	"bookline/database"
	"bookline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoHistoryRepo implements HistoryRepository using MongoDB.
type MongoHistoryRepo struct {
	coll *mongo.Collection
}

// NewMongoHistoryRepo creates a HistoryRepository over the bookline database.
func NewMongoHistoryRepo() HistoryRepository {
	repo := &MongoHistoryRepo{
		coll: database.MongoClient.Database("bookline").Collection("service_time_samples"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("warning: failed to ensure sample indexes: %v\n", err)
	}
	return repo
}

func (r *MongoHistoryRepo) Append(ctx context.Context, sample models.ServiceTimeSample) error {
	if _, err := r.coll.InsertOne(ctx, sample); err != nil {
		return fmt.Errorf("failed to append service-time sample: %w", err)
	}
	return nil
}

func (r *MongoHistoryRepo) RecentByShop(ctx context.Context, shopID string, n int) ([]models.ServiceTimeSample, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "completedAt", Value: -1}}).
		SetLimit(int64(n))
	cursor, err := r.coll.Find(ctx, bson.M{"shopId": shopID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples for shop %s: %w", shopID, err)
	}
	defer cursor.Close(ctx)

	var samples []models.ServiceTimeSample
	if err := cursor.All(ctx, &samples); err != nil {
		return nil, fmt.Errorf("failed to decode samples: %w", err)
	}
	return samples, nil
}

func (r *MongoHistoryRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "shopId", Value: 1}, {Key: "completedAt", Value: -1}},
	})
	return err
}

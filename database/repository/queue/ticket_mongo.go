package queueRepo

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

// MongoTicketRepo implements TicketRepository using MongoDB.
type MongoTicketRepo struct {
	coll *mongo.Collection
}

// NewMongoTicketRepo creates a TicketRepository over the bookline database.
func NewMongoTicketRepo() TicketRepository {
	repo := &MongoTicketRepo{
		coll: database.MongoClient.Database("bookline").Collection("queue_tickets"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("warning: failed to ensure ticket indexes: %v\n", err)
	}
	return repo
}

func (r *MongoTicketRepo) Insert(ctx context.Context, ticket *models.QueueTicket) error {
	if _, err := r.coll.InsertOne(ctx, ticket); err != nil {
		return fmt.Errorf("failed to insert ticket %s: %w", ticket.ID, err)
	}
	return nil
}

func (r *MongoTicketRepo) Update(ctx context.Context, ticket *models.QueueTicket) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"id": ticket.ID}, ticket)
	if err != nil {
		return fmt.Errorf("failed to update ticket %s: %w", ticket.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("ticket %s not found", ticket.ID)
	}
	return nil
}

func (r *MongoTicketRepo) UpdatePositions(ctx context.Context, shopID string, positions map[string]int) error {
	if len(positions) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(positions))
	for ticketID, pos := range positions {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"id": ticketID, "shopId": shopID}).
			SetUpdate(bson.M{"$set": bson.M{"position": pos}}))
	}
	if _, err := r.coll.BulkWrite(ctx, writes); err != nil {
		return fmt.Errorf("failed to write positions for shop %s: %w", shopID, err)
	}
	return nil
}

func (r *MongoTicketRepo) ActiveByShop(ctx context.Context, shopID string) ([]models.QueueTicket, error) {
	filter := bson.M{
		"shopId": shopID,
		"status": bson.M{"$in": bson.A{models.TicketWaiting, models.TicketCalled, models.TicketServing}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query active tickets for shop %s: %w", shopID, err)
	}
	defer cursor.Close(ctx)

	var tickets []models.QueueTicket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("failed to decode tickets: %w", err)
	}
	return tickets, nil
}

func (r *MongoTicketRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}},
		{Keys: bson.D{{Key: "shopId", Value: 1}, {Key: "status", Value: 1}, {Key: "position", Value: 1}}},
	})
	return err
}

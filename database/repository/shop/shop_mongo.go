package shopRepo

import (
	"context"
	"fmt"
	"time"

	"bookline/database"
	"bookline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoShopRepo implements ShopRepository using MongoDB.
type MongoShopRepo struct {
	shopColl       *mongo.Collection
	serviceColl    *mongo.Collection
	specialistColl *mongo.Collection
	ruleColl       *mongo.Collection
}

// NewMongoShopRepo creates a ShopRepository over the bookline database.
func NewMongoShopRepo() ShopRepository {
	db := database.MongoClient.Database("bookline")
	repo := &MongoShopRepo{
		shopColl:       db.Collection("shops"),
		serviceColl:    db.Collection("services"),
		specialistColl: db.Collection("specialists"),
		ruleColl:       db.Collection("service_rules"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("warning: failed to ensure shop indexes: %v\n", err)
	}
	return repo
}

func (r *MongoShopRepo) GetShop(ctx context.Context, shopID string) (*models.Shop, error) {
	var shop models.Shop
	if err := r.shopColl.FindOne(ctx, bson.M{"id": shopID}).Decode(&shop); err != nil {
		return nil, fmt.Errorf("failed to fetch shop %s: %w", shopID, err)
	}
	return &shop, nil
}

func (r *MongoShopRepo) GetService(ctx context.Context, serviceID string) (*models.Service, error) {
	var svc models.Service
	if err := r.serviceColl.FindOne(ctx, bson.M{"id": serviceID}).Decode(&svc); err != nil {
		return nil, fmt.Errorf("failed to fetch service %s: %w", serviceID, err)
	}
	return &svc, nil
}

func (r *MongoShopRepo) GetSpecialistsForService(ctx context.Context, serviceID string) ([]models.Specialist, error) {
	cursor, err := r.specialistColl.Find(ctx, bson.M{"serviceIds": serviceID})
	if err != nil {
		return nil, fmt.Errorf("failed to query specialists for service %s: %w", serviceID, err)
	}
	defer cursor.Close(ctx)

	var specialists []models.Specialist
	if err := cursor.All(ctx, &specialists); err != nil {
		return nil, fmt.Errorf("failed to decode specialists: %w", err)
	}
	return specialists, nil
}

func (r *MongoShopRepo) GetServiceRule(ctx context.Context, serviceID string, weekday time.Weekday) (*models.ServiceAvailabilityRule, error) {
	var rule models.ServiceAvailabilityRule
	filter := bson.M{"serviceId": serviceID, "weekday": weekday}
	err := r.ruleColl.FindOne(ctx, filter).Decode(&rule)
	if err == mongo.ErrNoDocuments {
		return nil, nil // no rule: service inherits shop hours
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch availability rule for service %s: %w", serviceID, err)
	}
	return &rule, nil
}

// ensureIndexes creates indexes for the lookups above.
func (r *MongoShopRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := r.shopColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "id", Value: 1}},
	}); err != nil {
		return err
	}
	if _, err := r.specialistColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "serviceIds", Value: 1}},
	}); err != nil {
		return err
	}
	_, err := r.ruleColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "serviceId", Value: 1}, {Key: "weekday", Value: 1}},
	})
	return err
}

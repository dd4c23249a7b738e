package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookline/database"
	"bookline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrConflict is returned when the transactional overlap check finds a live
// booking intersecting the requested interval.
var ErrConflict = errors.New("overlapping booking exists")

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo creates a BookingRepository over the bookline database.
func NewMongoBookingRepo() BookingRepository {
	repo := &MongoBookingRepo{
		coll: database.MongoClient.Database("bookline").Collection("bookings"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("warning: failed to ensure booking indexes: %v\n", err)
	}
	return repo
}

func (r *MongoBookingRepo) ReserveTransactionally(ctx context.Context, booking *models.Booking) error {
	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		// Overlap check: any live booking for this specialist-day whose
		// half-open interval intersects the requested one.
		filter := bson.M{
			"specialistId":   booking.SpecialistID,
			"date":           booking.Date,
			"status":         bson.M{"$in": bson.A{models.BookingPending, models.BookingConfirmed}},
			"interval.start": bson.M{"$lt": booking.Interval.End},
			"interval.end":   bson.M{"$gt": booking.Interval.Start},
		}
		count, err := r.coll.CountDocuments(sc, filter)
		if err != nil {
			return fmt.Errorf("overlap check failed: %w", err)
		}
		if count > 0 {
			return ErrConflict
		}
		if _, err := r.coll.InsertOne(sc, booking); err != nil {
			return fmt.Errorf("insert booking failed: %w", err)
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		if errors.Is(err, ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("reservation transaction failed: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.coll.FindOne(ctx, bson.M{"id": bookingID}).Decode(&booking); err != nil {
		return nil, fmt.Errorf("failed to fetch booking %s: %w", bookingID, err)
	}
	return &booking, nil
}

func (r *MongoBookingRepo) FindLiveBySpecialistDate(ctx context.Context, specialistID, date string) ([]models.Booking, error) {
	filter := bson.M{
		"specialistId": specialistID,
		"date":         date,
		"status":       bson.M{"$in": bson.A{models.BookingPending, models.BookingConfirmed}},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings for specialist %s on %s: %w", specialistID, date, err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *MongoBookingRepo) UpdateStatus(ctx context.Context, bookingID, from, to string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": bookingID, "status": from},
		bson.M{"$set": bson.M{"status": to}},
	)
	if err != nil {
		return fmt.Errorf("failed to update booking %s status: %w", bookingID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("booking %s is not in status %q", bookingID, from)
	}
	return nil
}

func (r *MongoBookingRepo) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"status":    models.BookingPending,
		"createdAt": bson.M{"$lt": cutoff},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired pending bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode pending bookings: %w", err)
	}
	return bookings, nil
}

// ensureIndexes backs the overlap check and the specialist-day reads.
func (r *MongoBookingRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}},
		{Keys: bson.D{
			{Key: "specialistId", Value: 1},
			{Key: "date", Value: 1},
			{Key: "status", Value: 1},
		}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	return err
}

package mongodb

import (
	"context"
	"fmt"
	"time"

	"swiftride/internal/apperrors"
	"swiftride/internal/models"
	"swiftride/internal/repositories/interfaces"
	"swiftride/internal/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type tripRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewTripRepository(db *mongo.Database, cache services.CacheService) interfaces.TripRepository {
	return &tripRepository{
		collection: db.Collection("trips"),
		cache:      cache,
	}
}

func (r *tripRepository) Create(ctx context.Context, trip *models.Trip) error {
	trip.ID = primitive.NewObjectID()
	trip.Status = models.TripStatusPending
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = trip.CreatedAt

	_, err := r.collection.InsertOne(ctx, trip)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}

	r.cacheTrip(ctx, trip)

	return nil
}

func (r *tripRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	if trip := r.getTripFromCache(ctx, id.Hex()); trip != nil {
		return trip, nil
	}

	var trip models.Trip
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("trip %s: %w", id.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	if !trip.Status.IsTerminal() {
		r.cacheTrip(ctx, &trip)
	}

	return &trip, nil
}

// TransitionStatus is the compare-and-set at the heart of the lifecycle: the
// filter pins the expected prior status (and optionally the assigned driver),
// so of two concurrent writers exactly one matches and the other observes
// ErrAlreadyProcessed.
func (r *tripRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.TripStatus, expectDriver *primitive.ObjectID) (*models.Trip, error) {
	filter := bson.M{
		"_id":    id,
		"status": from,
	}
	if expectDriver != nil {
		filter["driver_id"] = *expectDriver
	}

	now := time.Now()
	updates := bson.M{
		"status":     to,
		"updated_at": now,
	}

	switch to {
	case models.TripStatusAccepted:
		updates["accepted_at"] = now
	case models.TripStatusRejected:
		updates["rejected_at"] = now
	case models.TripStatusCompleted:
		updates["completed_at"] = now
	case models.TripStatusCancelled:
		updates["cancelled_at"] = now
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var trip models.Trip
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": updates}, opts).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("trip %s from %s to %s: %w", id.Hex(), from, to, apperrors.ErrAlreadyProcessed)
		}
		return nil, fmt.Errorf("failed to transition trip: %w", err)
	}

	r.invalidateTripCache(ctx, id.Hex())

	return &trip, nil
}

func (r *tripRepository) GetHistoryByUser(ctx context.Context, userID primitive.ObjectID, role models.UserRole) ([]*models.Trip, error) {
	roleField := "passenger_id"
	if role == models.UserRoleDriver {
		roleField = "driver_id"
	}

	filter := bson.M{
		roleField: userID,
		"status": bson.M{"$in": []models.TripStatus{
			models.TripStatusCompleted,
			models.TripStatusCancelled,
		}},
	}

	sort := bson.D{
		{Key: "completed_at", Value: -1},
		{Key: "created_at", Value: -1},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("failed to find trip history: %w", err)
	}
	defer cursor.Close(ctx)

	var trips []*models.Trip
	for cursor.Next(ctx) {
		var trip models.Trip
		if err := cursor.Decode(&trip); err != nil {
			return nil, fmt.Errorf("failed to decode trip: %w", err)
		}
		trips = append(trips, &trip)
	}

	return trips, nil
}

func (r *tripRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	filter := bson.M{
		"$or": []bson.M{
			{"passenger_id": userID},
			{"driver_id": userID},
		},
	}

	_, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete trips for user: %w", err)
	}

	return nil
}

// Cache operations
func (r *tripRepository) cacheTrip(ctx context.Context, trip *models.Trip) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("trip:%s", trip.ID.Hex())
		r.cache.Set(ctx, cacheKey, trip, 15*time.Minute)
	}
}

func (r *tripRepository) getTripFromCache(ctx context.Context, tripID string) *models.Trip {
	if r.cache == nil {
		return nil
	}

	cacheKey := fmt.Sprintf("trip:%s", tripID)
	var trip models.Trip
	err := r.cache.Get(ctx, cacheKey, &trip)
	if err != nil {
		return nil
	}

	return &trip
}

func (r *tripRepository) invalidateTripCache(ctx context.Context, tripID string) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("trip:%s", tripID)
		r.cache.Delete(ctx, cacheKey)
	}
}

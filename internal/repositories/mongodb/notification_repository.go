package mongodb

import (
	"context"
	"fmt"
	"time"

	"swiftride/internal/apperrors"
	"swiftride/internal/models"
	"swiftride/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type notificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) interfaces.NotificationRepository {
	return &notificationRepository{
		collection: db.Collection("trip_notifications"),
	}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.TripNotification) error {
	notification.ID = primitive.NewObjectID()
	notification.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, notification)
	if err != nil {
		// The unique response index rejects a second accepted/rejected
		// notification for the same trip.
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("response already recorded for trip %s: %w", notification.TripID.Hex(), apperrors.ErrAlreadyProcessed)
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

func (r *notificationRepository) GetTripResponse(ctx context.Context, tripID primitive.ObjectID) (*models.TripNotification, error) {
	filter := bson.M{
		"trip_id": tripID,
		"type": bson.M{"$in": []models.TripNotificationType{
			models.NotificationTypeTripAccepted,
			models.NotificationTypeTripRejected,
		}},
	}

	var notification models.TripNotification
	err := r.collection.FindOne(ctx, filter).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("response for trip %s: %w", tripID.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trip response: %w", err)
	}

	return &notification, nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TripNotification, error) {
	var notification models.TripNotification
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("notification %s: %w", id.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return &notification, nil
}

func (r *notificationRepository) GetUnreadForDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.TripNotification, error) {
	filter := bson.M{
		"driver_id": driverID,
		"type":      models.NotificationTypeTripRequest,
		"read":      false,
	}

	return r.findNotifications(ctx, filter)
}

func (r *notificationRepository) GetUnreadForPassenger(ctx context.Context, passengerID primitive.ObjectID) ([]*models.TripNotification, error) {
	filter := bson.M{
		"passenger_id": passengerID,
		"type": bson.M{"$in": []models.TripNotificationType{
			models.NotificationTypeTripAccepted,
			models.NotificationTypeTripRejected,
		}},
		"read": false,
	}

	return r.findNotifications(ctx, filter)
}

// MarkAsRead is idempotent: marking an already-read notification matches the
// document but changes nothing.
func (r *notificationRepository) MarkAsRead(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	return nil
}

// MarkTripRequestRead retires the driver-facing request notification once the
// driver has responded.
func (r *notificationRepository) MarkTripRequestRead(ctx context.Context, tripID primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(
		ctx,
		bson.M{"trip_id": tripID, "type": models.NotificationTypeTripRequest, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark trip request read: %w", err)
	}

	return nil
}

func (r *notificationRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	filter := bson.M{
		"$or": []bson.M{
			{"driver_id": userID},
			{"passenger_id": userID},
		},
	}

	_, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete notifications for user: %w", err)
	}

	return nil
}

func (r *notificationRepository) findNotifications(ctx context.Context, filter bson.M) ([]*models.TripNotification, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []*models.TripNotification
	for cursor.Next(ctx) {
		var notification models.TripNotification
		if err := cursor.Decode(&notification); err != nil {
			return nil, fmt.Errorf("failed to decode notification: %w", err)
		}
		notifications = append(notifications, &notification)
	}

	return notifications, nil
}

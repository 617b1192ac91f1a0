package interfaces

import (
	"context"

	"swiftride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, notification *models.TripNotification) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.TripNotification, error)

	// GetTripResponse returns the accepted/rejected notification written for
	// a trip, or ErrNotFound if no response has been recorded yet.
	GetTripResponse(ctx context.Context, tripID primitive.ObjectID) (*models.TripNotification, error)

	// Role-scoped unread listings, newest first
	GetUnreadForDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.TripNotification, error)
	GetUnreadForPassenger(ctx context.Context, passengerID primitive.ObjectID) ([]*models.TripNotification, error)

	// Status operations
	MarkAsRead(ctx context.Context, id primitive.ObjectID) error
	MarkTripRequestRead(ctx context.Context, tripID primitive.ObjectID) error

	// Cascade
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

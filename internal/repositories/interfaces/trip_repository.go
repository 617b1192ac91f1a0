package interfaces

import (
	"context"

	"swiftride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error)

	// TransitionStatus moves a trip from exactly the given prior status to
	// the new one in a single conditional write. When expectDriver is
	// non-nil the trip must also belong to that driver. Returns
	// apperrors.ErrAlreadyProcessed when no document matched, which covers
	// both a missing trip and a concurrent writer having won the race.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.TripStatus, expectDriver *primitive.ObjectID) (*models.Trip, error)

	// History
	GetHistoryByUser(ctx context.Context, userID primitive.ObjectID, role models.UserRole) ([]*models.Trip, error)

	// Cascade
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

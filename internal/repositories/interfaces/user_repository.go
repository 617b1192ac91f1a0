package interfaces

import (
	"context"
	"time"

	"swiftride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Authentication operations
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Presence operations
	SetPresence(ctx context.Context, id primitive.ObjectID, online bool, location *models.Coordinates) error
	GetConnectedDrivers(ctx context.Context, since time.Time) ([]*models.User, error)
}

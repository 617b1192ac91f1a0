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

type userRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewUserRepository(db *mongo.Database, cache services.CacheService) interfaces.UserRepository {
	return &userRepository{
		collection: db.Collection("users"),
		cache:      cache,
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("email already registered: %w", apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if user := r.getUserFromCache(ctx, id.Hex()); user != nil {
		return user, nil
	}

	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	r.cacheUser(ctx, &user)

	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("user with email %s: %w", email, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("email already registered: %w", apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
	}

	r.invalidateUserCache(ctx, id.Hex())

	return nil
}

func (r *userRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
	}

	r.invalidateUserCache(ctx, id.Hex())

	return nil
}

func (r *userRepository) SetPresence(ctx context.Context, id primitive.ObjectID, online bool, location *models.Coordinates) error {
	updates := bson.M{
		"is_online":          online,
		"last_online_update": time.Now(),
		"updated_at":         time.Now(),
	}

	// Location is retained on disconnect for last-seen display.
	if location != nil {
		updates["current_location"] = location
	}

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
	}

	r.invalidateUserCache(ctx, id.Hex())

	return nil
}

// GetConnectedDrivers evaluates staleness lazily: a driver whose heartbeat
// predates `since` stays flagged online in storage but is filtered here.
func (r *userRepository) GetConnectedDrivers(ctx context.Context, since time.Time) ([]*models.User, error) {
	filter := bson.M{
		"role":               models.UserRoleDriver,
		"is_active":          true,
		"is_online":          true,
		"last_online_update": bson.M{"$gte": since},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "last_online_update", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find connected drivers: %w", err)
	}
	defer cursor.Close(ctx)

	var drivers []*models.User
	for cursor.Next(ctx) {
		var user models.User
		if err := cursor.Decode(&user); err != nil {
			return nil, fmt.Errorf("failed to decode driver: %w", err)
		}
		drivers = append(drivers, &user)
	}

	return drivers, nil
}

// Cache operations
func (r *userRepository) cacheUser(ctx context.Context, user *models.User) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("user:%s", user.ID.Hex())
		r.cache.Set(ctx, cacheKey, user, 10*time.Minute)
	}
}

func (r *userRepository) getUserFromCache(ctx context.Context, userID string) *models.User {
	if r.cache == nil {
		return nil
	}

	cacheKey := fmt.Sprintf("user:%s", userID)
	var user models.User
	err := r.cache.Get(ctx, cacheKey, &user)
	if err != nil {
		return nil
	}

	return &user
}

func (r *userRepository) invalidateUserCache(ctx context.Context, userID string) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("user:%s", userID)
		r.cache.Delete(ctx, cacheKey)
	}
}

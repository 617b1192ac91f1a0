package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the query paths depend on. Safe to run on
// every startup; Mongo treats existing identical indexes as a no-op.
func (m *MongoDB) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		"users": {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "role", Value: 1},
					{Key: "is_active", Value: 1},
					{Key: "is_online", Value: 1},
					{Key: "last_online_update", Value: -1},
				},
			},
		},
		"trips": {
			{Keys: bson.D{{Key: "passenger_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		"trip_notifications": {
			{Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "type", Value: 1}, {Key: "read", Value: 1}}},
			{Keys: bson.D{{Key: "passenger_id", Value: 1}, {Key: "type", Value: 1}, {Key: "read", Value: 1}}},
			{Keys: bson.D{{Key: "trip_id", Value: 1}}},
			// At most one accept/reject outcome may ever be written per trip.
			{
				Keys: bson.D{{Key: "trip_id", Value: 1}},
				Options: options.Index().SetName("uniq_trip_response").SetUnique(true).SetPartialFilterExpression(bson.M{
					"type": bson.M{"$in": []string{"trip-accepted", "trip-rejected"}},
				}),
			},
		},
	}

	for collection, models := range indexes {
		_, err := m.Collection(collection).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", collection, err)
		}
	}

	return nil
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripNotificationType string

const (
	NotificationTypeTripRequest  TripNotificationType = "trip-request"
	NotificationTypeTripAccepted TripNotificationType = "trip-accepted"
	NotificationTypeTripRejected TripNotificationType = "trip-rejected"
)

// TripSnapshot carries display-only trip fields so a notification can be
// rendered without a join. Trip status is never read from here.
type TripSnapshot struct {
	Origin       Location `json:"origin" bson:"origin"`
	Destination  Location `json:"destination" bson:"destination"`
	ProposedFare float64  `json:"proposed_fare" bson:"proposed_fare"`
}

type TripNotification struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	TripID      primitive.ObjectID   `json:"trip_id" bson:"trip_id"`
	DriverID    primitive.ObjectID   `json:"driver_id" bson:"driver_id"`
	PassengerID primitive.ObjectID   `json:"passenger_id" bson:"passenger_id"`
	Type        TripNotificationType `json:"type" bson:"type"`
	Title       string               `json:"title" bson:"title"`
	Message     string               `json:"message" bson:"message"`
	Trip        TripSnapshot         `json:"trip" bson:"trip"`
	Read        bool                 `json:"read" bson:"read"`
	ReadAt      *time.Time           `json:"read_at,omitempty" bson:"read_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at" bson:"created_at"`
}

// Recipient returns the user the notification is addressed to: trip-request
// goes to the driver, response notifications go to the passenger.
func (n *TripNotification) Recipient() primitive.ObjectID {
	if n.Type == NotificationTypeTripRequest {
		return n.DriverID
	}
	return n.PassengerID
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripStatus string

const (
	TripStatusPending   TripStatus = "pending"
	TripStatusAccepted  TripStatus = "accepted"
	TripStatusRejected  TripStatus = "rejected"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusRejected || s == TripStatusCompleted || s == TripStatusCancelled
}

type Trip struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PassengerID   primitive.ObjectID `json:"passenger_id" bson:"passenger_id" validate:"required"`
	DriverID      primitive.ObjectID `json:"driver_id" bson:"driver_id" validate:"required"`
	Origin        Location           `json:"origin" bson:"origin" validate:"required"`
	Destination   Location           `json:"destination" bson:"destination" validate:"required"`
	ProposedFare  float64            `json:"proposed_fare" bson:"proposed_fare" validate:"required,gt=0"`
	DistanceKM    float64            `json:"distance_km" bson:"distance_km"`
	EstimatedTime int                `json:"estimated_time" bson:"estimated_time"` // minutes
	Status        TripStatus         `json:"status" bson:"status" default:"pending"`
	AcceptedAt    *time.Time         `json:"accepted_at,omitempty" bson:"accepted_at,omitempty"`
	RejectedAt    *time.Time         `json:"rejected_at,omitempty" bson:"rejected_at,omitempty"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CancelledAt   *time.Time         `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// TripWithCounterparty is a trip enriched with the other party's public
// profile, used by the history listing.
type TripWithCounterparty struct {
	Trip         `bson:",inline"`
	Counterparty *PublicProfile `json:"counterparty,omitempty" bson:"-"`
}

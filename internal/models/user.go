package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string

const (
	UserRolePassenger UserRole = "passenger"
	UserRoleDriver    UserRole = "driver"
	UserRoleAdmin     UserRole = "admin"
)

type VehicleInfo struct {
	CarModel    string `json:"car_model" bson:"car_model"`
	CarPlates   string `json:"car_plates" bson:"car_plates"`
	DocumentURL string `json:"document_url" bson:"document_url"`
}

type EmergencyContact struct {
	Name  string `json:"name" bson:"name"`
	Phone string `json:"phone" bson:"phone"`
}

type User struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name             string             `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email            string             `json:"email" bson:"email" validate:"required,email"`
	Phone            string             `json:"phone" bson:"phone"`
	Password         string             `json:"-" bson:"password"`
	Role             UserRole           `json:"role" bson:"role" validate:"required"`
	IsActive         bool               `json:"is_active" bson:"is_active" default:"true"`
	Vehicle          *VehicleInfo       `json:"vehicle,omitempty" bson:"vehicle,omitempty"`
	EmergencyContact *EmergencyContact  `json:"emergency_contact,omitempty" bson:"emergency_contact,omitempty"`

	// Presence sub-state, owned by the presence service.
	IsOnline         bool         `json:"is_online" bson:"is_online"`
	CurrentLocation  *Coordinates `json:"current_location,omitempty" bson:"current_location,omitempty"`
	LastOnlineUpdate *time.Time   `json:"last_online_update,omitempty" bson:"last_online_update,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// PublicProfile is the subset of user fields safe to show to a counterparty.
type PublicProfile struct {
	ID      primitive.ObjectID `json:"id"`
	Name    string             `json:"name"`
	Email   string             `json:"email"`
	Phone   string             `json:"phone"`
	Role    UserRole           `json:"role"`
	Vehicle *VehicleInfo       `json:"vehicle,omitempty"`
}

func (u *User) PublicProfile() *PublicProfile {
	return &PublicProfile{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Phone:   u.Phone,
		Role:    u.Role,
		Vehicle: u.Vehicle,
	}
}

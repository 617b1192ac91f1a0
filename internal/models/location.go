package models

type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

type Location struct {
	Address     string      `json:"address" bson:"address" validate:"required"`
	Coordinates Coordinates `json:"coordinates" bson:"coordinates"`
}

package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// Vehicle represents a school bus assigned to a route.
type Vehicle struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleID    string             `bson:"vehicle_id" json:"vehicle_id"` // device-facing identifier, e.g. plate number
	RouteName    string             `bson:"route_name" json:"route_name"`
	Capacity     int                `bson:"capacity" json:"capacity"`
	Make         string             `bson:"make" json:"make"`
	Model        string             `bson:"model" json:"model"`
	Year         int                `bson:"year" json:"year"`
	Status       string             `bson:"status" json:"status"` // "active" or "inactive"
	DriverName   string             `bson:"driver_name" json:"driver_name"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripScheduled  TripStatus = "scheduled"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
)

// Trip represents one run of a vehicle along its route.
type Trip struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleID string             `bson:"vehicle_id" json:"vehicle_id"`
	RouteName string             `bson:"route_name" json:"route_name"`
	Status    TripStatus         `bson:"status" json:"status"`
	StartTime time.Time          `bson:"start_time" json:"start_time"`
	EndTime   *time.Time         `bson:"end_time,omitempty" json:"end_time,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

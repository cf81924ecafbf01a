package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// GPSLogEntry is the durable append-only record of one accepted position
// sample. One entry is written per sample; live membership state is never
// persisted here.
type GPSLogEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleID string             `bson:"vehicle_id" json:"vehicle_id"`
	Location  Location           `bson:"location" json:"location"`
	Speed     float64            `bson:"speed" json:"speed"`
	Heading   float64            `bson:"heading" json:"heading"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

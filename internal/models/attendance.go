package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// AttendanceEvent is the kind of attendance observation.
type AttendanceEvent string

const (
	AttendanceBoard  AttendanceEvent = "board"
	AttendanceAlight AttendanceEvent = "alight"
	AttendanceLate   AttendanceEvent = "late"
)

// AttendanceRecord is an immutable observation that a student boarded,
// alighted or was marked late on a trip.
type AttendanceRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StudentID string             `bson:"student_id" json:"student_id"`
	TripID    string             `bson:"trip_id" json:"trip_id"`
	Event     AttendanceEvent    `bson:"event" json:"event"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Location  *Location          `bson:"location,omitempty" json:"location,omitempty"`
}

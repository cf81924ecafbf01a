package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// Student represents an enrollment record. The route name attribute decides
// which trips expect the student to board.
type Student struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StudentID      string             `bson:"student_id" json:"student_id"`
	FirstName      string             `bson:"first_name" json:"first_name"`
	LastName       string             `bson:"last_name" json:"last_name"`
	Grade          string             `bson:"grade" json:"grade"`
	RouteName      string             `bson:"route_name" json:"route_name"`
	GuardianUserID string             `bson:"guardian_user_id,omitempty" json:"guardian_user_id,omitempty"`
	IsActive       bool               `bson:"is_active" json:"is_active"`
	EnrolledAt     time.Time          `bson:"enrolled_at" json:"enrolled_at"`
}

package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ZoneKind identifies the geometry of a zone.
type ZoneKind string

const (
	ZoneCircle  ZoneKind = "circle"
	ZonePolygon ZoneKind = "polygon"
)

// Zone represents a named geofence tied to a route. A circle zone has a
// center and a radius in meters; a polygon zone has an ordered vertex list
// with an implicit closing edge from the last vertex to the first.
type Zone struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	RouteName string             `bson:"route_name" json:"route_name"`
	Kind      ZoneKind           `bson:"kind" json:"kind"`
	Center    Location           `bson:"center,omitempty" json:"center,omitempty"`
	RadiusM   float64            `bson:"radius_m,omitempty" json:"radius_m,omitempty"`
	Vertices  []Location         `bson:"vertices,omitempty" json:"vertices,omitempty"`
	CreatedAt primitive.DateTime `bson:"created_at,omitempty" json:"created_at,omitempty"`
}

// Key returns the identifier used for membership bookkeeping and events.
func (z Zone) Key() string {
	return z.ID.Hex()
}

// Membership is a vehicle's containment status for one zone.
type Membership string

const (
	MembershipUnknown Membership = "UNKNOWN"
	MembershipInside  Membership = "INSIDE"
	MembershipOutside Membership = "OUTSIDE"
)

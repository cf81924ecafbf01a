package db

import (
	"context"
	"errors"

	"github.com/ukydev/school-transit/internal/models"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound marks lookups whose subject does not exist, as opposed to the
// store being unreachable. Callers branch on it with errors.Is.
var ErrNotFound = errors.New("document not found")

// GPSLogCollection defines the interface for the append-only GPS log.
type GPSLogCollection interface {
	InsertGPSLogEntry(ctx context.Context, entry models.GPSLogEntry) error
	FindGPSLog(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (GPSLogCursor, error)
}

// GPSLogCursor defines the interface for GPS log cursor operations.
type GPSLogCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}

// ZoneCollection defines the interface for zone data operations.
type ZoneCollection interface {
	InsertZone(ctx context.Context, zone models.Zone) error
	GetZonesByRoute(ctx context.Context, routeName string) ([]models.Zone, error)
	DeleteZone(ctx context.Context, id string) error
}

// StudentCollection defines the interface for student roster operations.
type StudentCollection interface {
	InsertStudent(ctx context.Context, student models.Student) error
	GetActiveStudentsByRoute(ctx context.Context, routeName string) ([]models.Student, error)
	SetStudentGuardian(ctx context.Context, studentID string, guardianUserID string) error
}

// TripCollection defines the interface for trip data operations.
type TripCollection interface {
	InsertTrip(ctx context.Context, trip models.Trip) (string, error)
	FindTripByID(ctx context.Context, id string) (*models.Trip, error)
	UpdateTripStatus(ctx context.Context, id string, status models.TripStatus) error
}

// AttendanceCollection defines the interface for attendance record operations.
// Records are append-only; there is no update or delete.
type AttendanceCollection interface {
	InsertAttendanceRecord(ctx context.Context, record models.AttendanceRecord) error
	FindRecordsByTrip(ctx context.Context, tripID string, event models.AttendanceEvent) ([]models.AttendanceRecord, error)
	HasRecord(ctx context.Context, tripID, studentID string, event models.AttendanceEvent) (bool, error)
}

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle models.Vehicle) error
	FindVehicleByVehicleID(ctx context.Context, vehicleID string) (*models.Vehicle, error)
}

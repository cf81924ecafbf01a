package attendance

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/school-transit/internal/db"
	"github.com/ukydev/school-transit/internal/models"
)

var (
	ErrDuplicateRecord = errors.New("attendance record already exists")
	ErrInvalidRecord   = errors.New("invalid attendance record")
	ErrTripNotFound    = errors.New("trip not found")
)

// Engine reconciles a route's enrolled roster against boarding records. It
// only reads and derives; it never mutates roster or attendance data.
type Engine struct {
	students db.StudentCollection
	trips    db.TripCollection
	records  db.AttendanceCollection
	logger   *log.Entry
}

// NewEngine creates a reconciliation engine.
func NewEngine(students db.StudentCollection, trips db.TripCollection, records db.AttendanceCollection) *Engine {
	return &Engine{
		students: students,
		trips:    trips,
		records:  records,
		logger:   log.WithField("component", "attendance"),
	}
}

// ComputeAbsentees returns the active students enrolled on a trip's route who
// have no boarding record for the trip, in enrollment order. The computation
// is a pure read-then-diff: calling it again without intervening attendance
// writes returns the same set.
func (e *Engine) ComputeAbsentees(ctx context.Context, tripID string) ([]models.Student, error) {
	trip, err := e.trips.FindTripByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTripNotFound, tripID)
		}
		return nil, fmt.Errorf("trip lookup: %w", err)
	}

	roster, err := e.students.GetActiveStudentsByRoute(ctx, trip.RouteName)
	if err != nil {
		return nil, fmt.Errorf("roster lookup: %w", err)
	}

	boarded, err := e.records.FindRecordsByTrip(ctx, tripID, models.AttendanceBoard)
	if err != nil {
		return nil, fmt.Errorf("attendance lookup: %w", err)
	}

	boardedIDs := make(map[string]struct{}, len(boarded))
	for _, rec := range boarded {
		boardedIDs[rec.StudentID] = struct{}{}
	}

	absentees := make([]models.Student, 0)
	for _, student := range roster {
		if _, ok := boardedIDs[student.StudentID]; !ok {
			absentees = append(absentees, student)
		}
	}

	e.logger.WithFields(log.Fields{
		"trip_id":   tripID,
		"route":     trip.RouteName,
		"enrolled":  len(roster),
		"boarded":   len(boardedIDs),
		"absentees": len(absentees),
	}).Info("absentees computed")
	return absentees, nil
}

// Recorder writes attendance observations. Records are immutable once
// written; a duplicate (trip, student, event) observation is rejected.
type Recorder struct {
	records db.AttendanceCollection
	trips   db.TripCollection
}

// NewRecorder creates an attendance recorder.
func NewRecorder(records db.AttendanceCollection, trips db.TripCollection) *Recorder {
	return &Recorder{records: records, trips: trips}
}

// Record validates and appends an attendance record.
func (r *Recorder) Record(ctx context.Context, rec models.AttendanceRecord) error {
	switch {
	case rec.StudentID == "":
		return fmt.Errorf("%w: missing student id", ErrInvalidRecord)
	case rec.TripID == "":
		return fmt.Errorf("%w: missing trip id", ErrInvalidRecord)
	case rec.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidRecord)
	}
	switch rec.Event {
	case models.AttendanceBoard, models.AttendanceAlight, models.AttendanceLate:
	default:
		return fmt.Errorf("%w: unknown event %q", ErrInvalidRecord, rec.Event)
	}

	if _, err := r.trips.FindTripByID(ctx, rec.TripID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: unknown trip %q", ErrInvalidRecord, rec.TripID)
		}
		return fmt.Errorf("trip lookup: %w", err)
	}

	exists, err := r.records.HasRecord(ctx, rec.TripID, rec.StudentID, rec.Event)
	if err != nil {
		return fmt.Errorf("duplicate check: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s/%s/%s", ErrDuplicateRecord, rec.TripID, rec.StudentID, rec.Event)
	}
	return r.records.InsertAttendanceRecord(ctx, rec)
}

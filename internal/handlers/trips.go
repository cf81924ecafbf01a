package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/school-transit/internal/attendance"
	"github.com/ukydev/school-transit/internal/models"
)

// TripHandler exposes per-trip reconciliation results.
type TripHandler struct {
	engine *attendance.Engine
}

// NewTripHandler creates a trip handler.
func NewTripHandler(engine *attendance.Engine) *TripHandler {
	return &TripHandler{engine: engine}
}

// Absentees handles GET /api/trips/{id}/absentees.
func (h *TripHandler) Absentees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/trips/")
	tripID, suffix, found := strings.Cut(rest, "/")
	if !found || suffix != "absentees" || tripID == "" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	absentees, err := h.engine.ComputeAbsentees(r.Context(), tripID)
	if err != nil {
		if errors.Is(err, attendance.ErrTripNotFound) {
			http.Error(w, "Trip not found", http.StatusNotFound)
			return
		}
		log.WithField("trip_id", tripID).WithError(err).Error("absentee computation failed")
		http.Error(w, "Temporarily unable to compute absentees", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"trip_id":   tripID,
		"absentees": absentees,
	})
}

// AttendanceHandler accepts attendance observations from drivers and staff.
type AttendanceHandler struct {
	recorder *attendance.Recorder
}

// NewAttendanceHandler creates an attendance recording handler.
func NewAttendanceHandler(recorder *attendance.Recorder) *AttendanceHandler {
	return &AttendanceHandler{recorder: recorder}
}

// Record handles POST /api/attendance.
func (h *AttendanceHandler) Record(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var rec models.AttendanceRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.recorder.Record(r.Context(), rec); err != nil {
		switch {
		case errors.Is(err, attendance.ErrInvalidRecord):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, attendance.ErrDuplicateRecord):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			log.WithFields(log.Fields{
				"trip_id":    rec.TripID,
				"student_id": rec.StudentID,
			}).WithError(err).Error("attendance record failed")
			http.Error(w, "Failed to record attendance", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"status": "recorded"})
}

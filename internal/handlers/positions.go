package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/school-transit/internal/models"
	"github.com/ukydev/school-transit/internal/pipeline"
)

// Ingestor is the slice of the pipeline the HTTP surface needs.
type Ingestor interface {
	Ingest(ctx context.Context, sample models.PositionSample) ([]models.Event, error)
}

// IngestMetrics records ingestion outcomes; nil disables instrumentation.
type IngestMetrics interface {
	ObserveIngest(d time.Duration, err error, reason string)
	CountEvent(eventType string)
}

// PositionHandler accepts position samples over HTTP, for gateways that
// bridge devices without an MQTT path.
type PositionHandler struct {
	ingestor Ingestor
	metrics  IngestMetrics
}

// NewPositionHandler creates a position ingest handler.
func NewPositionHandler(ingestor Ingestor, metrics IngestMetrics) *PositionHandler {
	return &PositionHandler{ingestor: ingestor, metrics: metrics}
}

// Ingest handles POST /api/positions.
func (h *PositionHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var sample models.PositionSample
	if err := json.Unmarshal(body, &sample); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	start := time.Now()
	events, err := h.ingestor.Ingest(r.Context(), sample)
	if err != nil {
		var invalidErr *pipeline.InvalidSampleError
		if errors.As(err, &invalidErr) {
			h.observe(start, err, "invalid")
			http.Error(w, invalidErr.Reason, http.StatusUnprocessableEntity)
			return
		}
		var depErr *pipeline.DependencyError
		if errors.As(err, &depErr) {
			h.observe(start, err, "dependency")
			log.WithField("vehicle_id", sample.VehicleID).WithError(err).Error("ingest failed on dependency")
			http.Error(w, "Temporarily unable to process sample", http.StatusServiceUnavailable)
			return
		}
		h.observe(start, err, "internal")
		http.Error(w, "Failed to process sample", http.StatusInternalServerError)
		return
	}
	h.observe(start, nil, "")
	if h.metrics != nil {
		for _, e := range events {
			h.metrics.CountEvent(string(e.Type))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"events": events})
}

func (h *PositionHandler) observe(start time.Time, err error, reason string) {
	if h.metrics != nil {
		h.metrics.ObserveIngest(time.Since(start), err, reason)
	}
}

package models

import "time"

// EventType tags the domain events published by the tracking pipeline.
type EventType string

const (
	EventZoneEntered           EventType = "ZoneEntered"
	EventZoneExited            EventType = "ZoneExited"
	EventZoneStatusInitialized EventType = "ZoneStatusInitialized"
	EventSpeedViolation        EventType = "SpeedViolation"
	EventPositionUpdate        EventType = "PositionUpdate"
)

// Severity grades a speed violation.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Event is a domain event emitted by the tracking pipeline and fanned out to
// live sessions and external consumers. Optional fields are set depending on
// Type.
type Event struct {
	Type      EventType `json:"type"`
	VehicleID string    `json:"vehicle_id"`
	ZoneID    string    `json:"zone_id,omitempty"`
	ZoneName  string    `json:"zone_name,omitempty"`
	Location  Location  `json:"location"`
	Speed     *float64  `json:"speed,omitempty"`
	Severity  Severity  `json:"severity,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

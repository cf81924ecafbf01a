package models

import "time"

// PositionSample is a raw position report from a vehicle device, as received
// by the gateway before validation.
type PositionSample struct {
	VehicleID string    `json:"vehicle_id"`
	Location  Location  `json:"location"`
	Speed     float64   `json:"speed"`
	Heading   float64   `json:"heading"`
	Timestamp time.Time `json:"timestamp"`
}

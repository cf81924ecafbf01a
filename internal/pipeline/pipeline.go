package pipeline

import (
	"context"
	"errors"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/school-transit/internal/db"
	"github.com/ukydev/school-transit/internal/geo"
	"github.com/ukydev/school-transit/internal/models"
	"github.com/ukydev/school-transit/internal/state"
)

// EventSink receives the events emitted for one accepted sample. Publish is
// called while the vehicle's per-vehicle lock is still held, so sinks see
// one vehicle's samples in commit order. Implementations must not block.
type EventSink interface {
	PublishEvents(vehicleID string, events []models.Event)
}

// Config holds the tunables for speed violation tiers and circle-exit
// hysteresis.
type Config struct {
	SpeedLimit    float64 // warning at or above this
	HighDelta     float64 // high severity at limit+HighDelta
	CriticalDelta float64 // critical severity at limit+CriticalDelta
	HysteresisM   float64 // extra meters before an INSIDE circle reports exit
}

// DefaultConfig mirrors the deployment defaults.
func DefaultConfig() Config {
	return Config{SpeedLimit: 80, HighDelta: 15, CriticalDelta: 25}
}

// Pipeline turns raw position samples into zone transition events, speed
// alerts and durable GPS log entries. All steps for one sample commit
// atomically with respect to that vehicle's live state.
type Pipeline struct {
	cfg      Config
	states   *state.Store
	vehicles db.VehicleCollection
	zones    db.ZoneCollection
	gpsLog   db.GPSLogCollection
	sinks    []EventSink
	logger   *log.Entry
}

// New creates a pipeline. Sinks are optional; without them events are only
// returned to the caller.
func New(cfg Config, states *state.Store, vehicles db.VehicleCollection, zones db.ZoneCollection, gpsLog db.GPSLogCollection, sinks ...EventSink) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		states:   states,
		vehicles: vehicles,
		zones:    zones,
		gpsLog:   gpsLog,
		sinks:    sinks,
		logger:   log.WithField("component", "pipeline"),
	}
}

// Ingest processes one position sample and returns the events it produced,
// including the PositionUpdate itself. Invalid samples return an
// *InvalidSampleError and leave no trace; store failures return a
// *DependencyError and the whole sample may be retried.
func (p *Pipeline) Ingest(ctx context.Context, sample models.PositionSample) ([]models.Event, error) {
	if err := validate(sample); err != nil {
		p.logger.WithField("vehicle_id", sample.VehicleID).WithError(err).Warn("sample rejected")
		return nil, err
	}

	vehicle, err := p.vehicles.FindVehicleByVehicleID(ctx, sample.VehicleID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Not a store outage: re-sending the sample cannot help.
			return nil, &InvalidSampleError{VehicleID: sample.VehicleID, Reason: "unknown vehicle"}
		}
		return nil, &DependencyError{Op: "vehicle lookup", Err: err}
	}
	zones, err := p.zones.GetZonesByRoute(ctx, vehicle.RouteName)
	if err != nil {
		return nil, &DependencyError{Op: "zone lookup", Err: err}
	}

	var events []models.Event
	err = p.states.Update(sample.VehicleID, func(st *state.LiveState) error {
		if !st.Timestamp.IsZero() && sample.Timestamp.Before(st.Timestamp) {
			return &InvalidSampleError{VehicleID: sample.VehicleID, Reason: "timestamp older than last accepted sample"}
		}

		if err := p.gpsLog.InsertGPSLogEntry(ctx, models.GPSLogEntry{
			VehicleID: sample.VehicleID,
			Location:  sample.Location,
			Speed:     sample.Speed,
			Heading:   sample.Heading,
			Timestamp: sample.Timestamp,
		}); err != nil {
			return &DependencyError{Op: "gps log append", Err: err}
		}

		events = p.evaluateZones(st, sample, zones)
		if ev := p.checkSpeed(sample); ev != nil {
			events = append(events, *ev)
		}
		events = append(events, positionUpdate(sample))

		st.Location = sample.Location
		st.Speed = sample.Speed
		st.Heading = sample.Heading
		st.Timestamp = sample.Timestamp

		// Publishing stays under the per-vehicle lock so sinks observe
		// samples for one vehicle in commit order.
		for _, sink := range p.sinks {
			sink.PublishEvents(sample.VehicleID, events)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// evaluateZones compares containment against the prior membership map and
// mutates it in place. First observations initialize status without an
// enter/exit event.
func (p *Pipeline) evaluateZones(st *state.LiveState, sample models.PositionSample, zones []models.Zone) []models.Event {
	var events []models.Event
	for _, zone := range zones {
		ev := geo.Evaluate(sample.Location, zone)

		prior := st.Zones[zone.Key()]
		next := models.MembershipOutside
		if ev.Inside {
			next = models.MembershipInside
		} else if prior == models.MembershipInside && p.withinHysteresis(zone, ev) {
			// Still counted inside until the point clears the exit band.
			next = models.MembershipInside
		}

		if prior == next {
			continue
		}
		st.Zones[zone.Key()] = next

		var eventType models.EventType
		switch {
		case prior == models.MembershipUnknown || prior == "":
			eventType = models.EventZoneStatusInitialized
		case next == models.MembershipInside:
			eventType = models.EventZoneEntered
		default:
			eventType = models.EventZoneExited
		}
		events = append(events, models.Event{
			Type:      eventType,
			VehicleID: sample.VehicleID,
			ZoneID:    zone.Key(),
			ZoneName:  zone.Name,
			Location:  sample.Location,
			Timestamp: sample.Timestamp,
		})
		p.logger.WithFields(log.Fields{
			"vehicle_id": sample.VehicleID,
			"zone_id":    zone.Key(),
			"event":      eventType,
		}).Info("zone membership changed")
	}
	return events
}

func (p *Pipeline) withinHysteresis(zone models.Zone, ev geo.Evaluation) bool {
	if p.cfg.HysteresisM <= 0 || !ev.HasDistance {
		return false
	}
	return ev.DistanceM <= zone.RadiusM+p.cfg.HysteresisM
}

func (p *Pipeline) checkSpeed(sample models.PositionSample) *models.Event {
	if sample.Speed < p.cfg.SpeedLimit {
		return nil
	}
	severity := models.SeverityWarning
	switch {
	case sample.Speed >= p.cfg.SpeedLimit+p.cfg.CriticalDelta:
		severity = models.SeverityCritical
	case sample.Speed >= p.cfg.SpeedLimit+p.cfg.HighDelta:
		severity = models.SeverityHigh
	}

	speed := sample.Speed
	return &models.Event{
		Type:      models.EventSpeedViolation,
		VehicleID: sample.VehicleID,
		Location:  sample.Location,
		Speed:     &speed,
		Severity:  severity,
		Timestamp: sample.Timestamp,
	}
}

func positionUpdate(sample models.PositionSample) models.Event {
	speed := sample.Speed
	return models.Event{
		Type:      models.EventPositionUpdate,
		VehicleID: sample.VehicleID,
		Location:  sample.Location,
		Speed:     &speed,
		Timestamp: sample.Timestamp,
	}
}

func validate(sample models.PositionSample) error {
	switch {
	case sample.VehicleID == "":
		return &InvalidSampleError{Reason: "missing vehicle id"}
	case sample.Timestamp.IsZero():
		return &InvalidSampleError{VehicleID: sample.VehicleID, Reason: "missing timestamp"}
	case math.IsNaN(sample.Location.Lat) || math.IsNaN(sample.Location.Lon):
		return &InvalidSampleError{VehicleID: sample.VehicleID, Reason: "coordinate is NaN"}
	case !sample.Location.InRange():
		return &InvalidSampleError{VehicleID: sample.VehicleID, Reason: "coordinate out of range"}
	case sample.Speed < 0 || math.IsNaN(sample.Speed):
		return &InvalidSampleError{VehicleID: sample.VehicleID, Reason: "negative speed"}
	}
	return nil
}

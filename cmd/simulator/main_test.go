package main

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestJitterLocation_StaysWithinRadius(t *testing.T) {
	for i := 0; i < 100; i++ {
		loc := jitterLocation(school, 500)
		distKm := haversineKm(school, loc)
		// corner of the jitter box is sqrt(2) * radius away at most
		if distKm > 0.5*math.Sqrt2*1.01 {
			t.Errorf("Jittered location too far from base: %.3f km", distKm)
		}
	}
}

func TestPlanRoute_EndsAtSchool(t *testing.T) {
	route := planRoute(8)

	if len(route.Points) != 8 {
		t.Fatalf("Expected 8 stops, got %d", len(route.Points))
	}
	last := route.Points[len(route.Points)-1]
	if last != school {
		t.Errorf("Route should end at the school gate, got %+v", last)
	}
}

func TestStepAlongRoute_MovesTowardNextStop(t *testing.T) {
	route := &BusRoute{Points: []Location{
		{Lat: school.Lat + 0.04, Lon: school.Lon},
		{Lat: school.Lat + 0.02, Lon: school.Lon},
		school,
	}}
	s := &BusState{
		VehicleID: "BUS-01",
		Position:  route.Points[0],
		SpeedKmh:  40,
		Route:     route,
	}

	before := haversineKm(s.Position, school)
	stepAlongRoute(s, 10)
	after := haversineKm(s.Position, school)

	if after >= before {
		t.Errorf("Bus should close on the school: before %.3f km, after %.3f km", before, after)
	}
}

func TestStepAlongRoute_TurnsAroundAtEnd(t *testing.T) {
	route := planRoute(3)
	s := &BusState{
		VehicleID: "BUS-01",
		Position:  route.Points[0],
		SpeedKmh:  60,
		Route:     route,
	}

	// a very long tick overruns the whole route
	stepAlongRoute(s, 3600*4)

	if !route.Reverse {
		t.Error("Route should reverse after reaching the final stop")
	}
	if route.SegIndex != 0 {
		t.Errorf("Segment index should reset on turnaround, got %d", route.SegIndex)
	}
}

func TestSampleFromState(t *testing.T) {
	route := planRoute(4)
	s := &BusState{
		VehicleID: "BUS-07",
		Position:  route.Points[0],
		SpeedKmh:  33.5,
		Route:     route,
	}

	sample := sampleFromState(s)

	if sample.VehicleID != "BUS-07" {
		t.Errorf("Expected vehicle ID 'BUS-07', got %s", sample.VehicleID)
	}
	if sample.Speed != 33.5 {
		t.Errorf("Expected speed 33.5, got %f", sample.Speed)
	}
	if sample.Heading < 0 || sample.Heading >= 360 {
		t.Errorf("Heading out of range: %f", sample.Heading)
	}
	if time.Since(sample.Timestamp) > time.Minute {
		t.Errorf("Timestamp not current: %v", sample.Timestamp)
	}

	data, err := json.Marshal(sample)
	if err != nil {
		t.Fatalf("Failed to marshal sample: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal sample: %v", err)
	}
	if _, ok := decoded["vehicle_id"]; !ok {
		t.Error("Payload missing vehicle_id field")
	}
	if _, ok := decoded["location"]; !ok {
		t.Error("Payload missing location field")
	}
}

func TestHeadingDeg(t *testing.T) {
	north := headingDeg(Location{Lat: 0, Lon: 0}, Location{Lat: 1, Lon: 0})
	if math.Abs(north) > 0.5 {
		t.Errorf("Due north should be ~0 degrees, got %f", north)
	}
	east := headingDeg(Location{Lat: 0, Lon: 0}, Location{Lat: 0, Lon: 1})
	if math.Abs(east-90) > 0.5 {
		t.Errorf("Due east should be ~90 degrees, got %f", east)
	}
}

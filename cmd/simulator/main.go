package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PositionSample is the payload a bus device publishes on each tick.
type PositionSample struct {
	VehicleID string    `json:"vehicle_id"`
	Location  Location  `json:"location"`
	Speed     float64   `json:"speed"`
	Heading   float64   `json:"heading"`
	Timestamp time.Time `json:"timestamp"`
}

// School gate all simulated routes converge on.
var school = Location{Lat: -1.2864, Lon: 36.8172}

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func haversineKm(a, b Location) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

func lerp(a, b Location, t float64) Location {
	return Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lon: a.Lon + (b.Lon-a.Lon)*t}
}

func headingDeg(a, b Location) float64 {
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// --- Routing & movement ---

// BusRoute is a pickup run: a chain of stops in a neighborhood ending at the
// school gate. Buses shuttle the run back and forth.
type BusRoute struct {
	Points    []Location
	SegIndex  int
	SegOffset float64 // km along current segment
	Reverse   bool
}

type BusState struct {
	VehicleID string
	Position  Location
	SpeedKmh  float64
	Route     *BusRoute
}

// planRoute lays out a run of stops starting a few km out and closing on the
// school gate.
func planRoute(stops int) *BusRoute {
	if stops < 2 {
		stops = 2
	}
	origin := jitterLocation(school, 5000)
	pts := make([]Location, 0, stops)
	for i := 0; i < stops-1; i++ {
		t := float64(i) / float64(stops-1)
		pts = append(pts, jitterLocation(lerp(origin, school, t), 300))
	}
	pts = append(pts, school)
	return &BusRoute{Points: pts}
}

func (r *BusRoute) segment() (Location, Location) {
	n := len(r.Points)
	if r.Reverse {
		return r.Points[n-1-r.SegIndex], r.Points[n-2-r.SegIndex]
	}
	return r.Points[r.SegIndex], r.Points[r.SegIndex+1]
}

func (r *BusRoute) advance() bool {
	r.SegIndex++
	r.SegOffset = 0
	return r.SegIndex < len(r.Points)-1
}

func stepAlongRoute(s *BusState, tickSec float64) {
	r := s.Route
	remKm := s.SpeedKmh * (tickSec / 3600.0)
	for remKm > 0 {
		a, b := r.segment()
		segLen := haversineKm(a, b)
		leftOnSeg := segLen - r.SegOffset
		if segLen <= 0 || remKm >= leftOnSeg {
			s.Position = b
			remKm -= leftOnSeg
			if !r.advance() {
				// end of run: turn around and head back out
				r.Reverse = !r.Reverse
				r.SegIndex = 0
				r.SegOffset = 0
				return
			}
			continue
		}
		t := (r.SegOffset + remKm) / segLen
		s.Position = lerp(a, b, t)
		r.SegOffset += remKm
		remKm = 0
	}
}

func sampleFromState(s *BusState) PositionSample {
	a, b := s.Route.segment()
	return PositionSample{
		VehicleID: s.VehicleID,
		Location:  s.Position,
		Speed:     s.SpeedKmh,
		Heading:   headingDeg(a, b),
		Timestamp: time.Now().UTC(),
	}
}

func publishSample(client mqtt.Client, topicPrefix string, sample PositionSample) {
	data, err := json.Marshal(sample)
	if err != nil {
		log.WithError(err).Error("Failed to marshal sample")
		return
	}
	topic := topicPrefix + "/" + sample.VehicleID
	token := client.Publish(topic, 1, false, data)
	if token.Wait() && token.Error() != nil {
		log.WithFields(log.Fields{"vehicle_id": sample.VehicleID, "topic": topic}).
			WithError(token.Error()).Error("Failed to publish sample")
		return
	}
	log.WithFields(log.Fields{
		"vehicle_id": sample.VehicleID,
		"speed":      fmt.Sprintf("%.1f", sample.Speed),
	}).Debug("Published sample")
}

func simulateBus(client mqtt.Client, topicPrefix string, s *BusState, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		// small speed noise
		s.SpeedKmh += (rand.Float64()*2 - 1) * 1.5
		if s.SpeedKmh < 15 {
			s.SpeedKmh = 15
		}
		if s.SpeedKmh > 70 {
			s.SpeedKmh = 70
		}
		// occasional burst past the limit to exercise speed alerts
		if rand.Float64() < 0.02 {
			s.SpeedKmh = 85 + rand.Float64()*25
		}

		stepAlongRoute(s, interval.Seconds())
		publishSample(client, topicPrefix, sampleFromState(s))
	}
}

func main() {
	brokerURL := os.Getenv("MQTT_BROKER_URL")
	if brokerURL == "" {
		brokerURL = "tcp://localhost:1883"
	}
	topicPrefix := os.Getenv("SIM_TOPIC_PREFIX")
	if topicPrefix == "" {
		topicPrefix = "schooltransit/positions"
	}

	fleetSize := 5
	if val := os.Getenv("FLEET_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			fleetSize = n
		}
	}

	interval := 2 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	if os.Getenv("SIM_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(fmt.Sprintf("schooltransit-sim-%d", os.Getpid())).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).Fatal("Failed to connect to MQTT broker")
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"broker":     brokerURL,
		"topic":      topicPrefix + "/+",
		"interval":   interval,
	}).Info("Starting bus simulation")

	for i := 0; i < fleetSize; i++ {
		route := planRoute(6 + rand.Intn(4))
		state := &BusState{
			VehicleID: fmt.Sprintf("BUS-%02d", i+1),
			Position:  route.Points[0],
			SpeedKmh:  25 + rand.Float64()*20,
			Route:     route,
		}
		go simulateBus(client, topicPrefix, state, interval)
	}

	select {} // Block forever
}

package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/school-transit/internal/models"
	"github.com/ukydev/school-transit/internal/pipeline"
)

type fakeIngestor struct {
	err     error
	samples []models.PositionSample
}

func (f *fakeIngestor) Ingest(ctx context.Context, sample models.PositionSample) ([]models.Event, error) {
	f.samples = append(f.samples, sample)
	return nil, f.err
}

// fakeMessage implements mqtt.Message so ack policy can be observed.
type fakeMessage struct {
	topic   string
	payload []byte
	acked   bool
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              { m.acked = true }

func newTestGateway(ingestor Ingestor) *MQTTGateway {
	return &MQTTGateway{
		topic:    "schooltransit/positions/+",
		ingestor: ingestor,
		logger:   log.WithField("component", "gateway"),
	}
}

func positionPayload() []byte {
	return []byte(`{"location": {"lat": -1.2864, "lon": 36.8172}, "speed": 40, "timestamp": "2026-08-29T07:15:00Z"}`)
}

func TestHandleMessage_AcksAcceptedSample(t *testing.T) {
	ingestor := &fakeIngestor{}
	g := newTestGateway(ingestor)

	msg := &fakeMessage{topic: "schooltransit/positions/KBX-001", payload: positionPayload()}
	g.handleMessage(nil, msg)

	require.Len(t, ingestor.samples, 1)
	assert.Equal(t, "KBX-001", ingestor.samples[0].VehicleID)
	assert.True(t, msg.acked)
}

func TestHandleMessage_AcksInvalidSample(t *testing.T) {
	ingestor := &fakeIngestor{err: &pipeline.InvalidSampleError{VehicleID: "KBX-001", Reason: "coordinate out of range"}}
	g := newTestGateway(ingestor)

	msg := &fakeMessage{topic: "schooltransit/positions/KBX-001", payload: positionPayload()}
	g.handleMessage(nil, msg)

	assert.True(t, msg.acked, "an invalid sample is dropped for good, never redelivered")
}

func TestHandleMessage_LeavesDependencyFailureUnacked(t *testing.T) {
	ingestor := &fakeIngestor{err: &pipeline.DependencyError{Op: "gps log append", Err: errors.New("mongo down")}}
	g := newTestGateway(ingestor)

	msg := &fakeMessage{topic: "schooltransit/positions/KBX-001", payload: positionPayload()}
	g.handleMessage(nil, msg)

	require.Len(t, ingestor.samples, 1)
	assert.False(t, msg.acked, "the broker must redeliver samples lost to a store outage")
}

func TestHandleMessage_AcksUndecodablePayload(t *testing.T) {
	ingestor := &fakeIngestor{}
	g := newTestGateway(ingestor)

	msg := &fakeMessage{topic: "schooltransit/positions/KBX-001", payload: []byte("{not json")}
	g.handleMessage(nil, msg)

	assert.Empty(t, ingestor.samples)
	assert.True(t, msg.acked)
}

func TestDecodeSample(t *testing.T) {
	payload := []byte(`{
		"vehicle_id": "ignored",
		"location": {"lat": -1.2864, "lon": 36.8172},
		"speed": 42.5,
		"heading": 180,
		"timestamp": "2026-08-29T07:15:00Z"
	}`)

	sample, err := DecodeSample("schooltransit/positions/KBX-001", payload)
	require.NoError(t, err)
	assert.Equal(t, "KBX-001", sample.VehicleID, "topic segment overrides payload id")
	assert.Equal(t, -1.2864, sample.Location.Lat)
	assert.Equal(t, 42.5, sample.Speed)
	assert.Equal(t, time.Date(2026, 8, 29, 7, 15, 0, 0, time.UTC), sample.Timestamp)
}

func TestDecodeSample_ShortTopicKeepsPayloadID(t *testing.T) {
	payload := []byte(`{"vehicle_id": "KBX-007", "location": {"lat": 0, "lon": 0}, "timestamp": "2026-08-29T07:15:00Z"}`)
	sample, err := DecodeSample("positions", payload)
	require.NoError(t, err)
	assert.Equal(t, "KBX-007", sample.VehicleID)
}

func TestDecodeSample_BadJSON(t *testing.T) {
	_, err := DecodeSample("schooltransit/positions/KBX-001", []byte("{not json"))
	assert.Error(t, err)
}

func TestVehicleIDFromTopic(t *testing.T) {
	assert.Equal(t, "KBX-001", vehicleIDFromTopic("schooltransit/positions/KBX-001"))
	assert.Equal(t, "", vehicleIDFromTopic("schooltransit/positions/+"))
	assert.Equal(t, "", vehicleIDFromTopic("positions"))
}

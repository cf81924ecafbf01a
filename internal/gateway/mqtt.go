package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/school-transit/internal/models"
	"github.com/ukydev/school-transit/internal/pipeline"
)

// Ingestor is the slice of the pipeline the gateway needs.
type Ingestor interface {
	Ingest(ctx context.Context, sample models.PositionSample) ([]models.Event, error)
}

// MQTTGateway subscribes to device position topics and feeds decoded samples
// into the pipeline. Topic layout: schooltransit/positions/{vehicleId}; the
// topic's vehicle id wins over the payload's.
type MQTTGateway struct {
	client   mqtt.Client
	topic    string
	ingestor Ingestor
	logger   *log.Entry
}

// NewMQTTGateway connects to the broker and returns a gateway ready to start.
func NewMQTTGateway(brokerURL, clientID, topic string, ingestor Ingestor) (*MQTTGateway, error) {
	// Manual acks: a sample that fails on a store outage stays unacked so
	// the broker redelivers it (QoS 1).
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetAutoAckDisabled(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	return &MQTTGateway{
		client:   client,
		topic:    topic,
		ingestor: ingestor,
		logger:   log.WithField("component", "gateway"),
	}, nil
}

// Start subscribes to the position topic at QoS 1.
func (g *MQTTGateway) Start() error {
	token := g.client.Subscribe(g.topic, 1, g.handleMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe: %w", token.Error())
	}
	g.logger.WithField("topic", g.topic).Info("gateway subscribed")
	return nil
}

// Stop unsubscribes and disconnects.
func (g *MQTTGateway) Stop() {
	g.client.Unsubscribe(g.topic)
	g.client.Disconnect(250)
}

func (g *MQTTGateway) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	sample, err := DecodeSample(msg.Topic(), msg.Payload())
	if err != nil {
		g.logger.WithField("topic", msg.Topic()).WithError(err).Warn("undecodable sample dropped")
		msg.Ack()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := g.ingestor.Ingest(ctx, sample); err != nil {
		fields := log.Fields{"vehicle_id": sample.VehicleID, "topic": msg.Topic()}
		var depErr *pipeline.DependencyError
		switch {
		case errors.Is(err, pipeline.ErrInvalidSample):
			// Dropped for good; the device must not re-send the same sample.
			g.logger.WithFields(fields).WithError(err).Warn("sample rejected")
			msg.Ack()
		case errors.As(err, &depErr):
			// Left unacked: the broker redelivers once the store recovers.
			g.logger.WithFields(fields).WithError(err).Error("sample failed on dependency")
		default:
			g.logger.WithFields(fields).WithError(err).Error("sample failed")
		}
		return
	}
	msg.Ack()
}

// DecodeSample parses a device payload. The vehicle id is taken from the
// topic's last segment when present.
func DecodeSample(topic string, payload []byte) (models.PositionSample, error) {
	var sample models.PositionSample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return models.PositionSample{}, fmt.Errorf("decode payload: %w", err)
	}
	if id := vehicleIDFromTopic(topic); id != "" {
		sample.VehicleID = id
	}
	return sample, nil
}

func vehicleIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	last := parts[len(parts)-1]
	if last == "+" || last == "#" {
		return ""
	}
	return last
}

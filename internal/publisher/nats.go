package publisher

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/school-transit/internal/models"
)

// NATSPublisher mirrors every domain event onto NATS so out-of-process
// consumers (alerting, parent notifications) can react without holding a
// live session. Implements pipeline.EventSink; delivery is best-effort.
type NATSPublisher struct {
	nc     *nats.Conn
	logger *log.Entry
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	logger := log.WithField("component", "nats")
	nc, err := nats.Connect(url,
		nats.Name("school-transit"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			logger.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc, logger: logger}, nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// PublishEvents publishes each event on schooltransit.events.{vehicleId}.
func (p *NATSPublisher) PublishEvents(vehicleID string, events []models.Event) {
	subject := fmt.Sprintf("schooltransit.events.%s", subjectToken(vehicleID))
	for i := range events {
		b, err := json.Marshal(&events[i])
		if err != nil {
			p.logger.WithError(err).Error("event marshal failed")
			continue
		}
		if err := p.nc.Publish(subject, b); err != nil {
			p.logger.WithFields(log.Fields{
				"subject": subject,
				"type":    events[i].Type,
			}).WithError(err).Warn("nats publish failed")
		}
	}
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}

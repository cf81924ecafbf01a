package broadcast

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/school-transit/internal/models"
	"github.com/ukydev/school-transit/internal/state"
)

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrInvalidTopic   = errors.New("invalid topic")
	ErrForbiddenTopic = errors.New("forbidden topic")
)

// TopicVehicle names the public channel carrying one vehicle's updates.
func TopicVehicle(vehicleID string) string { return "vehicle:" + vehicleID }

// TopicUser names a user's private channel.
func TopicUser(userID string) string { return "user:" + userID }

// StateReader supplies a vehicle snapshot for late-joining sessions.
type StateReader interface {
	Get(vehicleID string) (state.LiveState, bool)
}

// Metrics receives hub delivery counters. All methods must be safe for
// concurrent use; a nil Metrics disables instrumentation.
type Metrics interface {
	SessionOpened()
	SessionClosed()
	MessageDelivered()
	MessageDropped()
}

// Hub fans position updates and domain events out to live sessions. Delivery
// is best-effort and at-most-once: a session that joins after an event was
// published receives only the LiveState snapshot, never a replay. Messages
// for a single vehicle reach any one session in publish order.
type Hub struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	topics    map[string]map[string]*Session
	states    StateReader
	queueSize int
	metrics   Metrics
	logger    *log.Entry
}

// NewHub creates a hub. states may be nil, which disables snapshots on join.
func NewHub(states StateReader, queueSize int, metrics Metrics) *Hub {
	return &Hub{
		sessions:  make(map[string]*Session),
		topics:    make(map[string]map[string]*Session),
		states:    states,
		queueSize: queueSize,
		metrics:   metrics,
		logger:    log.WithField("component", "broadcast"),
	}
}

// Connect registers a new session for an authenticated user and starts its
// writer. The caller owns the read side of the connection.
func (h *Hub) Connect(userID string, role models.Role, conn Conn) *Session {
	sess := newSession(userID, role, conn, h.queueSize, h.countDrop)

	h.mu.Lock()
	h.sessions[sess.ID] = sess
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SessionOpened()
	}
	h.logger.WithFields(log.Fields{
		"session_id": sess.ID,
		"user_id":    userID,
	}).Info("session connected")
	return sess
}

// Subscribe joins a session to a topic. Joining twice is a no-op. Private
// user topics are restricted to their owner, staff and admins.
func (h *Hub) Subscribe(sessionID, topic string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess, ok := h.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	if err := authorizeTopic(sess, topic); err != nil {
		return err
	}

	members, ok := h.topics[topic]
	if !ok {
		members = make(map[string]*Session)
		h.topics[topic] = members
	}
	if _, joined := members[sessionID]; joined {
		return nil
	}
	members[sessionID] = sess

	// Resync late joiners of a vehicle topic with the current live state.
	if vehicleID, isVehicle := strings.CutPrefix(topic, "vehicle:"); isVehicle && h.states != nil {
		if st, tracked := h.states.Get(vehicleID); tracked {
			sess.Enqueue(Message{Kind: "snapshot", Topic: topic, State: &Snapshot{
				VehicleID: vehicleID,
				Location:  st.Location,
				Speed:     st.Speed,
				Heading:   st.Heading,
				Timestamp: st.Timestamp.Unix(),
				Zones:     st.Zones,
			}})
		}
	}
	return nil
}

// Unsubscribe removes a session from a topic. Leaving a topic the session
// never joined is a no-op.
func (h *Hub) Unsubscribe(sessionID, topic string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[sessionID]; !ok {
		return ErrUnknownSession
	}
	h.removeFromTopic(sessionID, topic)
	return nil
}

// Disconnect tears a session down: pending deliveries are cancelled, the
// connection is closed and every topic membership is released.
func (h *Hub) Disconnect(sessionID string) {
	h.mu.Lock()
	sess, ok := h.sessions[sessionID]
	if ok {
		delete(h.sessions, sessionID)
		for topic := range h.topics {
			h.removeFromTopic(sessionID, topic)
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	sess.close()
	if h.metrics != nil {
		h.metrics.SessionClosed()
	}
	h.logger.WithField("session_id", sessionID).Info("session disconnected")
}

// PublishEvents delivers a batch of events for one vehicle to the vehicle
// topic, preserving batch order per session. Implements pipeline.EventSink.
func (h *Hub) PublishEvents(vehicleID string, events []models.Event) {
	topic := TopicVehicle(vehicleID)
	for i := range events {
		h.publish(topic, &events[i])
	}
}

// PublishToUser delivers an event to a user's private channel.
func (h *Hub) PublishToUser(userID string, event models.Event) {
	h.publish(TopicUser(userID), &event)
}

func (h *Hub) publish(topic string, event *models.Event) {
	h.mu.RLock()
	members := make([]*Session, 0, len(h.topics[topic]))
	for _, sess := range h.topics[topic] {
		members = append(members, sess)
	}
	h.mu.RUnlock()

	msg := Message{Kind: "event", Topic: topic, Event: event}
	for _, sess := range members {
		sess.Enqueue(msg)
		if h.metrics != nil {
			h.metrics.MessageDelivered()
		}
	}
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// removeFromTopic must be called with h.mu held.
func (h *Hub) removeFromTopic(sessionID, topic string) {
	members, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(h.topics, topic)
	}
}

func (h *Hub) countDrop() {
	if h.metrics != nil {
		h.metrics.MessageDropped()
	}
}

func authorizeTopic(sess *Session, topic string) error {
	switch {
	case strings.HasPrefix(topic, "vehicle:"):
		return nil
	case strings.HasPrefix(topic, "user:"):
		owner := strings.TrimPrefix(topic, "user:")
		if owner == sess.UserID || sess.Role == models.RoleAdmin || sess.Role == models.RoleStaff {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrForbiddenTopic, topic)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
}

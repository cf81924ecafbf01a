package broadcast

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/school-transit/internal/models"
)

// Conn is the transport a session writes to. *websocket.Conn from
// gorilla/websocket satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Message is the envelope delivered to live sessions.
type Message struct {
	Kind  string        `json:"kind"` // "event", "snapshot" or "ack"
	Topic string        `json:"topic,omitempty"`
	Event *models.Event `json:"event,omitempty"`
	State *Snapshot     `json:"state,omitempty"`
	Ack   *Ack          `json:"ack,omitempty"`
}

// Ack reports the outcome of a subscribe/unsubscribe command.
type Ack struct {
	OK     bool   `json:"ok"`
	Topic  string `json:"topic,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Snapshot is the current live state of a vehicle, sent to a session when it
// joins a vehicle topic so late joiners can resynchronize without replay.
type Snapshot struct {
	VehicleID string                       `json:"vehicle_id"`
	Location  models.Location              `json:"location"`
	Speed     float64                      `json:"speed"`
	Heading   float64                      `json:"heading"`
	Timestamp int64                        `json:"timestamp"`
	Zones     map[string]models.Membership `json:"zones"`
}

// Session is one live authenticated connection. Outbound messages flow
// through a bounded queue drained by a single writer goroutine; when the
// queue is full the oldest message is dropped so a slow reader can never
// block a publisher.
type Session struct {
	ID     string
	UserID string
	Role   models.Role

	conn    Conn
	out     chan Message
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool

	onDrop func()
}

func newSession(userID string, role models.Role, conn Conn, queueSize int, onDrop func()) *Session {
	if queueSize <= 0 {
		queueSize = 64
	}
	s := &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		Role:   role,
		conn:   conn,
		out:    make(chan Message, queueSize),
		done:   make(chan struct{}),
		onDrop: onDrop,
	}
	go s.writeLoop()
	return s
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.out:
			if err := s.conn.WriteJSON(msg); err != nil {
				log.WithFields(log.Fields{
					"session_id": s.ID,
					"user_id":    s.UserID,
				}).WithError(err).Debug("session write failed")
				s.close()
				return
			}
		}
	}
}

// Enqueue adds a message for delivery through the session's writer, dropping
// the oldest queued message when the buffer is full. Never blocks the caller.
// All writes to the underlying connection must go through here; the writer
// goroutine is the connection's only writer.
func (s *Session) Enqueue(msg Message) {
	for {
		select {
		case <-s.done:
			return
		case s.out <- msg:
			return
		default:
		}
		select {
		case <-s.out:
			if s.onDrop != nil {
				s.onDrop()
			}
		default:
		}
	}
}

func (s *Session) close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	_ = s.conn.Close()
}

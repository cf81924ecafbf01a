package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/school-transit/internal/auth"
	"github.com/ukydev/school-transit/internal/broadcast"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientCommand is what a connected session sends to manage subscriptions.
type clientCommand struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Topic  string `json:"topic"`
}

// WSHandler upgrades authenticated requests into live broadcast sessions.
type WSHandler struct {
	authService *auth.Service
	hub         *broadcast.Hub
}

// NewWSHandler creates a websocket session handler.
func NewWSHandler(authService *auth.Service, hub *broadcast.Hub) *WSHandler {
	return &WSHandler{authService: authService, hub: hub}
}

// Serve handles GET /ws. The credential comes from the Authorization header
// or, for browser clients that cannot set headers on websocket dials, the
// "token" query parameter.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	credential := r.Header.Get("Authorization")
	if credential == "" {
		credential = r.URL.Query().Get("token")
	}
	claims, err := h.authService.ValidateToken(credential)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	sess := h.hub.Connect(claims.UserID, claims.Role, conn)
	defer h.hub.Disconnect(sess.ID)

	// Acks are queued on the session rather than written here; the session's
	// writer goroutine is the connection's only writer.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			enqueueAck(sess, broadcast.Ack{OK: false, Reason: "invalid command"})
			continue
		}

		switch cmd.Action {
		case "subscribe":
			err = h.hub.Subscribe(sess.ID, cmd.Topic)
		case "unsubscribe":
			err = h.hub.Unsubscribe(sess.ID, cmd.Topic)
		default:
			err = errors.New("unknown action")
		}
		if err != nil {
			enqueueAck(sess, broadcast.Ack{OK: false, Topic: cmd.Topic, Reason: err.Error()})
			continue
		}
		enqueueAck(sess, broadcast.Ack{OK: true, Topic: cmd.Topic})
	}
}

func enqueueAck(sess *broadcast.Session, ack broadcast.Ack) {
	sess.Enqueue(broadcast.Message{Kind: "ack", Ack: &ack})
}

// internal/server/handlers/websocket.go

package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sightmap/internal/domain/observation"
	"sightmap/internal/logging"
	"sightmap/internal/metrics"
)

// Message types sent to dashboard clients
const (
	MessageWelcome    = "welcome"
	MessageUserAdded  = "user_added"
	MessageTripAdded  = "trip_added"
	MessagePointAdded = "point_added"
)

// Message is one websocket frame sent to dashboard clients
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
	Time time.Time   `json:"time"`
}

// EventMessage converts an applied push event into a client message
func EventMessage(ev observation.Event) Message {
	msg := Message{Time: time.Now().UTC()}
	switch ev.Kind {
	case observation.KindUsers:
		msg.Type, msg.Data = MessageUserAdded, ev.User
	case observation.KindTrips:
		msg.Type, msg.Data = MessageTripAdded, ev.Trip
	case observation.KindPoints:
		msg.Type, msg.Data = MessagePointAdded, ev.Point
	}
	return msg
}

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64

	// Frames queued per client before it is dropped
	SendBuffer int
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 4096,
		SendBuffer:     256,
	}
}

// Hub tracks connected dashboard clients and fans messages out to them
type Hub struct {
	clients   map[*WebSocketClient]struct{}
	broadcast chan []byte
	stopped   bool
	mu        sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*WebSocketClient]struct{}),
		broadcast: make(chan []byte, 256),
	}
}

// Serve runs the hub until ctx is done, then closes every client
func (h *Hub) Serve(ctx context.Context) error {
	log := logging.With("websocket-hub")

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.stopped = true
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			metrics.WSConnections.Set(0)
			log.Info().Msg("hub stopped")
			return ctx.Err()

		case frame := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- frame:
				default:
					// Slow client; drop it rather than stall everyone
					delete(h.clients, c)
					close(c.send)
					log.Warn().Str("client_id", c.id).Msg("dropping slow websocket client")
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WSConnections.Set(float64(n))
		}
	}
}

// add registers c. Once the hub has stopped it refuses and reports false.
func (h *Hub) add(c *WebSocketClient) bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(n))
	log := logging.With("websocket-hub")
	log.Info().Str("client_id", c.id).Int("total_clients", n).Msg("websocket client connected")
	return true
}

func (h *Hub) remove(c *WebSocketClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.WSConnections.Set(float64(n))
		log := logging.With("websocket-hub")
		log.Info().Str("client_id", c.id).Int("total_clients", n).Msg("websocket client disconnected")
	}
}

// String names the hub for supervisor logs
func (h *Hub) String() string {
	return "websocket-hub"
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. It never blocks the caller; when
// the queue is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		logging.Error().Err(err).Str("type", msg.Type).Msg("failed to marshal websocket message")
		return
	}

	select {
	case h.broadcast <- frame:
		metrics.WSMessagesSent.WithLabelValues(msg.Type).Inc()
	default:
		logging.Warn().Str("type", msg.Type).Msg("websocket broadcast queue full, message dropped")
	}
}

// BroadcastEvent is a session listener forwarding applied push events
func (h *Hub) BroadcastEvent(ev observation.Event) {
	h.Broadcast(EventMessage(ev))
}

// WebSocketClient represents a connected WebSocket client
type WebSocketClient struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	config WebSocketConfig
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origins are enforced by the CORS layer
		return true
	},
}

// DashboardWebSocketHandler upgrades the request and streams push events
// applied to the session
func DashboardWebSocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn().Err(err).Msg("failed to upgrade to websocket")
			return
		}

		config := DefaultWebSocketConfig()
		client := &WebSocketClient{
			id:     uuid.New().String(),
			hub:    hub,
			conn:   conn,
			send:   make(chan []byte, config.SendBuffer),
			config: config,
		}

		welcome, _ := json.Marshal(Message{
			Type: MessageWelcome,
			Data: map[string]string{"client_id": client.id},
			Time: time.Now().UTC(),
		})
		client.send <- welcome

		if !hub.add(client) {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(config.WriteWait))
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// readPump drains the connection so pongs and close frames are seen.
// Dashboard clients do not send commands.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Debug().Err(err).Str("client_id", c.id).Msg("websocket read error")
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction"
	"github.com/mcdev12/auctionhouse/go/internal/metrics"
	"github.com/mcdev12/auctionhouse/go/internal/outbox"
	"github.com/rs/zerolog/log"
)

// StateSource supplies the snapshot pushed to viewers
type StateSource interface {
	Session(sessionID uuid.UUID) (*liveauction.Snapshot, error)
}

// Push message types
const (
	MessageTypeState = "state"
	MessageTypeEvent = "event"
	MessageTypeEnded = "ended"
)

// PushMessage is what viewers receive over the socket
type PushMessage struct {
	Type       string                `json:"type"`
	SessionID  string                `json:"sessionId"`
	ServerTime time.Time             `json:"serverTime"`
	Snapshot   *liveauction.Snapshot `json:"snapshot,omitempty"`
	Event      *outbox.Envelope      `json:"event,omitempty"`
}

// ConnectionManager manages WebSocket viewers of live auction sessions.
// It pushes a fresh snapshot to a session's viewers after each committed
// change.
type ConnectionManager struct {
	// Connection pools organized by session ID
	sessionConnections map[uuid.UUID]map[*Connection]bool
	mu                 sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	source   StateSource
	clock    clockwork.Clock

	broadcastCh chan broadcast
}

// Connection represents a WebSocket connection to a viewer
type Connection struct {
	ID        string
	UserID    string
	SessionID uuid.UUID
	Conn      *websocket.Conn
	Send      chan []byte
	Manager   *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type broadcast struct {
	sessionID uuid.UUID
	event     *outbox.Envelope
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, source StateSource, clock clockwork.Clock) *ConnectionManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConnectionManager{
		sessionConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		source:      source,
		clock:       clock,
		broadcastCh: make(chan broadcast, 1000),
	}
}

// Start processes broadcasts until ctx is done
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// Notify queues a snapshot push for a session. It never blocks, so the
// session controller can call it while holding the session lock.
func (cm *ConnectionManager) Notify(sessionID uuid.UUID) {
	cm.enqueue(broadcast{sessionID: sessionID})
}

// BroadcastEvent relays a domain event to a session's viewers, followed
// by a fresh snapshot.
func (cm *ConnectionManager) BroadcastEvent(sessionID uuid.UUID, event *outbox.Envelope) {
	cm.enqueue(broadcast{sessionID: sessionID, event: event})
}

func (cm *ConnectionManager) enqueue(b broadcast) {
	select {
	case cm.broadcastCh <- b:
	default:
		log.Warn().Str("session_id", b.sessionID.String()).Msg("broadcast channel full, dropping message")
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and sends
// the current snapshot
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID string, sessionID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		SessionID:   sessionID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: cm.clock.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	if data, ok := cm.stateMessage(sessionID); ok {
		cm.deliver(connection, data)
	}

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("session_id", sessionID.String()).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.sessionConnections[conn.SessionID] == nil {
		cm.sessionConnections[conn.SessionID] = make(map[*Connection]bool)
	}
	cm.sessionConnections[conn.SessionID][conn] = true
	metrics.WebSocketConnections.Inc()

	log.Debug().
		Str("connection_id", conn.ID).
		Str("session_id", conn.SessionID.String()).
		Int("total_connections", len(cm.sessionConnections[conn.SessionID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.sessionConnections[conn.SessionID]
	if !exists {
		return
	}
	if _, exists := connections[conn]; !exists {
		return
	}
	delete(connections, conn)
	close(conn.Send)
	metrics.WebSocketConnections.Dec()

	if len(connections) == 0 {
		delete(cm.sessionConnections, conn.SessionID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("session_id", conn.SessionID.String()).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) targets(sessionID uuid.UUID) []*Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	connections := cm.sessionConnections[sessionID]
	out := make([]*Connection, 0, len(connections))
	for conn := range connections {
		out = append(out, conn)
	}
	return out
}

// stateMessage encodes the session's current snapshot, or an ended
// message once the session is gone
func (cm *ConnectionManager) stateMessage(sessionID uuid.UUID) ([]byte, bool) {
	msg := PushMessage{
		Type:       MessageTypeState,
		SessionID:  sessionID.String(),
		ServerTime: cm.clock.Now(),
	}
	snap, err := cm.source.Session(sessionID)
	switch {
	case errors.Is(err, liveauction.ErrNotFound):
		msg.Type = MessageTypeEnded
	case err != nil:
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to load session for push")
		return nil, false
	default:
		msg.Snapshot = snap
	}
	return cm.encode(msg)
}

func (cm *ConnectionManager) encode(msg PushMessage) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal push message")
		return nil, false
	}
	return data, true
}

func (cm *ConnectionManager) handleBroadcast(message broadcast) {
	targets := cm.targets(message.sessionID)
	if len(targets) == 0 {
		return
	}

	var payloads [][]byte
	if message.event != nil {
		if data, ok := cm.encode(PushMessage{
			Type:       MessageTypeEvent,
			SessionID:  message.sessionID.String(),
			ServerTime: cm.clock.Now(),
			Event:      message.event,
		}); ok {
			payloads = append(payloads, data)
		}
	}
	if data, ok := cm.stateMessage(message.sessionID); ok {
		payloads = append(payloads, data)
	}

	for _, conn := range targets {
		for _, data := range payloads {
			if !cm.deliver(conn, data) {
				break
			}
		}
	}

	log.Debug().
		Str("session_id", message.sessionID.String()).
		Int("connections", len(targets)).
		Msg("session state pushed")
}

// deliver queues data on a connection, closing it when its buffer is full
func (cm *ConnectionManager) deliver(conn *Connection, data []byte) (ok bool) {
	defer func() {
		// Send may have been closed by a concurrent unregister
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case conn.Send <- data:
		return true
	default:
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
		return false
	}
}

// Stats returns statistics about active connections
func (cm *ConnectionManager) Stats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	total := 0
	perSession := make(map[string]int)
	for sessionID, connections := range cm.sessionConnections {
		total += len(connections)
		perSession[sessionID.String()] = len(connections)
	}

	return map[string]interface{}{
		"total_connections":   total,
		"active_sessions":     len(cm.sessionConnections),
		"session_connections": perSession,
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump drains the connection; viewers do not send commands
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

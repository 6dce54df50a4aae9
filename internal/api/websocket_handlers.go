package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/entrepeneur4lyf/repairforge/internal/app"
	"github.com/entrepeneur4lyf/repairforge/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 8 << 20
	sendBuffer     = 64
)

// WebSocketMessage is the envelope for every socket message in both
// directions.
type WebSocketMessage struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	EventID string `json:"event_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// inboundMessage is WebSocketMessage with the payload left undecoded.
type inboundMessage struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	EventID string          `json:"event_id,omitempty"`
}

// wsClient is one socket with a buffered writer goroutine. A client whose
// buffer fills is disconnected.
type wsClient struct {
	id     string
	kind   string
	conn   *websocket.Conn
	send   chan WebSocketMessage
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	log    *log.Logger
}

func newWSClient(parent context.Context, kind string, conn *websocket.Conn, logger *log.Logger) *wsClient {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()
	return &wsClient{
		id:     id,
		kind:   kind,
		conn:   conn,
		send:   make(chan WebSocketMessage, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
		log:    logger.With("client", id, "kind", kind),
	}
}

// sendMessage queues msg without blocking.
func (c *wsClient) sendMessage(msg WebSocketMessage) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.log.Warn("Send buffer full, disconnecting")
		c.close()
		return false
	}
}

func (c *wsClient) sendError(message, eventID string) {
	c.sendMessage(WebSocketMessage{Type: "error", Error: message, EventID: eventID})
}

func (c *wsClient) close() {
	c.once.Do(func() {
		c.cancel()
		c.conn.Close()
	})
}

// writePump handles outgoing WebSocket messages
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.log.Debug("WebSocket write error", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump decodes incoming messages and hands them to handle until the
// socket closes.
func (c *wsClient) readPump(handle func(inboundMessage)) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inboundMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Debug("WebSocket read error", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		handle(msg)
	}
}

// ConnectionManager tracks active WebSocket clients
type ConnectionManager struct {
	mu      sync.RWMutex
	clients map[string]*wsClient
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{clients: make(map[string]*wsClient)}
}

func (cm *ConnectionManager) add(c *wsClient) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.clients[c.id] = c
}

func (cm *ConnectionManager) remove(c *wsClient) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.clients, c.id)
}

// Stats returns the number of connected clients per kind.
func (cm *ConnectionManager) Stats() map[string]int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	stats := map[string]int{"state": 0, "live": 0}
	for _, c := range cm.clients {
		stats[c.kind]++
	}
	return stats
}

// CloseAll disconnects every client.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	clients := make([]*wsClient, 0, len(cm.clients))
	for _, c := range cm.clients {
		clients = append(clients, c)
	}
	cm.mu.RUnlock()
	for _, c := range clients {
		c.close()
	}
}

// handleStateWebSocket pushes every state snapshot to the client, starting
// with the current one.
func (s *Server) handleStateWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := newWSClient(s.background, "state", conn, s.log)
	s.connectionManager.add(client)
	client.log.Debug("WebSocket client connected")

	updates := s.ctrl.Store().Subscribe(client.ctx, events.FilterByType[app.State](events.StateChanged))
	client.sendMessage(WebSocketMessage{Type: "state", Data: stateView(s.ctrl.State())})

	go client.writePump()
	go func() {
		for ev := range updates {
			if ev.Type != events.StateChanged {
				continue
			}
			if !client.sendMessage(WebSocketMessage{Type: "state", Data: stateView(ev.Payload), EventID: ev.ID}) {
				return
			}
		}
	}()

	client.readPump(func(msg inboundMessage) {
		switch msg.Type {
		case "ping":
			client.sendMessage(WebSocketMessage{Type: "pong", EventID: msg.EventID})
		case "state":
			client.sendMessage(WebSocketMessage{Type: "state", Data: stateView(s.ctrl.State()), EventID: msg.EventID})
		default:
			client.sendError("unknown message type: "+msg.Type, msg.EventID)
		}
	})

	s.connectionManager.remove(client)
	client.log.Debug("WebSocket client disconnected")
}

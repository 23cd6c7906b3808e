package websocket

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"verdant/cultivation-portal/cultivation-backend/internal/notifications"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBufferSize = 64
)

// Manager owns WebSocket connections and fans lifecycle events out to them
type Manager struct {
	connections map[string]*Connection
	mu          sync.RWMutex
	hub         *hub
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// Connection is one connected dashboard client
type Connection struct {
	ID           string
	UserID       string
	Conn         *websocket.Conn
	Send         chan notifications.WebSocketMessage
	LastActivity time.Time
	mu           sync.Mutex
}

type hub struct {
	connections map[*Connection]bool
	broadcast   chan notifications.WebSocketMessage
	register    chan *Connection
	unregister  chan *Connection
	stop        chan struct{}
}

// NewManager creates a manager and starts its hub goroutine
func NewManager(logger *zap.Logger) *Manager {
	h := &hub{
		connections: make(map[*Connection]bool),
		broadcast:   make(chan notifications.WebSocketMessage, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		stop:        make(chan struct{}),
	}

	m := &Manager{
		connections: make(map[string]*Connection),
		hub:         h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict origins once the frontend host is fixed
				return true
			},
		},
		logger: logger,
	}

	go m.run()
	return m
}

// HandleConnection upgrades an HTTP request and registers the client
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request, userID string) (*Connection, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:           uuid.New().String(),
		UserID:       userID,
		Conn:         conn,
		Send:         make(chan notifications.WebSocketMessage, sendBufferSize),
		LastActivity: time.Now(),
	}

	m.hub.register <- connection
	m.mu.Lock()
	m.connections[connection.ID] = connection
	m.mu.Unlock()

	go m.readPump(connection)
	go m.writePump(connection)

	return connection, nil
}

func (m *Manager) readPump(conn *Connection) {
	defer func() {
		m.hub.unregister <- conn
		m.mu.Lock()
		delete(m.connections, conn.ID)
		m.mu.Unlock()
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(maxMessageSize)
	conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Clients only listen; inbound frames just refresh activity.
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Warn("WebSocket read failed", zap.Error(err))
			}
			return
		}
		conn.mu.Lock()
		conn.LastActivity = time.Now()
		conn.mu.Unlock()
	}
}

func (m *Manager) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m *Manager) run() {
	for {
		select {
		case conn := <-m.hub.register:
			m.hub.connections[conn] = true
			m.logger.Debug("WebSocket client connected",
				zap.String("connection_id", conn.ID),
				zap.String("user_id", conn.UserID))

		case conn := <-m.hub.unregister:
			if _, ok := m.hub.connections[conn]; ok {
				delete(m.hub.connections, conn)
				close(conn.Send)
				m.logger.Debug("WebSocket client disconnected",
					zap.String("connection_id", conn.ID))
			}

		case message := <-m.hub.broadcast:
			for conn := range m.hub.connections {
				select {
				case conn.Send <- message:
				default:
					close(conn.Send)
					delete(m.hub.connections, conn)
				}
			}

		case <-m.hub.stop:
			for conn := range m.hub.connections {
				close(conn.Send)
				delete(m.hub.connections, conn)
			}
			return
		}
	}
}

// Broadcast pushes a message to every connected client without blocking the
// caller. Full buffer drops the message; clients catch up from the event feed.
func (m *Manager) Broadcast(message notifications.WebSocketMessage) {
	select {
	case m.hub.broadcast <- message:
	default:
		m.logger.Warn("Broadcast buffer full, dropping message",
			zap.String("type", message.Type))
	}
}

// ConnectionCount returns the number of active connections
func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Close stops the hub and closes all connections
func (m *Manager) Close() {
	close(m.hub.stop)

	m.mu.Lock()
	for _, conn := range m.connections {
		conn.Conn.Close()
	}
	m.connections = make(map[string]*Connection)
	m.mu.Unlock()
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Broadcaster manages WebSocket client connections for the demo page and
// pushes generation lifecycle and GPU metric updates to all of them.
// Safe for concurrent use.
type Broadcaster struct {
	clients   map[*websocket.Conn]clientInfo
	clientsMu sync.RWMutex

	broadcast  chan WSMessage
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}

	upgrader websocket.Upgrader

	pingInterval   time.Duration
	pongWait       time.Duration
	writeWait      time.Duration
	maxMessageSize int64

	logger *zap.Logger
}

type clientInfo struct {
	connectedAt time.Time
	remoteAddr  string
	send        chan []byte
}

// BroadcasterConfig holds tuning knobs for the Broadcaster.
type BroadcasterConfig struct {
	// PingInterval is how often to ping clients (default 30s).
	PingInterval time.Duration

	// PongWait is how long to wait for a pong response (default 60s).
	PongWait time.Duration

	// WriteWait is the time allowed to write one message (default 10s).
	WriteWait time.Duration

	// MaxMessageSize caps messages from clients (default 512 bytes).
	MaxMessageSize int64

	// BroadcastBufferSize is the broadcast channel buffer (default 64).
	BroadcastBufferSize int

	// ClientSendBufferSize is the per-client send buffer (default 64).
	ClientSendBufferSize int
}

// DefaultBroadcasterConfig returns the default configuration.
func DefaultBroadcasterConfig() BroadcasterConfig {
	return BroadcasterConfig{
		PingInterval:         30 * time.Second,
		PongWait:             60 * time.Second,
		WriteWait:            10 * time.Second,
		MaxMessageSize:       512,
		BroadcastBufferSize:  64,
		ClientSendBufferSize: 64,
	}
}

// NewBroadcaster creates a Broadcaster. Call Start to begin processing.
func NewBroadcaster(cfg BroadcasterConfig, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 512
	}
	if cfg.BroadcastBufferSize <= 0 {
		cfg.BroadcastBufferSize = 64
	}

	return &Broadcaster{
		clients:        make(map[*websocket.Conn]clientInfo),
		broadcast:      make(chan WSMessage, cfg.BroadcastBufferSize),
		register:       make(chan *websocket.Conn),
		unregister:     make(chan *websocket.Conn),
		done:           make(chan struct{}),
		pingInterval:   cfg.PingInterval,
		pongWait:       cfg.PongWait,
		writeWait:      cfg.WriteWait,
		maxMessageSize: cfg.MaxMessageSize,
		logger:         logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The demo page is served from the same origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start runs the broadcast loop until the context is cancelled. Call at
// most once.
func (b *Broadcaster) Start(ctx context.Context) {
	b.logger.Debug("broadcaster started")

	for {
		select {
		case <-ctx.Done():
			close(b.done)
			b.closeAllClients()
			return

		case conn := <-b.register:
			b.addClient(conn)

		case conn := <-b.unregister:
			b.removeClient(conn)

		case msg := <-b.broadcast:
			b.broadcastToAll(msg)
		}
	}
}

// HandleConnection upgrades an HTTP request to a WebSocket and registers
// the client.
func (b *Broadcaster) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		return
	}

	conn.SetReadLimit(b.maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(b.pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(b.pongWait))
		return nil
	})

	select {
	case b.register <- conn:
	case <-b.done:
		conn.Close()
		return
	}

	go b.readPump(conn)
}

// BroadcastMessage queues a message for all connected clients. Non-blocking;
// the message is dropped if the broadcast buffer is full.
func (b *Broadcaster) BroadcastMessage(msg WSMessage) {
	select {
	case b.broadcast <- msg:
	default:
		b.logger.Warn("broadcast buffer full, dropping message",
			zap.String("type", msg.Type))
	}
}

// BroadcastGenerationUpdate queues a generation lifecycle event.
func (b *Broadcaster) BroadcastGenerationUpdate(data GenerationUpdateData) {
	b.BroadcastMessage(NewGenerationUpdateMessage(data))
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()
	return len(b.clients)
}

// Close disconnects all clients.
func (b *Broadcaster) Close() {
	b.closeAllClients()
}

func (b *Broadcaster) addClient(conn *websocket.Conn) {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()

	info := clientInfo{
		connectedAt: time.Now(),
		remoteAddr:  conn.RemoteAddr().String(),
		send:        make(chan []byte, 64),
	}
	b.clients[conn] = info

	go b.writePump(conn, info.send)

	b.logger.Debug("client connected",
		zap.String("remote_addr", info.remoteAddr),
		zap.Int("total", len(b.clients)))
}

func (b *Broadcaster) removeClient(conn *websocket.Conn) {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()

	if info, ok := b.clients[conn]; ok {
		close(info.send)
		delete(b.clients, conn)
		conn.Close()
		b.logger.Debug("client disconnected",
			zap.String("remote_addr", info.remoteAddr),
			zap.Int("total", len(b.clients)))
	}
}

func (b *Broadcaster) broadcastToAll(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshal broadcast message", zap.Error(err))
		return
	}

	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()

	for conn, info := range b.clients {
		select {
		case info.send <- data:
		default:
			// Slow client, drop the connection rather than block.
			b.logger.Warn("client send buffer full, closing",
				zap.String("remote_addr", info.remoteAddr))
			go b.dropClient(conn)
		}
	}
}

// SendInitialState sends the state snapshot to a newly connected client.
func (b *Broadcaster) SendInitialState(conn *websocket.Conn, data InitialData) {
	raw, err := json.Marshal(NewInitialMessage(data))
	if err != nil {
		b.logger.Error("marshal initial state", zap.Error(err))
		return
	}

	b.clientsMu.RLock()
	info, ok := b.clients[conn]
	b.clientsMu.RUnlock()

	if ok {
		select {
		case info.send <- raw:
		default:
			b.logger.Warn("client send buffer full",
				zap.String("remote_addr", info.remoteAddr))
		}
	}
}

// dropClient hands conn to the broadcast loop for removal. Once the loop
// has stopped there is no receiver, so the connection is closed directly.
func (b *Broadcaster) dropClient(conn *websocket.Conn) {
	select {
	case b.unregister <- conn:
	case <-b.done:
		conn.Close()
	}
}

func (b *Broadcaster) closeAllClients() {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()

	for conn, info := range b.clients {
		close(info.send)
		conn.Close()
		delete(b.clients, conn)
	}
}

// readPump drains client messages. Clients only send pongs; anything else
// keeps the connection alive until close or error.
func (b *Broadcaster) readPump(conn *websocket.Conn) {
	defer b.dropClient(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				b.logger.Debug("unexpected close", zap.Error(err))
			}
			return
		}
	}
}

// writePump owns all writes to conn: queued broadcasts from send and the
// periodic pings. Keeping a single writer per connection is required by
// gorilla/websocket.
func (b *Broadcaster) writePump(conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(b.pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(b.writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				b.logger.Debug("write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(b.writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				b.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

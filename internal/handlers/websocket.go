package handlers

import (
	"net/http"
	"sync"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"
	"DEEPFAKE_DETECTOR/go-backend/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message types pushed to websocket clients.
const (
	MsgWelcome     = "WELCOME"
	MsgPong        = "PONG"
	MsgFrameScored = "FRAME_SCORED"
	MsgVerdict     = "VERDICT"
	MsgError       = "ERROR"
)

const (
	pongWait     = 60 * time.Second
	pingPeriod   = 50 * time.Second
	writeWait    = 10 * time.Second
	sendBuffered = 256
)

type WebSocketClient struct {
	conn     *websocket.Conn
	clientID string
	send     chan models.WebSocketMessage
	once     sync.Once
}

func (c *WebSocketClient) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks connected websocket clients by id and routes detection progress
// to the client that started the upload.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*WebSocketClient
	upgrader websocket.Upgrader
	metrics  *services.Metrics
	logger   *zap.Logger
}

func NewHub(metrics *services.Metrics, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = services.NewMetrics()
	}
	return &Hub{
		clients: make(map[string]*WebSocketClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		metrics: metrics,
		logger:  logger,
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request; the client id comes from ?clientId= or is generated.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = "client-" + uuid.NewString()
	}

	client := &WebSocketClient{
		conn:     conn,
		clientID: clientID,
		send:     make(chan models.WebSocketMessage, sendBuffered),
	}
	h.register(client)

	go h.writePump(client)
	go h.readPump(client)

	h.Send(clientID, models.WebSocketMessage{
		Type: MsgWelcome,
		Payload: map[string]interface{}{
			"message": "Connected to Deepfake Detection Server",
			"version": "1.0",
		},
	})
}

func (h *Hub) register(c *WebSocketClient) {
	h.mu.Lock()
	if old, ok := h.clients[c.clientID]; ok {
		old.close()
	}
	h.clients[c.clientID] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetActiveClients(n)
	h.logger.Info("websocket client connected", zap.String("client_id", c.clientID))
}

func (h *Hub) unregister(c *WebSocketClient) {
	h.mu.Lock()
	if cur, ok := h.clients[c.clientID]; ok && cur == c {
		delete(h.clients, c.clientID)
		c.close()
	}
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetActiveClients(n)
	h.logger.Info("websocket client disconnected", zap.String("client_id", c.clientID))
}

// Send queues msg for clientID. It reports false when the client is unknown
// or its buffer is full; progress is best effort and never blocks detection.
func (h *Hub) Send(clientID string, msg models.WebSocketMessage) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[clientID]
	if !ok {
		return false
	}
	msg.ClientID = clientID
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	select {
	case c.send <- msg:
		return true
	default:
		h.logger.Debug("websocket buffer full, dropping message", zap.String("client_id", clientID), zap.String("type", msg.Type))
		return false
	}
}

// FrameObserver returns an observer that streams FRAME_SCORED messages to
// clientID, or nil when clientID is empty.
func (h *Hub) FrameObserver(clientID string) services.FrameObserver {
	if clientID == "" {
		return nil
	}
	return services.FrameObserverFunc(func(ev models.FrameEvent) {
		h.Send(clientID, models.WebSocketMessage{Type: MsgFrameScored, Payload: ev})
	})
}

func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		c.close()
		c.conn.Close()
		h.logger.Debug("closed websocket client", zap.String("client_id", id))
	}
	h.clients = make(map[string]*WebSocketClient)
	h.metrics.SetActiveClients(0)
}

func (h *Hub) readPump(c *WebSocketClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg models.WebSocketMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.String("client_id", c.clientID), zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "PING":
			h.Send(c.clientID, models.WebSocketMessage{Type: MsgPong})
		default:
			h.logger.Debug("unknown websocket message", zap.String("client_id", c.clientID), zap.String("type", msg.Type))
		}
	}
}

func (h *Hub) writePump(c *WebSocketClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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

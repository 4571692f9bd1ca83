package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/journalforge/api/internal/model"
)

// Client represents a WebSocket client subscribed to one job. Its outbound
// queue is guarded so that the broadcast loop, the reader's pong replies and
// eviction can race without a send landing on a closed channel.
type Client struct {
	JobID string
	Conn  *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(jobID string, conn *websocket.Conn) *Client {
	return &Client{
		JobID: jobID,
		Conn:  conn,
		send:  make(chan []byte, 256),
	}
}

// enqueue offers a message to the client's outbound queue. It reports false
// when the client is closed or its buffer is full.
func (c *Client) enqueue(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// close shuts the outbound queue exactly once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub maintains active WebSocket connections grouped by job ID and fans
// pipeline progress events out to them. Delivery is best-effort: a slow
// client is dropped rather than allowed to stall the broadcast loop, and
// events published while nobody is subscribed are simply discarded.
type Hub struct {
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	logger *slog.Logger
	mu     sync.RWMutex
}

type broadcastMessage struct {
	JobID   string
	Message []byte
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.JobID] == nil {
				h.clients[client.JobID] = make(map[*Client]bool)
			}
			h.clients[client.JobID][client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "job_id", client.JobID)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.JobID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					client.close()
					if len(clients) == 0 {
						delete(h.clients, client.JobID)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "job_id", client.JobID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.clients[msg.JobID]; ok {
				for client := range clients {
					if !client.enqueue(msg.Message) {
						client.close()
						delete(clients, client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a new client
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish routes a pipeline progress event to the job's subscribers. If the
// broadcast buffer is full the event is dropped; the pipeline never blocks
// on slow consumers.
func (h *Hub) Publish(event model.ProgressEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal progress event", "error", err)
		return
	}

	select {
	case h.broadcast <- &broadcastMessage{JobID: event.JobID, Message: data}:
	default:
		h.logger.Warn("broadcast buffer full, dropping event",
			"job_id", event.JobID, "kind", event.Kind)
	}
}

// HandleConnection handles a WebSocket connection for one job subscription
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string) {
	client := newClient(jobID, c)

	h.Register(client)
	defer h.Unregister(client)

	// Writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read error", "job_id", jobID, "error", err)
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong := model.WSMessage{Type: model.WSMessageTypePong}
			data, _ := json.Marshal(pong)
			// The hub may have evicted this client as a slow consumer;
			// enqueue refuses instead of panicking on the closed queue.
			if !client.enqueue(data) {
				break
			}
		}
	}
}

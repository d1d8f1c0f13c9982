package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"web_accessibility_analyzer/internal/domain/models"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	snapshotTimeout = 5 * time.Second

	EventSnapshot = "snapshot"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// the stream is read-only and carries no credentials, so dashboards on
	// any origin may subscribe
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Lister supplies the snapshot sent to each client on connect.
type Lister interface {
	List(ctx context.Context) ([]*models.Analysis, error)
}

// Hub pushes analysis changes to connected WebSocket clients. A client is
// subscribed for exactly as long as its connection is open.
type Hub struct {
	lister Lister
	log    *log.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	// events that arrive before the snapshot is queued; guarded by Hub.mu
	pending [][]byte
	ready   bool
}

func NewHub(lister Lister, log *log.Logger) *Hub {
	return &Hub{
		lister:  lister,
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client and
// refuses new ones.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.drop(c)
	}
}

// Notify broadcasts event to every client without blocking. A client whose
// buffer is full is disconnected.
func (h *Hub) Notify(event string, analysis *models.Analysis) {
	data, err := json.Marshal(Message{Event: event, Data: analysis})
	if err != nil {
		h.log.WithError(err).Error(`failed to encode analysis event`)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.ready {
			if len(c.pending) >= sendBufSize-1 {
				h.log.Warn(`websocket client too slow, disconnecting`)
				h.drop(c)
				continue
			}
			c.pending = append(c.pending, data)
			continue
		}
		select {
		case c.send <- data:
		default:
			h.log.Warn(`websocket client too slow, disconnecting`)
			h.drop(c)
		}
	}
}

// ServeHTTP upgrades the connection, sends the current list as a snapshot and
// then streams events until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}

	// register before listing so no event between the two is lost; events
	// held back until the snapshot is queued may repeat what it contains
	if !h.register(c) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "")) //nolint:errcheck
		conn.Close()
		return
	}
	defer h.unregister(c)

	data, err := h.snapshot(r.Context())
	if err != nil {
		h.log.WithError(err).Warn(`failed to build websocket snapshot`)
	}
	if !h.activate(c, data) {
		conn.Close()
		return
	}

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) snapshot(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	analyses, err := h.lister.List(ctx)
	if err != nil {
		return nil, err
	}
	if analyses == nil {
		analyses = []*models.Analysis{}
	}
	return json.Marshal(Message{Event: EventSnapshot, Data: analyses})
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// activate queues the snapshot, when there is one, ahead of the events held
// for c and switches c to direct delivery. It returns false if c was dropped
// in the meantime.
func (h *Hub) activate(c *client, snapshot []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	if snapshot != nil {
		c.send <- snapshot
	}
	for _, data := range c.pending {
		c.send <- data
	}
	c.pending = nil
	c.ready = true
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c)
}

// drop must be called with h.mu held.
func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// writePump forwards queued messages and sends periodic pings. Runs in its
// own goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// hub dropped the client
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles control frames and detects disconnects. Blocks until the
// connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

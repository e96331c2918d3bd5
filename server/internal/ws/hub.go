package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/regionpulse/regionpulse/pkg/types"
	"github.com/regionpulse/regionpulse/server/internal/aggregate"
	"github.com/regionpulse/regionpulse/server/internal/metrics"
	"github.com/regionpulse/regionpulse/server/internal/store"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	defaultReadLimit = 64 << 10
)

// Event names used in Response.Event.
const (
	EventAggregate = "aggregate"
	EventError     = "error"
)

// Request is one inbound frame.
type Request struct {
	ID string `json:"id,omitempty"`
	types.AggregationRequest
}

// Response is one outbound frame. Data is set on aggregate events only, so
// an empty result still encodes as "data":{} and error frames carry no data.
type Response struct {
	ID    string        `json:"id,omitempty"`
	Event string        `json:"event"`
	Data  *types.Result `json:"data,omitempty"`
	Error string        `json:"error,omitempty"`
}

// Options configures a Hub.
type Options struct {
	// AllowedOrigin restricts the Origin header on upgrade. "*" or empty
	// accepts any origin.
	AllowedOrigin string

	// ReadLimit caps the size of one inbound frame. Defaults to 64 KiB.
	ReadLimit int64

	// Metrics receives region lookup counts. May be nil.
	Metrics *metrics.Registry
}

// Hub serves aggregation requests over WebSocket connections.
type Hub struct {
	store    *store.Store
	opts     Options
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// New creates a Hub reading from st.
func New(st *store.Store, opts Options) *Hub {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	h := &Hub{
		store:   st,
		opts:    opts,
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP upgrades the HTTP connection to WebSocket and answers requests
// until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
		done: make(chan struct{}),
	}
	h.register(c)
	defer h.unregister(c)

	go c.writePump()
	h.readPump(c) // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) checkOrigin(r *http.Request) bool {
	allowed := h.opts.AllowedOrigin
	if allowed == "" || allowed == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == allowed
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

// handle answers one inbound frame.
func (h *Hub) handle(frame []byte) Response {
	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		return Response{Event: EventError, Error: "invalid request: " + err.Error()}
	}

	var obs aggregate.Observer
	if h.opts.Metrics != nil {
		obs = h.opts.Metrics
	}
	res := aggregate.AggregateObserved(h.store, req.Regions, req.ThresholdMs, obs)
	return Response{ID: req.ID, Event: EventAggregate, Data: &res}
}

// readPump reads request frames, answers each one, and detects disconnects.
// Blocks until the connection closes.
func (h *Hub) readPump(c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(h.opts.ReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		typ, frame, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.TextMessage {
			continue
		}

		data, err := json.Marshal(h.handle(frame))
		if err != nil {
			slog.Error("ws: encode response", "err", err)
			return
		}
		select {
		case c.send <- data:
		case <-c.done:
			return
		default:
			slog.Warn("ws: client send buffer full, disconnecting")
			return
		}
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			c.conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Package ws implements the WebSocket adapter for real-time client
// communication.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	json "github.com/goccy/go-json"

	otelx "github.com/anombyte93/TaskMasterWebViewer/internal/adapter/otel"
)

// conn wraps a single WebSocket connection. writeMu serializes writes from
// the broadcast, pong and heartbeat paths.
type conn struct {
	ws      *websocket.Conn
	cancel  context.CancelFunc
	writeMu sync.Mutex
}

// Hub manages all active WebSocket connections, broadcasts task change
// notifications, and prunes dead connections with a periodic heartbeat.
type Hub struct {
	heartbeat    time.Duration
	writeTimeout time.Duration
	metrics      *otelx.Metrics

	mu    sync.RWMutex
	conns map[*conn]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Hub.
type Option func(*Hub)

// WithMetrics installs telemetry instruments.
func WithMetrics(m *otelx.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithWriteTimeout bounds each outbound send.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) { h.writeTimeout = d }
}

// NewHub creates a hub and starts its heartbeat loop.
func NewHub(heartbeat time.Duration, opts ...Option) *Hub {
	h := &Hub{
		heartbeat:    heartbeat,
		writeTimeout: 10 * time.Second,
		conns:        make(map[*conn]struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.heartbeatLoop()
	return h
}

// HandleWS upgrades the request to a WebSocket, registers the connection
// and runs its read loop (replying pong to client pings).
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{ws: sock, cancel: cancel}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.Connections.Add(ctx, 1)
	}

	slog.Info("websocket connected", "remote", r.RemoteAddr)

	if err := h.send(ctx, c, connectedMessage()); err != nil {
		h.remove(c)
		return
	}

	go h.readLoop(ctx, c)
}

// readLoop consumes client messages until the connection drops. The only
// recognized message is {"type":"ping"}, answered with a pong.
func (h *Hub) readLoop(ctx context.Context, c *conn) {
	defer func() {
		h.remove(c)
		_ = c.ws.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("unparseable websocket message", "error", err)
			continue
		}
		if msg.Type == TypePing {
			if err := h.send(ctx, c, pongMessage()); err != nil {
				return
			}
		}
	}
}

// BroadcastTasksUpdate notifies every open connection that the task
// document changed, carrying only a cheap summary.
func (h *Hub) BroadcastTasksUpdate(ctx context.Context, count int, at time.Time) {
	h.broadcast(ctx, tasksUpdateMessage(count, at))
}

// BroadcastTasksError surfaces a reload failure to clients. Clients treat
// it as informational and keep their caches.
func (h *Hub) BroadcastTasksError(ctx context.Context, errMsg string, at time.Time) {
	h.broadcast(ctx, tasksErrorMessage(errMsg, at))
}

// broadcast sends one message to every registered connection. A failed
// send prunes that connection and never affects delivery to the others.
func (h *Hub) broadcast(ctx context.Context, msg Envelope) {
	conns := h.snapshot()
	if len(conns) == 0 {
		return
	}

	slog.Debug("broadcasting", "type", msg.Type, "clients", len(conns))
	for _, c := range conns {
		if err := h.send(ctx, c, msg); err != nil {
			slog.Debug("websocket write failed", "error", err)
			h.remove(c)
		}
	}
	if h.metrics != nil {
		h.metrics.Broadcasts.Add(ctx, 1)
	}
}

func (h *Hub) send(ctx context.Context, c *conn, msg Envelope) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

// heartbeatLoop pings every connection on a fixed interval, independent of
// the data-change path. Connections that do not answer are pruned.
func (h *Hub) heartbeatLoop() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			for _, c := range h.snapshot() {
				ctx, cancel := context.WithTimeout(context.Background(), h.writeTimeout)
				err := c.ws.Ping(ctx)
				cancel()
				if err != nil {
					slog.Debug("websocket heartbeat failed, pruning", "error", err)
					h.remove(c)
				}
			}
		}
	}
}

// snapshot copies the connection set so broadcast and heartbeat iteration
// tolerate concurrent removal.
func (h *Hub) snapshot() []*conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		out = append(out, c)
	}
	return out
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	_, ok := h.conns[c]
	if ok {
		delete(h.conns, c)
	}
	h.mu.Unlock()

	if ok {
		c.cancel()
		if h.metrics != nil {
			h.metrics.Connections.Add(context.Background(), -1)
		}
		slog.Info("websocket disconnected")
	}
}

// Close stops the heartbeat and closes every connection.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		for _, c := range h.snapshot() {
			_ = c.ws.Close(websocket.StatusGoingAway, "server shutting down")
			h.remove(c)
		}
	})
}

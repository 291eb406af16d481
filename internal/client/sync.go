package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/coder/websocket"
	json "github.com/goccy/go-json"

	"github.com/anombyte93/TaskMasterWebViewer/internal/adapter/ws"
)

// ErrReconnectExhausted reports that the sync loop gave up after the
// configured number of consecutive failed connection attempts.
var ErrReconnectExhausted = errors.New("websocket reconnect attempts exhausted")

// SyncOptions tunes the sync connection.
type SyncOptions struct {
	ReconnectBase time.Duration
	ReconnectCap  time.Duration
	MaxReconnects int
	PingInterval  time.Duration
}

// DefaultSyncOptions mirrors the dashboard's reconnect policy.
func DefaultSyncOptions() SyncOptions {
	return SyncOptions{
		ReconnectBase: time.Second,
		ReconnectCap:  30 * time.Second,
		MaxReconnects: 10,
		PingInterval:  30 * time.Second,
	}
}

// BackoffDelay returns the wait before reconnect attempt n (0-based):
// base doubled per attempt, capped.
func BackoffDelay(opts SyncOptions, attempt int) time.Duration {
	d := opts.ReconnectBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= opts.ReconnectCap {
			return opts.ReconnectCap
		}
	}
	if d > opts.ReconnectCap {
		return opts.ReconnectCap
	}
	return d
}

// Sync holds a WebSocket connection to the server and keeps the cache
// consistent: task change notifications invalidate the task slots, and
// every (re)connect invalidates everything since missed changes are not
// replayed.
type Sync struct {
	url   string
	cache *Cache
	opts  SyncOptions

	// OnConnected fires after each successful (re)connect.
	OnConnected func()
	// OnServerError receives server-side reload failures. Informational:
	// cached data keeps serving.
	OnServerError func(string)
	// OnDisconnected fires once when reconnection is given up.
	OnDisconnected func(error)
}

// NewSync creates a sync loop for the client's server.
func NewSync(c *Client, cache *Cache, opts SyncOptions) *Sync {
	wsURL := c.BaseURL() + "/ws"
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	return &Sync{url: wsURL, cache: cache, opts: opts}
}

// Run dials and serves the connection until ctx is canceled or reconnect
// attempts are exhausted.
func (s *Sync) Run(ctx context.Context) error {
	attempts := 0

	for {
		conn, _, err := websocket.Dial(ctx, s.url, nil)
		if err == nil {
			attempts = 0
			slog.Info("sync connected", "url", s.url)
			s.cache.InvalidateAll()
			if s.OnConnected != nil {
				s.OnConnected()
			}

			err = s.serve(ctx, conn)
			_ = conn.Close(websocket.StatusNormalClosure, "")
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempts++
		if attempts > s.opts.MaxReconnects {
			err = fmt.Errorf("%w after %d attempts: %v", ErrReconnectExhausted, s.opts.MaxReconnects, err)
			if s.OnDisconnected != nil {
				s.OnDisconnected(err)
			}
			return err
		}

		delay := BackoffDelay(s.opts, attempts-1)
		slog.Debug("sync reconnecting", "attempt", attempts, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// serve runs the read loop and the ping ticker until the connection drops.
func (s *Sync) serve(ctx context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.pingLoop(ctx, conn)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var env ws.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Debug("unparseable sync message", "error", err)
			continue
		}

		switch env.Type {
		case ws.TypeTasksUpdate:
			s.cache.InvalidateTasks()
		case ws.TypeTasksError:
			slog.Warn("server reported task reload error", "error", env.Error)
			if s.OnServerError != nil {
				s.OnServerError(env.Error)
			}
		case ws.TypeConnected, ws.TypePong:
			// nothing to do
		}
	}
}

func (s *Sync) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	ping, _ := json.Marshal(map[string]string{"type": ws.TypePing})
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Write(ctx, websocket.MessageText, ping); err != nil {
				return
			}
		}
	}
}

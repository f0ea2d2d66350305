package network

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/automoto/truckrace-mp/shared/protocol"
	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s ClientState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	}
	return "unknown"
}

const (
	// maxPendingUpdates bounds queued update frames; the oldest is dropped
	// when a newer one arrives. Join/leave/welcome frames are never dropped.
	maxPendingUpdates = 64
	readLimit         = 1 << 16
)

// Client receives frames from the snapshot server over a WebSocket.
// The read loop only decodes; all entity mutation happens on the frame loop
// through DrainFrames. Shared fields are protected by mu.
type Client struct {
	mu sync.Mutex

	state     ClientState
	lastError error
	conn      *websocket.Conn
	cancel    context.CancelFunc

	pending        []protocol.Frame
	pendingUpdates int
	dropped        int

	dial   func(ctx context.Context, url string) (*websocket.Conn, error)
	logger zerolog.Logger
}

func NewClient() *Client {
	return &Client{
		state:  StateDisconnected,
		dial:   dialWebsocket,
		logger: log.With().Str("component", "client").Logger(),
	}
}

func dialWebsocket(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	return conn, err
}

// Connect dials url in a background goroutine and starts the read loop.
func (c *Client) Connect(ctx context.Context, url string) {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.cancel = cancel
	c.mu.Unlock()

	go func() {
		conn, err := c.dial(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.setError(fmt.Errorf("connection failed: %w", err))
			return
		}
		conn.SetReadLimit(readLimit)

		c.mu.Lock()
		if ctx.Err() != nil {
			// Disconnect ran while the handshake was finishing.
			c.mu.Unlock()
			conn.CloseNow()
			return
		}
		c.conn = conn
		c.state = StateConnected
		c.mu.Unlock()
		c.logger.Info().Str("url", url).Msg("connected to server")

		c.readLoop(ctx, conn)
	}()
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			c.handleReadError(conn, err)
			return
		}
		if typ != websocket.MessageBinary {
			c.logger.Warn().Int("type", int(typ)).Msg("ignoring non-binary message")
			continue
		}

		frame, err := protocol.DecodeFrame(data)
		if err != nil {
			c.logger.Warn().Err(err).Int("bytes", len(data)).Msg("discarding malformed frame")
			continue
		}
		c.enqueue(frame)
	}
}

func (c *Client) handleReadError(conn *websocket.Conn, err error) {
	c.mu.Lock()
	current := c.conn == conn
	c.mu.Unlock()
	if !current {
		// Disconnect already tore the connection down.
		return
	}

	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
		c.logger.Info().Err(err).Msg("disconnected")
		c.mu.Lock()
		if c.state != StateError {
			c.state = StateDisconnected
		}
		c.conn = nil
		c.mu.Unlock()
		return
	}
	c.setError(fmt.Errorf("read: %w", err))
}

func (c *Client) enqueue(f protocol.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f.Type == protocol.MsgUpdate {
		if c.pendingUpdates >= maxPendingUpdates {
			c.dropOldestUpdate()
		}
		c.pendingUpdates++
	}
	c.pending = append(c.pending, f)
}

// dropOldestUpdate must be called with mu held.
func (c *Client) dropOldestUpdate() {
	for i, f := range c.pending {
		if f.Type == protocol.MsgUpdate {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			c.pendingUpdates--
			c.dropped++
			c.logger.Debug().Uint32("tick", f.Tick).Msg("update queue full, dropping oldest")
			return
		}
	}
}

// DrainFrames returns every frame received since the last call, in arrival
// order. Non-blocking.
func (c *Client) DrainFrames() []protocol.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.pending
	c.pending = nil
	c.pendingUpdates = 0
	return out
}

// Dropped returns how many update frames were discarded because the frame
// loop fell behind.
func (c *Client) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	c.state = StateDisconnected
	c.conn = nil
	c.cancel = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client leaving")
	}
	if cancel != nil {
		cancel()
	}
}

func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

func (c *Client) setError(err error) {
	c.logger.Error().Err(err).Msg("client error")
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.conn = nil
	c.mu.Unlock()
}

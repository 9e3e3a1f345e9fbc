package kiwoom

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"quote_relay/internal/domain"
	"quote_relay/internal/infra"

	"github.com/gorilla/websocket"
)

// Compile-time check to ensure Client implements UpstreamConn
var _ domain.UpstreamConn = (*Client)(nil)

// ErrConnectAborted is returned by Connect when Disconnect won the race.
var ErrConnectAborted = errors.New("connect aborted by disconnect")

// Client owns the single Kiwoom WebSocket connection.
//
// Connect is attempted exactly once. There is no handshake timeout, no retry
// and no reconnect: CLOSED and FAILED are final until the process restarts.
type Client struct {
	url     string
	handler domain.FeedHandler
	metrics *infra.Metrics

	state   atomic.Int32
	conn    *websocket.Conn
	mu      sync.RWMutex
	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewClient creates a new Kiwoom feed client
func NewClient(url string, handler domain.FeedHandler, metrics *infra.Metrics) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:     url,
		handler: handler,
		metrics: metrics,
	}
	metrics.SetUpstreamState(domain.StateDisconnected)
	return c
}

// State returns the current connection state
func (c *Client) State() domain.ConnState {
	return domain.ConnState(c.state.Load())
}

// transition moves from one state to another; false if the current state differs.
func (c *Client) transition(from, to domain.ConnState) bool {
	if !c.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	c.metrics.SetUpstreamState(to)
	return true
}

// Connect dials the feed and starts the receive loop.
// A Disconnect that lands mid-handshake aborts the dial and Connect returns ErrConnectAborted.
func (c *Client) Connect(ctx context.Context) error {
	if !c.transition(domain.StateDisconnected, domain.StateConnecting) {
		return domain.ErrAlreadyStarted
	}
	slog.Info("🔌 Connecting to Kiwoom feed", slog.String("url", c.url))

	connCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	aborted := c.State() != domain.StateConnecting
	c.mu.Unlock()
	if aborted {
		cancel()
		return ErrConnectAborted
	}

	// Zero HandshakeTimeout: the dial waits until the transport succeeds or fails.
	dialer := websocket.Dialer{Proxy: http.ProxyFromEnvironment}

	conn, _, err := dialer.DialContext(connCtx, c.url, nil)
	if err != nil {
		cancel()
		if !c.transition(domain.StateConnecting, domain.StateFailed) {
			return ErrConnectAborted
		}
		nerr := domain.NewNetworkError("dial", err)
		slog.Error("❌ Kiwoom feed connection failed", slog.Any("error", nerr))
		return nerr
	}

	// conn, state and wg change together so Disconnect sees all or none of them.
	c.mu.Lock()
	if !c.transition(domain.StateConnecting, domain.StateConnected) {
		c.mu.Unlock()
		cancel()
		conn.Close()
		return ErrConnectAborted
	}
	c.conn = conn
	c.wg.Add(2)
	c.mu.Unlock()

	slog.Info("✅ Kiwoom feed connected")

	stream := newFrameStream(conn)
	go func() {
		defer c.wg.Done()
		stream.run(connCtx)
	}()
	go c.receiveLoop(connCtx, stream)

	return nil
}

// receiveLoop hands frames to the handler one at a time, re-arming demand after each.
func (c *Client) receiveLoop(ctx context.Context, stream *FrameStream) {
	defer c.wg.Done()

	stream.Request(1)
	for {
		data, err := stream.Next(ctx)
		if err != nil {
			c.terminate(err)
			return
		}

		c.metrics.RecordFrame()
		c.dispatch(data)

		stream.Request(1)
	}
}

// dispatch isolates the loop from handler panics.
func (c *Client) dispatch(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Kiwoom frame handler panic recovered", slog.Any("panic", r))
		}
	}()
	if c.handler != nil {
		c.handler.OnFrame(data)
	}
}

// terminate classifies why the receive loop ended.
func (c *Client) terminate(err error) {
	if errors.Is(err, context.Canceled) || c.State() == domain.StateClosed {
		return
	}

	// 1006 is synthesized locally for a dropped socket, so it counts as a failure.
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
		if c.transition(domain.StateConnected, domain.StateClosed) {
			slog.Warn("Kiwoom feed closed", slog.Int("code", closeErr.Code), slog.String("reason", closeErr.Text))
			c.closeConnection()
			if c.handler != nil {
				c.handler.OnClose(closeErr.Code, closeErr.Text)
			}
		}
		return
	}

	if c.transition(domain.StateConnected, domain.StateFailed) {
		nerr := domain.NewNetworkError("read", err)
		slog.Error("Kiwoom feed error", slog.Any("error", nerr))
		c.closeConnection()
		if c.handler != nil {
			c.handler.OnError(nerr)
		}
	}
}

// Send writes one text frame. It never blocks on a missing connection and never queues.
func (c *Client) Send(frame []byte) error {
	if s := c.State(); s != domain.StateConnected {
		slog.Warn("Kiwoom send skipped - not connected", slog.String("state", s.String()))
		return domain.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		slog.Warn("Kiwoom send skipped - connection is nil")
		return domain.ErrNotConnected
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return domain.NewNetworkError("write", err)
	}
	return nil
}

// closeConnection safely closes the WebSocket connection
func (c *Client) closeConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Disconnect tears the connection down at process shutdown.
// Safe to call at any point, including while Connect is still dialing.
func (c *Client) Disconnect() {
	c.mu.Lock()
	for _, from := range []domain.ConnState{domain.StateConnected, domain.StateConnecting, domain.StateDisconnected} {
		if c.transition(from, domain.StateClosed) {
			break
		}
	}
	cancel := c.cancel
	conn := c.conn
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown")
		c.writeMu.Lock()
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()
	}
	c.closeConnection()
	c.wg.Wait()
	slog.Info("Kiwoom feed disconnected")
}

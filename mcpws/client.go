// Package mcpws provides a resilient WebSocket client for the MCP
// integration platform: automatic reconnection with bounded exponential
// backoff, heartbeat liveness probing, an offline send queue, and typed
// publish/subscribe dispatch of inbound messages.
package mcpws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/GaryOcean428/mcp-ws-go/mcpws/internal"
)

// Client is the facade the owning code talks to. One Client serves one
// logical connection target; create it with NewClient and release it with
// Close.
type Client struct {
	cfg    Config
	logger Logger
	dial   DialFunc
	policy reconnectPolicy
	router *router

	mu              sync.Mutex
	status          ConnectionState
	lastError       error
	lastConnectedAt time.Time
	attempt         int
	closed          bool
	sessionID       string

	// epoch identifies the current connection generation. Every timer and
	// transport callback captures it and re-checks under the lock, so a
	// stale callback can never act on a torn-down connection.
	epoch uint64

	conn           *internal.Conn
	hb             *heartbeatMonitor
	reconnectTimer *time.Timer
	queue          *offlineQueue
}

// NewClient constructs a client with the provided config. When
// cfg.AutoConnect is set the first dial starts immediately in the
// background; completion is observed via callbacks and State().
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	dial := cfg.Dial
	if dial == nil {
		dial = websocket.Dial
	}

	c := &Client{
		cfg:    cfg,
		logger: logger,
		dial:   dial,
		policy: reconnectPolicy{
			base:        cfg.ReconnectBaseDelay,
			max:         cfg.ReconnectMaxDelay,
			maxAttempts: cfg.MaxReconnectAttempts,
		},
		router: newRouter(logger),
		queue:  newOfflineQueue(cfg.MaxQueueSize),
		status: StateDisconnected,
	}

	if cfg.AutoConnect {
		go func() { _ = c.Connect() }()
	}
	return c
}

// Connect dials the endpoint. It is a no-op (nil error) when a connection
// is already open or in progress. A dial failure is returned to the caller
// and, when AutoReconnect is set, also handed to the reconnection
// scheduler.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.cfg.URL == "" {
		c.mu.Unlock()
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	if c.status == StateConnecting || c.status == StateConnected {
		c.mu.Unlock()
		return nil
	}
	var p pending
	epoch := c.beginConnectLocked(&p)
	c.mu.Unlock()

	p.fire(c)
	return c.dialAttempt(epoch)
}

// Disconnect closes the connection and cancels any pending reconnection.
// Unlike a dropped connection this is an intentional terminal action: no
// retry is scheduled. The client remains usable; call Connect to resume.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	wasConnected := c.status == StateConnected
	conn := c.teardownLocked()
	var p pending
	c.setStatusLocked(&p, StateDisconnected, nil)
	if wasConnected {
		if cb := c.cfg.OnDisconnect; cb != nil {
			p.add(cb)
		}
	}
	c.logger.Info("disconnected by user", map[string]any{"session": c.sessionID})
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	p.fire(c)
}

// Reconnect forces a fresh connection, bypassing backoff: any existing
// transport is closed, the attempt counter resets to 0, and a dial starts
// immediately.
func (c *Client) Reconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.cfg.URL == "" {
		c.mu.Unlock()
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	conn := c.teardownLocked()
	c.attempt = 0
	var p pending
	epoch := c.beginConnectLocked(&p)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}
	p.fire(c)
	return c.dialAttempt(epoch)
}

// Close tears the client down for good: transport closed, every timer
// cancelled. Safe to call on any exit path, repeatedly.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	wasConnected := c.status == StateConnected
	conn := c.teardownLocked()
	var p pending
	c.setStatusLocked(&p, StateDisconnected, nil)
	if wasConnected {
		if cb := c.cfg.OnDisconnect; cb != nil {
			p.add(cb)
		}
	}
	c.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close(websocket.StatusNormalClosure, "client close")
	}
	p.fire(c)
	return err
}

// Send transmits a message when the connection is open. Strings, []byte
// and json.RawMessage pass through as-is; anything else is JSON-encoded.
// While disconnected the message is buffered when QueueOfflineMessages is
// set (nil return), otherwise ErrNotConnected is returned.
func (c *Client) Send(v any) error {
	data, err := encodePayload(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.status == StateConnected && c.conn != nil {
		conn := c.conn
		c.mu.Unlock()
		if err := conn.Write(context.Background(), data); err != nil {
			return WrapError(ErrorConnection, "write message", err)
		}
		return nil
	}
	if !c.cfg.QueueOfflineMessages {
		c.mu.Unlock()
		return ErrNotConnected
	}
	if evicted := c.queue.push(data); evicted > 0 {
		c.logger.Warn("offline queue full, dropped oldest messages", map[string]any{
			"evicted": evicted,
			"max":     c.cfg.MaxQueueSize,
		})
	}
	c.mu.Unlock()
	return nil
}

// SendJSON is an alias for Send kept for callers that want the intent
// spelled out at the call site.
func (c *Client) SendJSON(v any) error {
	return c.Send(v)
}

// Subscribe registers a handler for inbound messages whose routing key
// equals eventType and returns its unsubscribe function.
func (c *Client) Subscribe(eventType string, fn func(Message)) func() {
	return c.router.subscribe(eventType, fn)
}

// State returns a snapshot of the connection record.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Status:           c.status,
		Connected:        c.status == StateConnected,
		LastConnectedAt:  c.lastConnectedAt,
		ReconnectAttempt: c.attempt,
		LastError:        c.lastError,
	}
}

// beginConnectLocked transitions to connecting under a fresh epoch and
// returns it. Caller holds c.mu.
func (c *Client) beginConnectLocked(p *pending) uint64 {
	c.stopReconnectTimerLocked()
	c.stopHeartbeatLocked()
	c.epoch++
	c.sessionID = uuid.NewString()
	c.setStatusLocked(p, StateConnecting, nil)
	return c.epoch
}

// dialAttempt performs one dial for the given epoch and wires up the
// connection on success.
func (c *Client) dialAttempt(epoch uint64) error {
	ctx := context.Background()
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}
	var opts *websocket.DialOptions
	if len(c.cfg.Protocols) > 0 {
		opts = &websocket.DialOptions{Subprotocols: c.cfg.Protocols}
	}

	ws, _, err := c.dial(ctx, c.cfg.URL, opts)

	c.mu.Lock()
	if c.closed || c.epoch != epoch {
		c.mu.Unlock()
		if err == nil {
			_ = ws.Close(websocket.StatusNormalClosure, "superseded")
		}
		return nil
	}

	if err != nil {
		cerr := WrapError(ErrorConnection, "dial "+c.cfg.URL, err)
		var p pending
		c.setStatusLocked(&p, StateError, cerr)
		if cb := c.cfg.OnError; cb != nil {
			p.add(func() { cb(cerr) })
		}
		c.setStatusLocked(&p, StateDisconnected, nil)
		c.logger.Warn("connect failed", map[string]any{
			"session": c.sessionID,
			"error":   err.Error(),
		})
		if c.cfg.AutoReconnect {
			c.scheduleReconnectLocked()
		}
		c.mu.Unlock()
		p.fire(c)
		return cerr
	}

	conn := internal.NewConn(ws, c.cfg.ReadTimeout, c.cfg.WriteTimeout)
	c.conn = conn
	c.attempt = 0
	c.lastConnectedAt = time.Now()
	c.lastError = nil
	var p pending
	c.setStatusLocked(&p, StateConnected, nil)
	if c.cfg.EnableHeartbeat && c.cfg.HeartbeatInterval > 0 {
		hb := newHeartbeatMonitor(
			c.cfg.HeartbeatInterval,
			c.cfg.HeartbeatTimeout,
			func() { c.sendHeartbeat(epoch) },
			func() { c.heartbeatExpired(epoch) },
		)
		c.hb = hb
		hb.start()
	}
	flushItems := c.queue.drain()
	c.logger.Info("connected", map[string]any{
		"url":     c.cfg.URL,
		"session": c.sessionID,
	})
	c.mu.Unlock()

	p.fire(c)
	c.flush(conn, flushItems)
	if cb := c.cfg.OnConnect; cb != nil {
		c.safeCall(cb)
	}
	go c.readLoop(conn, epoch)
	return nil
}

// flush transmits the drained offline queue in enqueue order. Messages
// that fail mid-flush are re-queued rather than dropped.
func (c *Client) flush(conn *internal.Conn, items [][]byte) {
	for i, data := range items {
		if err := conn.Write(context.Background(), data); err != nil {
			unsent := items[i:]
			c.logger.Warn("flush interrupted, re-queueing unsent messages", map[string]any{
				"unsent": len(unsent),
				"error":  err.Error(),
			})
			c.mu.Lock()
			if !c.closed && c.cfg.QueueOfflineMessages {
				c.queue.requeue(unsent)
			}
			c.mu.Unlock()
			return
		}
	}
	if len(items) > 0 {
		c.logger.Debug("offline queue flushed", map[string]any{"count": len(items)})
	}
}

func (c *Client) readLoop(conn *internal.Conn, epoch uint64) {
	for {
		data, err := conn.Read(context.Background())
		if err != nil {
			c.handleClose(epoch, err)
			return
		}
		c.handleMessage(epoch, data)
	}
}

// handleMessage parses one inbound payload, feeds pongs to the heartbeat
// monitor first, then dispatches to subscribers and the raw OnMessage
// callback.
func (c *Client) handleMessage(epoch uint64, data []byte) {
	msg := parseMessage(data)

	c.mu.Lock()
	if c.closed || c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	if msg.isPong() && c.hb != nil {
		c.hb.pong()
	}
	c.mu.Unlock()

	c.router.dispatch(msg)
	if cb := c.cfg.OnMessage; cb != nil {
		c.safeCall(func() { cb(msg) })
	}
}

// handleClose runs when the read loop exits. The close handler is
// authoritative for the transition back to disconnected; transport errors
// observed here are reported but do not replace it.
func (c *Client) handleClose(epoch uint64, err error) {
	c.mu.Lock()
	if c.closed || c.epoch != epoch {
		// Requested teardown already handled the transition.
		c.mu.Unlock()
		return
	}
	conn := c.teardownLocked()
	var p pending
	if !isCleanClose(err) {
		cerr := WrapError(ErrorConnection, "connection lost", err)
		c.setStatusLocked(&p, StateError, cerr)
		if cb := c.cfg.OnError; cb != nil {
			p.add(func() { cb(cerr) })
		}
	}
	c.setStatusLocked(&p, StateDisconnected, nil)
	c.logger.Info("connection closed", map[string]any{
		"session": c.sessionID,
		"clean":   isCleanClose(err),
	})
	if c.cfg.AutoReconnect {
		c.scheduleReconnectLocked()
	}
	if cb := c.cfg.OnDisconnect; cb != nil {
		p.add(cb)
	}
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}
	p.fire(c)
}

// scheduleReconnectLocked arms the retry timer for the next attempt, or
// gives up silently once the attempt budget is spent. Caller holds c.mu.
func (c *Client) scheduleReconnectLocked() {
	if c.policy.exhausted(c.attempt) {
		c.logger.Warn("max reconnect attempts reached, giving up", map[string]any{
			"attempts": c.attempt,
		})
		return
	}
	delay := c.policy.delayFor(c.attempt)
	c.attempt++
	epoch := c.epoch
	c.stopReconnectTimerLocked()
	c.logger.Info("reconnect scheduled", map[string]any{
		"attempt": c.attempt,
		"delay":   delay.String(),
	})
	c.reconnectTimer = time.AfterFunc(delay, func() { c.retryConnect(epoch) })
}

func (c *Client) retryConnect(epoch uint64) {
	c.mu.Lock()
	if c.closed || c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	if c.status == StateConnecting || c.status == StateConnected {
		c.mu.Unlock()
		return
	}
	c.reconnectTimer = nil
	var p pending
	next := c.beginConnectLocked(&p)
	c.mu.Unlock()

	p.fire(c)
	_ = c.dialAttempt(next)
}

func (c *Client) sendHeartbeat(epoch uint64) {
	c.mu.Lock()
	if c.closed || c.epoch != epoch || c.conn == nil {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.mu.Unlock()

	if err := conn.WriteJSON(context.Background(), newPing()); err != nil {
		// The read loop surfaces the failure; the armed timeout forces a
		// reconnect if the connection is silently dead.
		c.logger.Debug("heartbeat ping failed", map[string]any{"error": err.Error()})
	}
}

// heartbeatExpired treats a missed pong like a connection failure and
// routes it through the reconnection scheduler.
func (c *Client) heartbeatExpired(epoch uint64) {
	c.mu.Lock()
	if c.closed || c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	conn := c.teardownLocked()
	var p pending
	c.setStatusLocked(&p, StateError, ErrHeartbeatTimeout)
	if cb := c.cfg.OnError; cb != nil {
		p.add(func() { cb(ErrHeartbeatTimeout) })
	}
	c.setStatusLocked(&p, StateDisconnected, nil)
	c.logger.Warn("heartbeat timeout, forcing reconnect", map[string]any{
		"session": c.sessionID,
	})
	if c.cfg.AutoReconnect {
		c.scheduleReconnectLocked()
	}
	if cb := c.cfg.OnDisconnect; cb != nil {
		p.add(cb)
	}
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}
	p.fire(c)
}

// teardownLocked invalidates the current epoch, cancels all timers and
// detaches the transport, returning it for the caller to close outside
// the lock. Caller holds c.mu.
func (c *Client) teardownLocked() *internal.Conn {
	c.epoch++
	c.stopReconnectTimerLocked()
	c.stopHeartbeatLocked()
	conn := c.conn
	c.conn = nil
	return conn
}

func (c *Client) stopReconnectTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

func (c *Client) stopHeartbeatLocked() {
	if c.hb != nil {
		c.hb.stop()
		c.hb = nil
	}
}

// setStatusLocked records a state transition and queues the OnStateChange
// callback. Caller holds c.mu.
func (c *Client) setStatusLocked(p *pending, next ConnectionState, err error) {
	if err != nil {
		c.lastError = err
	}
	if next == c.status {
		return
	}
	ev := StateEvent{Old: c.status, New: next, Err: err}
	c.status = next
	c.logger.Debug("state change", map[string]any{
		"old":     ev.Old.String(),
		"new":     ev.New.String(),
		"session": c.sessionID,
	})
	if cb := c.cfg.OnStateChange; cb != nil {
		p.add(func() { cb(ev) })
	}
}

// safeCall invokes a user callback, converting a panic into a log line so
// nothing escapes an event callback.
func (c *Client) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("callback panicked", map[string]any{"panic": r})
		}
	}()
	fn()
}

// pending collects callbacks gathered under the client mutex; they fire
// after it is released so a callback can safely call back into the client.
type pending struct {
	fns []func()
}

func (p *pending) add(fn func()) {
	if fn != nil {
		p.fns = append(p.fns, fn)
	}
}

func (p *pending) fire(c *Client) {
	for _, fn := range p.fns {
		c.safeCall(fn)
	}
	p.fns = nil
}

func encodePayload(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	case json.RawMessage:
		return t, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, WrapError(ErrorSerialization, "encode message", err)
		}
		return data, nil
	}
}

// isCleanClose reports whether the read loop ended with an orderly close.
func isCleanClose(err error) bool {
	if err == nil {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}

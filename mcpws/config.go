package mcpws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// DialFunc opens the underlying WebSocket connection. The client calls it
// for the initial connect and for every reconnection attempt, so tests and
// embedders can substitute their own transport factory.
type DialFunc func(ctx context.Context, url string, opts *websocket.DialOptions) (*websocket.Conn, *http.Response, error)

// Config controls how the client connects and recovers.
// Use DefaultConfig() as a starting point and modify as needed.
type Config struct {
	// URL is the WebSocket endpoint, e.g. "ws://localhost:8765/ws".
	URL string

	// Protocols lists optional subprotocols offered during the handshake.
	Protocols []string

	// AutoConnect dials immediately from NewClient.
	AutoConnect bool

	// AutoReconnect retries dropped connections with exponential backoff.
	AutoReconnect bool

	// MaxReconnectAttempts bounds automatic retries; zero means no bound.
	// Once exhausted the client stays disconnected until an explicit
	// Reconnect().
	MaxReconnectAttempts int

	// ReconnectBaseDelay is the delay before the first retry; subsequent
	// retries grow by 1.5x with ±20% jitter, capped at ReconnectMaxDelay.
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration

	// QueueOfflineMessages buffers Send calls made while disconnected and
	// flushes them, in order, when the connection opens.
	QueueOfflineMessages bool

	// MaxQueueSize bounds the offline buffer; oldest entries are evicted
	// first when it overflows. Zero means no bound.
	MaxQueueSize int

	// EnableHeartbeat sends periodic pings and forces a reconnect when no
	// pong arrives within HeartbeatTimeout.
	EnableHeartbeat   bool
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	// HandshakeTimeout bounds each dial. Zero disables it.
	HandshakeTimeout time.Duration

	// ReadTimeout and WriteTimeout bound individual transport operations.
	// Zero disables them. Leave ReadTimeout at zero when the peer may stay
	// silent between heartbeats.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Dial overrides the transport factory. Nil uses websocket.Dial.
	Dial DialFunc

	// Logger receives client diagnostics. Nil discards them.
	Logger Logger

	// OnConnect fires after a connection opens and the offline queue has
	// been flushed.
	OnConnect func()

	// OnDisconnect fires when a connection ends, whether requested or not.
	OnDisconnect func()

	// OnError fires for connection-level failures. Errors are not by
	// themselves terminal; the close path still runs.
	OnError func(error)

	// OnMessage fires for every inbound message, routed or not.
	OnMessage func(Message)

	// OnStateChange fires on every connection state transition.
	OnStateChange func(StateEvent)
}

// DefaultConfig returns sensible defaults. URL must still be set, and
// connecting stays explicit (AutoConnect off).
func DefaultConfig() Config {
	return Config{
		AutoReconnect:        true,
		MaxReconnectAttempts: 10,
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		QueueOfflineMessages: true,
		MaxQueueSize:         100,
		EnableHeartbeat:      true,
		HeartbeatInterval:    30 * time.Second,
		HeartbeatTimeout:     10 * time.Second,
		HandshakeTimeout:     10 * time.Second,
		WriteTimeout:         10 * time.Second,
	}
}

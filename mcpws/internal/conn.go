package internal

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Conn wraps websocket.Conn with timeouts and write serialization.
type Conn struct {
	ws           *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration

	writeMu sync.Mutex
}

func NewConn(ws *websocket.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{ws: ws, readTimeout: readTimeout, writeTimeout: writeTimeout}
}

// Read returns the next raw payload. Payloads are not assumed to be JSON.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	if c.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.readTimeout)
		defer cancel()
	}
	_, data, err := c.ws.Read(ctx)
	return data, err
}

// Write sends a raw text frame.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

// WriteJSON encodes v and sends it as a text frame.
func (c *Conn) WriteJSON(ctx context.Context, v any) error {
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsjson.Write(ctx, c.ws, v)
}

func (c *Conn) Close(code websocket.StatusCode, reason string) error {
	return c.ws.Close(code, reason)
}

// CloseNow tears the connection down without a close handshake.
func (c *Conn) CloseNow() error {
	return c.ws.CloseNow()
}

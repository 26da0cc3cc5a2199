package mcpws

import (
	"sync"
	"time"
)

// heartbeatMonitor probes liveness of a single connection. Every interval
// it asks the client to send a ping and arms a timeout; a pong disarms it,
// expiry fires onTimeout exactly once for that cycle. A monitor serves one
// connection and is discarded with it.
type heartbeatMonitor struct {
	interval time.Duration
	timeout  time.Duration

	sendPing  func()
	onTimeout func()

	mu      sync.Mutex
	ticker  *time.Ticker
	timer   *time.Timer
	done    chan struct{}
	stopped bool
}

func newHeartbeatMonitor(interval, timeout time.Duration, sendPing, onTimeout func()) *heartbeatMonitor {
	return &heartbeatMonitor{
		interval:  interval,
		timeout:   timeout,
		sendPing:  sendPing,
		onTimeout: onTimeout,
		done:      make(chan struct{}),
	}
}

// start begins the ping cycle. Must be called at most once.
func (h *heartbeatMonitor) start() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.ticker = time.NewTicker(h.interval)
	h.mu.Unlock()

	go h.run()
}

func (h *heartbeatMonitor) run() {
	for {
		select {
		case <-h.done:
			return
		case <-h.ticker.C:
		}

		h.mu.Lock()
		if h.stopped {
			h.mu.Unlock()
			return
		}
		// Arming a new timeout always disarms the previous one.
		if h.timer != nil {
			h.timer.Stop()
		}
		h.timer = time.AfterFunc(h.timeout, h.expire)
		h.mu.Unlock()

		h.sendPing()
	}
}

func (h *heartbeatMonitor) expire() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	h.onTimeout()
}

// pong disarms the pending timeout for the current cycle. The interval
// keeps ticking regardless.
func (h *heartbeatMonitor) pong() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

// stop cancels the ticker and any pending timeout. Idempotent.
func (h *heartbeatMonitor) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	close(h.done)
	if h.ticker != nil {
		h.ticker.Stop()
	}
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

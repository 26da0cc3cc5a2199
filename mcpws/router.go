package mcpws

import (
	"sync"
)

// router dispatches inbound messages to handlers registered by event type.
type router struct {
	logger Logger

	mu       sync.Mutex
	handlers map[string][]*subscription
}

type subscription struct {
	fn func(Message)
}

func newRouter(logger Logger) *router {
	return &router{
		logger:   logger,
		handlers: make(map[string][]*subscription),
	}
}

// subscribe registers a handler under an event type and returns a function
// that removes exactly that handler. The returned function is idempotent.
func (r *router) subscribe(eventType string, fn func(Message)) func() {
	sub := &subscription{fn: fn}

	r.mu.Lock()
	r.handlers[eventType] = append(r.handlers[eventType], sub)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.unsubscribe(eventType, sub) })
	}
}

func (r *router) unsubscribe(eventType string, sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.handlers[eventType]
	for i, s := range subs {
		if s == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(r.handlers, eventType)
	} else {
		r.handlers[eventType] = subs
	}
}

// dispatch delivers a message to every handler registered under its key.
// Messages without a key are not dispatched. A panicking handler is
// recovered and logged so remaining handlers still run.
func (r *router) dispatch(msg Message) {
	if msg.Key == "" {
		return
	}

	r.mu.Lock()
	subs := make([]*subscription, len(r.handlers[msg.Key]))
	copy(subs, r.handlers[msg.Key])
	r.mu.Unlock()

	for _, sub := range subs {
		r.invoke(sub, msg)
	}
}

func (r *router) invoke(sub *subscription, msg Message) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("message handler panicked", map[string]any{
				"key":   msg.Key,
				"panic": rec,
			})
		}
	}()
	sub.fn(msg)
}

package mcpws

import "testing"

func TestRouterDispatchByKey(t *testing.T) {
	r := newRouter(noopLogger{})

	var got []string
	r.subscribe("status", func(m Message) { got = append(got, m.Text()) })
	r.subscribe("other", func(m Message) { t.Errorf("wrong key dispatched: %s", m.Key) })

	r.dispatch(parseMessage([]byte(`{"type":"status","ok":true}`)))

	if len(got) != 1 {
		t.Fatalf("handler invoked %d times, want 1", len(got))
	}
}

func TestRouterUnsubscribeImmediately(t *testing.T) {
	r := newRouter(noopLogger{})

	unsubscribe := r.subscribe("status", func(Message) {
		t.Errorf("unsubscribed handler invoked")
	})
	unsubscribe()
	unsubscribe() // idempotent

	r.dispatch(parseMessage([]byte(`{"type":"status"}`)))

	if len(r.handlers) != 0 {
		t.Fatalf("empty handler set not pruned: %v", r.handlers)
	}
}

func TestRouterUnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	r := newRouter(noopLogger{})

	var first, second int
	stopFirst := r.subscribe("ev", func(Message) { first++ })
	r.subscribe("ev", func(Message) { second++ })
	stopFirst()

	r.dispatch(parseMessage([]byte(`{"type":"ev"}`)))

	if first != 0 || second != 1 {
		t.Fatalf("first = %d, second = %d; want 0, 1", first, second)
	}
}

func TestRouterPanickingHandlerDoesNotBlockOthers(t *testing.T) {
	r := newRouter(noopLogger{})

	var survived bool
	r.subscribe("ev", func(Message) { panic("boom") })
	r.subscribe("ev", func(Message) { survived = true })

	r.dispatch(parseMessage([]byte(`{"type":"ev"}`)))

	if !survived {
		t.Fatalf("second handler did not run after panic in first")
	}
}

func TestRouterSkipsKeylessMessages(t *testing.T) {
	r := newRouter(noopLogger{})
	r.subscribe("", func(Message) { t.Errorf("keyless message dispatched") })

	r.dispatch(parseMessage([]byte(`{"payload":1}`)))
	r.dispatch(parseMessage([]byte(`plain text`)))
}

package mcpws

// offlineQueue is a bounded FIFO buffer of serialized outbound messages
// held while the connection is down. It is a best-effort buffer, not a
// durable log: the oldest entries are evicted first once capacity is
// exceeded.
//
// Not safe for concurrent use; the Client serializes access under its own
// mutex.
type offlineQueue struct {
	max   int
	items [][]byte
}

func newOfflineQueue(max int) *offlineQueue {
	return &offlineQueue{max: max}
}

// push appends a message, evicting the oldest entries while over capacity.
// Returns the number of evicted messages.
func (q *offlineQueue) push(data []byte) int {
	q.items = append(q.items, data)
	if q.max <= 0 || len(q.items) <= q.max {
		return 0
	}
	evicted := len(q.items) - q.max
	q.items = append([][]byte(nil), q.items[evicted:]...)
	return evicted
}

// drain removes and returns all buffered messages in enqueue order.
func (q *offlineQueue) drain() [][]byte {
	items := q.items
	q.items = nil
	return items
}

// requeue puts unsent messages back at the front, ahead of anything
// enqueued since the drain, preserving original order.
func (q *offlineQueue) requeue(unsent [][]byte) {
	if len(unsent) == 0 {
		return
	}
	q.items = append(append([][]byte(nil), unsent...), q.items...)
	if q.max > 0 && len(q.items) > q.max {
		q.items = append([][]byte(nil), q.items[len(q.items)-q.max:]...)
	}
}

func (q *offlineQueue) len() int {
	return len(q.items)
}

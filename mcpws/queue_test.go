package mcpws

import "testing"

func queueContents(q *offlineQueue) []string {
	out := make([]string, 0, len(q.items))
	for _, it := range q.items {
		out = append(out, string(it))
	}
	return out
}

func TestQueueEvictsOldestFirst(t *testing.T) {
	q := newOfflineQueue(2)

	if evicted := q.push([]byte("m1")); evicted != 0 {
		t.Fatalf("unexpected eviction: %d", evicted)
	}
	q.push([]byte("m2"))
	if evicted := q.push([]byte("m3")); evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}

	got := queueContents(q)
	if len(got) != 2 || got[0] != "m2" || got[1] != "m3" {
		t.Fatalf("queue = %v, want [m2 m3]", got)
	}
}

func TestQueueDrainPreservesOrder(t *testing.T) {
	q := newOfflineQueue(10)
	q.push([]byte("a"))
	q.push([]byte("b"))
	q.push([]byte("c"))

	items := q.drain()
	if len(items) != 3 || string(items[0]) != "a" || string(items[2]) != "c" {
		t.Fatalf("drain returned %d items in wrong order", len(items))
	}
	if q.len() != 0 {
		t.Fatalf("queue not empty after drain: %d", q.len())
	}
}

func TestQueueRequeuePutsUnsentFirst(t *testing.T) {
	q := newOfflineQueue(10)
	q.push([]byte("a"))
	q.push([]byte("b"))

	items := q.drain()
	q.push([]byte("c")) // enqueued while a flush was in flight
	q.requeue(items[1:])

	got := queueContents(q)
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("queue = %v, want [b c]", got)
	}
}

func TestQueueRequeueRespectsCapacity(t *testing.T) {
	q := newOfflineQueue(2)
	q.push([]byte("x"))
	q.requeue([][]byte{[]byte("a"), []byte("b")})

	got := queueContents(q)
	if len(got) != 2 || got[0] != "b" || got[1] != "x" {
		t.Fatalf("queue = %v, want [b x]", got)
	}
}

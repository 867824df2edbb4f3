// Package correlate implements C4: a per-connection FIFO of in-flight
// request descriptors, so responses are paired with the request that
// produced them even under HTTP/1.1 pipelining, with explicit dequeuing
// on every error path so the queue never drifts out of sync.
package correlate

import (
	"container/list"
	"sync"
	"time"

	"github.com/ideamans/playback-proxy-go/internal/types"
)

// Descriptor is one in-flight request, queued when observed and dequeued
// when its response (or failure) is recorded.
type Descriptor struct {
	Method    string
	URL       string
	StartedAt time.Time
	Headers   types.Headers
}

// Tracker owns one FIFO queue per connection identity. A single
// Tracker-wide lock guards the queue map and is held only to push or pop (§5: "one lock per map, held only to
// push/pop a descriptor (O(1))").
type Tracker struct {
	mu      sync.Mutex
	queues  map[string]*list.List
}

// NewTracker builds an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{queues: make(map[string]*list.List)}
}

// Push appends a descriptor to connID's queue. CONNECT requests must
// never be pushed (§4.4); callers are responsible for excluding them
// before calling Push.
func (t *Tracker) Push(connID string, d Descriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.queues[connID]
	if !ok {
		q = list.New()
		t.queues[connID] = q
	}
	q.PushBack(d)
}

// Pop dequeues and returns the head descriptor for connID. ok is false if
// the queue is empty or unknown — callers on the error path must still
// call Pop to keep the queue from drifting, per §4.4/§7's "every error
// path that would leave the correlation layer inconsistent MUST dequeue
// its descriptor".
func (t *Tracker) Pop(connID string) (Descriptor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.queues[connID]
	if !ok || q.Len() == 0 {
		return Descriptor{}, false
	}

	front := q.Front()
	q.Remove(front)
	return front.Value.(Descriptor), true
}

// Forget discards connID's queue entirely, called once a connection has
// closed (its queue should be empty by then if every response/error path
// dequeued correctly, but a leftover entry here indicates an upstream
// leg that never completed before the connection dropped).
func (t *Tracker) Forget(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.queues, connID)
}

package relay

import (
	"container/heap"
	"sync"
	"time"
)

type deadlineEntry struct {
	sub      *Subscription
	deadline time.Time
	index    int
}

type deadlineHeap []*deadlineEntry

func (h deadlineHeap) Len() int           { return len(h) }
func (h deadlineHeap) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }
func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *deadlineHeap) Push(x any) {
	e := x.(*deadlineEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// expiryScheduler keeps subscription deadlines in a min-heap. Its lock is a
// leaf: callers may hold a subscription lock, it never takes one.
type expiryScheduler struct {
	mu      sync.Mutex
	heap    deadlineHeap
	entries map[*Subscription]*deadlineEntry
}

func newExpiryScheduler() *expiryScheduler {
	return &expiryScheduler{
		entries: make(map[*Subscription]*deadlineEntry),
	}
}

// schedule inserts or moves the deadline of sub.
func (e *expiryScheduler) schedule(sub *Subscription, deadline time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if entry, ok := e.entries[sub]; ok {
		entry.deadline = deadline
		heap.Fix(&e.heap, entry.index)
		return
	}
	entry := &deadlineEntry{sub: sub, deadline: deadline}
	heap.Push(&e.heap, entry)
	e.entries[sub] = entry
}

// cancel forgets sub. It is a no-op for unknown subscriptions.
func (e *expiryScheduler) cancel(sub *Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.entries[sub]
	if !ok {
		return
	}
	heap.Remove(&e.heap, entry.index)
	delete(e.entries, sub)
}

// due pops every subscription whose deadline is strictly before now.
// Callers re-check under the subscription lock since a refresh may race.
func (e *expiryScheduler) due(now time.Time) []*Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	var subs []*Subscription
	for len(e.heap) > 0 && now.After(e.heap[0].deadline) {
		entry := heap.Pop(&e.heap).(*deadlineEntry)
		delete(e.entries, entry.sub)
		subs = append(subs, entry.sub)
	}
	return subs
}

// next returns the earliest tracked deadline.
func (e *expiryScheduler) next() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.heap) == 0 {
		return time.Time{}, false
	}
	return e.heap[0].deadline, true
}

func (e *expiryScheduler) size() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.heap)
}

package relay

import (
	"hash/fnv"
	"sort"
	"sync"
	"time"

	relayerrors "github.com/DeBrosOfficial/pubsub-relay/pkg/errors"
)

// shard is one partition of the topic map with its own lock.
type shard struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// Registry maps topic names to live subscriptions. Lock order is
// shard -> subscription -> expiry scheduler.
type Registry struct {
	shards    []*shard
	shardMask uint32
	expiry    *expiryScheduler

	// onRemove runs outside all locks, exactly once per removed subscription.
	onRemove func(*Subscription)
}

// NewRegistry creates a registry with shardCount shards rounded up to a power of two.
func NewRegistry(shardCount int, onRemove func(*Subscription)) *Registry {
	if shardCount <= 0 {
		shardCount = 16
	}
	shardCount = nextPowerOf2(shardCount)

	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{subs: make(map[string]*Subscription)}
	}
	if onRemove == nil {
		onRemove = func(*Subscription) {}
	}

	return &Registry{
		shards:    shards,
		shardMask: uint32(shardCount - 1),
		expiry:    newExpiryScheduler(),
		onRemove:  onRemove,
	}
}

func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

func (r *Registry) shardFor(topic string) *shard {
	h := fnv.New32a()
	h.Write([]byte(topic))
	return r.shards[h.Sum32()&r.shardMask]
}

// JoinOrUpdate creates the subscription for topic or refreshes and
// reconfigures the live one. created reports whether a new subscription was
// born; an expired subscription is replaced by a fresh one.
func (r *Registry) JoinOrUpdate(topic string, cfg QueueConfig, now time.Time) (sub *Subscription, created bool) {
	s := r.shardFor(topic)
	var stale *Subscription

	s.mu.Lock()
	if existing, ok := s.subs[topic]; ok {
		existing.mu.Lock()
		if !existing.closed && !existing.expired(now) {
			existing.reconfigure(cfg)
			existing.touch(now)
			r.expiry.schedule(existing, existing.deadline())
			existing.mu.Unlock()
			s.mu.Unlock()
			return existing, false
		}
		if !existing.closed {
			existing.closed = true
			stale = existing
		}
		existing.mu.Unlock()
	}

	sub = newSubscription(topic, cfg, now)
	s.subs[topic] = sub
	r.expiry.schedule(sub, sub.deadline())
	s.mu.Unlock()

	if stale != nil {
		r.expiry.cancel(stale)
		r.onRemove(stale)
	}
	return sub, true
}

// With runs fn with the live subscription for topic locked. It returns a
// NotFoundError when the topic is absent, closed or expired; an expired
// subscription is removed on the spot. When refresh is set the liveness
// deadline is extended before fn runs.
func (r *Registry) With(topic string, now time.Time, refresh bool, fn func(*Subscription) error) error {
	s := r.shardFor(topic)

	s.mu.RLock()
	sub, ok := s.subs[topic]
	s.mu.RUnlock()
	if !ok {
		return relayerrors.NewNotFoundError("topic", topic)
	}
	return r.WithSubscription(sub, now, refresh, fn)
}

// WithSubscription is With for a subscription the caller already holds,
// for example one returned by Live.
func (r *Registry) WithSubscription(sub *Subscription, now time.Time, refresh bool, fn func(*Subscription) error) error {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return relayerrors.NewNotFoundError("topic", sub.topic)
	}
	if sub.expired(now) {
		sub.closed = true
		sub.mu.Unlock()
		r.unlink(sub)
		return relayerrors.NewNotFoundError("topic", sub.topic)
	}
	if refresh {
		sub.touch(now)
		r.expiry.schedule(sub, sub.deadline())
	}
	defer sub.mu.Unlock()

	return fn(sub)
}

// Get returns the live subscription for topic without refreshing it.
func (r *Registry) Get(topic string, now time.Time) (*Subscription, error) {
	var found *Subscription
	err := r.With(topic, now, false, func(sub *Subscription) error {
		found = sub
		return nil
	})
	return found, err
}

// Remove deletes the subscription for topic. It reports whether a live
// subscription was removed; removing an absent topic is not an error.
func (r *Registry) Remove(topic string) bool {
	s := r.shardFor(topic)

	s.mu.Lock()
	sub, ok := s.subs[topic]
	if !ok {
		s.mu.Unlock()
		return false
	}
	sub.mu.Lock()
	wasClosed := sub.closed
	sub.closed = true
	sub.mu.Unlock()
	delete(s.subs, topic)
	s.mu.Unlock()

	r.expiry.cancel(sub)
	if wasClosed {
		return false
	}
	r.onRemove(sub)
	return true
}

// unlink removes a subscription already marked closed by the caller.
func (r *Registry) unlink(sub *Subscription) {
	s := r.shardFor(sub.topic)
	s.mu.Lock()
	if s.subs[sub.topic] == sub {
		delete(s.subs, sub.topic)
	}
	s.mu.Unlock()

	r.expiry.cancel(sub)
	r.onRemove(sub)
}

// Live returns the live subscriptions whose topic satisfies match, sorted by topic.
func (r *Registry) Live(now time.Time, match func(topic string) bool) []*Subscription {
	var subs []*Subscription
	for _, s := range r.shards {
		s.mu.RLock()
		for topic, sub := range s.subs {
			if !match(topic) {
				continue
			}
			sub.mu.Lock()
			live := !sub.closed && !sub.expired(now)
			sub.mu.Unlock()
			if live {
				subs = append(subs, sub)
			}
		}
		s.mu.RUnlock()
	}

	sort.Slice(subs, func(i, j int) bool { return subs[i].topic < subs[j].topic })
	return subs
}

// List returns one page of live topic names in lexicographic order.
func (r *Registry) List(opts ListOptions, now time.Time) ListResult {
	subs := r.Live(now, func(topic string) bool {
		return opts.matches(topic) && (opts.After == "" || topic > opts.After)
	})

	topics := make([]string, 0, len(subs))
	for _, sub := range subs {
		topics = append(topics, sub.topic)
	}

	// A full page carries a cursor; the page after the last one is empty
	// and carries none.
	var next string
	if opts.Max > 0 && len(topics) >= opts.Max {
		topics = topics[:opts.Max]
		next = topics[len(topics)-1]
	}
	return ListResult{Topics: topics, Next: next}
}

// Sweep removes every subscription whose deadline passed before now and
// returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	var removed []*Subscription
	for _, sub := range r.expiry.due(now) {
		s := r.shardFor(sub.topic)

		s.mu.Lock()
		sub.mu.Lock()
		switch {
		case sub.closed:
			// already torn down by leave or lazy expiry
		case !sub.expired(now):
			// refreshed after being popped
			r.expiry.schedule(sub, sub.deadline())
		default:
			sub.closed = true
			if s.subs[sub.topic] == sub {
				delete(s.subs, sub.topic)
			}
			removed = append(removed, sub)
		}
		sub.mu.Unlock()
		s.mu.Unlock()
	}

	for _, sub := range removed {
		r.onRemove(sub)
	}
	return len(removed)
}

// Len returns the number of tracked subscriptions, including expired ones
// not yet swept.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.subs)
		s.mu.RUnlock()
	}
	return n
}

// Clear removes every subscription.
func (r *Registry) Clear() {
	var removed []*Subscription
	for _, s := range r.shards {
		s.mu.Lock()
		for topic, sub := range s.subs {
			sub.mu.Lock()
			if !sub.closed {
				sub.closed = true
				removed = append(removed, sub)
			}
			sub.mu.Unlock()
			delete(s.subs, topic)
		}
		s.mu.Unlock()
	}

	for _, sub := range removed {
		r.expiry.cancel(sub)
		r.onRemove(sub)
	}
}

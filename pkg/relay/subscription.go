package relay

import (
	"context"
	"sync"
	"time"
)

// Subscription is the live state of one topic. All mutable fields are
// guarded by mu; a closed subscription behaves as absent.
type Subscription struct {
	topic     string
	createdAt time.Time

	mu             sync.Mutex
	config         QueueConfig
	queue          *Queue
	lastActivityAt time.Time
	closed         bool

	// delivery onboarding
	ready      bool
	cancel     context.CancelFunc
	deliveryID string
}

func newSubscription(topic string, cfg QueueConfig, now time.Time) *Subscription {
	return &Subscription{
		topic:          topic,
		createdAt:      now,
		config:         cfg,
		queue:          NewQueue(cfg.QueueLength, cfg.QueuePolicy),
		lastActivityAt: now,
		cancel:         func() {},
	}
}

// Topic returns the topic name.
func (s *Subscription) Topic() string { return s.topic }

// CreatedAt returns when the subscription was born.
func (s *Subscription) CreatedAt() time.Time { return s.createdAt }

// Config returns a copy of the effective configuration.
func (s *Subscription) Config() QueueConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Ready reports whether delivery onboarding completed.
func (s *Subscription) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Len returns the number of queued messages.
func (s *Subscription) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// deadline must be called with mu held.
func (s *Subscription) deadline() time.Time {
	return s.lastActivityAt.Add(s.config.Timeout())
}

// expired must be called with mu held.
func (s *Subscription) expired(now time.Time) bool {
	return now.After(s.deadline())
}

// touch must be called with mu held.
func (s *Subscription) touch(now time.Time) {
	if now.After(s.lastActivityAt) {
		s.lastActivityAt = now
	}
}

// reconfigure must be called with mu held. It returns the number of
// messages trimmed by a shrinking queue.
func (s *Subscription) reconfigure(cfg QueueConfig) int {
	if cfg == s.config {
		return 0
	}
	s.config = cfg
	return s.queue.Resize(cfg.QueueLength, cfg.QueuePolicy)
}

// detachDelivery clears onboarding state and returns what teardown must
// release. Must be called with mu held.
func (s *Subscription) detachDelivery() (context.CancelFunc, string) {
	cancel, id := s.cancel, s.deliveryID
	s.cancel = func() {}
	s.deliveryID = ""
	s.ready = false
	return cancel, id
}

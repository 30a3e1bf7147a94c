package filter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL      = 10 * time.Minute
	limiterCleanupEvery = 5 * time.Minute
)

type senderLimiter struct {
	limiter    *rate.Limiter
	lastActive time.Time
}

// SenderLimiter keeps one token bucket per sender id. Idle buckets are
// dropped on the next call after the cleanup interval.
type SenderLimiter struct {
	mu          sync.Mutex
	limit       rate.Limit
	burst       int
	limiters    map[string]*senderLimiter
	nextCleanup time.Time
}

// NewSenderLimiter creates a limiter allowing perSecond messages per sender
// with the given burst. Burst below one is raised to one.
func NewSenderLimiter(perSecond float64, burst int) *SenderLimiter {
	if burst < 1 {
		burst = 1
	}
	return &SenderLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*senderLimiter),
	}
}

// Allow consumes one token for sender at now.
func (l *SenderLimiter) Allow(sender string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.nextCleanup) {
		for id, sl := range l.limiters {
			if now.Sub(sl.lastActive) > limiterIdleTTL {
				delete(l.limiters, id)
			}
		}
		l.nextCleanup = now.Add(limiterCleanupEvery)
	}

	sl, ok := l.limiters[sender]
	if !ok {
		sl = &senderLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[sender] = sl
	}
	sl.lastActive = now
	return sl.limiter.AllowN(now, 1)
}

// Len returns the number of tracked senders.
func (l *SenderLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

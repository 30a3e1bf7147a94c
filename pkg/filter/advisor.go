// Package filter accumulates bad-peer hints per topic and decides whether a
// publish from a sender is accepted.
package filter

import (
	"context"
	"fmt"
	"time"

	"github.com/filecoin-project/go-clock"
	"go.uber.org/zap"
)

// Verdict is the outcome of a publish check.
type Verdict int

const (
	// Accept lets the message through.
	Accept Verdict = iota
	// Reject vetoes the message: the sender has too many hints on the topic.
	Reject
	// RateLimit vetoes the message: the sender exceeded its publish rate.
	RateLimit
)

func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	case RateLimit:
		return "rate-limit"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// HintStore keeps per (topic, peer) hint counters. A counter expires ttl
// after the last hint recorded for it.
type HintStore interface {
	Add(ctx context.Context, topic, peerID string, now time.Time) (int, error)
	Count(ctx context.Context, topic, peerID string, now time.Time) (int, error)
	Close(ctx context.Context) error
}

// Config holds the advisor policy.
type Config struct {
	// HintThreshold is the number of hints after which a sender is rejected
	// on a topic. Zero disables hint-based rejection.
	HintThreshold int
	// RatePerSecond and Burst size the per-sender token bucket.
	// Zero RatePerSecond disables rate limiting.
	RatePerSecond float64
	Burst         int
}

// Advisor combines a hint threshold with a per-sender rate limit.
type Advisor struct {
	cfg     Config
	store   HintStore
	limiter *SenderLimiter
	clock   clock.Clock
	logger  *zap.Logger
}

// NewAdvisor creates an advisor over store. A nil clock uses the wall clock.
func NewAdvisor(cfg Config, store HintStore, clk clock.Clock, logger *zap.Logger) *Advisor {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Advisor{
		cfg:    cfg,
		store:  store,
		clock:  clk,
		logger: logger,
	}
	if cfg.RatePerSecond > 0 {
		a.limiter = NewSenderLimiter(cfg.RatePerSecond, cfg.Burst)
	}
	return a
}

// RecordHint notes that peerID's traffic on topic is suspect.
func (a *Advisor) RecordHint(ctx context.Context, topic, peerID string) error {
	n, err := a.store.Add(ctx, topic, peerID, a.clock.Now())
	if err != nil {
		return fmt.Errorf("record hint: %w", err)
	}
	a.logger.Debug("Filter hint recorded",
		zap.String("topic", topic),
		zap.String("peer_id", peerID),
		zap.Int("hints", n))
	return nil
}

// Check decides whether a message from sender may be queued on topic.
// Store failures fail open.
func (a *Advisor) Check(ctx context.Context, topic, sender string) Verdict {
	now := a.clock.Now()

	if a.cfg.HintThreshold > 0 {
		n, err := a.store.Count(ctx, topic, sender, now)
		if err != nil {
			a.logger.Warn("Hint lookup failed, accepting message",
				zap.String("topic", topic),
				zap.Error(err))
		} else if n >= a.cfg.HintThreshold {
			return Reject
		}
	}

	if a.limiter != nil && !a.limiter.Allow(sender, now) {
		return RateLimit
	}
	return Accept
}

// Close releases the hint store.
func (a *Advisor) Close(ctx context.Context) error {
	return a.store.Close(ctx)
}

package gateway

import (
	"fmt"
	"time"

	relayhandlers "github.com/DeBrosOfficial/pubsub-relay/pkg/gateway/handlers/relay"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/logging"
)

const (
	rateLimitCleanupInterval = time.Minute
	rateLimitMaxAge          = 10 * time.Minute
)

// Gateway exposes a relay over HTTP.
type Gateway struct {
	logger      *logging.ColoredLogger
	config      *Config
	handlers    *relayhandlers.Handlers
	rateLimiter *RateLimiter
	startedAt   time.Time
	topics      func() int
}

// topicCounter is implemented by brokers that can report how many topics they track.
type topicCounter interface {
	Topics() int
}

// New creates the gateway for broker.
func New(logger *logging.ColoredLogger, cfg *Config, broker relayhandlers.Broker) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if broker == nil {
		return nil, fmt.Errorf("broker is required")
	}
	if logger == nil {
		var err error
		logger, err = logging.NewDefaultLogger()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	g := &Gateway{
		logger:    logger,
		config:    cfg,
		handlers:  relayhandlers.NewHandlers(broker, cfg.NodePeerID, logger),
		startedAt: time.Now(),
	}
	if tc, ok := broker.(topicCounter); ok {
		g.topics = tc.Topics
	}
	if cfg.RateLimitPerMinute > 0 {
		g.rateLimiter = NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
		g.rateLimiter.StartCleanup(rateLimitCleanupInterval, rateLimitMaxAge)
	}
	return g, nil
}

// Close stops background work owned by the gateway.
func (g *Gateway) Close() {
	if g.rateLimiter != nil {
		g.rateLimiter.Stop()
	}
}

package pubsub

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNotInitialized is returned when the manager has no gossipsub router.
var ErrNotInitialized = errors.New("pubsub not initialized")

// Publish sends data to every peer in the namespaced topic's mesh. The
// topic is joined on first use.
func (m *Manager) Publish(ctx context.Context, topic string, data []byte) error {
	if m.pubsub == nil {
		return ErrNotInitialized
	}
	if topic == "" {
		return fmt.Errorf("topic is required")
	}

	t, err := m.getOrCreateTopic(m.namespaced(topic))
	if err != nil {
		return fmt.Errorf("join %s: %w", topic, err)
	}
	if err := t.Publish(ctx, data); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	m.logger.Debug("Published message",
		zap.String("topic", topic),
		zap.Int("bytes", len(data)),
		zap.Int("mesh_peers", len(t.ListPeers())))
	return nil
}

package pubsub

import (
	"context"

	"github.com/DeBrosOfficial/pubsub-relay/pkg/relay"
)

// RelayDelivery adapts the Manager to the relay's delivery interface.
type RelayDelivery struct {
	manager *Manager
}

// NewRelayDelivery wraps manager.
func NewRelayDelivery(manager *Manager) *RelayDelivery {
	return &RelayDelivery{manager: manager}
}

// Subscribe forwards every network message on topic to handler.
func (d *RelayDelivery) Subscribe(ctx context.Context, topic string, handler func(relay.Message)) (string, error) {
	id, err := d.manager.Subscribe(ctx, topic, func(_ string, msg *Message) error {
		handler(relay.Message{
			From:      msg.From.String(),
			Data:      msg.Data,
			Seqno:     msg.Seqno,
			Signature: msg.Signature,
			Key:       msg.Key,
		})
		return nil
	})
	return string(id), err
}

// Unsubscribe removes the handler registered by Subscribe.
func (d *RelayDelivery) Unsubscribe(ctx context.Context, topic, id string) error {
	return d.manager.Unsubscribe(ctx, topic, HandlerID(id))
}

// Publish sends data to the topic's gossipsub mesh.
func (d *RelayDelivery) Publish(ctx context.Context, topic string, data []byte) error {
	return d.manager.Publish(ctx, topic, data)
}

var _ relay.Delivery = (*RelayDelivery)(nil)

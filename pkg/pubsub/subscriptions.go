package pubsub

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap"
)

func generateHandlerID() HandlerID {
	return HandlerID(uuid.NewString())
}

// Subscribe registers handler on topic and returns its HandlerID.
// Multiple handlers can subscribe to the same topic.
func (m *Manager) Subscribe(ctx context.Context, topic string, handler MessageHandler) (HandlerID, error) {
	if m.pubsub == nil {
		return "", ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	namespacedTopic := m.namespaced(topic)
	handlerID := generateHandlerID()

	m.mu.Lock()
	defer m.mu.Unlock()

	if topicSub, exists := m.subscriptions[namespacedTopic]; exists {
		topicSub.mu.Lock()
		topicSub.handlers[handlerID] = handler
		topicSub.refCount++
		topicSub.mu.Unlock()
		return handlerID, nil
	}

	libp2pTopic, err := m.getOrCreateTopicLocked(namespacedTopic)
	if err != nil {
		return "", fmt.Errorf("failed to get topic: %w", err)
	}

	sub, err := libp2pTopic.Subscribe()
	if err != nil {
		return "", fmt.Errorf("failed to subscribe to topic: %w", err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	topicSub := &topicSubscription{
		sub:      sub,
		cancel:   cancel,
		handlers: map[HandlerID]MessageHandler{handlerID: handler},
		refCount: 1,
	}
	m.subscriptions[namespacedTopic] = topicSub

	m.wg.Add(1)
	go m.readLoop(subCtx, topic, topicSub)

	m.logger.Debug("Subscribed to topic", zap.String("topic", namespacedTopic))
	return handlerID, nil
}

// readLoop fans messages out to the topic's handlers until ctx is cancelled.
func (m *Manager) readLoop(ctx context.Context, topic string, topicSub *topicSubscription) {
	defer m.wg.Done()
	defer topicSub.sub.Cancel()

	for {
		raw, err := topicSub.sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Debug("Subscription read failed", zap.String("topic", topic), zap.Error(err))
			return
		}
		if raw.ReceivedFrom == m.self {
			continue
		}

		msg := convertMessage(raw)

		topicSub.mu.RLock()
		handlers := make([]MessageHandler, 0, len(topicSub.handlers))
		for _, h := range topicSub.handlers {
			handlers = append(handlers, h)
		}
		topicSub.mu.RUnlock()

		for _, h := range handlers {
			if err := h(topic, msg); err != nil {
				m.logger.Debug("Message handler failed", zap.String("topic", topic), zap.Error(err))
			}
		}
	}
}

func convertMessage(raw *pubsub.Message) *Message {
	msg := &Message{ReceivedFrom: raw.ReceivedFrom}
	if raw.Message != nil {
		msg.Data = raw.Data
		msg.Seqno = raw.Seqno
		msg.Signature = raw.Signature
		msg.Key = raw.Key
		if from, err := peer.IDFromBytes(raw.From); err == nil {
			msg.From = from
		}
	}
	if msg.From == "" {
		msg.From = raw.ReceivedFrom
	}
	return msg
}

// Unsubscribe removes one handler registration. The gossipsub subscription
// is only cancelled when the last handler of the topic is gone.
func (m *Manager) Unsubscribe(ctx context.Context, topic string, id HandlerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	namespacedTopic := m.namespaced(topic)
	topicSub, exists := m.subscriptions[namespacedTopic]
	if !exists {
		return nil // Already unsubscribed
	}

	topicSub.mu.Lock()
	if _, ok := topicSub.handlers[id]; !ok {
		topicSub.mu.Unlock()
		return nil
	}
	delete(topicSub.handlers, id)
	topicSub.refCount--
	shouldCancel := topicSub.refCount <= 0
	topicSub.mu.Unlock()

	if shouldCancel {
		topicSub.cancel()
		delete(m.subscriptions, namespacedTopic)
		m.logger.Debug("Unsubscribed from topic", zap.String("topic", namespacedTopic))
	}

	return nil
}

// Close cancels all subscriptions, closes all topics and waits for the read loops.
func (m *Manager) Close() error {
	m.mu.Lock()
	for _, sub := range m.subscriptions {
		sub.cancel()
	}
	m.subscriptions = make(map[string]*topicSubscription)
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for name, topic := range m.topics {
		if err := topic.Close(); err != nil {
			m.logger.Debug("Topic close failed", zap.String("topic", name), zap.Error(err))
		}
	}
	m.topics = make(map[string]*pubsub.Topic)

	return nil
}

package pubsub

import (
	"fmt"
	"strings"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
)

// getOrCreateTopic gets an existing topic or joins a new one
func (m *Manager) getOrCreateTopic(topicName string) (*pubsub.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateTopicLocked(topicName)
}

// getOrCreateTopicLocked must be called with m.mu held
func (m *Manager) getOrCreateTopicLocked(topicName string) (*pubsub.Topic, error) {
	if topic, exists := m.topics[topicName]; exists {
		return topic, nil
	}

	topic, err := m.pubsub.Join(topicName)
	if err != nil {
		return nil, fmt.Errorf("failed to join topic: %w", err)
	}

	m.topics[topicName] = topic
	return topic, nil
}

// ListTopics returns all subscribed topics without the namespace prefix
func (m *Manager) ListTopics() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := m.namespaced("")
	topics := make([]string, 0, len(m.subscriptions))
	for topic := range m.subscriptions {
		if strings.HasPrefix(topic, prefix) {
			topics = append(topics, strings.TrimPrefix(topic, prefix))
		}
	}
	return topics
}

// TopicPeers returns how many peers gossipsub knows for a topic
func (m *Manager) TopicPeers(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.topics[m.namespaced(topic)]
	if !ok {
		return 0
	}
	return len(t.ListPeers())
}

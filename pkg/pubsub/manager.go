package pubsub

import (
	"sync"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap"
)

// Manager multiplexes handlers over gossipsub topics. Topic names are
// prefixed with the namespace so several relay networks can share peers.
type Manager struct {
	pubsub        *pubsub.PubSub
	self          peer.ID
	topics        map[string]*pubsub.Topic
	subscriptions map[string]*topicSubscription
	namespace     string
	logger        *zap.Logger
	mu            sync.RWMutex
	wg            sync.WaitGroup
}

// topicSubscription fans one gossipsub subscription out to its handlers.
type topicSubscription struct {
	sub      *pubsub.Subscription
	cancel   func()
	mu       sync.RWMutex
	handlers map[HandlerID]MessageHandler
	refCount int
}

// NewManager creates a new pubsub manager. Messages published by self are
// not delivered back to local handlers.
func NewManager(ps *pubsub.PubSub, self peer.ID, namespace string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		pubsub:        ps,
		self:          self,
		topics:        make(map[string]*pubsub.Topic),
		subscriptions: make(map[string]*topicSubscription),
		namespace:     namespace,
		logger:        logger,
	}
}

func (m *Manager) namespaced(topic string) string {
	if m.namespace == "" {
		return topic
	}
	return m.namespace + "." + topic
}

package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/libp2p/go-libp2p/core/host"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/pubsub-relay/pkg/config"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/logging"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/pubsub"
)

// Node is the libp2p side of a relay: a host, its gossipsub router and the
// background loops that keep it connected.
type Node struct {
	config *config.Config
	logger *logging.ColoredLogger
	host   host.Host
	pubsub *pubsub.Manager

	discovery *pubsub.PeerDiscoveryService
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewNode creates a new network node
func NewNode(cfg *config.Config, logger *logging.ColoredLogger) (*Node, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		var err error
		logger, err = logging.NewDefaultLogger()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	return &Node{
		config: cfg,
		logger: logger,
	}, nil
}

// Start brings up the libp2p host and gossipsub and starts peer maintenance.
func (n *Node) Start(ctx context.Context) error {
	n.logger.ComponentInfo(logging.ComponentNode, "Starting network node",
		zap.String("data_dir", n.config.Node.DataDir),
		zap.String("namespace", n.config.Node.Namespace),
	)

	loopCtx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	if err := n.startLibP2P(ctx, loopCtx); err != nil {
		cancel()
		n.closeHost()
		return fmt.Errorf("failed to start LibP2P: %w", err)
	}

	n.startConnectionMonitoring(loopCtx)

	n.logger.ComponentInfo(logging.ComponentNode, "Network node started",
		zap.String("peer_id", n.GetPeerID()),
		zap.Strings("listen_addrs", n.listenAddrs()),
	)
	return nil
}

// Stop stops the node and all its services
func (n *Node) Stop() error {
	n.logger.ComponentInfo(logging.ComponentNode, "Stopping network node")

	if n.discovery != nil {
		if err := n.discovery.Stop(); err != nil {
			n.logger.ComponentWarn(logging.ComponentNode, "Failed to stop peer discovery", zap.Error(err))
		}
	}
	if n.cancel != nil {
		n.cancel()
	}
	n.wg.Wait()

	if n.pubsub != nil {
		if err := n.pubsub.Close(); err != nil {
			n.logger.ComponentWarn(logging.ComponentNode, "Failed to close pubsub", zap.Error(err))
		}
	}
	n.closeHost()

	n.logger.ComponentInfo(logging.ComponentNode, "Network node stopped")
	return nil
}

func (n *Node) closeHost() {
	if n.host != nil {
		n.host.Close()
	}
}

// GetPeerID returns the peer ID of this node
func (n *Node) GetPeerID() string {
	if n.host == nil {
		return ""
	}
	return n.host.ID().String()
}

// PubSub returns the namespaced gossipsub manager. Nil before Start.
func (n *Node) PubSub() *pubsub.Manager {
	return n.pubsub
}

// Host returns the libp2p host. Nil before Start.
func (n *Node) Host() host.Host {
	return n.host
}

func (n *Node) listenAddrs() []string {
	if n.host == nil {
		return nil
	}
	addrs := n.host.Addrs()
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}

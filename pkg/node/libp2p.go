package node

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/libp2p/go-libp2p"
	libp2ppubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	noise "github.com/libp2p/go-libp2p/p2p/security/noise"
	"github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/pubsub-relay/pkg/config"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/identity"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/logging"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/pubsub"
)

const (
	reconnectBaseInterval = 5 * time.Second
	reconnectIdleInterval = 30 * time.Second
)

// startLibP2P initializes the LibP2P host. startCtx bounds the initial
// bootstrap dials, loopCtx the lifetime of gossipsub and background loops.
func (n *Node) startLibP2P(startCtx, loopCtx context.Context) error {
	n.logger.ComponentInfo(logging.ComponentLibP2P, "Starting LibP2P host")

	priv, err := n.loadOrCreateIdentity()
	if err != nil {
		return fmt.Errorf("failed to load identity: %w", err)
	}

	var opts []libp2p.Option
	opts = append(opts,
		libp2p.Identity(priv),
		libp2p.Security(noise.ID, noise.New),
		libp2p.DefaultMuxers,
	)

	if len(n.config.Node.ListenAddresses) > 0 {
		listenAddrs := make([]multiaddr.Multiaddr, 0, len(n.config.Node.ListenAddresses))
		for _, addr := range n.config.Node.ListenAddresses {
			ma, err := multiaddr.NewMultiaddr(addr)
			if err != nil {
				return fmt.Errorf("invalid listen address %s: %w", addr, err)
			}
			listenAddrs = append(listenAddrs, ma)
		}
		opts = append(opts, libp2p.ListenAddrs(listenAddrs...))
		n.logger.ComponentInfo(logging.ComponentLibP2P, "Configured listen addresses",
			zap.Strings("addrs", n.config.Node.ListenAddresses))
	}

	// For localhost/development, disable NAT services
	if isLocalhost(n.config.Node.ListenAddresses) {
		n.logger.ComponentInfo(logging.ComponentLibP2P, "Localhost detected - disabling NAT services for local development")
	} else {
		opts = append(opts,
			libp2p.EnableNATService(),
			libp2p.EnableRelay(),
			libp2p.NATPortMap(),
			libp2p.EnableAutoRelayWithPeerSource(
				peerSource(n.config.Node.BootstrapPeers),
			),
		)
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		return err
	}
	n.host = h

	ps, err := libp2ppubsub.NewGossipSub(loopCtx, h,
		libp2ppubsub.WithPeerExchange(true),
		libp2ppubsub.WithFloodPublish(true),
		libp2ppubsub.WithMessageSigning(true),
	)
	if err != nil {
		return fmt.Errorf("failed to create pubsub: %w", err)
	}
	n.pubsub = pubsub.NewManager(ps, h.ID(), n.config.Node.Namespace, n.logger.ComponentLogger(logging.ComponentLibP2P))
	n.logger.ComponentInfo(logging.ComponentLibP2P, "Initialized gossipsub",
		zap.String("namespace", n.config.Node.Namespace))

	for _, peerAddr := range n.config.Node.BootstrapPeers {
		if info, err := addrInfo(peerAddr); err == nil {
			n.host.Peerstore().AddAddrs(info.ID, info.Addrs, 24*time.Hour)
		}
	}

	n.connectToPeers(startCtx)

	if len(n.config.Node.BootstrapPeers) > 0 {
		n.wg.Add(1)
		go n.peerReconnectionLoop(loopCtx)
	}

	n.discovery = pubsub.NewPeerDiscoveryService(h, n.pubsub, n.config.Node.DiscoveryInterval,
		n.logger.ComponentLogger(logging.ComponentLibP2P))
	if err := n.discovery.Start(); err != nil {
		n.logger.ComponentWarn(logging.ComponentLibP2P, "Failed to start peer discovery", zap.Error(err))
		n.discovery = nil
	}

	n.logger.ComponentInfo(logging.ComponentLibP2P, "LibP2P host started successfully",
		zap.String("peer_id", h.ID().String()))
	return nil
}

func (n *Node) peerReconnectionLoop(ctx context.Context) {
	defer n.wg.Done()

	interval := reconnectBaseInterval
	for {
		if n.hasPeerConnections() {
			interval = reconnectBaseInterval
			if !sleepCtx(ctx, reconnectIdleInterval) {
				return
			}
			continue
		}

		if n.connectToPeers(ctx) > 0 {
			interval = reconnectBaseInterval
			if !sleepCtx(ctx, reconnectIdleInterval) {
				return
			}
			continue
		}

		n.logger.ComponentDebug(logging.ComponentLibP2P, "No bootstrap peer reachable, backing off",
			zap.Duration("interval", interval))
		if !sleepCtx(ctx, addJitter(interval)) {
			return
		}
		interval = calculateNextBackoff(interval)
	}
}

// connectToPeers dials every bootstrap peer and returns how many succeeded.
func (n *Node) connectToPeers(ctx context.Context) int {
	connected := 0
	for _, peerAddr := range n.config.Node.BootstrapPeers {
		if err := n.connectToPeerAddr(ctx, peerAddr); err != nil {
			n.logger.ComponentDebug(logging.ComponentLibP2P, "Failed to connect to bootstrap peer",
				zap.String("addr", peerAddr), zap.Error(err))
			continue
		}
		connected++
	}
	return connected
}

func (n *Node) connectToPeerAddr(ctx context.Context, addr string) error {
	info, err := addrInfo(addr)
	if err != nil {
		return err
	}
	if n.host != nil && info.ID == n.host.ID() {
		return nil
	}
	return n.host.Connect(ctx, *info)
}

func (n *Node) hasPeerConnections() bool {
	if n.host == nil || len(n.config.Node.BootstrapPeers) == 0 {
		return false
	}
	connectedPeers := n.host.Network().Peers()
	if len(connectedPeers) == 0 {
		return false
	}

	bootstrapIDs := make(map[peer.ID]bool)
	for _, addr := range n.config.Node.BootstrapPeers {
		if info, err := addrInfo(addr); err == nil {
			bootstrapIDs[info.ID] = true
		}
	}

	for _, p := range connectedPeers {
		if bootstrapIDs[p] {
			return true
		}
	}
	return false
}

func (n *Node) loadOrCreateIdentity() (crypto.PrivKey, error) {
	dataDir, err := config.ExpandPath(n.config.Node.DataDir)
	if err != nil {
		return nil, err
	}
	info, created, err := identity.LoadOrGenerate(filepath.Join(dataDir, "identity.key"))
	if err != nil {
		return nil, err
	}
	if created {
		n.logger.ComponentInfo(logging.ComponentNode, "Generated new node identity",
			zap.String("peer_id", info.PeerID.String()))
	}
	return info.PrivateKey, nil
}

func isLocalhost(addrs []string) bool {
	return len(addrs) > 0 &&
		(strings.Contains(addrs[0], "localhost") || strings.Contains(addrs[0], "127.0.0.1"))
}

func addrInfo(addr string) (*peer.AddrInfo, error) {
	ma, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		return nil, err
	}
	return peer.AddrInfoFromP2pAddr(ma)
}

func peerSource(peerAddrs []string) func(context.Context, int) <-chan peer.AddrInfo {
	return func(ctx context.Context, num int) <-chan peer.AddrInfo {
		out := make(chan peer.AddrInfo, num)
		go func() {
			defer close(out)
			count := 0
			for _, s := range peerAddrs {
				if count >= num {
					return
				}
				ai, err := addrInfo(s)
				if err != nil {
					continue
				}
				select {
				case out <- *ai:
					count++
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}

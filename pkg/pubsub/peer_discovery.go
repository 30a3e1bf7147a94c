package pubsub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"
)

// PeerDiscoveryTopic is where relays announce their addresses.
const PeerDiscoveryTopic = "_relay/peer-discovery/v1"

const announcementMaxAge = 5 * time.Minute

// PeerAnnouncement represents a relay announcing its addresses
type PeerAnnouncement struct {
	PeerID    string   `json:"peer_id"`
	Addresses []string `json:"addresses"`
	Timestamp int64    `json:"timestamp"`
}

// PeerDiscoveryService lets relays find each other through a gossipsub
// topic so the mesh grows beyond the bootstrap peers.
type PeerDiscoveryService struct {
	host     host.Host
	manager  *Manager
	logger   *zap.Logger
	interval time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	handlerID HandlerID
}

// NewPeerDiscoveryService creates a new peer discovery service announcing every interval
func NewPeerDiscoveryService(h host.Host, manager *Manager, interval time.Duration, logger *zap.Logger) *PeerDiscoveryService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PeerDiscoveryService{
		host:     h,
		manager:  manager,
		logger:   logger,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to the discovery topic and begins announcing
func (pds *PeerDiscoveryService) Start() error {
	id, err := pds.manager.Subscribe(pds.ctx, PeerDiscoveryTopic, pds.handlePeerAnnouncement)
	if err != nil {
		return err
	}
	pds.handlerID = id

	pds.wg.Add(1)
	go pds.announcePeriodically()

	return nil
}

// Stop stops announcing and unsubscribes
func (pds *PeerDiscoveryService) Stop() error {
	pds.cancel()
	err := pds.manager.Unsubscribe(context.Background(), PeerDiscoveryTopic, pds.handlerID)
	pds.wg.Wait()
	return err
}

func (pds *PeerDiscoveryService) announcePeriodically() {
	defer pds.wg.Done()

	ticker := time.NewTicker(pds.interval)
	defer ticker.Stop()

	pds.announceOurselves()
	for {
		select {
		case <-pds.ctx.Done():
			return
		case <-ticker.C:
			pds.announceOurselves()
		}
	}
}

func (pds *PeerDiscoveryService) announcement() PeerAnnouncement {
	self := multiaddr.StringCast("/p2p/" + pds.host.ID().String())
	addrs := pds.host.Addrs()
	addrStrs := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		addrStrs = append(addrStrs, addr.Encapsulate(self).String())
	}

	return PeerAnnouncement{
		PeerID:    pds.host.ID().String(),
		Addresses: addrStrs,
		Timestamp: time.Now().Unix(),
	}
}

func (pds *PeerDiscoveryService) announceOurselves() {
	ann := pds.announcement()
	data, err := json.Marshal(ann)
	if err != nil {
		pds.logger.Debug("Failed to marshal peer announcement", zap.Error(err))
		return
	}

	if err := pds.manager.Publish(pds.ctx, PeerDiscoveryTopic, data); err != nil {
		pds.logger.Debug("Failed to publish peer announcement", zap.Error(err))
		return
	}
	pds.logger.Debug("Announced peer presence", zap.Int("addresses", len(ann.Addresses)))
}

// parseAnnouncement validates an announcement and returns the peer and its
// addresses. ok is false for our own, stale or malformed announcements.
func (pds *PeerDiscoveryService) parseAnnouncement(data []byte, now time.Time) (peer.ID, []multiaddr.Multiaddr, bool) {
	var ann PeerAnnouncement
	if err := json.Unmarshal(data, &ann); err != nil {
		return "", nil, false
	}
	if now.Unix()-ann.Timestamp > int64(announcementMaxAge/time.Second) {
		return "", nil, false
	}

	peerID, err := peer.Decode(ann.PeerID)
	if err != nil || peerID == pds.host.ID() {
		return "", nil, false
	}

	var addrs []multiaddr.Multiaddr
	for _, s := range ann.Addresses {
		addr, err := multiaddr.NewMultiaddr(s)
		if err != nil {
			continue
		}
		addrs = append(addrs, addr)
	}
	return peerID, addrs, len(addrs) > 0
}

func (pds *PeerDiscoveryService) handlePeerAnnouncement(_ string, msg *Message) error {
	peerID, addrs, ok := pds.parseAnnouncement(msg.Data, time.Now())
	if !ok {
		return nil
	}

	pds.host.Peerstore().AddAddrs(peerID, addrs, time.Hour)
	if pds.host.Network().Connectedness(peerID) == network.Connected {
		return nil
	}

	pds.wg.Add(1)
	go pds.tryConnectToPeer(peerID, addrs)
	return nil
}

func (pds *PeerDiscoveryService) tryConnectToPeer(peerID peer.ID, addrs []multiaddr.Multiaddr) {
	defer pds.wg.Done()

	ctx, cancel := context.WithTimeout(pds.ctx, 15*time.Second)
	defer cancel()

	if err := pds.host.Connect(ctx, peer.AddrInfo{ID: peerID, Addrs: addrs}); err != nil {
		pds.logger.Debug("Failed to connect to discovered peer",
			zap.Stringer("peer_id", peerID),
			zap.Error(err))
		return
	}
	pds.logger.Info("Connected to discovered peer", zap.Stringer("peer_id", peerID))
}

package node

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/mackerelio/go-osstat/cpu"
	"github.com/mackerelio/go-osstat/memory"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/pubsub-relay/pkg/logging"
)

// MetricsTopic carries periodic node health announcements. Relay clients can
// join it like any other topic.
const MetricsTopic = "_relay/metrics/v1"

const (
	monitorInterval   = 60 * time.Second
	cpuSampleInterval = 3 * time.Second
)

type metricsAnnouncement struct {
	PeerID    string `json:"peer_id"`
	PeerCount int    `json:"peer_count"`
	Topics    int    `json:"topics"`
	CPU       uint64 `json:"cpu_usage"`
	Memory    uint64 `json:"memory_usage"`
	Timestamp int64  `json:"timestamp"`
}

func (n *Node) logPeerStatus(currentPeerCount int, lastPeerCount int, firstCheck bool) (int, bool) {
	if firstCheck || currentPeerCount != lastPeerCount {
		if currentPeerCount == 0 {
			n.logger.ComponentWarn(logging.ComponentNode, "Node has no connected peers",
				zap.String("node_id", n.host.ID().String()))
		} else if currentPeerCount < lastPeerCount {
			n.logger.ComponentInfo(logging.ComponentNode, "Node lost peers",
				zap.Int("current_peers", currentPeerCount),
				zap.Int("previous_peers", lastPeerCount))
		} else if currentPeerCount > lastPeerCount && !firstCheck {
			n.logger.ComponentDebug(logging.ComponentNode, "Node gained peers",
				zap.Int("current_peers", currentPeerCount),
				zap.Int("previous_peers", lastPeerCount))
		}

		lastPeerCount = currentPeerCount
		firstCheck = false
	}
	return lastPeerCount, firstCheck
}

func cpuUsagePercent(ctx context.Context, interval time.Duration) (uint64, error) {
	before, err := cpu.Get()
	if err != nil {
		return 0, err
	}
	if !sleepCtx(ctx, interval) {
		return 0, ctx.Err()
	}
	after, err := cpu.Get()
	if err != nil {
		return 0, err
	}
	idle := float64(after.Idle - before.Idle)
	total := float64(after.Total - before.Total)
	if total == 0 {
		return 0, errors.New("no cpu time elapsed")
	}
	return uint64((1.0 - idle/total) * 100.0), nil
}

func (n *Node) sampleSystemUsage(ctx context.Context) (uint64, uint64) {
	var memUsed uint64
	if mem, err := memory.Get(); err == nil {
		memUsed = mem.Used
		if mem.Total > 0 {
			n.logger.ComponentDebug(logging.ComponentNode, "Node memory usage",
				zap.Float64("memory_usage_percent", float64(mem.Used)/float64(mem.Total)*100))
		}
	}

	cpuUsage, err := cpuUsagePercent(ctx, cpuSampleInterval)
	if err != nil {
		if ctx.Err() == nil {
			n.logger.ComponentDebug(logging.ComponentNode, "Failed to get CPU usage", zap.Error(err))
		}
		return 0, memUsed
	}
	n.logger.ComponentDebug(logging.ComponentNode, "Node CPU usage", zap.Uint64("cpu_usage", cpuUsage))
	return cpuUsage, memUsed
}

func (n *Node) announceMetrics(ctx context.Context, peers []peer.ID, cpuUsage, memUsed uint64) error {
	if n.pubsub == nil {
		return nil
	}

	data, err := json.Marshal(metricsAnnouncement{
		PeerID:    n.host.ID().String(),
		PeerCount: len(peers),
		Topics:    len(n.pubsub.ListTopics()),
		CPU:       cpuUsage,
		Memory:    memUsed,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return n.pubsub.Publish(ctx, MetricsTopic, data)
}

// startConnectionMonitoring logs peer changes and announces node health until ctx is done.
func (n *Node) startConnectionMonitoring(ctx context.Context) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ticker := time.NewTicker(monitorInterval)
		defer ticker.Stop()

		var lastPeerCount int
		firstCheck := true

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			peers := n.host.Network().Peers()
			lastPeerCount, firstCheck = n.logPeerStatus(len(peers), lastPeerCount, firstCheck)

			cpuUsage, memUsed := n.sampleSystemUsage(ctx)
			if ctx.Err() != nil {
				return
			}
			if err := n.announceMetrics(ctx, peers, cpuUsage, memUsed); err != nil {
				n.logger.ComponentDebug(logging.ComponentNode, "Failed to announce metrics", zap.Error(err))
			}
		}
	}()

	n.logger.ComponentDebug(logging.ComponentNode, "Connection monitoring started")
}

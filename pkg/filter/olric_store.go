package filter

import (
	"context"
	"errors"
	"fmt"
	"time"

	olriclib "github.com/olric-data/olric"

	relayerrors "github.com/DeBrosOfficial/pubsub-relay/pkg/errors"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/olric"
)

const hintsDMap = "relay-filter-hints"

// OlricStore keeps hint counters in an Olric distributed map so that every
// relay in a cluster sees the same hints.
type OlricStore struct {
	client *olric.Client
	dm     olriclib.DMap
	ttl    time.Duration
}

// NewOlricStore opens the hints map on client.
func NewOlricStore(client *olric.Client, ttl time.Duration) (*OlricStore, error) {
	dm, err := client.DMap(hintsDMap)
	if err != nil {
		return nil, err
	}
	return &OlricStore{client: client, dm: dm, ttl: ttl}, nil
}

func olricKey(topic, peerID string) string {
	return fmt.Sprintf("%d:%s:%s", len(topic), topic, peerID)
}

// Add increments the counter and pushes its expiry out by ttl.
func (s *OlricStore) Add(ctx context.Context, topic, peerID string, _ time.Time) (int, error) {
	ctx, cancel := s.client.WithTimeout(ctx)
	defer cancel()

	key := olricKey(topic, peerID)
	n, err := s.dm.Incr(ctx, key, 1)
	if err != nil {
		return 0, relayerrors.Wrapf(err, "olric incr %s", key)
	}
	if s.ttl > 0 {
		if err := s.dm.Expire(ctx, key, s.ttl); err != nil {
			return n, relayerrors.Wrapf(err, "olric expire %s", key)
		}
	}
	return n, nil
}

// Count reads the counter. A missing key counts as zero.
func (s *OlricStore) Count(ctx context.Context, topic, peerID string, _ time.Time) (int, error) {
	ctx, cancel := s.client.WithTimeout(ctx)
	defer cancel()

	gr, err := s.dm.Get(ctx, olricKey(topic, peerID))
	if err != nil {
		if errors.Is(err, olriclib.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, relayerrors.Wrap(err, "olric get hint count")
	}
	return gr.Int()
}

// Close closes the underlying client.
func (s *OlricStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

package olric

import (
	"context"
	"fmt"
	"time"

	olriclib "github.com/olric-data/olric"
	"go.uber.org/zap"

	relayerrors "github.com/DeBrosOfficial/pubsub-relay/pkg/errors"
)

// Client wraps an Olric cluster client used as a shared hint store
type Client struct {
	client  olriclib.Client
	timeout time.Duration
	logger  *zap.Logger
}

// Config holds configuration for the Olric client
type Config struct {
	// Servers is a list of Olric server addresses (e.g., ["localhost:3320"])
	// If empty, defaults to ["localhost:3320"]
	Servers []string

	// Timeout bounds every client operation. If zero, defaults to 5 seconds
	Timeout time.Duration
}

// NewClient creates a new Olric client wrapper
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	servers := cfg.Servers
	if len(servers) == 0 {
		servers = []string{"localhost:3320"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := olriclib.NewClusterClient(servers)
	if err != nil {
		return nil, relayerrors.Wrap(err, "failed to create Olric cluster client")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	logger.Info("Olric client created", zap.Strings("servers", servers))

	return &Client{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// DMap opens a distributed map by name
func (c *Client) DMap(name string) (olriclib.DMap, error) {
	dm, err := c.client.NewDMap(name)
	if err != nil {
		return nil, relayerrors.Wrapf(err, "failed to open DMap %s", name)
	}
	return dm, nil
}

// WithTimeout derives a context bounded by the client's operation timeout
func (c *Client) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// Health checks if the Olric cluster answers a put/get round trip
func (c *Client) Health(ctx context.Context) error {
	dm, err := c.DMap("_health_check")
	if err != nil {
		return err
	}

	testKey := fmt.Sprintf("_health_%d", time.Now().UnixNano())
	testValue := "ok"

	ctx, cancel := c.WithTimeout(ctx)
	defer cancel()

	if err := dm.Put(ctx, testKey, testValue); err != nil {
		return relayerrors.Wrap(err, "health check put failed")
	}

	gr, err := dm.Get(ctx, testKey)
	if err != nil {
		return relayerrors.Wrap(err, "health check get failed")
	}

	val, err := gr.String()
	if err != nil {
		return relayerrors.Wrap(err, "health check value decode failed")
	}
	if val != testValue {
		return fmt.Errorf("health check value mismatch: expected %q, got %q", testValue, val)
	}

	_, _ = dm.Delete(ctx, testKey)
	return nil
}

// Close closes the Olric client connection
func (c *Client) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Close(ctx)
}

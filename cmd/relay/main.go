package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/pubsub-relay/pkg/config"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/filter"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/gateway"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/logging"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/node"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/olric"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/pubsub"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/relay"
)

const (
	startTimeout    = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, path, err := loadConfig(os.Args[1:], os.LookupEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Logging.Options())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if path != "" {
		logger.ComponentInfo(logging.ComponentConfig, "Loaded configuration", zap.String("path", path))
	}

	if err := run(cfg, logger); err != nil {
		logger.ComponentError(logging.ComponentGeneral, "Relay failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.ColoredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		delivery relay.Delivery
		n        *node.Node
	)
	if cfg.Node.Enabled {
		var err error
		n, err = node.NewNode(cfg, logger)
		if err != nil {
			return err
		}
		startCtx, cancel := context.WithTimeout(ctx, startTimeout)
		err = n.Start(startCtx)
		cancel()
		if err != nil {
			return err
		}
		defer func() {
			if err := n.Stop(); err != nil {
				logger.ComponentWarn(logging.ComponentNode, "Node shutdown error", zap.Error(err))
			}
		}()
		delivery = pubsub.NewRelayDelivery(n.PubSub())
	} else {
		logger.ComponentInfo(logging.ComponentGeneral, "Node disabled, relaying locally only")
	}

	store, err := newHintStore(cfg.Filter, logger)
	if err != nil {
		return err
	}
	advisor := filter.NewAdvisor(filter.Config{
		HintThreshold: cfg.Filter.HintThreshold,
		RatePerSecond: cfg.Filter.RatePerSecond,
		Burst:         cfg.Filter.Burst,
	}, store, nil, logger.ComponentLogger(logging.ComponentFilter))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := advisor.Close(closeCtx); err != nil {
			logger.ComponentWarn(logging.ComponentFilter, "Hint store close error", zap.Error(err))
		}
	}()

	opts, err := relayOptions(cfg.Relay)
	if err != nil {
		return err
	}
	opts.Filter = advisor
	opts.Delivery = delivery
	opts.Logger = logger.ComponentLogger(logging.ComponentRelay)
	if n != nil {
		opts.SelfID = n.GetPeerID()
	}

	svc, err := relay.NewService(opts)
	if err != nil {
		return err
	}
	defer svc.Close()

	gwCfg := &gateway.Config{
		ListenAddr:         cfg.Gateway.ListenAddr,
		RateLimitPerMinute: cfg.Gateway.RateLimitPerMinute,
		RateLimitBurst:     cfg.Gateway.RateLimitBurst,
		RequestTimeout:     cfg.Gateway.RequestTimeout,
	}
	if n != nil {
		gwCfg.NodePeerID = n.GetPeerID()
	}
	gw, err := gateway.New(logger, gwCfg, svc)
	if err != nil {
		return err
	}
	defer gw.Close()

	server := &http.Server{
		Addr:              gwCfg.ListenAddr,
		Handler:           gw.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.ComponentInfo(logging.ComponentGateway, "Relay HTTP server starting",
			zap.String("addr", gwCfg.ListenAddr),
			zap.String("peer_id", gwCfg.NodePeerID),
			zap.Bool("node_enabled", cfg.Node.Enabled),
			zap.String("filter_backend", cfg.Filter.Backend),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.ComponentInfo(logging.ComponentGeneral, "Shutting down relay...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.ComponentError(logging.ComponentGateway, "HTTP server shutdown error", zap.Error(err))
	}
	logger.ComponentInfo(logging.ComponentGeneral, "Relay shutdown complete")
	return nil
}

// newHintStore builds the filter's hint store for the configured backend.
func newHintStore(cfg config.FilterConfig, logger *logging.ColoredLogger) (filter.HintStore, error) {
	if cfg.Backend != config.FilterBackendOlric {
		return filter.NewMemoryStore(cfg.HintTTL), nil
	}

	client, err := olric.NewClient(olric.Config{
		Servers: cfg.OlricServers,
		Timeout: cfg.OlricTimeout,
	}, logger.ComponentLogger(logging.ComponentFilter))
	if err != nil {
		return nil, err
	}
	healthCtx, cancel := context.WithTimeout(context.Background(), cfg.OlricTimeout)
	defer cancel()
	if err := client.Health(healthCtx); err != nil {
		// Hint lookups fail open, so an unreachable cluster only disables filtering.
		logger.ComponentWarn(logging.ComponentFilter, "Olric health check failed",
			zap.Strings("servers", cfg.OlricServers),
			zap.Error(err))
	}
	store, err := filter.NewOlricStore(client, cfg.HintTTL)
	if err != nil {
		client.Close(context.Background())
		return nil, err
	}
	return store, nil
}

// relayOptions maps the relay config section onto service options.
func relayOptions(cfg config.RelayConfig) (relay.Options, error) {
	policies := make([]relay.QueuePolicy, 0, len(cfg.Limits.AllowedQueuePolicies))
	for _, p := range cfg.Limits.AllowedQueuePolicies {
		policy, err := relay.ParseQueuePolicy(p)
		if err != nil {
			return relay.Options{}, err
		}
		policies = append(policies, policy)
	}
	defaultPolicy, err := relay.ParseQueuePolicy(cfg.Defaults.QueuePolicy)
	if err != nil {
		return relay.Options{}, err
	}

	return relay.Options{
		Limits: relay.Limits{
			MaxQueueLength:       cfg.Limits.MaxQueueLength,
			AllowedQueuePolicies: policies,
			MaxTimeoutSeconds:    cfg.Limits.MaxTimeout,
			MaxMessageSize:       cfg.Limits.MaxMessageSize,
		},
		Defaults: relay.QueueConfig{
			QueueLength:    cfg.Defaults.QueueLength,
			QueuePolicy:    defaultPolicy,
			TimeoutSeconds: cfg.Defaults.Timeout,
			MaxMessageSize: cfg.Defaults.MaxMessageSize,
		},
		DefaultReadMessages: cfg.DefaultReadMessages,
		SweepInterval:       cfg.SweepInterval,
		Shards:              cfg.Shards,
	}, nil
}

package config

import "time"

// NodeConfig contains the libp2p node settings.
type NodeConfig struct {
	Enabled           bool          `yaml:"enabled"`          // Run without a network when false
	ListenAddresses   []string      `yaml:"listen_addresses"` // LibP2P listen addresses
	BootstrapPeers    []string      `yaml:"bootstrap_peers"`  // Full multiaddrs including /p2p/<peerID>
	DataDir           string        `yaml:"data_dir"`         // Holds the node identity key
	Namespace         string        `yaml:"namespace"`        // Prefix for gossip topic names
	DiscoveryInterval time.Duration `yaml:"discovery_interval"`
}

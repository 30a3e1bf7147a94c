package validate

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
)

const bootstrapHint = "expected /ip{4,6}/.../tcp/<port>/p2p/<peerID>"

// NodeConfig represents the node configuration for validation purposes.
type NodeConfig struct {
	ListenAddresses   []string
	BootstrapPeers    []string
	DataDir           string
	Namespace         string
	DiscoveryInterval time.Duration
}

// ValidateNode performs validation of the node configuration.
func ValidateNode(nc NodeConfig) []error {
	var errs []error

	if len(nc.ListenAddresses) == 0 {
		errs = append(errs, ValidationError{
			Path:    "node.listen_addresses",
			Message: "must not be empty",
		})
	}

	seen := make(map[string]bool)
	for i, addr := range nc.ListenAddresses {
		path := fmt.Sprintf("node.listen_addresses[%d]", i)

		ma, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("invalid multiaddr: %v", err),
				Hint:    "expected /ip{4,6}/.../tcp/<port>",
			})
			continue
		}

		netAddr, err := manet.ToNetAddr(ma)
		if err != nil {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("cannot convert multiaddr to network address: %v", err),
				Hint:    "ensure multiaddr contains /tcp/<port>",
			})
			continue
		}

		tcpAddr, ok := netAddr.(*net.TCPAddr)
		if !ok {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: "not a TCP address",
				Hint:    "ensure multiaddr contains /tcp/<port>",
			})
			continue
		}
		if tcpAddr.Port < 1 || tcpAddr.Port > 65535 {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("invalid TCP port %d", tcpAddr.Port),
				Hint:    "port must be between 1 and 65535",
			})
		}

		if seen[addr] {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: "duplicate listen address",
			})
		}
		seen[addr] = true
	}

	seenPeers := make(map[string]bool)
	for i, peer := range nc.BootstrapPeers {
		path := fmt.Sprintf("node.bootstrap_peers[%d]", i)

		if _, err := multiaddr.NewMultiaddr(peer); err != nil {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("invalid multiaddr: %v", err),
				Hint:    bootstrapHint,
			})
			continue
		}

		if !strings.Contains(peer, "/p2p/") {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: "missing /p2p/<peerID> component",
				Hint:    bootstrapHint,
			})
		}

		tcpPortStr := ExtractTCPPort(peer)
		if tcpPortStr == "" {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: "missing /tcp/<port> component",
				Hint:    bootstrapHint,
			})
			continue
		}
		if tcpPort, err := strconv.Atoi(tcpPortStr); err != nil || tcpPort < 1 || tcpPort > 65535 {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("invalid TCP port %s", tcpPortStr),
				Hint:    "port must be between 1 and 65535",
			})
		}

		if seenPeers[peer] {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: "duplicate peer",
			})
		}
		seenPeers[peer] = true
	}

	if nc.DataDir == "" {
		errs = append(errs, ValidationError{
			Path:    "node.data_dir",
			Message: "must not be empty",
		})
	} else if err := ValidateDataDir(nc.DataDir); err != nil {
		errs = append(errs, ValidationError{
			Path:    "node.data_dir",
			Message: err.Error(),
		})
	}

	if nc.Namespace == "" {
		errs = append(errs, ValidationError{
			Path:    "node.namespace",
			Message: "must not be empty",
		})
	}

	if nc.DiscoveryInterval <= 0 {
		errs = append(errs, ValidationError{
			Path:    "node.discovery_interval",
			Message: fmt.Sprintf("must be > 0; got %v", nc.DiscoveryInterval),
		})
	}

	return errs
}

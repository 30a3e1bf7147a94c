package node

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap/zapcore"

	"github.com/DeBrosOfficial/pubsub-relay/pkg/config"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/logging"
)

func testLogger() *logging.ColoredLogger {
	return logging.NewWriterLogger(zapcore.AddSync(&bytes.Buffer{}), zapcore.ErrorLevel, false)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Node.DataDir = t.TempDir()
	cfg.Node.ListenAddresses = []string{"/ip4/127.0.0.1/tcp/0"}
	cfg.Node.Namespace = "test"
	return cfg
}

func TestGetPeerId_WhenNoHost(t *testing.T) {
	n := &Node{}
	if id := n.GetPeerID(); id != "" {
		t.Fatalf("GetPeerID() = %q; want empty string when host is nil", id)
	}
}

func TestLoadOrCreateIdentity(t *testing.T) {
	t.Run("first run creates file with correct perms and round-trips", func(t *testing.T) {
		cfg := testConfig(t)
		n, err := NewNode(cfg, testLogger())
		if err != nil {
			t.Fatalf("NewNode() error: %v", err)
		}

		priv, err := n.loadOrCreateIdentity()
		if err != nil {
			t.Fatalf("loadOrCreateIdentity() error: %v", err)
		}

		identityFile := filepath.Join(cfg.Node.DataDir, "identity.key")
		fi, err := os.Stat(identityFile)
		if err != nil {
			t.Fatalf("identity file not created: %v", err)
		}
		if got := fi.Mode().Perm(); got != 0o600 {
			t.Fatalf("identity file permissions are incorrect: %v", got)
		}

		data, err := os.ReadFile(identityFile)
		if err != nil {
			t.Fatalf("failed to read identity file: %v", err)
		}
		priv2, err := crypto.UnmarshalPrivateKey(data)
		if err != nil {
			t.Fatalf("UnmarshalPrivateKey: %v", err)
		}
		if !priv.Equals(priv2) {
			t.Fatalf("saved key differs from returned key")
		}
	})

	t.Run("second run returns same identity", func(t *testing.T) {
		cfg := testConfig(t)
		n1, _ := NewNode(cfg, testLogger())
		priv1, err := n1.loadOrCreateIdentity()
		if err != nil {
			t.Fatalf("loadOrCreateIdentity(first) error: %v", err)
		}
		n2, _ := NewNode(cfg, testLogger())
		priv2, err := n2.loadOrCreateIdentity()
		if err != nil {
			t.Fatalf("loadOrCreateIdentity(second) error: %v", err)
		}
		if !priv1.Equals(priv2) {
			t.Fatalf("second run did not return the same identity")
		}
	})
}

func TestHasPeerConnections(t *testing.T) {
	cfg := testConfig(t)
	n, err := NewNode(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewNode() error: %v", err)
	}

	if n.hasPeerConnections() {
		t.Fatal("expected false without a host")
	}

	h, err := libp2p.New(libp2p.ListenAddrStrings("/ip4/127.0.0.1/tcp/0"))
	if err != nil {
		t.Fatalf("libp2p.New() error: %v", err)
	}
	defer h.Close()
	n.host = h

	other, err := libp2p.New(libp2p.ListenAddrStrings("/ip4/127.0.0.1/tcp/0"))
	if err != nil {
		t.Fatalf("libp2p.New() error: %v", err)
	}
	defer other.Close()

	addr := other.Addrs()[0].String() + "/p2p/" + other.ID().String()
	cfg.Node.BootstrapPeers = []string{addr}
	if n.hasPeerConnections() {
		t.Fatal("expected false before connecting")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if got := n.connectToPeers(ctx); got != 1 {
		t.Fatalf("connectToPeers() = %d, want 1", got)
	}
	if !n.hasPeerConnections() {
		t.Fatal("expected true after connecting to bootstrap peer")
	}
}

func TestPeerSource(t *testing.T) {
	id := "12D3KooWHbcFcrGPXKUrHcxvd8MXEeUzRYyvY8fQcpEBxncSUwhj"
	addrs := []string{
		"/ip4/127.0.0.1/tcp/4001/p2p/" + id,
		"not-a-multiaddr",
		"/ip4/127.0.0.1/tcp/4002/p2p/" + id,
	}

	var got []peer.AddrInfo
	for ai := range peerSource(addrs)(context.Background(), 1) {
		got = append(got, ai)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 peer, got %d", len(got))
	}
	if got[0].ID.String() != id {
		t.Fatalf("unexpected peer %s", got[0].ID)
	}
}

func TestStartStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Node.DiscoveryInterval = time.Hour
	n, err := NewNode(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewNode() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := n.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if n.GetPeerID() == "" {
		t.Fatal("expected peer id after start")
	}
	if n.PubSub() == nil {
		t.Fatal("expected pubsub manager after start")
	}
	if err := n.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
}

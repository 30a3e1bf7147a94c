package identity

import (
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

func TestLoadOrGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "identity.key")

	first, created, err := LoadOrGenerate(path)
	if err != nil {
		t.Fatalf("LoadOrGenerate: %v", err)
	}
	if !created {
		t.Error("expected a new identity on first call")
	}

	second, created, err := LoadOrGenerate(path)
	if err != nil {
		t.Fatalf("LoadOrGenerate: %v", err)
	}
	if created {
		t.Error("expected the saved identity to be reused")
	}
	if first.PeerID != second.PeerID {
		t.Errorf("peer id changed across loads: %s vs %s", first.PeerID, second.PeerID)
	}
}

func TestKeyDerivable(t *testing.T) {
	ed, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	_, rsaPub, err := crypto.GenerateKeyPairWithReader(crypto.RSA, 2048, rand.Reader)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	rsaID, err := peer.IDFromPublicKey(rsaPub)
	if err != nil {
		t.Fatalf("rsa peer id: %v", err)
	}

	tests := []struct {
		name string
		from string
		want bool
	}{
		{"ed25519", ed.PeerID.String(), true},
		{"rsa", rsaID.String(), false},
		{"garbage", "not-a-peer-id", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyDerivable(tt.from); got != tt.want {
				t.Errorf("KeyDerivable(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

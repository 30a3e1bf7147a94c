// Package identity manages the relay's libp2p key pair and answers whether
// a sender's public key can be recovered from its peer id.
package identity

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// Info is a loaded or generated key pair.
type Info struct {
	PrivateKey crypto.PrivKey
	PublicKey  crypto.PubKey
	PeerID     peer.ID
}

// Generate creates a fresh Ed25519 identity.
func Generate() (*Info, error) {
	priv, pub, err := crypto.GenerateKeyPairWithReader(crypto.Ed25519, 2048, rand.Reader)
	if err != nil {
		return nil, err
	}
	return fromPrivateKey(priv, pub)
}

func fromPrivateKey(priv crypto.PrivKey, pub crypto.PubKey) (*Info, error) {
	peerID, err := peer.IDFromPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return &Info{
		PrivateKey: priv,
		PublicKey:  pub,
		PeerID:     peerID,
	}, nil
}

// Save writes the private key to path with owner-only permissions.
func Save(info *Info, path string) error {
	data, err := crypto.MarshalPrivateKey(info.PrivateKey)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Load reads a private key written by Save.
func Load(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	priv, err := crypto.UnmarshalPrivateKey(data)
	if err != nil {
		return nil, err
	}
	return fromPrivateKey(priv, priv.GetPublic())
}

// LoadOrGenerate loads the identity at path, creating and saving one when
// the file does not exist yet.
func LoadOrGenerate(path string) (*Info, bool, error) {
	info, err := Load(path)
	if err == nil {
		return info, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("load identity %s: %w", path, err)
	}

	info, err = Generate()
	if err != nil {
		return nil, false, fmt.Errorf("generate identity: %w", err)
	}
	if err := Save(info, path); err != nil {
		return nil, false, fmt.Errorf("save identity %s: %w", path, err)
	}
	return info, true, nil
}

// KeyDerivable reports whether the public key of the sender can be
// extracted from its peer id alone. Inlined keys (Ed25519, secp256k1) are
// derivable; hashed ones (RSA) are not.
func KeyDerivable(from string) bool {
	id, err := peer.Decode(from)
	if err != nil {
		return false
	}
	pub, err := id.ExtractPublicKey()
	return err == nil && pub != nil
}

// MarshalPublicKey encodes a public key in the libp2p protobuf form.
func MarshalPublicKey(pub crypto.PubKey) ([]byte, error) {
	return crypto.MarshalPublicKey(pub)
}

// Package keys holds the ed25519 key pair used to sign operations. The rest
// of the engine only sees the Signer interface; raw key material never
// crosses that boundary.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Signer is the opaque signing capability consumed by the build engine:
// it signs canonical operation bytes and exposes the public key that
// readers verify against.
type Signer interface {
	Sign(data []byte) (signature string, err error)
	PublicKey() string
}

// KeyPair is an ed25519 key pair backed by a seed file on disk.
type KeyPair struct {
	private ed25519.PrivateKey
}

// Generate creates a new random key pair.
func Generate() (*KeyPair, error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key pair: %w", err)
	}
	return &KeyPair{private: private}, nil
}

// Load reads a hex-encoded ed25519 seed from the given file.
func Load(path string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file %s: %w", path, err)
	}

	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode key file %s: %w", path, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("key file %s: seed is %d bytes, want %d", path, len(seed), ed25519.SeedSize)
	}

	return &KeyPair{private: ed25519.NewKeyFromSeed(seed)}, nil
}

// Save writes the hex-encoded seed to the given file, readable only by the
// owner. Fails if the file already exists so a key is never overwritten.
func (k *KeyPair) Save(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("key file %s already exists", path)
	}

	encoded := hex.EncodeToString(k.private.Seed()) + "\n"
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return fmt.Errorf("write key file %s: %w", path, err)
	}
	return nil
}

// Sign signs the given bytes and returns the hex-encoded signature.
func (k *KeyPair) Sign(data []byte) (string, error) {
	if k.private == nil {
		return "", fmt.Errorf("sign: key pair not initialized")
	}
	return hex.EncodeToString(ed25519.Sign(k.private, data)), nil
}

// PublicKey returns the hex-encoded public key.
func (k *KeyPair) PublicKey() string {
	return hex.EncodeToString(k.private.Public().(ed25519.PublicKey))
}

// Verify checks a hex-encoded signature over data against a hex-encoded
// public key.
func Verify(publicKey, signature string, data []byte) (bool, error) {
	pub, err := hex.DecodeString(publicKey)
	if err != nil {
		return false, fmt.Errorf("decode public key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("public key is %d bytes, want %d", len(pub), ed25519.PublicKeySize)
	}
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	return ed25519.Verify(ed25519.PublicKey(pub), data, sig), nil
}

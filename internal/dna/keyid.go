package dna

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"io"

	"helix-auth/go-backend/pkg/models"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

const (
	keyIDPrefix        = "dna1"
	hkdfInfoVisualSeed = "helix/dna/visual-seed/v1"
)

// KeyID derives the content-bound identifier for a credential. The same
// public key and level always re-derive the same id.
func KeyID(publicKey ed25519.PublicKey, level models.SecurityLevel) (string, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return "", fmt.Errorf("invalid public key size: %d", len(publicKey))
	}
	levelByte, ok := levelBytes[level]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidSecurityLevel, level)
	}
	b := make([]byte, 0, len(publicKey)+1)
	b = append(b, publicKey...)
	b = append(b, levelByte)
	sum := blake2b.Sum256(b)
	return keyIDPrefix + base58.Encode(sum[:]), nil
}

// VisualSeed derives the public cosmetic seed. Inputs are public fields
// only, so the seed leaks nothing the key record does not already expose.
func VisualSeed(publicKey ed25519.PublicKey, level models.SecurityLevel) ([]byte, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key size: %d", len(publicKey))
	}
	levelByte, ok := levelBytes[level]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSecurityLevel, level)
	}
	reader := hkdf.New(sha256.New, publicKey, []byte{levelByte}, []byte(hkdfInfoVisualSeed))
	seed := make([]byte, 32)
	if _, err := io.ReadFull(reader, seed); err != nil {
		return nil, err
	}
	return seed, nil
}

package dna

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

var ErrInvalidMnemonic = errors.New("invalid recovery mnemonic")

// RecoveryMnemonic encodes the private key seed as a BIP-39 mnemonic so a
// subject can hold the credential out-of-band. Like the raw private key it
// is produced exactly once and never persisted.
func RecoveryMnemonic(privateKey ed25519.PrivateKey) (string, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("invalid private key size: %d", len(privateKey))
	}
	return bip39.NewMnemonic(privateKey.Seed())
}

// RecoverPrivateKey re-derives the private key from its recovery mnemonic.
func RecoverPrivateKey(mnemonic string) (ed25519.PrivateKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, ErrInvalidMnemonic
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

package dna

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"testing"

	"helix-auth/go-backend/pkg/models"
)

func TestSegmentCountPerLevel(t *testing.T) {
	cases := []struct {
		level models.SecurityLevel
		count int
	}{
		{models.LevelStandard, 1024},
		{models.LevelEnhanced, 16384},
		{models.LevelMaximum, 65536},
		{models.LevelGovernment, 262144},
	}
	for _, tc := range cases {
		got, err := SegmentCount(tc.level)
		if err != nil {
			t.Fatalf("segment count for %s: %v", tc.level, err)
		}
		if got != tc.count {
			t.Fatalf("level %s: expected %d segments, got %d", tc.level, tc.count, got)
		}
	}
}

func TestUnknownLevelRejected(t *testing.T) {
	if _, err := SegmentCount("ultra"); !errors.Is(err, ErrInvalidSecurityLevel) {
		t.Fatalf("expected ErrInvalidSecurityLevel, got %v", err)
	}
	if _, err := BuildChain("alice@example.com", "ultra", rand.Reader); !errors.Is(err, ErrInvalidSecurityLevel) {
		t.Fatalf("expected ErrInvalidSecurityLevel from build, got %v", err)
	}
}

func TestBuildChainShape(t *testing.T) {
	result, err := BuildChain("alice@example.com", models.LevelStandard, rand.Reader)
	if err != nil {
		t.Fatalf("build chain: %v", err)
	}
	if len(result.Segments) != 1024 {
		t.Fatalf("expected 1024 segments, got %d", len(result.Segments))
	}
	if len(result.PublicKey) != ed25519.PublicKeySize {
		t.Fatalf("unexpected public key size: %d", len(result.PublicKey))
	}
	if len(result.VisualSeed) != 32 {
		t.Fatalf("unexpected visual seed size: %d", len(result.VisualSeed))
	}
	for i, seg := range result.Segments {
		if seg.Index != i {
			t.Fatalf("segment %d carries index %d", i, seg.Index)
		}
		if seg.Type != segmentTypeFor(i) {
			t.Fatalf("segment %d: expected type %s, got %s", i, segmentTypeFor(i), seg.Type)
		}
	}
	if err := VerifyChain(result.Segments); err != nil {
		t.Fatalf("fresh chain must verify: %v", err)
	}
}

func TestVerifyChainDetectsMutation(t *testing.T) {
	result, err := BuildChain("alice@example.com", models.LevelStandard, rand.Reader)
	if err != nil {
		t.Fatalf("build chain: %v", err)
	}
	const target = 137
	result.Segments[target].Payload[0] ^= 0xFF
	err = VerifyChain(result.Segments)
	if !errors.Is(err, ErrChainMismatch) {
		t.Fatalf("expected ErrChainMismatch, got %v", err)
	}
}

func TestVerifyChainDetectsRelink(t *testing.T) {
	result, err := BuildChain("alice@example.com", models.LevelStandard, rand.Reader)
	if err != nil {
		t.Fatalf("build chain: %v", err)
	}
	// Re-linking a mutated segment still breaks the next segment's hash.
	const target = 10
	result.Segments[target].Payload[0] ^= 0xFF
	result.Segments[target].LinkHash = linkHash(result.Segments[target].Payload, result.Segments[target-1].LinkHash)
	err = VerifyChain(result.Segments)
	if !errors.Is(err, ErrChainMismatch) {
		t.Fatalf("expected ErrChainMismatch after relink, got %v", err)
	}
}

func TestIdentityCommitmentHidesSubject(t *testing.T) {
	result, err := BuildChain("alice@example.com", models.LevelStandard, rand.Reader)
	if err != nil {
		t.Fatalf("build chain: %v", err)
	}
	seg := result.Segments[2]
	if seg.Type != models.SegmentIdentityCommitment {
		t.Fatalf("expected identity commitment at index 2, got %s", seg.Type)
	}
	payload, err := DecodePayload(seg.Payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	commitment, ok := payload.(IdentityCommitmentPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", payload)
	}
	if bytes.Contains(seg.Payload, []byte("alice@example.com")) {
		t.Fatal("raw subject id leaked into segment payload")
	}
	expected := subjectCommitment("alice@example.com", commitment.Salt)
	if !bytes.Equal(commitment.Commitment, expected) {
		t.Fatal("commitment does not re-derive from subject id and salt")
	}
}

func TestInsufficientEntropy(t *testing.T) {
	short := io.LimitReader(rand.Reader, 64)
	if _, err := BuildChain("alice@example.com", models.LevelStandard, short); !errors.Is(err, ErrInsufficientEntropy) {
		t.Fatalf("expected ErrInsufficientEntropy, got %v", err)
	}
}

func TestKeyIDDeterministic(t *testing.T) {
	result, err := BuildChain("alice@example.com", models.LevelEnhanced, rand.Reader)
	if err != nil {
		t.Fatalf("build chain: %v", err)
	}
	first, err := KeyID(result.PublicKey, models.LevelEnhanced)
	if err != nil {
		t.Fatalf("derive key id: %v", err)
	}
	second, err := KeyID(result.PublicKey, models.LevelEnhanced)
	if err != nil {
		t.Fatalf("re-derive key id: %v", err)
	}
	if first != second {
		t.Fatalf("key id is not deterministic: %s vs %s", first, second)
	}
	if len(first) < 10 || first[:4] != "dna1" {
		t.Fatalf("unexpected key id format: %s", first)
	}
	other, err := KeyID(result.PublicKey, models.LevelMaximum)
	if err != nil {
		t.Fatalf("derive key id at other level: %v", err)
	}
	if other == first {
		t.Fatal("key id must bind the security level")
	}
}

func TestVisualSeedDerivesFromPublicFieldsOnly(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	a, err := VisualSeed(pub, models.LevelStandard)
	if err != nil {
		t.Fatalf("visual seed: %v", err)
	}
	b, err := VisualSeed(pub, models.LevelStandard)
	if err != nil {
		t.Fatalf("visual seed again: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("visual seed is not deterministic")
	}
}

func TestRecoveryMnemonicRoundtrip(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	mnemonic, err := RecoveryMnemonic(priv)
	if err != nil {
		t.Fatalf("recovery mnemonic: %v", err)
	}
	recovered, err := RecoverPrivateKey(mnemonic)
	if err != nil {
		t.Fatalf("recover private key: %v", err)
	}
	if !bytes.Equal(recovered, priv) {
		t.Fatal("recovered private key differs from original")
	}
	if _, err := RecoverPrivateKey("not a mnemonic"); !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("expected ErrInvalidMnemonic, got %v", err)
	}
}

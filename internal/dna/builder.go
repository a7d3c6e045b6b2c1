package dna

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"

	"helix-auth/go-backend/pkg/models"

	"golang.org/x/crypto/blake2b"
)

const chainDomain = "helix/dna/segment-chain/v1"

var (
	ErrInsufficientEntropy = errors.New("entropy source cannot supply required bytes")
	ErrChainMismatch       = errors.New("segment chain mismatch")
	ErrEmptyChain          = errors.New("segment chain is empty")
)

// ChainResult is everything a single build produces. The private key is
// handed to the caller exactly once and is never retained here.
type ChainResult struct {
	Segments   []models.Segment
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	VisualSeed []byte
}

// BuildChain deterministically constructs the ordered, tamper-evident
// segment chain for a subject at the given security level. All payloads
// are drawn from the entropy source except identity commitments, which
// commit to the subject id under a fresh salt.
func BuildChain(subjectID string, level models.SecurityLevel, entropy io.Reader) (*ChainResult, error) {
	count, err := SegmentCount(level)
	if err != nil {
		return nil, err
	}

	seed, err := readEntropy(entropy, ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	visualSeed, err := VisualSeed(pub, level)
	if err != nil {
		return nil, err
	}

	segments := make([]models.Segment, 0, count)
	prev := chainGenesis()
	for i := 0; i < count; i++ {
		typ := segmentTypeFor(i)
		payload, err := buildPayload(typ, subjectID, entropy)
		if err != nil {
			return nil, err
		}
		encoded, err := EncodePayload(payload)
		if err != nil {
			return nil, err
		}
		link := linkHash(encoded, prev)
		segments = append(segments, models.Segment{
			Index:    i,
			Type:     typ,
			Payload:  encoded,
			LinkHash: link,
		})
		prev = link
	}

	return &ChainResult{
		Segments:   segments,
		PublicKey:  pub,
		PrivateKey: priv,
		VisualSeed: visualSeed,
	}, nil
}

// VerifyChain recomputes every link hash from segment 0 and reports the
// first index where the stored chain diverges. A single mutated payload
// invalidates its own link and every one after it.
func VerifyChain(segments []models.Segment) error {
	if len(segments) == 0 {
		return ErrEmptyChain
	}
	prev := chainGenesis()
	for i, seg := range segments {
		if seg.Index != i {
			return fmt.Errorf("%w: segment %d carries index %d", ErrChainMismatch, i, seg.Index)
		}
		expected := linkHash(seg.Payload, prev)
		if !hashEqual(expected, seg.LinkHash) {
			return fmt.Errorf("%w at index %d", ErrChainMismatch, i)
		}
		prev = seg.LinkHash
	}
	return nil
}

func buildPayload(typ models.SegmentType, subjectID string, entropy io.Reader) (Payload, error) {
	switch typ {
	case models.SegmentEntropy:
		data, err := readEntropy(entropy, 32)
		if err != nil {
			return nil, err
		}
		return EntropyPayload{Data: data}, nil
	case models.SegmentPolicy:
		digest, err := readEntropy(entropy, 32)
		if err != nil {
			return nil, err
		}
		return PolicyPayload{PolicyDigest: digest}, nil
	case models.SegmentIdentityCommitment:
		salt, err := readEntropy(entropy, 16)
		if err != nil {
			return nil, err
		}
		return IdentityCommitmentPayload{
			Commitment: subjectCommitment(subjectID, salt),
			Salt:       salt,
		}, nil
	case models.SegmentTemporal:
		anchor, err := readEntropy(entropy, 8)
		if err != nil {
			return nil, err
		}
		return TemporalPayload{Anchor: anchor}, nil
	case models.SegmentCapability:
		mask, err := readEntropy(entropy, 8)
		if err != nil {
			return nil, err
		}
		return CapabilityPayload{Mask: mask}, nil
	case models.SegmentSignature:
		checkpoint, err := readEntropy(entropy, 32)
		if err != nil {
			return nil, err
		}
		return SignaturePayload{Checkpoint: checkpoint}, nil
	case models.SegmentMetadata:
		label, err := readEntropy(entropy, 16)
		if err != nil {
			return nil, err
		}
		return MetadataPayload{Label: label}, nil
	case models.SegmentBiometricAnchor:
		blob, err := readEntropy(entropy, 32)
		if err != nil {
			return nil, err
		}
		return BiometricAnchorPayload{Blob: blob}, nil
	case models.SegmentGeolocationPolicy:
		blob, err := readEntropy(entropy, 32)
		if err != nil {
			return nil, err
		}
		return GeolocationPolicyPayload{Blob: blob}, nil
	case models.SegmentRevocationToken:
		token, err := readEntropy(entropy, 32)
		if err != nil {
			return nil, err
		}
		return RevocationTokenPayload{Token: token}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSegmentType, typ)
	}
}

func subjectCommitment(subjectID string, salt []byte) []byte {
	b := make([]byte, 0, len(subjectID)+len(salt)+1)
	b = append(b, []byte(subjectID)...)
	b = append(b, 0)
	b = append(b, salt...)
	sum := blake2b.Sum256(b)
	return sum[:]
}

func chainGenesis() []byte {
	sum := blake2b.Sum256([]byte(chainDomain))
	return sum[:]
}

func linkHash(payload, prev []byte) []byte {
	b := make([]byte, 0, len(payload)+len(prev))
	b = append(b, payload...)
	b = append(b, prev...)
	sum := blake2b.Sum256(b)
	return sum[:]
}

func hashEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func readEntropy(src io.Reader, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(src, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientEntropy, err)
	}
	return out, nil
}

package dna

import (
	"errors"
	"fmt"

	"helix-auth/go-backend/pkg/models"

	"github.com/fxamacker/cbor/v2"
)

var ErrUnknownSegmentType = errors.New("unknown segment type")

// Payload is the closed set of typed segment contents. Every case carries
// its own strongly-typed fields; the biometric and geolocation cases are
// opaque blobs that contribute to chain integrity but are never matched
// against anything here.
type Payload interface {
	SegmentType() models.SegmentType
}

type EntropyPayload struct {
	Data []byte `cbor:"1,keyasint"`
}

type PolicyPayload struct {
	PolicyDigest []byte `cbor:"1,keyasint"`
}

// IdentityCommitmentPayload stores a one-way commitment to subject-bound
// data. The raw subject identity is never written into the chain, so a
// leaked key record does not reconstruct the subject.
type IdentityCommitmentPayload struct {
	Commitment []byte `cbor:"1,keyasint"`
	Salt       []byte `cbor:"2,keyasint"`
}

type TemporalPayload struct {
	Anchor []byte `cbor:"1,keyasint"`
}

type CapabilityPayload struct {
	Mask []byte `cbor:"1,keyasint"`
}

type SignaturePayload struct {
	Checkpoint []byte `cbor:"1,keyasint"`
}

type MetadataPayload struct {
	Label []byte `cbor:"1,keyasint"`
}

type BiometricAnchorPayload struct {
	Blob []byte `cbor:"1,keyasint"`
}

type GeolocationPolicyPayload struct {
	Blob []byte `cbor:"1,keyasint"`
}

type RevocationTokenPayload struct {
	Token []byte `cbor:"1,keyasint"`
}

func (EntropyPayload) SegmentType() models.SegmentType { return models.SegmentEntropy }
func (PolicyPayload) SegmentType() models.SegmentType { return models.SegmentPolicy }
func (IdentityCommitmentPayload) SegmentType() models.SegmentType {
	return models.SegmentIdentityCommitment
}
func (TemporalPayload) SegmentType() models.SegmentType { return models.SegmentTemporal }
func (CapabilityPayload) SegmentType() models.SegmentType { return models.SegmentCapability }
func (SignaturePayload) SegmentType() models.SegmentType { return models.SegmentSignature }
func (MetadataPayload) SegmentType() models.SegmentType { return models.SegmentMetadata }
func (BiometricAnchorPayload) SegmentType() models.SegmentType {
	return models.SegmentBiometricAnchor
}
func (GeolocationPolicyPayload) SegmentType() models.SegmentType {
	return models.SegmentGeolocationPolicy
}
func (RevocationTokenPayload) SegmentType() models.SegmentType {
	return models.SegmentRevocationToken
}

type payloadEnvelope struct {
	Type models.SegmentType `cbor:"1,keyasint"`
	Body cbor.RawMessage    `cbor:"2,keyasint"`
}

// Canonical encoding keeps the bytes feeding link hashes deterministic.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	encMode = em
}

func EncodePayload(p Payload) ([]byte, error) {
	body, err := encMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode segment payload: %w", err)
	}
	return encMode.Marshal(payloadEnvelope{Type: p.SegmentType(), Body: body})
}

func DecodePayload(data []byte) (Payload, error) {
	var env payloadEnvelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode segment envelope: %w", err)
	}
	var p Payload
	switch env.Type {
	case models.SegmentEntropy:
		p = &EntropyPayload{}
	case models.SegmentPolicy:
		p = &PolicyPayload{}
	case models.SegmentIdentityCommitment:
		p = &IdentityCommitmentPayload{}
	case models.SegmentTemporal:
		p = &TemporalPayload{}
	case models.SegmentCapability:
		p = &CapabilityPayload{}
	case models.SegmentSignature:
		p = &SignaturePayload{}
	case models.SegmentMetadata:
		p = &MetadataPayload{}
	case models.SegmentBiometricAnchor:
		p = &BiometricAnchorPayload{}
	case models.SegmentGeolocationPolicy:
		p = &GeolocationPolicyPayload{}
	case models.SegmentRevocationToken:
		p = &RevocationTokenPayload{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSegmentType, env.Type)
	}
	if err := cbor.Unmarshal(env.Body, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return reflectDeref(p), nil
}

// reflectDeref keeps the decode switch returning value payloads so callers
// can type-switch without pointer cases.
func reflectDeref(p Payload) Payload {
	switch v := p.(type) {
	case *EntropyPayload:
		return *v
	case *PolicyPayload:
		return *v
	case *IdentityCommitmentPayload:
		return *v
	case *TemporalPayload:
		return *v
	case *CapabilityPayload:
		return *v
	case *SignaturePayload:
		return *v
	case *MetadataPayload:
		return *v
	case *BiometricAnchorPayload:
		return *v
	case *GeolocationPolicyPayload:
		return *v
	case *RevocationTokenPayload:
		return *v
	default:
		return p
	}
}

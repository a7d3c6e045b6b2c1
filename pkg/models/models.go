package models

import "time"

// SecurityLevel fixes the structural size of a DNA key at enrollment time.
type SecurityLevel string

const (
	LevelStandard   SecurityLevel = "standard"
	LevelEnhanced   SecurityLevel = "enhanced"
	LevelMaximum    SecurityLevel = "maximum"
	LevelGovernment SecurityLevel = "government"
)

type SegmentType string

const (
	SegmentEntropy            SegmentType = "entropy"
	SegmentPolicy             SegmentType = "policy"
	SegmentIdentityCommitment SegmentType = "identity_commitment"
	SegmentTemporal           SegmentType = "temporal"
	SegmentCapability         SegmentType = "capability"
	SegmentSignature          SegmentType = "signature"
	SegmentMetadata           SegmentType = "metadata"
	SegmentBiometricAnchor    SegmentType = "biometric_anchor"
	SegmentGeolocationPolicy  SegmentType = "geolocation_policy"
	SegmentRevocationToken    SegmentType = "revocation_token"
)

type RevocationStatus string

const (
	StatusActive  RevocationStatus = "active"
	StatusRevoked RevocationStatus = "revoked"
)

type RevocationReason string

const (
	ReasonCompromise         RevocationReason = "compromise"
	ReasonPrivilegeWithdrawn RevocationReason = "privilege_withdrawn"
	ReasonExpiredPolicy      RevocationReason = "expired_policy"
	ReasonSuperseded         RevocationReason = "superseded"
)

// Segment is one chained unit of a DNA key. Payload holds the canonical
// encoding of the typed payload; LinkHash chains it to its predecessor.
type Segment struct {
	Index    int         `json:"index"`
	Type     SegmentType `json:"type"`
	Payload  []byte      `json:"payload"`
	LinkHash []byte      `json:"link_hash"`
}

// DNAKey is the persisted credential record. It carries public material
// only; private keys are returned once at enrollment and never stored.
type DNAKey struct {
	KeyID            string           `json:"key_id"`
	SubjectID        string           `json:"subject_id"`
	SubjectType      string           `json:"subject_type"`
	SecurityLevel    SecurityLevel    `json:"security_level"`
	PublicKey        []byte           `json:"public_key"`
	Segments         []Segment        `json:"segments"`
	CreatedAt        time.Time        `json:"created_at"`
	ExpiresAt        time.Time        `json:"expires_at"`
	VisualSeed       []byte           `json:"visual_seed"`
	RevocationStatus RevocationStatus `json:"revocation_status"`
}

type KeySummary struct {
	KeyID            string           `json:"key_id"`
	SubjectType      string           `json:"subject_type"`
	CreatedAt        time.Time        `json:"created_at"`
	ExpiresAt        time.Time        `json:"expires_at"`
	SegmentCount     int              `json:"segment_count"`
	RevocationStatus RevocationStatus `json:"revocation_status"`
}

type Challenge struct {
	ChallengeID string    `json:"challenge_id"`
	KeyID       string    `json:"key_id"`
	Nonce       []byte    `json:"nonce"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Consumed    bool      `json:"consumed"`
}

type RevocationEntry struct {
	KeyID     string           `json:"key_id"`
	RevokedAt time.Time        `json:"revoked_at"`
	Reason    RevocationReason `json:"reason"`
	RevokedBy string           `json:"revoked_by"`
	Notes     string           `json:"notes"`
}

type Session struct {
	Token     string    `json:"token"`
	KeyID     string    `json:"key_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}

// Summary converts a full key record to its administrative listing form.
func (k DNAKey) Summary() KeySummary {
	return KeySummary{
		KeyID:            k.KeyID,
		SubjectType:      k.SubjectType,
		CreatedAt:        k.CreatedAt,
		ExpiresAt:        k.ExpiresAt,
		SegmentCount:     len(k.Segments),
		RevocationStatus: k.RevocationStatus,
	}
}

func ValidReason(r RevocationReason) bool {
	switch r {
	case ReasonCompromise, ReasonPrivilegeWithdrawn, ReasonExpiredPolicy, ReasonSuperseded:
		return true
	default:
		return false
	}
}

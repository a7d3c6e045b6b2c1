package protocol

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"

	"helix-auth/go-backend/internal/dna"
	"helix-auth/go-backend/internal/observe"
	"helix-auth/go-backend/internal/storage"
	"helix-auth/go-backend/pkg/models"
)

// KeyValidity is how long an enrolled credential stays usable before the
// lazy expiry check starts rejecting it.
const KeyValidity = 365 * 24 * time.Hour

// EnrollmentResult carries everything an enrollment hands back. The
// private key and recovery mnemonic exist only in this value; no code
// path stores either.
type EnrollmentResult struct {
	Key              models.DNAKey
	PrivateKey       ed25519.PrivateKey
	RecoveryMnemonic string
}

// EnrollmentService creates new credentials: it builds the segment chain,
// derives the key id, and persists the public record.
type EnrollmentService struct {
	keys    *storage.KeyStore
	entropy io.Reader
	now     func() time.Time
	audit   *AuditTrail
	metrics *observe.Metrics
}

func NewEnrollmentService(keys *storage.KeyStore, entropy io.Reader, audit *AuditTrail, metrics *observe.Metrics, now func() time.Time) *EnrollmentService {
	if entropy == nil {
		entropy = rand.Reader
	}
	if now == nil {
		now = time.Now
	}
	return &EnrollmentService{keys: keys, entropy: entropy, now: now, audit: audit, metrics: metrics}
}

func (s *EnrollmentService) Enroll(ctx context.Context, subjectID, subjectType string, level models.SecurityLevel) (*EnrollmentResult, error) {
	subjectID = strings.TrimSpace(subjectID)
	subjectType = strings.TrimSpace(subjectType)
	if subjectID == "" || subjectType == "" {
		return nil, fmt.Errorf("%w: subject_id and subject_type are required", ErrValidation)
	}

	chain, err := dna.BuildChain(subjectID, level, s.entropy)
	if err != nil {
		return nil, err
	}
	keyID, err := dna.KeyID(chain.PublicKey, level)
	if err != nil {
		return nil, err
	}
	mnemonic, err := dna.RecoveryMnemonic(chain.PrivateKey)
	if err != nil {
		return nil, ErrInternal
	}

	now := s.now().UTC()
	record := models.DNAKey{
		KeyID:            keyID,
		SubjectID:        subjectID,
		SubjectType:      subjectType,
		SecurityLevel:    level,
		PublicKey:        append([]byte(nil), chain.PublicKey...),
		Segments:         chain.Segments,
		CreatedAt:        now,
		ExpiresAt:        now.Add(KeyValidity),
		VisualSeed:       chain.VisualSeed,
		RevocationStatus: models.StatusActive,
	}

	// Put persists before it publishes, so a storage failure leaves no
	// partial record visible. The record never contains private material.
	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.keys.Put(opCtx, record); err != nil {
		return nil, mapStoreErr(err)
	}

	s.audit.Record(AuditEvent{
		Operation: "enroll",
		KeyID:     keyID,
		Result:    "accepted",
		At:        now,
	})
	s.metrics.IncEnrollments()

	return &EnrollmentResult{
		Key:              record,
		PrivateKey:       chain.PrivateKey,
		RecoveryMnemonic: mnemonic,
	}, nil
}

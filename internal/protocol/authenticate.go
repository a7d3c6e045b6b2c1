package protocol

import (
	"context"
	"crypto/ed25519"
	"errors"
	"time"

	"helix-auth/go-backend/internal/observe"
	"helix-auth/go-backend/internal/storage"
	"helix-auth/go-backend/pkg/models"
)

// AuthenticationService verifies signed challenge responses and issues
// sessions. Every failure cause collapses into ErrAuthenticationFailed at
// this boundary; the precise cause goes to the audit trail only.
type AuthenticationService struct {
	challenges *storage.ChallengeStore
	keys       *storage.KeyStore
	registry   *storage.RevocationRegistry
	sessions   *SessionManager
	audit      *AuditTrail
	metrics    *observe.Metrics
	now        func() time.Time
}

func NewAuthenticationService(
	challenges *storage.ChallengeStore,
	keys *storage.KeyStore,
	registry *storage.RevocationRegistry,
	sessions *SessionManager,
	audit *AuditTrail,
	metrics *observe.Metrics,
	now func() time.Time,
) *AuthenticationService {
	if now == nil {
		now = time.Now
	}
	return &AuthenticationService{
		challenges: challenges,
		keys:       keys,
		registry:   registry,
		sessions:   sessions,
		audit:      audit,
		metrics:    metrics,
		now:        now,
	}
}

// Authenticate runs the verification sequence in order, short-circuiting
// to the uniform failure. Consuming the challenge is the single atomic
// check-and-set in the protocol: under concurrent calls on the same
// challenge exactly one caller reaches the later steps. Signature
// verification runs after the store releases its lock.
func (s *AuthenticationService) Authenticate(ctx context.Context, challengeID string, signature []byte) (models.Session, error) {
	now := s.now().UTC()

	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	challenge, err := s.challenges.Consume(opCtx, challengeID, now)
	if err != nil {
		return s.fail(challengeID, "", consumeCause(err))
	}

	key, err := s.keys.Get(opCtx, challenge.KeyID)
	if err != nil {
		return s.fail(challengeID, challenge.KeyID, lookupCause(err))
	}
	if now.After(key.ExpiresAt) {
		return s.fail(challengeID, key.KeyID, CauseKeyExpired)
	}

	if len(key.PublicKey) != ed25519.PublicKeySize ||
		!ed25519.Verify(ed25519.PublicKey(key.PublicKey), challenge.Nonce, signature) {
		return s.fail(challengeID, key.KeyID, CauseSignatureInvalid)
	}

	// Revocation always wins, even over a valid signature.
	revoked, err := s.registry.IsRevoked(opCtx, key.KeyID)
	if err != nil {
		return s.fail(challengeID, key.KeyID, CauseStorageFailure)
	}
	if revoked {
		return s.fail(challengeID, key.KeyID, CauseKeyRevoked)
	}

	session, err := s.sessions.Issue(ctx, key.KeyID)
	if err != nil {
		return s.fail(challengeID, key.KeyID, CauseStorageFailure)
	}

	s.audit.Record(AuditEvent{
		Operation:   "authenticate",
		KeyID:       key.KeyID,
		ChallengeID: challengeID,
		Result:      "accepted",
		At:          now,
	})
	s.metrics.IncAuthSuccess()
	return session, nil
}

// fail records the real cause internally and returns the uniform outcome.
// Storage failures are the one exception: they say nothing about the
// credential, and the caller may retry them.
func (s *AuthenticationService) fail(challengeID, keyID, cause string) (models.Session, error) {
	s.audit.Record(AuditEvent{
		Operation:   "authenticate",
		KeyID:       keyID,
		ChallengeID: challengeID,
		Result:      "rejected",
		Cause:       cause,
		At:          s.now().UTC(),
	})
	s.metrics.IncAuthFailed()
	if cause == CauseStorageFailure {
		return models.Session{}, ErrStorage
	}
	return models.Session{}, ErrAuthenticationFailed
}

func consumeCause(err error) string {
	switch {
	case errors.Is(err, storage.ErrChallengeNotFound):
		return CauseChallengeNotFound
	case errors.Is(err, storage.ErrChallengeConsumed):
		return CauseChallengeConsumed
	case errors.Is(err, storage.ErrChallengeExpired):
		return CauseChallengeExpired
	default:
		return CauseStorageFailure
	}
}

func lookupCause(err error) string {
	if errors.Is(err, storage.ErrKeyNotFound) {
		return CauseKeyNotFound
	}
	return CauseStorageFailure
}

package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"helix-auth/go-backend/internal/dna"
	"helix-auth/go-backend/internal/observe"
	"helix-auth/go-backend/internal/storage"
	"helix-auth/go-backend/pkg/models"
)

// AdminService holds the privileged operations. Unlike the authentication
// boundary, these surface specific error kinds: the caller is already
// authenticated as an administrator.
type AdminService struct {
	keys       *storage.KeyStore
	challenges *storage.ChallengeStore
	registry   *storage.RevocationRegistry
	sessions   *storage.SessionStore
	audit      *AuditTrail
	metrics    *observe.Metrics
	now        func() time.Time
}

func NewAdminService(
	keys *storage.KeyStore,
	challenges *storage.ChallengeStore,
	registry *storage.RevocationRegistry,
	sessions *storage.SessionStore,
	audit *AuditTrail,
	metrics *observe.Metrics,
	now func() time.Time,
) *AdminService {
	if now == nil {
		now = time.Now
	}
	return &AdminService{
		keys:       keys,
		challenges: challenges,
		registry:   registry,
		sessions:   sessions,
		audit:      audit,
		metrics:    metrics,
		now:        now,
	}
}

// Revoke marks a key revoked and returns the registry version. Repeat
// revocations are no-ops that return the current version. The registry is
// the source of truth; the key record's status field is a projection kept
// in step for listings.
func (s *AdminService) Revoke(ctx context.Context, keyID string, reason models.RevocationReason, revokedBy, notes string) (uint64, error) {
	keyID = strings.TrimSpace(keyID)
	revokedBy = strings.TrimSpace(revokedBy)
	if keyID == "" || revokedBy == "" {
		return 0, fmt.Errorf("%w: key_id and revoked_by are required", ErrValidation)
	}
	if !models.ValidReason(reason) {
		return 0, fmt.Errorf("%w: unknown revocation reason %q", ErrValidation, reason)
	}

	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if _, err := s.keys.Get(opCtx, keyID); err != nil {
		return 0, mapStoreErr(err)
	}

	now := s.now().UTC()
	version, changed, err := s.registry.Revoke(opCtx, models.RevocationEntry{
		KeyID:     keyID,
		RevokedAt: now,
		Reason:    reason,
		RevokedBy: revokedBy,
		Notes:     notes,
	})
	if err != nil {
		return 0, mapStoreErr(err)
	}
	if changed {
		// The registry is the source of truth and has already committed;
		// a failed projection update must not report the revocation as
		// failed. Enforcement reads the registry, so the key stays
		// unusable either way.
		if err := s.keys.SetRevocationStatus(opCtx, keyID, models.StatusRevoked); err != nil {
			slog.Default().Warn("revocation status projection failed",
				"key_id", keyID,
				"error", err.Error(),
			)
		}
		s.metrics.IncRevocations()
		s.audit.Record(AuditEvent{
			Operation: "revoke",
			KeyID:     keyID,
			Result:    "accepted",
			At:        now,
		})
	}
	return version, nil
}

func (s *AdminService) Keys(ctx context.Context) ([]models.KeySummary, error) {
	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	list, err := s.keys.List(opCtx)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return list, nil
}

func (s *AdminService) Revocations(ctx context.Context) ([]models.RevocationEntry, error) {
	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	entries, err := s.registry.All(opCtx)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return entries, nil
}

func (s *AdminService) History(ctx context.Context, keyID string) ([]models.RevocationEntry, error) {
	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	entries, err := s.registry.History(opCtx, keyID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return entries, nil
}

func (s *AdminService) RecentAudit(limit int) []AuditEvent {
	return s.audit.Recent(limit)
}

// VerifyChain recomputes a stored key's segment chain and reports the
// first divergent index, if any.
func (s *AdminService) VerifyChain(ctx context.Context, keyID string) error {
	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	key, err := s.keys.Get(opCtx, keyID)
	if err != nil {
		return mapStoreErr(err)
	}
	return dna.VerifyChain(key.Segments)
}

// PurgeKey is the explicit administrative destruction path: it removes the
// key record plus any outstanding challenges and sessions. Revocation
// history is append-only and survives a purge.
func (s *AdminService) PurgeKey(ctx context.Context, keyID string) error {
	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.keys.Delete(opCtx, keyID); err != nil {
		return mapStoreErr(err)
	}
	if _, err := s.challenges.DeleteByKey(opCtx, keyID); err != nil {
		return mapStoreErr(err)
	}
	if _, err := s.sessions.DeleteByKey(opCtx, keyID); err != nil {
		return mapStoreErr(err)
	}
	s.audit.Record(AuditEvent{
		Operation: "purge",
		KeyID:     keyID,
		Result:    "accepted",
		At:        s.now().UTC(),
	})
	return nil
}

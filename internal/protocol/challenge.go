package protocol

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"helix-auth/go-backend/internal/observe"
	"helix-auth/go-backend/internal/platform/ratelimiter"
	"helix-auth/go-backend/internal/storage"
	"helix-auth/go-backend/pkg/models"

	"github.com/google/uuid"
)

// ChallengeTTL is fixed per challenge; callers cannot extend it.
const ChallengeTTL = 5 * time.Minute

const nonceSize = 32

// ChallengeService issues single-use challenges against enrolled keys.
type ChallengeService struct {
	challenges *storage.ChallengeStore
	keys       *storage.KeyStore
	registry   *storage.RevocationRegistry
	limiter    *ratelimiter.MapLimiter
	entropy    io.Reader
	now        func() time.Time
	metrics    *observe.Metrics
}

func NewChallengeService(
	challenges *storage.ChallengeStore,
	keys *storage.KeyStore,
	registry *storage.RevocationRegistry,
	limiter *ratelimiter.MapLimiter,
	metrics *observe.Metrics,
	now func() time.Time,
) *ChallengeService {
	if now == nil {
		now = time.Now
	}
	return &ChallengeService{
		challenges: challenges,
		keys:       keys,
		registry:   registry,
		limiter:    limiter,
		entropy:    rand.Reader,
		now:        now,
		metrics:    metrics,
	}
}

// Issue generates a fresh challenge for key_id. Revocation is checked
// against the registry at call time, so a challenge is never issued for a
// key that is already revoked.
func (s *ChallengeService) Issue(ctx context.Context, keyID string) (models.Challenge, error) {
	now := s.now().UTC()
	if !s.limiter.Allow(keyID, now) {
		return models.Challenge{}, ErrRateLimited
	}

	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	key, err := s.keys.Get(opCtx, keyID)
	if err != nil {
		return models.Challenge{}, mapStoreErr(err)
	}
	if now.After(key.ExpiresAt) {
		return models.Challenge{}, ErrExpired
	}
	revoked, err := s.registry.IsRevoked(opCtx, keyID)
	if err != nil {
		return models.Challenge{}, mapStoreErr(err)
	}
	if revoked {
		return models.Challenge{}, ErrRevoked
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(s.entropy, nonce); err != nil {
		return models.Challenge{}, ErrInternal
	}
	challenge := models.Challenge{
		ChallengeID: uuid.NewString(),
		KeyID:       keyID,
		Nonce:       nonce,
		IssuedAt:    now,
		ExpiresAt:   now.Add(ChallengeTTL),
		Consumed:    false,
	}
	if err := s.challenges.Put(opCtx, challenge); err != nil {
		return models.Challenge{}, mapStoreErr(err)
	}
	s.metrics.IncChallengesIssued()
	return challenge, nil
}

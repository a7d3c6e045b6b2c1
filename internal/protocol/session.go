package protocol

import (
	"context"
	"crypto/rand"
	"time"

	"helix-auth/go-backend/internal/observe"
	"helix-auth/go-backend/internal/storage"
	"helix-auth/go-backend/pkg/models"

	"github.com/mr-tron/base58/base58"
)

// SessionTTL is fixed; logout is the only way to end a session early.
const SessionTTL = 3600 * time.Second

const sessionTokenPrefix = "sess1"

// SessionManager issues and validates bounded-lifetime session tokens.
type SessionManager struct {
	sessions *storage.SessionStore
	now      func() time.Time
	metrics  *observe.Metrics
}

func NewSessionManager(sessions *storage.SessionStore, metrics *observe.Metrics, now func() time.Time) *SessionManager {
	if now == nil {
		now = time.Now
	}
	return &SessionManager{sessions: sessions, now: now, metrics: metrics}
}

// Issue creates a fresh session for a key. Tokens carry 256 bits of
// entropy.
func (m *SessionManager) Issue(ctx context.Context, keyID string) (models.Session, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return models.Session{}, ErrInternal
	}
	now := m.now().UTC()
	session := models.Session{
		Token:     sessionTokenPrefix + base58.Encode(raw),
		KeyID:     keyID,
		IssuedAt:  now,
		ExpiresAt: now.Add(SessionTTL),
	}
	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := m.sessions.Put(opCtx, session); err != nil {
		return models.Session{}, mapStoreErr(err)
	}
	return session, nil
}

// Validate resolves a token to its key id. Expiry is checked lazily; a
// revoked session fails regardless of remaining TTL.
func (m *SessionManager) Validate(ctx context.Context, token string) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	session, err := m.sessions.Get(opCtx, token)
	if err != nil {
		return "", mapStoreErr(err)
	}
	if session.Revoked {
		return "", ErrRevoked
	}
	if m.now().UTC().After(session.ExpiresAt) {
		return "", ErrExpired
	}
	return session.KeyID, nil
}

// Logout revokes a session, effective immediately for all later Validate
// calls.
func (m *SessionManager) Logout(ctx context.Context, token string) error {
	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := m.sessions.Revoke(opCtx, token); err != nil {
		return mapStoreErr(err)
	}
	m.metrics.IncSessionsRevoked()
	return nil
}

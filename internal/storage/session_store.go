package storage

import (
	"context"
	"errors"
	"sync"

	"helix-auth/go-backend/internal/securestore"
	"helix-auth/go-backend/pkg/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists issued sessions, keyed by token. Validation is
// read-mostly, so reads take the shared lock.
type SessionStore struct {
	mu         sync.RWMutex
	sessions   map[string]models.Session
	path       string
	passphrase string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]models.Session)}
}

func NewPersistentSessionStore(path, passphrase string) (*SessionStore, error) {
	s := &SessionStore{
		sessions:   make(map[string]models.Session),
		path:       path,
		passphrase: passphrase,
	}
	var snapshot struct {
		Sessions map[string]models.Session `json:"sessions"`
	}
	ok, err := securestore.ReadSnapshot(path, passphrase, &snapshot)
	if err != nil {
		return nil, err
	}
	if ok && snapshot.Sessions != nil {
		s.sessions = snapshot.Sessions
	}
	return s, nil
}

func (s *SessionStore) Put(ctx context.Context, session models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := cloneSessionMap(s.sessions)
	next[session.Token] = session
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.sessions = next
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (models.Session, error) {
	if err := ctx.Err(); err != nil {
		return models.Session{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Revoke marks a session revoked, effective for every later read.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return ErrSessionNotFound
	}
	if session.Revoked {
		return nil
	}
	session.Revoked = true
	next := cloneSessionMap(s.sessions)
	next[token] = session
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.sessions = next
	return nil
}

// DeleteByKey drops every session issued for a key. Used by the
// administrative purge path.
func (s *SessionStore) DeleteByKey(ctx context.Context, keyID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]models.Session, len(s.sessions))
	deleted := 0
	for token, session := range s.sessions {
		if session.KeyID == keyID {
			deleted++
			continue
		}
		next[token] = session
	}
	if deleted == 0 {
		return 0, nil
	}
	if err := s.persistLocked(next); err != nil {
		return 0, err
	}
	s.sessions = next
	return deleted, nil
}

func (s *SessionStore) persistLocked(sessions map[string]models.Session) error {
	if s.path == "" {
		return nil
	}
	snapshot := struct {
		Sessions map[string]models.Session `json:"sessions"`
	}{Sessions: sessions}
	return securestore.WriteSnapshot(s.path, s.passphrase, snapshot)
}

func cloneSessionMap(in map[string]models.Session) map[string]models.Session {
	out := make(map[string]models.Session, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

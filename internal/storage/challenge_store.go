package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"helix-auth/go-backend/internal/securestore"
	"helix-auth/go-backend/pkg/models"
)

var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeConsumed = errors.New("challenge already consumed")
	ErrChallengeExpired  = errors.New("challenge expired")
)

// ChallengeStore persists single-use challenges. Consume is the one
// read-modify-write in the protocol that must serialize: it runs under a
// single mutex hold, so two racing calls on the same challenge produce
// exactly one winner.
type ChallengeStore struct {
	mu         sync.RWMutex
	challenges map[string]models.Challenge
	path       string
	passphrase string
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{challenges: make(map[string]models.Challenge)}
}

func NewPersistentChallengeStore(path, passphrase string) (*ChallengeStore, error) {
	s := &ChallengeStore{
		challenges: make(map[string]models.Challenge),
		path:       path,
		passphrase: passphrase,
	}
	var snapshot struct {
		Challenges map[string]models.Challenge `json:"challenges"`
	}
	ok, err := securestore.ReadSnapshot(path, passphrase, &snapshot)
	if err != nil {
		return nil, err
	}
	if ok && snapshot.Challenges != nil {
		s.challenges = snapshot.Challenges
	}
	return s, nil
}

func (s *ChallengeStore) Put(ctx context.Context, ch models.Challenge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := cloneChallengeMap(s.challenges)
	next[ch.ChallengeID] = cloneChallenge(ch)
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.challenges = next
	return nil
}

func (s *ChallengeStore) Get(ctx context.Context, challengeID string) (models.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return models.Challenge{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.challenges[challengeID]
	if !ok {
		return models.Challenge{}, ErrChallengeNotFound
	}
	return cloneChallenge(ch), nil
}

// Consume atomically flips consumed from false to true. The transition
// happens at most once per challenge; expiry is checked lazily here, not
// by a background sweep.
func (s *ChallengeStore) Consume(ctx context.Context, challengeID string, now time.Time) (models.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return models.Challenge{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[challengeID]
	if !ok {
		return models.Challenge{}, ErrChallengeNotFound
	}
	if ch.Consumed {
		return models.Challenge{}, ErrChallengeConsumed
	}
	if now.After(ch.ExpiresAt) {
		return models.Challenge{}, ErrChallengeExpired
	}
	ch.Consumed = true
	next := cloneChallengeMap(s.challenges)
	next[challengeID] = ch
	if err := s.persistLocked(next); err != nil {
		return models.Challenge{}, err
	}
	s.challenges = next
	return cloneChallenge(ch), nil
}

// DeleteByKey drops every challenge issued against a key. Used by the
// administrative purge path.
func (s *ChallengeStore) DeleteByKey(ctx context.Context, keyID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]models.Challenge, len(s.challenges))
	deleted := 0
	for id, ch := range s.challenges {
		if ch.KeyID == keyID {
			deleted++
			continue
		}
		next[id] = ch
	}
	if deleted == 0 {
		return 0, nil
	}
	if err := s.persistLocked(next); err != nil {
		return 0, err
	}
	s.challenges = next
	return deleted, nil
}

func (s *ChallengeStore) persistLocked(challenges map[string]models.Challenge) error {
	if s.path == "" {
		return nil
	}
	snapshot := struct {
		Challenges map[string]models.Challenge `json:"challenges"`
	}{Challenges: challenges}
	return securestore.WriteSnapshot(s.path, s.passphrase, snapshot)
}

func cloneChallengeMap(in map[string]models.Challenge) map[string]models.Challenge {
	out := make(map[string]models.Challenge, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneChallenge(ch models.Challenge) models.Challenge {
	out := ch
	out.Nonce = append([]byte(nil), ch.Nonce...)
	return out
}

package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"helix-auth/go-backend/internal/securestore"
	"helix-auth/go-backend/pkg/models"
)

var (
	ErrKeyNotFound  = errors.New("key record not found")
	ErrDuplicateKey = errors.New("key id already enrolled")
)

// KeyStore persists DNA key records. Records carry public material only.
type KeyStore struct {
	mu         sync.RWMutex
	keys       map[string]models.DNAKey
	path       string
	passphrase string
}

func NewKeyStore() *KeyStore {
	return &KeyStore{keys: make(map[string]models.DNAKey)}
}

func NewPersistentKeyStore(path, passphrase string) (*KeyStore, error) {
	s := &KeyStore{
		keys:       make(map[string]models.DNAKey),
		path:       path,
		passphrase: passphrase,
	}
	var snapshot struct {
		Keys map[string]models.DNAKey `json:"keys"`
	}
	ok, err := securestore.ReadSnapshot(path, passphrase, &snapshot)
	if err != nil {
		return nil, err
	}
	if ok && snapshot.Keys != nil {
		s.keys = snapshot.Keys
	}
	return s, nil
}

func (s *KeyStore) Put(ctx context.Context, key models.DNAKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[key.KeyID]; exists {
		return ErrDuplicateKey
	}
	next := cloneKeyMap(s.keys)
	next[key.KeyID] = cloneKey(key)
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.keys = next
	return nil
}

func (s *KeyStore) Get(ctx context.Context, keyID string) (models.DNAKey, error) {
	if err := ctx.Err(); err != nil {
		return models.DNAKey{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[keyID]
	if !ok {
		return models.DNAKey{}, ErrKeyNotFound
	}
	return cloneKey(key), nil
}

func (s *KeyStore) SetRevocationStatus(ctx context.Context, keyID string, status models.RevocationStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[keyID]
	if !ok {
		return ErrKeyNotFound
	}
	if key.RevocationStatus == status {
		return nil
	}
	key.RevocationStatus = status
	next := cloneKeyMap(s.keys)
	next[keyID] = key
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.keys = next
	return nil
}

// Delete removes a record entirely. This is the administrative purge path;
// normal operation never destroys key records.
func (s *KeyStore) Delete(ctx context.Context, keyID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[keyID]; !ok {
		return ErrKeyNotFound
	}
	next := cloneKeyMap(s.keys)
	delete(next, keyID)
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.keys = next
	return nil
}

func (s *KeyStore) List(ctx context.Context) ([]models.KeySummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.KeySummary, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, key.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].KeyID < out[j].KeyID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *KeyStore) persistLocked(keys map[string]models.DNAKey) error {
	if s.path == "" {
		return nil
	}
	snapshot := struct {
		Keys map[string]models.DNAKey `json:"keys"`
	}{Keys: keys}
	return securestore.WriteSnapshot(s.path, s.passphrase, snapshot)
}

func cloneKeyMap(in map[string]models.DNAKey) map[string]models.DNAKey {
	out := make(map[string]models.DNAKey, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneKey(k models.DNAKey) models.DNAKey {
	out := k
	out.PublicKey = append([]byte(nil), k.PublicKey...)
	out.VisualSeed = append([]byte(nil), k.VisualSeed...)
	out.Segments = make([]models.Segment, len(k.Segments))
	for i, seg := range k.Segments {
		seg.Payload = append([]byte(nil), seg.Payload...)
		seg.LinkHash = append([]byte(nil), seg.LinkHash...)
		out.Segments[i] = seg
	}
	return out
}

package storage

import (
	"context"
	"sort"
	"sync"

	"helix-auth/go-backend/internal/securestore"
	"helix-auth/go-backend/pkg/models"
)

// RevocationRegistry is the authoritative, versioned revocation list. It
// is an owned, injectable instance, never process-wide state. Entries are
// append-only; the version increments exactly once per first revocation of
// a key, and a revocation is visible to every read issued after Revoke
// returns.
type RevocationRegistry struct {
	mu         sync.RWMutex
	entries    []models.RevocationEntry
	revoked    map[string]struct{}
	version    uint64
	path       string
	passphrase string
}

func NewRevocationRegistry() *RevocationRegistry {
	return &RevocationRegistry{revoked: make(map[string]struct{})}
}

func NewPersistentRevocationRegistry(path, passphrase string) (*RevocationRegistry, error) {
	r := &RevocationRegistry{
		revoked:    make(map[string]struct{}),
		path:       path,
		passphrase: passphrase,
	}
	var snapshot registrySnapshot
	ok, err := securestore.ReadSnapshot(path, passphrase, &snapshot)
	if err != nil {
		return nil, err
	}
	if ok {
		r.entries = snapshot.Entries
		r.version = snapshot.Version
		for _, e := range snapshot.Entries {
			r.revoked[e.KeyID] = struct{}{}
		}
	}
	return r, nil
}

type registrySnapshot struct {
	Entries []models.RevocationEntry `json:"entries"`
	Version uint64                   `json:"version"`
}

// Revoke records a revocation and returns the registry version. Revoking
// an already-revoked key is a no-op that returns the current version
// without incrementing it; changed reports whether this call won.
func (r *RevocationRegistry) Revoke(ctx context.Context, entry models.RevocationEntry) (version uint64, changed bool, err error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, already := r.revoked[entry.KeyID]; already {
		return r.version, false, nil
	}
	nextEntries := append(append([]models.RevocationEntry(nil), r.entries...), entry)
	nextVersion := r.version + 1
	if err := r.persistLocked(nextEntries, nextVersion); err != nil {
		return 0, false, err
	}
	r.entries = nextEntries
	r.version = nextVersion
	r.revoked[entry.KeyID] = struct{}{}
	return r.version, true, nil
}

func (r *RevocationRegistry) IsRevoked(ctx context.Context, keyID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, revoked := r.revoked[keyID]
	return revoked, nil
}

func (r *RevocationRegistry) Version(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version, nil
}

// History lists the revocation entries for one key, ascending by time.
func (r *RevocationRegistry) History(ctx context.Context, keyID string) ([]models.RevocationEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.RevocationEntry, 0)
	for _, e := range r.entries {
		if e.KeyID == keyID {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

// All lists every revocation entry, ascending by time.
func (r *RevocationRegistry) All(ctx context.Context) ([]models.RevocationEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]models.RevocationEntry(nil), r.entries...)
	sortEntries(out)
	return out, nil
}

func (r *RevocationRegistry) persistLocked(entries []models.RevocationEntry, version uint64) error {
	if r.path == "" {
		return nil
	}
	return securestore.WriteSnapshot(r.path, r.passphrase, registrySnapshot{
		Entries: entries,
		Version: version,
	})
}

func sortEntries(entries []models.RevocationEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RevokedAt.Before(entries[j].RevokedAt)
	})
}

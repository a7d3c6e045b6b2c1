package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"helix-auth/go-backend/pkg/models"
)

func testSession(token, keyID string) models.Session {
	issued := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	return models.Session{
		Token:     token,
		KeyID:     keyID,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(time.Hour),
	}
}

func TestSessionRevokeIsSticky(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()
	if err := s.Put(ctx, testSession("t1", "k1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Revoke(ctx, "t1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	session, err := s.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !session.Revoked {
		t.Fatal("session must read revoked after Revoke returns")
	}
	if err := s.Revoke(ctx, "t1"); err != nil {
		t.Fatalf("repeat revoke must be a no-op: %v", err)
	}
	if err := s.Revoke(ctx, "absent"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionDeleteByKey(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()
	for _, tok := range []string{"t1", "t2"} {
		if err := s.Put(ctx, testSession(tok, "k1")); err != nil {
			t.Fatalf("put %s: %v", tok, err)
		}
	}
	if err := s.Put(ctx, testSession("t3", "k2")); err != nil {
		t.Fatalf("put t3: %v", err)
	}
	deleted, err := s.DeleteByKey(ctx, "k1")
	if err != nil {
		t.Fatalf("delete by key: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}
	if _, err := s.Get(ctx, "t3"); err != nil {
		t.Fatalf("unrelated session must survive: %v", err)
	}
}

func TestSessionStorePersistsAcrossReload(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/sessions.json"
	s, err := NewPersistentSessionStore(path, "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Put(ctx, testSession("t1", "k1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Revoke(ctx, "t1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	reloaded, err := NewPersistentSessionStore(path, "")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	session, err := reloaded.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get after reload: %v", err)
	}
	if !session.Revoked {
		t.Fatal("revoked flag lost across reload")
	}
}

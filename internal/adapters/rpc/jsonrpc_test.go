package rpc

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"helix-auth/go-backend/internal/protocol"
	"helix-auth/go-backend/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	keys := storage.NewKeyStore()
	chals := storage.NewChallengeStore()
	registry := storage.NewRevocationRegistry()
	sessionStore := storage.NewSessionStore()
	audit := protocol.NewAuditTrail(nil)
	now := func() time.Time { return time.Now().UTC() }

	sessions := protocol.NewSessionManager(sessionStore, nil, now)
	services := Services{
		Enrollment:     protocol.NewEnrollmentService(keys, nil, audit, nil, now),
		Challenges:     protocol.NewChallengeService(chals, keys, registry, nil, nil, now),
		Authentication: protocol.NewAuthenticationService(chals, keys, registry, sessions, audit, nil, now),
		Sessions:       sessions,
		Admin:          protocol.NewAdminService(keys, chals, registry, sessionStore, audit, nil, now),
		Keys:           keys,
	}
	return NewServer(services, Options{AdminToken: "op-secret"})
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *wireError      `json:"error"`
}

func call(t *testing.T, s *Server, method string, params any, headers map[string]string) wireResponse {
	t.Helper()
	body := map[string]any{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		body["params"] = params
	}
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("%s: http status %d: %s", method, rec.Code, rec.Body.String())
	}
	var resp wireResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s: decode response: %v", method, err)
	}
	return resp
}

func mustResult(t *testing.T, resp wireResponse, dst any) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected rpc error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	if err := json.Unmarshal(resp.Result, dst); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func TestHealthCheckMethod(t *testing.T) {
	s := newTestServer(t)
	var result map[string]string
	mustResult(t, call(t, s, "health_check", nil, nil), &result)
	if result["status"] != "ok" {
		t.Fatalf("status = %q", result["status"])
	}
}

func TestEnrollAuthenticateOverWire(t *testing.T) {
	s := newTestServer(t)

	var enrolled enrollResult
	mustResult(t, call(t, s, "enroll", enrollParams{
		SubjectID:     "alice@example.com",
		SubjectType:   "user",
		SecurityLevel: "standard",
	}, nil), &enrolled)
	if enrolled.SegmentCount != 1_024 {
		t.Fatalf("segment count = %d", enrolled.SegmentCount)
	}
	if len(enrolled.PrivateKey) != ed25519.PrivateKeySize {
		t.Fatalf("private key size = %d", len(enrolled.PrivateKey))
	}

	var challenge challengeIssueResult
	mustResult(t, call(t, s, "challenge.issue", challengeIssueParams{KeyID: enrolled.KeyID}, nil), &challenge)
	if len(challenge.Nonce) != 32 {
		t.Fatalf("nonce size = %d", len(challenge.Nonce))
	}

	signature := ed25519.Sign(ed25519.PrivateKey(enrolled.PrivateKey), challenge.Nonce)
	var session sessionResult
	mustResult(t, call(t, s, "authenticate", authenticateParams{
		ChallengeID: challenge.ChallengeID,
		Signature:   signature,
	}, nil), &session)
	if session.KeyID != enrolled.KeyID {
		t.Fatalf("session key = %q", session.KeyID)
	}

	var validated map[string]any
	mustResult(t, call(t, s, "session.validate", sessionTokenParams{SessionToken: session.SessionToken}, nil), &validated)
	if validated["key_id"] != enrolled.KeyID {
		t.Fatalf("validated key = %v", validated["key_id"])
	}

	// Replay carries the uniform failure code.
	resp := call(t, s, "authenticate", authenticateParams{
		ChallengeID: challenge.ChallengeID,
		Signature:   signature,
	}, nil)
	if resp.Error == nil || resp.Error.Code != codeAuthFailed {
		t.Fatalf("replay error = %+v", resp.Error)
	}
}

func TestVisualDescriptorOverWire(t *testing.T) {
	s := newTestServer(t)
	var enrolled enrollResult
	mustResult(t, call(t, s, "enroll", enrollParams{
		SubjectID:     "alice@example.com",
		SubjectType:   "user",
		SecurityLevel: "standard",
	}, nil), &enrolled)

	var descriptor struct {
		KeyID        string   `json:"key_id"`
		SegmentCount int      `json:"segment_count"`
		Palette      []string `json:"palette"`
	}
	mustResult(t, call(t, s, "visual.get", keyIDParams{KeyID: enrolled.KeyID}, nil), &descriptor)
	if descriptor.KeyID != enrolled.KeyID || descriptor.SegmentCount != 1_024 || len(descriptor.Palette) == 0 {
		t.Fatalf("descriptor = %+v", descriptor)
	}
}

func TestAdminRequiresAuthorization(t *testing.T) {
	s := newTestServer(t)

	resp := call(t, s, "admin.keys", nil, nil)
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("unauthenticated admin call: %+v", resp.Error)
	}

	resp = call(t, s, "admin.keys", nil, map[string]string{adminTokenHeader: "wrong"})
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("wrong token: %+v", resp.Error)
	}

	var listing map[string]json.RawMessage
	mustResult(t, call(t, s, "admin.keys", nil, map[string]string{adminTokenHeader: "op-secret"}), &listing)
	if _, ok := listing["keys"]; !ok {
		t.Fatalf("listing = %v", listing)
	}
}

func TestAdminViaAdministratorSession(t *testing.T) {
	s := newTestServer(t)

	var enrolled enrollResult
	mustResult(t, call(t, s, "enroll", enrollParams{
		SubjectID:     "root@example.com",
		SubjectType:   "administrator",
		SecurityLevel: "standard",
	}, nil), &enrolled)

	var challenge challengeIssueResult
	mustResult(t, call(t, s, "challenge.issue", challengeIssueParams{KeyID: enrolled.KeyID}, nil), &challenge)
	signature := ed25519.Sign(ed25519.PrivateKey(enrolled.PrivateKey), challenge.Nonce)
	var session sessionResult
	mustResult(t, call(t, s, "authenticate", authenticateParams{
		ChallengeID: challenge.ChallengeID,
		Signature:   signature,
	}, nil), &session)

	headers := map[string]string{"Authorization": "Bearer " + session.SessionToken}
	var listing map[string]json.RawMessage
	mustResult(t, call(t, s, "admin.keys", nil, headers), &listing)

	// A plain user session must not pass.
	var user enrollResult
	mustResult(t, call(t, s, "enroll", enrollParams{
		SubjectID:     "bob@example.com",
		SubjectType:   "user",
		SecurityLevel: "standard",
	}, nil), &user)
	var userChallenge challengeIssueResult
	mustResult(t, call(t, s, "challenge.issue", challengeIssueParams{KeyID: user.KeyID}, nil), &userChallenge)
	userSig := ed25519.Sign(ed25519.PrivateKey(user.PrivateKey), userChallenge.Nonce)
	var userSession sessionResult
	mustResult(t, call(t, s, "authenticate", authenticateParams{
		ChallengeID: userChallenge.ChallengeID,
		Signature:   userSig,
	}, nil), &userSession)
	resp := call(t, s, "admin.keys", nil, map[string]string{"Authorization": "Bearer " + userSession.SessionToken})
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("user session passed admin auth: %+v", resp.Error)
	}
}

func TestRevokeOverWire(t *testing.T) {
	s := newTestServer(t)
	admin := map[string]string{adminTokenHeader: "op-secret"}

	var enrolled enrollResult
	mustResult(t, call(t, s, "enroll", enrollParams{
		SubjectID:     "alice@example.com",
		SubjectType:   "user",
		SecurityLevel: "standard",
	}, nil), &enrolled)

	var revoked struct {
		KeyID      string `json:"key_id"`
		CRLVersion uint64 `json:"crl_version"`
	}
	mustResult(t, call(t, s, "admin.revoke", revokeParams{
		KeyID:     enrolled.KeyID,
		Reason:    "compromise",
		RevokedBy: "admin@example.com",
	}, admin), &revoked)
	if revoked.CRLVersion != 1 {
		t.Fatalf("crl_version = %d", revoked.CRLVersion)
	}

	// Without admin credentials the denial reason is hidden.
	resp := call(t, s, "challenge.issue", challengeIssueParams{KeyID: enrolled.KeyID}, nil)
	if resp.Error == nil || resp.Error.Code != codeAuthFailed {
		t.Fatalf("issue for revoked key (anonymous): %+v", resp.Error)
	}
	resp = call(t, s, "challenge.issue", challengeIssueParams{KeyID: enrolled.KeyID}, admin)
	if resp.Error == nil || resp.Error.Code != codeRevoked {
		t.Fatalf("issue for revoked key (admin): %+v", resp.Error)
	}

	// Unknown keys look the same as revoked ones to anonymous callers.
	resp = call(t, s, "challenge.issue", challengeIssueParams{KeyID: "dna1missing"}, nil)
	if resp.Error == nil || resp.Error.Code != codeAuthFailed {
		t.Fatalf("issue for unknown key (anonymous): %+v", resp.Error)
	}
}

func TestMalformedRequests(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	var resp wireResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Fatalf("parse error = %+v", resp.Error)
	}
	if string(resp.ID) != "null" {
		t.Fatalf("parse error id = %q, want explicit null", string(resp.ID))
	}

	if resp := call(t, s, "no.such.method", nil, nil); resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("method not found = %+v", resp.Error)
	}
	if resp := call(t, s, "enroll", map[string]any{"subject_id": 42}, nil); resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("invalid params = %+v", resp.Error)
	}

	wrongVersion := []byte(`{"jsonrpc":"1.0","id":1,"method":"health_check"}`)
	req = httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(wrongVersion))
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != codeInvalidRequest {
		t.Fatalf("invalid request = %+v", resp.Error)
	}
}

func TestHealthzEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}

package rpc

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"helix-auth/go-backend/internal/storage"
	"helix-auth/go-backend/internal/visual"
	"helix-auth/go-backend/pkg/models"
)

type enrollParams struct {
	SubjectID     string `json:"subject_id"`
	SubjectType   string `json:"subject_type"`
	SecurityLevel string `json:"security_level"`
}

type enrollResult struct {
	KeyID            string    `json:"key_id"`
	SecurityLevel    string    `json:"security_level"`
	SegmentCount     int       `json:"segment_count"`
	PublicKey        []byte    `json:"public_key"`
	PrivateKey       []byte    `json:"private_key"`
	RecoveryMnemonic string    `json:"recovery_mnemonic"`
	VisualSeed       []byte    `json:"visual_seed"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

type challengeIssueParams struct {
	KeyID string `json:"key_id"`
}

type challengeIssueResult struct {
	ChallengeID string    `json:"challenge_id"`
	Nonce       []byte    `json:"nonce"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type authenticateParams struct {
	ChallengeID string `json:"challenge_id"`
	Signature   []byte `json:"signature"`
}

type sessionResult struct {
	SessionToken string    `json:"session_token"`
	KeyID        string    `json:"key_id"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type sessionTokenParams struct {
	SessionToken string `json:"session_token"`
}

type keyIDParams struct {
	KeyID string `json:"key_id"`
}

type revokeParams struct {
	KeyID     string `json:"key_id"`
	Reason    string `json:"reason"`
	RevokedBy string `json:"revoked_by"`
	Notes     string `json:"notes"`
}

type auditParams struct {
	Limit int `json:"limit"`
}

func (s *Server) dispatch(r *http.Request, method string, rawParams json.RawMessage) (any, *rpcError) {
	ctx := r.Context()
	switch method {
	case "health_check":
		return map[string]string{"status": "ok"}, nil

	case "enroll":
		var p enrollParams
		if err := decodeParams(rawParams, &p); err != nil {
			return nil, rpcInvalidParams()
		}
		res, err := s.services.Enrollment.Enroll(ctx, p.SubjectID, p.SubjectType, models.SecurityLevel(p.SecurityLevel))
		if err != nil {
			return nil, mapServiceError(err)
		}
		return enrollResult{
			KeyID:            res.Key.KeyID,
			SecurityLevel:    string(res.Key.SecurityLevel),
			SegmentCount:     len(res.Key.Segments),
			PublicKey:        res.Key.PublicKey,
			PrivateKey:       res.PrivateKey,
			RecoveryMnemonic: res.RecoveryMnemonic,
			VisualSeed:       res.Key.VisualSeed,
			CreatedAt:        res.Key.CreatedAt,
			ExpiresAt:        res.Key.ExpiresAt,
		}, nil

	case "challenge.issue":
		var p challengeIssueParams
		if err := decodeParams(rawParams, &p); err != nil {
			return nil, rpcInvalidParams()
		}
		challenge, err := s.services.Challenges.Issue(ctx, p.KeyID)
		if err != nil {
			return nil, s.mapChallengeError(r, err)
		}
		return challengeIssueResult{
			ChallengeID: challenge.ChallengeID,
			Nonce:       challenge.Nonce,
			IssuedAt:    challenge.IssuedAt,
			ExpiresAt:   challenge.ExpiresAt,
		}, nil

	case "authenticate":
		var p authenticateParams
		if err := decodeParams(rawParams, &p); err != nil {
			return nil, rpcInvalidParams()
		}
		session, err := s.services.Authentication.Authenticate(ctx, p.ChallengeID, p.Signature)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return sessionResult{
			SessionToken: session.Token,
			KeyID:        session.KeyID,
			IssuedAt:     session.IssuedAt,
			ExpiresAt:    session.ExpiresAt,
		}, nil

	case "session.validate":
		var p sessionTokenParams
		if err := decodeParams(rawParams, &p); err != nil {
			return nil, rpcInvalidParams()
		}
		keyID, err := s.services.Sessions.Validate(ctx, p.SessionToken)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return map[string]any{"valid": true, "key_id": keyID}, nil

	case "session.logout":
		var p sessionTokenParams
		if err := decodeParams(rawParams, &p); err != nil {
			return nil, rpcInvalidParams()
		}
		if err := s.services.Sessions.Logout(ctx, p.SessionToken); err != nil {
			return nil, mapServiceError(err)
		}
		return map[string]bool{"ok": true}, nil

	case "visual.get":
		var p keyIDParams
		if err := decodeParams(rawParams, &p); err != nil {
			return nil, rpcInvalidParams()
		}
		key, err := s.services.Keys.Get(ctx, p.KeyID)
		if err != nil {
			if errors.Is(err, storage.ErrKeyNotFound) {
				return nil, &rpcError{Code: codeNotFound, Message: "not found"}
			}
			return nil, &rpcError{Code: codeStorage, Message: "storage unavailable"}
		}
		descriptor, err := visual.Describe(key)
		if err != nil {
			return nil, &rpcError{Code: codeInternal, Message: "internal error"}
		}
		return descriptor, nil
	}

	if result, rpcErr, ok := s.dispatchAdmin(r, method, rawParams); ok {
		return result, rpcErr
	}
	return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found"}
}

func (s *Server) dispatchAdmin(r *http.Request, method string, rawParams json.RawMessage) (any, *rpcError, bool) {
	switch method {
	case "admin.revoke", "admin.keys", "admin.revocations", "admin.history",
		"admin.audit", "admin.verifyChain", "admin.purgeKey":
	default:
		return nil, nil, false
	}
	if !s.authorizeAdmin(r) {
		return nil, rpcUnauthorized(), true
	}

	ctx := r.Context()
	switch method {
	case "admin.revoke":
		var p revokeParams
		if err := decodeParams(rawParams, &p); err != nil {
			return nil, rpcInvalidParams(), true
		}
		version, err := s.services.Admin.Revoke(ctx, p.KeyID, models.RevocationReason(p.Reason), p.RevokedBy, p.Notes)
		if err != nil {
			return nil, mapServiceError(err), true
		}
		return map[string]any{"key_id": p.KeyID, "crl_version": version}, nil, true

	case "admin.keys":
		keys, err := s.services.Admin.Keys(ctx)
		if err != nil {
			return nil, mapServiceError(err), true
		}
		return map[string]any{"keys": keys}, nil, true

	case "admin.revocations":
		entries, err := s.services.Admin.Revocations(ctx)
		if err != nil {
			return nil, mapServiceError(err), true
		}
		return map[string]any{"revocations": entries}, nil, true

	case "admin.history":
		var p keyIDParams
		if err := decodeParams(rawParams, &p); err != nil {
			return nil, rpcInvalidParams(), true
		}
		entries, err := s.services.Admin.History(ctx, p.KeyID)
		if err != nil {
			return nil, mapServiceError(err), true
		}
		return map[string]any{"revocations": entries}, nil, true

	case "admin.audit":
		var p auditParams
		if len(rawParams) > 0 {
			if err := decodeParams(rawParams, &p); err != nil {
				return nil, rpcInvalidParams(), true
			}
		}
		if p.Limit <= 0 {
			p.Limit = 100
		}
		return map[string]any{"events": s.services.Admin.RecentAudit(p.Limit)}, nil, true

	case "admin.verifyChain":
		var p keyIDParams
		if err := decodeParams(rawParams, &p); err != nil {
			return nil, rpcInvalidParams(), true
		}
		if err := s.services.Admin.VerifyChain(ctx, p.KeyID); err != nil {
			return nil, mapServiceError(err), true
		}
		return map[string]bool{"valid": true}, nil, true

	case "admin.purgeKey":
		var p keyIDParams
		if err := decodeParams(rawParams, &p); err != nil {
			return nil, rpcInvalidParams(), true
		}
		if err := s.services.Admin.PurgeKey(ctx, p.KeyID); err != nil {
			return nil, mapServiceError(err), true
		}
		return map[string]bool{"ok": true}, nil, true
	}
	return nil, nil, false
}

func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return json.Unmarshal([]byte("{}"), dst)
	}
	return json.Unmarshal(raw, dst)
}

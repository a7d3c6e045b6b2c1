package rpc

import (
	"errors"
	"net/http"

	"helix-auth/go-backend/internal/protocol"
)

// RPC error codes. Authentication failures share one code on purpose; the
// engine does not let callers distinguish the cause.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32000

	codeNotFound        = -32040
	codeExpired         = -32041
	codeRevoked         = -32042
	codeDuplicateKey    = -32043
	codeAlreadyConsumed = -32044
	codeRateLimited     = -32045
	codeAuthFailed      = -32050
	codeUnauthorized    = -32051
	codeStorage         = -32060
)

func rpcInvalidParams() *rpcError {
	return &rpcError{Code: codeInvalidParams, Message: "invalid params"}
}

func rpcUnauthorized() *rpcError {
	return &rpcError{Code: codeUnauthorized, Message: "administrator authorization required"}
}

// mapChallengeError keeps the reason a challenge was denied visible to
// administrators only. Everyone else gets the uniform failure, so issuance
// cannot be used to probe whether a key exists or is revoked.
func (s *Server) mapChallengeError(r *http.Request, err error) *rpcError {
	if errors.Is(err, protocol.ErrNotFound) ||
		errors.Is(err, protocol.ErrRevoked) ||
		errors.Is(err, protocol.ErrExpired) {
		if !s.authorizeAdmin(r) {
			return &rpcError{Code: codeAuthFailed, Message: "challenge denied"}
		}
	}
	return mapServiceError(err)
}

// mapServiceError turns a protocol error into a wire error. Messages stay
// generic; the audit trail carries the detail.
func mapServiceError(err error) *rpcError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, protocol.ErrValidation):
		return &rpcError{Code: codeInvalidParams, Message: err.Error()}
	case errors.Is(err, protocol.ErrAuthenticationFailed):
		return &rpcError{Code: codeAuthFailed, Message: "authentication failed"}
	case errors.Is(err, protocol.ErrNotFound):
		return &rpcError{Code: codeNotFound, Message: "not found"}
	case errors.Is(err, protocol.ErrExpired):
		return &rpcError{Code: codeExpired, Message: "expired"}
	case errors.Is(err, protocol.ErrRevoked):
		return &rpcError{Code: codeRevoked, Message: "revoked"}
	case errors.Is(err, protocol.ErrDuplicateKey):
		return &rpcError{Code: codeDuplicateKey, Message: "duplicate key"}
	case errors.Is(err, protocol.ErrAlreadyConsumed):
		return &rpcError{Code: codeAlreadyConsumed, Message: "already consumed"}
	case errors.Is(err, protocol.ErrRateLimited):
		return &rpcError{Code: codeRateLimited, Message: "rate limited"}
	case errors.Is(err, protocol.ErrStorage):
		return &rpcError{Code: codeStorage, Message: "storage unavailable"}
	default:
		return &rpcError{Code: codeInternal, Message: "internal error"}
	}
}

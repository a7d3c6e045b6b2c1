package protocol

import (
	"context"
	"errors"
	"time"

	"helix-auth/go-backend/internal/storage"
)

// Error taxonomy for the protocol engine. Internal services report the
// specific kind; the authentication boundary collapses credential-related
// kinds into ErrAuthenticationFailed so external callers cannot tell a bad
// signature from a revoked key from an expired challenge.
var (
	ErrValidation           = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
	ErrExpired              = errors.New("expired")
	ErrAlreadyConsumed      = errors.New("already consumed")
	ErrRevoked              = errors.New("revoked")
	ErrSignatureInvalid     = errors.New("signature invalid")
	ErrDuplicateKey         = errors.New("duplicate key id")
	ErrRateLimited          = errors.New("rate limited")
	ErrStorage              = errors.New("storage unavailable")
	ErrInternal             = errors.New("internal error")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// storeTimeout bounds every store operation. A deadline hit is reported
// as ErrStorage, never as success.
const storeTimeout = 2 * time.Second

// mapStoreErr translates storage sentinels into protocol kinds. Anything
// unrecognized, including a context deadline, is a storage failure.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrKeyNotFound),
		errors.Is(err, storage.ErrChallengeNotFound),
		errors.Is(err, storage.ErrSessionNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrChallengeConsumed):
		return ErrAlreadyConsumed
	case errors.Is(err, storage.ErrChallengeExpired):
		return ErrExpired
	case errors.Is(err, storage.ErrDuplicateKey):
		return ErrDuplicateKey
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrStorage
	default:
		return ErrStorage
	}
}

package protocol

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Audit cause codes. These name the precise failure the external surface
// deliberately hides behind the uniform authentication outcome.
const (
	CauseChallengeNotFound = "CHALLENGE_NOT_FOUND"
	CauseChallengeConsumed = "CHALLENGE_CONSUMED"
	CauseChallengeExpired  = "CHALLENGE_EXPIRED"
	CauseKeyNotFound       = "KEY_NOT_FOUND"
	CauseKeyExpired        = "KEY_EXPIRED"
	CauseKeyRevoked        = "KEY_REVOKED"
	CauseSignatureInvalid  = "SIGNATURE_INVALID"
	CauseStorageFailure    = "STORAGE_FAILURE"
)

type AuditEvent struct {
	EventID     string    `json:"event_id"`
	Operation   string    `json:"operation"`
	KeyID       string    `json:"key_id,omitempty"`
	ChallengeID string    `json:"challenge_id,omitempty"`
	Result      string    `json:"result"`
	Cause       string    `json:"cause,omitempty"`
	At          time.Time `json:"at"`
}

// AuditTrail keeps a bounded in-memory ring of protocol events and mirrors
// them to the (sanitized) structured log.
type AuditTrail struct {
	mu     sync.Mutex
	events []AuditEvent
	next   int
	filled bool
	logger *slog.Logger
}

const defaultAuditCapacity = 1024

func NewAuditTrail(logger *slog.Logger) *AuditTrail {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditTrail{
		events: make([]AuditEvent, defaultAuditCapacity),
		logger: logger,
	}
}

func (a *AuditTrail) Record(event AuditEvent) AuditEvent {
	if a == nil {
		return event
	}
	event.EventID = uuid.NewString()
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	a.mu.Lock()
	a.events[a.next] = event
	a.next = (a.next + 1) % len(a.events)
	if a.next == 0 {
		a.filled = true
	}
	a.mu.Unlock()

	a.logger.Info("audit event",
		"event_id", event.EventID,
		"operation", event.Operation,
		"key_id", event.KeyID,
		"challenge_id", event.ChallengeID,
		"result", event.Result,
		"cause", event.Cause,
	)
	return event
}

// Recent returns up to limit events, newest first.
func (a *AuditTrail) Recent(limit int) []AuditEvent {
	if a == nil || limit <= 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	size := a.next
	if a.filled {
		size = len(a.events)
	}
	if limit > size {
		limit = size
	}
	out := make([]AuditEvent, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (a.next - i + len(a.events)) % len(a.events)
		out = append(out, a.events[idx])
	}
	return out
}

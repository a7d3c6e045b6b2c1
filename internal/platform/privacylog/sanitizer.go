package privacylog

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

const redactedValue = "[REDACTED]"

// Attribute keys that must never reach the log in plain form. Secrets are
// redacted outright; subject identifiers are digested so correlated events
// stay correlatable within one process lifetime without logging PII.
var (
	bootNonce        = randomNonce()
	secretKeyParts   = []string{"token", "secret", "nonce", "signature", "mnemonic", "passphrase", "private"}
	digestedPlainIDs = map[string]struct{}{
		"subject_id": {},
	}
)

type SanitizingHandler struct {
	next slog.Handler
}

func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &SanitizingHandler{next: next}
}

func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SanitizingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(SanitizeAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		sanitized = append(sanitized, SanitizeAttr(attr))
	}
	return &SanitizingHandler{next: h.next.WithAttrs(sanitized)}
}

func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{next: h.next.WithGroup(name)}
}

func SanitizeAttr(attr slog.Attr) slog.Attr {
	key := strings.ToLower(attr.Key)
	for _, part := range secretKeyParts {
		if strings.Contains(key, part) {
			return slog.String(attr.Key, redactedValue)
		}
	}
	if _, ok := digestedPlainIDs[key]; ok {
		return slog.String(attr.Key, digest(attr.Value.String()))
	}
	return attr
}

func digest(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256(append(bootNonce, []byte(value)...))
	return "d_" + hex.EncodeToString(sum[:8])
}

func randomNonce() []byte {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		panic(fmt.Sprintf("privacylog: read nonce: %v", err))
	}
	return nonce
}

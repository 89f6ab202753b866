package fp

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeMessageID trims surrounding whitespace. Message identifiers arrive
// from the signaling layer verbatim; no further normalization is applied.
func NormalizeMessageID(s string) string {
	return strings.TrimSpace(s)
}

// Fingerprint computes a stable hex-encoded SHA-256 over the normalized
// message identifier and delivery status. This is the deduplication key that
// guarantees at most one report per (message, status) pair.
func Fingerprint(messageID, status string) string {
	nm := NormalizeMessageID(messageID)
	h := sha256.New()
	// Use a separator that cannot be confused; NUL works for all inputs here.
	h.Write([]byte(nm))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(status)))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)
}

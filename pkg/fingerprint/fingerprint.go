package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Text creates a deterministic fingerprint of raw document text.
// The fingerprint is a SHA256 hash encoded as hex.
func Text(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// HasChanged compares two fingerprints to detect changes.
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}

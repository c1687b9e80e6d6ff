package assets

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes the content fingerprint for a byte payload: a SHA-256
// over the bytes alone, hex encoded. No metadata goes into the hash, so the
// same bytes always produce the same fingerprint regardless of filename or
// mime type.
func Fingerprint(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

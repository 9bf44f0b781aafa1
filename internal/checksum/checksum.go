// Package checksum computes content digests used for change detection and
// optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag formats a digest as a strong HTTP entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// Trim strips the quoting of an entity tag back to the bare digest.
// Weak validator prefixes are not accepted; content digests are strong.
func Trim(etag string) string {
	return strings.Trim(etag, `"`)
}

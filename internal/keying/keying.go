// Package keying derives stable content-addressed keys for cache lookups
// and note content hashes.
package keying

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// Digest returns the hex-encoded SHA-256 digest of the given parts. Each
// part is framed with its length so the digest is order-sensitive and two
// different part sequences can never collide by concatenation.
func Digest(parts ...[]byte) string {
	h := sha256.New()
	var frame [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(frame[:], uint64(len(p)))
		h.Write(frame[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CacheKey builds the content address for a segmentation call: identical
// chunk text under an identical model and prompt version always resolves
// to the same key.
func CacheKey(chunkText, model, promptVersion string) string {
	return Digest([]byte(chunkText), []byte(model), []byte(promptVersion))
}

// ContentHash digests note content after whitespace normalization, so
// notes that differ only in surrounding whitespace hash identically.
func ContentHash(content string) string {
	return Digest([]byte(strings.TrimSpace(content)))
}

package storage

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint hashes parts into a stable hex digest. Parts are separated
// by NUL so ("ab","c") and ("a","bc") differ.
func Fingerprint(parts ...string) string {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

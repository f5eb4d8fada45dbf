package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// SHA256sum hashes parts separated by NUL bytes and returns the digest hex
// encoded. The separator keeps ("ab", "c") and ("a", "bc") apart.
func SHA256sum(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i != 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FastHash is a non-cryptographic hash for in-memory map keys such as replay
// tombstones, where an attacker choosing collisions gains nothing. The result
// is always 16 hex characters.
func FastHash(parts ...string) string {
	d := xxhash.New()
	for i, p := range parts {
		if i != 0 {
			d.Write([]byte{0})
		}
		d.WriteString(p)
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

package cache

import (
	"encoding/hex"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// Key derives a cache key from payload parts using BLAKE2b-256.
// Each part is length-prefixed so ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) string {
	h, _ := blake2b.New256(nil) // only errors for oversized keys
	for _, p := range parts {
		h.Write([]byte(strconv.Itoa(len(p))))
		h.Write([]byte{':'})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

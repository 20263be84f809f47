// Package idgen mints short, collision-resistant identifiers for process
// and session records.
package idgen

import (
	"crypto/rand"
)

// alphabet is the 38-symbol URL-safe charset used for generated IDs.
const alphabet = "_-0123456789abcdefghijklmnopqrstuvwxyz"

// length is the number of symbols in a generated ID.
const length = 8

// New returns a fresh 8-character identifier drawn from alphabet.
func New() string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is broken;
		// there is no sane fallback, so panic rather than mint a weak ID.
		panic("idgen: failed to read random bytes: " + err.Error())
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out)
}

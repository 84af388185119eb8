package textproc

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint hashes the searchable content of an index row. A changed
// fingerprint is the trigger for re-embedding; the two inputs are
// separated by a unit separator so moving text between fields cannot
// produce a colliding fingerprint.
func Fingerprint(rawText, learnedKeywords string) string {
	h := sha256.New()
	h.Write([]byte(rawText))
	h.Write([]byte{0x1f})
	h.Write([]byte(learnedKeywords))
	return hex.EncodeToString(h.Sum(nil))
}

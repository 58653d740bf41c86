package store

import (
	"crypto/rand"
	"encoding/hex"
)

// newApplyID returns a random 10-char lowercase-hex id matching
// ^[0-9a-f]{10}$ (spec §6). Collisions are handled by the caller via
// rejection sampling against the unique `apply_id` constraint: Register
// retries with a freshly generated id on a primary-key violation.
func newApplyID() (string, error) {
	var buf [5]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}

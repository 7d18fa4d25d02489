package reservation

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// IdempotencyHash digests a client supplied Idempotency-Key so raw keys are
// never stored.
func IdempotencyHash(key string) string {
	sum := blake2b.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

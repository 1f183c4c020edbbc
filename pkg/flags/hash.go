package flags

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
)

// longScale is 2^60-1, the divisor shared by every official SDK. Changing the
// truncation width or the scale silently reshuffles every user's bucket.
const longScale = float64(0xFFFFFFFFFFFFFFF)

// Hash deterministically maps a flag key, subject id, and salt to a float in
// [0, 1). It computes the SHA-1 digest of "{key}.{distinctID}{salt}" and
// scales the most significant 60 bits of the digest by 2^60-1. The exact same
// construction is used for rollout gating (empty salt) and variant bucketing
// (salt "variant").
func Hash(key, distinctID, salt string) float64 {
	sum := sha1.Sum([]byte(key + "." + distinctID + salt))
	digest := hex.EncodeToString(sum[:])

	// 15 hex digits = top 60 bits, always parseable.
	v, _ := strconv.ParseUint(digest[:15], 16, 64)
	return float64(v) / longScale
}

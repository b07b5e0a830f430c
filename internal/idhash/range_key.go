package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRangeKey computes a deterministic cache key for a load window.
// Formula: SHA256(start_ms|end_ms)
// Returns hex-encoded hash (64 characters). Identical windows always
// produce identical keys; there is no partial-range reuse.
func ComputeRangeKey(startMs, endMs int64) string {
	data := fmt.Sprintf("%d|%d", startMs, endMs)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

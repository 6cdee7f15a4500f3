package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade id using SHA256.
// Formula: SHA256(token_address|created_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(tokenAddress string, createdAtMs int64) string {
	data := fmt.Sprintf("%s|%d", tokenAddress, createdAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

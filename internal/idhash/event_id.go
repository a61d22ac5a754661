package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeEventID computes a deterministic event identifier using SHA256.
// Formula: SHA256(chain_id|tx_hash|log_index)
// Returns hex-encoded hash (64 characters).
func ComputeEventID(chainID int64, txHash string, logIndex int) string {
	data := fmt.Sprintf("%d|%s|%d", chainID, txHash, logIndex)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

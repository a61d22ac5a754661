package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTraceID computes a deterministic flow-trace identifier using SHA256.
// Formula: SHA256(chain_id|tx_hash|log_index|window_days|max_hops|label_version)
// The run parameters are part of the key so traces produced under different
// selections never collide when stored side by side.
func ComputeTraceID(chainID int64, txHash string, logIndex, windowDays, maxHops int, labelVersion string) string {
	data := fmt.Sprintf("%d|%s|%d|%d|%d|%s",
		chainID,
		txHash,
		logIndex,
		windowDays,
		maxHops,
		labelVersion,
	)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

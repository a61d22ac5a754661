package scanner

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// EventTopic computes the topic0 hash of a canonical event signature, e.g.
// "Transfer(address,address,uint256)". Returned 0x-prefixed lowercase.
func EventTopic(signature string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// CallSelector computes the 4-byte call selector of a canonical function
// signature, e.g. "swapExactTokensForTokens(uint256,uint256,address[],address,uint256)".
func CallSelector(signature string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return "0x" + hex.EncodeToString(h.Sum(nil)[:4])
}

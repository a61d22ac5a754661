package ethrpc

import (
	"fmt"
	"math/big"
	"strings"
)

// Log is one raw log record as returned by eth_getLogs.
type Log struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	BlockNumber      string   `json:"blockNumber"`
	TransactionHash  string   `json:"transactionHash"`
	TransactionIndex string   `json:"transactionIndex"`
	BlockHash        string   `json:"blockHash"`
	LogIndex         string   `json:"logIndex"`
	Removed          bool     `json:"removed"`
}

// Header is the subset of a block header the scanner needs.
type Header struct {
	Number    string `json:"number"`
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"`
}

// Transaction is the subset of eth_getTransactionByHash the tracer needs.
type Transaction struct {
	Hash  string `json:"hash"`
	From  string `json:"from"`
	To    string `json:"to"`
	Input string `json:"input"`
}

// ParseQuantity decodes a 0x-prefixed hex quantity into an int64.
func ParseQuantity(s string) (int64, error) {
	v, err := ParseBig(s)
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() {
		return 0, fmt.Errorf("quantity %s overflows int64", s)
	}
	return v.Int64(), nil
}

// ParseBig decodes a 0x-prefixed hex quantity into a big.Int.
func ParseBig(s string) (*big.Int, error) {
	hexStr := strings.TrimPrefix(s, "0x")
	if hexStr == "" {
		return nil, fmt.Errorf("empty hex quantity %q", s)
	}
	v, ok := new(big.Int).SetString(hexStr, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity %q", s)
	}
	return v, nil
}

// FormatQuantity encodes an int64 as a 0x-prefixed hex quantity.
func FormatQuantity(v int64) string {
	return fmt.Sprintf("0x%x", v)
}

// TopicAddress extracts the 20-byte address packed into a 32-byte log topic.
func TopicAddress(topic string) (string, error) {
	hexStr := strings.TrimPrefix(topic, "0x")
	if len(hexStr) != 64 {
		return "", fmt.Errorf("topic %q is not 32 bytes", topic)
	}
	return "0x" + strings.ToLower(hexStr[24:]), nil
}

// DataWord extracts the i-th 32-byte word of log data as a big.Int.
func DataWord(data string, i int) (*big.Int, error) {
	hexStr := strings.TrimPrefix(data, "0x")
	start := i * 64
	end := start + 64
	if len(hexStr) < end {
		return nil, fmt.Errorf("log data has no word %d", i)
	}
	word := hexStr[start:end]
	v, ok := new(big.Int).SetString(word, 16)
	if !ok {
		return nil, fmt.Errorf("invalid data word %q", word)
	}
	return v, nil
}

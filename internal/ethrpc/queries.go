package ethrpc

import (
	"context"
	"strings"
)

// LogFilter is the eth_getLogs filter object.
type LogFilter struct {
	FromBlock string     `json:"fromBlock,omitempty"`
	ToBlock   string     `json:"toBlock,omitempty"`
	Address   []string   `json:"address,omitempty"`
	Topics    [][]string `json:"topics,omitempty"`
}

// GetLogs retrieves log records matching the filter. A provider limit
// violation surfaces as ErrRangeTooLarge.
func (c *HTTPClient) GetLogs(ctx context.Context, filter LogFilter) ([]Log, error) {
	var result []Log
	if err := c.call(ctx, "eth_getLogs", []interface{}{filter}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// BlockNumber retrieves the current head block number.
func (c *HTTPClient) BlockNumber(ctx context.Context) (int64, error) {
	var result string
	if err := c.call(ctx, "eth_blockNumber", nil, &result); err != nil {
		return 0, err
	}
	return ParseQuantity(result)
}

// HeaderByNumber retrieves a block header. Returns nil if the block does
// not exist.
func (c *HTTPClient) HeaderByNumber(ctx context.Context, number int64) (*Header, error) {
	var result *Header
	params := []interface{}{FormatQuantity(number), false}
	if err := c.call(ctx, "eth_getBlockByNumber", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetCode retrieves the bytecode deployed at an address, empty for plain
// accounts.
func (c *HTTPClient) GetCode(ctx context.Context, address string) (string, error) {
	var result string
	params := []interface{}{address, "latest"}
	if err := c.call(ctx, "eth_getCode", params, &result); err != nil {
		return "", err
	}
	return result, nil
}

// HasCode reports whether an address carries contract bytecode.
func (c *HTTPClient) HasCode(ctx context.Context, address string) (bool, error) {
	code, err := c.GetCode(ctx, address)
	if err != nil {
		return false, err
	}
	return code != "" && code != "0x", nil
}

// TransactionByHash retrieves a transaction. Returns nil if unknown.
func (c *HTTPClient) TransactionByHash(ctx context.Context, hash string) (*Transaction, error) {
	var result *Transaction
	if err := c.call(ctx, "eth_getTransactionByHash", []interface{}{hash}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// TxCallSelector returns the 4-byte call selector of a transaction's input,
// "0x"-prefixed lowercase, or "" for plain value transfers.
func (c *HTTPClient) TxCallSelector(ctx context.Context, hash string) (string, error) {
	tx, err := c.TransactionByHash(ctx, hash)
	if err != nil {
		return "", err
	}
	if tx == nil || len(tx.Input) < 10 {
		return "", nil
	}
	return strings.ToLower(tx.Input[:10]), nil
}

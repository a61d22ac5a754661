package ethrpc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRangeTooLarge signals that the provider rejected a log query because
// the block range or response exceeded its limits. The scanner reacts by
// halving the range, never by retrying the same one.
var ErrRangeTooLarge = errors.New("log query range too large for provider")

// TransientError wraps a retryable transport-level failure. The HTTP layer
// retries these itself; callers only see one after retries are exhausted.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient rpc error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is (or wraps) a transient RPC failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// RangeTooLarge classifies provider responses that mean "ask for fewer
// blocks". There is no standard code for this; the checks cover the major
// providers (-32005 limit exceeded, plus the common message phrasings).
func (e *RPCError) RangeTooLarge() bool {
	if e.Code == -32005 || e.Code == -32602 && strings.Contains(strings.ToLower(e.Message), "block range") {
		return true
	}
	msg := strings.ToLower(e.Message)
	for _, hint := range []string{
		"query returned more than",
		"log response size exceeded",
		"block range is too wide",
		"exceeds the range limit",
		"query timeout exceeded",
	} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// Transient classifies provider errors worth retrying in place.
func (e *RPCError) Transient() bool {
	if e.Code == -32000 && strings.Contains(strings.ToLower(e.Message), "timeout") {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "too many requests") || strings.Contains(msg, "try again")
}

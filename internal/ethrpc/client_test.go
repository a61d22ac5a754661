package ethrpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastClient(endpoint string) *HTTPClient {
	return NewHTTPClient(endpoint,
		WithMaxRetries(3),
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(5*time.Millisecond),
		WithJitter(0),
	)
}

func TestCall_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":"0x10"}`)
	}))
	defer server.Close()

	n, err := fastClient(server.URL).BlockNumber(context.Background())
	if err != nil {
		t.Fatalf("BlockNumber failed: %v", err)
	}
	if n != 16 {
		t.Errorf("BlockNumber = %d, want 16", n)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestCall_RangeTooLargeNotRetried(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32005,"message":"query returned more than 10000 results"}}`)
	}))
	defer server.Close()

	_, err := fastClient(server.URL).GetLogs(context.Background(), LogFilter{FromBlock: "0x1", ToBlock: "0x2"})
	if !errors.Is(err, ErrRangeTooLarge) {
		t.Fatalf("err = %v, want ErrRangeTooLarge", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on range limit)", calls.Load())
	}
}

func TestCall_EntityTooLargeMapsToRangeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer server.Close()

	_, err := fastClient(server.URL).GetLogs(context.Background(), LogFilter{FromBlock: "0x1", ToBlock: "0x2"})
	if !errors.Is(err, ErrRangeTooLarge) {
		t.Fatalf("err = %v, want ErrRangeTooLarge", err)
	}
}

func TestCall_PermanentRPCErrorSurfaced(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`)
	}))
	defer server.Close()

	_, err := fastClient(server.URL).BlockNumber(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32601 {
		t.Errorf("err = %v, want RPCError -32601", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent error)", calls.Load())
	}
}

func TestCall_MaxRetriesExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := fastClient(server.URL).BlockNumber(context.Background())
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if !IsTransient(err) {
		t.Errorf("err = %v, want a transient classification", err)
	}
}

func TestHasCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":"0x6080"}`)
	}))
	defer server.Close()

	has, err := fastClient(server.URL).HasCode(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("HasCode failed: %v", err)
	}
	if !has {
		t.Error("HasCode = false, want true")
	}
}

func TestTxCallSelector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{"hash":"0xh","input":"0x38ED173900000000"}}`)
	}))
	defer server.Close()

	sel, err := fastClient(server.URL).TxCallSelector(context.Background(), "0xh")
	if err != nil {
		t.Fatalf("TxCallSelector failed: %v", err)
	}
	if sel != "0x38ed1739" {
		t.Errorf("selector = %s, want 0x38ed1739", sel)
	}
}

package ethrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// HeadWatcherConfig configures the chain-head subscription.
type HeadWatcherConfig struct {
	// ReconnectDelay is initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultHeadWatcherConfig returns default watcher configuration.
func DefaultHeadWatcherConfig() HeadWatcherConfig {
	return HeadWatcherConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// HeadWatcher tracks the chain head over a newHeads WS subscription so the
// scanner can bound its target range to tip minus confirmations and keep
// re-org-prone blocks out of the event store.
type HeadWatcher struct {
	endpoint string
	config   HeadWatcherConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64
	head      atomic.Int64

	done chan struct{}
	wg   sync.WaitGroup
}

// NewHeadWatcher connects, subscribes to newHeads and starts watching.
func NewHeadWatcher(ctx context.Context, endpoint string, config *HeadWatcherConfig) (*HeadWatcher, error) {
	cfg := DefaultHeadWatcherConfig()
	if config != nil {
		cfg = *config
	}

	w := &HeadWatcher{
		endpoint: endpoint,
		config:   cfg,
		done:     make(chan struct{}),
	}

	if err := w.connect(ctx); err != nil {
		return nil, err
	}
	if err := w.subscribe(); err != nil {
		w.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.readLoop()

	return w, nil
}

// Head returns the latest head block number seen, 0 before the first
// notification arrives.
func (w *HeadWatcher) Head() int64 {
	return w.head.Load()
}

// SafeHead returns the head minus confirmations, floored at zero.
func (w *HeadWatcher) SafeHead(confirmations int64) int64 {
	head := w.head.Load() - confirmations
	if head < 0 {
		return 0
	}
	return head
}

// Close closes the subscription and connection.
func (w *HeadWatcher) Close() error {
	if w.closed.Swap(true) {
		return nil
	}
	close(w.done)

	w.connMu.Lock()
	if w.conn != nil {
		w.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		w.conn.Close()
	}
	w.connMu.Unlock()

	w.wg.Wait()
	return nil
}

func (w *HeadWatcher) connect(ctx context.Context) error {
	w.connMu.Lock()
	defer w.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	w.conn = conn
	return nil
}

func (w *HeadWatcher) subscribe() error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      w.requestID.Add(1),
		Method:  "eth_subscribe",
		Params:  []interface{}{"newHeads"},
	}

	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn == nil {
		return fmt.Errorf("not connected")
	}
	w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
	if err := w.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// readLoop reads head notifications, reconnecting with exponential backoff.
func (w *HeadWatcher) readLoop() {
	defer w.wg.Done()

	reconnectDelay := w.config.ReconnectDelay

	for !w.closed.Load() {
		w.connMu.Lock()
		conn := w.conn
		w.connMu.Unlock()

		if conn == nil {
			if !w.reconnect(reconnectDelay) {
				return
			}
			reconnectDelay *= 2
			if reconnectDelay > w.config.MaxReconnectDelay {
				reconnectDelay = w.config.MaxReconnectDelay
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(w.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if w.closed.Load() {
				return
			}
			w.connMu.Lock()
			w.conn.Close()
			w.conn = nil
			w.connMu.Unlock()
			continue
		}

		reconnectDelay = w.config.ReconnectDelay
		w.handleMessage(message)
	}
}

// reconnect waits, redials and resubscribes. Returns false on shutdown.
func (w *HeadWatcher) reconnect(delay time.Duration) bool {
	select {
	case <-w.done:
		return false
	case <-time.After(delay):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := w.connect(ctx); err != nil {
		return true // retry on next loop iteration
	}
	if err := w.subscribe(); err != nil {
		w.connMu.Lock()
		if w.conn != nil {
			w.conn.Close()
			w.conn = nil
		}
		w.connMu.Unlock()
	}
	return true
}

type headNotification struct {
	Method string `json:"method"`
	Params *struct {
		Result *Header `json:"result"`
	} `json:"params"`
}

func (w *HeadWatcher) handleMessage(message []byte) {
	var notif headNotification
	if err := json.Unmarshal(message, &notif); err != nil {
		return
	}
	if notif.Method != "eth_subscription" || notif.Params == nil || notif.Params.Result == nil {
		return
	}

	number, err := ParseQuantity(notif.Params.Result.Number)
	if err != nil {
		return
	}

	// Monotonic update; a re-orged lower head never rolls the gauge back.
	for {
		current := w.head.Load()
		if number <= current {
			return
		}
		if w.head.CompareAndSwap(current, number) {
			return
		}
	}
}

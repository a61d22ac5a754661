package domain

import "math/big"

// EventKind is the closed set of protocol event kinds the engine understands.
type EventKind string

const (
	KindBond          EventKind = "bond"
	KindUnbond        EventKind = "unbond"
	KindRebond        EventKind = "rebond"
	KindWithdraw      EventKind = "withdraw"
	KindClaim         EventKind = "claim"
	KindTransfer      EventKind = "transfer"
	KindBridgeOut     EventKind = "bridge_out"
	KindBridgeReceipt EventKind = "bridge_receipt"
	KindExitRedeem    EventKind = "exit_redeem"
)

// ValidEventKind reports whether k is a member of the closed variant.
func ValidEventKind(k EventKind) bool {
	switch k {
	case KindBond, KindUnbond, KindRebond, KindWithdraw, KindClaim,
		KindTransfer, KindBridgeOut, KindBridgeReceipt, KindExitRedeem:
		return true
	}
	return false
}

// Event is one decoded protocol log. Immutable once stored; uniquely keyed
// by (chain_id, tx_hash, log_index).
type Event struct {
	Kind        EventKind
	ChainID     int64
	BlockNumber int64
	TxHash      string
	LogIndex    int
	Timestamp   int64 // Unix seconds
	FromAddr    string
	ToAddr      string
	Amount      *big.Int
	Extra       map[string]string // decoded non-core fields (delegate, unbonding lock id, ...)
}

// Key identifies an event uniquely across chains.
type EventKey struct {
	ChainID  int64
	TxHash   string
	LogIndex int
}

// Key returns the unique key of the event.
func (e *Event) Key() EventKey {
	return EventKey{ChainID: e.ChainID, TxHash: e.TxHash, LogIndex: e.LogIndex}
}

// Clone returns a deep copy. Amount is copied so callers can never mutate
// a stored event through a shared big.Int.
func (e *Event) Clone() *Event {
	c := *e
	if e.Amount != nil {
		c.Amount = new(big.Int).Set(e.Amount)
	}
	if e.Extra != nil {
		c.Extra = make(map[string]string, len(e.Extra))
		for k, v := range e.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// Less is the total order used everywhere events must be replayed
// deterministically: timestamp, then block number, then log index.
func (e *Event) Less(o *Event) bool {
	if e.Timestamp != o.Timestamp {
		return e.Timestamp < o.Timestamp
	}
	if e.BlockNumber != o.BlockNumber {
		return e.BlockNumber < o.BlockNumber
	}
	return e.LogIndex < o.LogIndex
}

// IsExit reports whether the event releases value out of the protocol and is
// therefore a root for flow tracing.
func (e *Event) IsExit() bool {
	switch e.Kind {
	case KindWithdraw, KindExitRedeem:
		return true
	}
	return false
}

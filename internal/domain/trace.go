package domain

import "math/big"

// Role is the terminal classification of a flow trace.
type Role string

const (
	// RoleExchangeStrict: the traced value reached an address labeled
	// exchange. A lower bound on exchange deposits, not proof of a sale.
	RoleExchangeStrict Role = "exchange_strict"

	// RoleDexRouterInteraction: a hop landed on a known DEX router, or its
	// transaction carried a recognized router call selector. Evidence of a
	// router call only, not of a completed swap.
	RoleDexRouterInteraction Role = "dex_router_interaction"

	// RoleBridgeDeposit: the traced value reached an address labeled bridge.
	RoleBridgeDeposit Role = "bridge_deposit"

	// RoleHoldNoFirstHop: the full window was observed and no qualifying
	// outgoing transfer occurred. The value is genuinely held.
	RoleHoldNoFirstHop Role = "hold_no_first_hop"

	// RoleUnknownEOA: hop budget exhausted at a plain account.
	RoleUnknownEOA Role = "unknown_eoa"

	// RoleUnknownContract: hop budget exhausted at an unlabeled contract.
	RoleUnknownContract Role = "unknown_contract"

	// RoleNoFirstHopMeetingThreshold: no qualifying transfer observed, but
	// the window extends past the observed event horizon, so absence is not
	// yet provable. Distinct from hold_no_first_hop on purpose: it affects
	// the lower-bound interpretation of every derived metric.
	RoleNoFirstHopMeetingThreshold Role = "no_first_hop_meeting_threshold"
)

// Hop is one step of forward traversal from an exit recipient.
type Hop struct {
	Address              string
	Category             Category
	Amount               *big.Int
	ElapsedSincePrevious int64 // seconds
	BlockNumber          int64
	TxHash               string
	LogIndex             int
}

// FlowTrace is the result of tracing one exit event forward.
type FlowTrace struct {
	TraceID string
	Exit    EventKey

	ExitAmount *big.Int
	ExitTS     int64
	Recipient  string

	Hops []Hop
	Role Role

	// MatchedAmount is min-carried hop to hop and never exceeds ExitAmount.
	MatchedAmount *big.Int

	// Truncated is set when the run deadline expired mid-trace; the role is
	// then the last provisional classification.
	Truncated bool
}

// Clone returns a deep copy of the trace.
func (t *FlowTrace) Clone() *FlowTrace {
	c := *t
	if t.ExitAmount != nil {
		c.ExitAmount = new(big.Int).Set(t.ExitAmount)
	}
	if t.MatchedAmount != nil {
		c.MatchedAmount = new(big.Int).Set(t.MatchedAmount)
	}
	c.Hops = make([]Hop, len(t.Hops))
	for i, h := range t.Hops {
		c.Hops[i] = h
		if h.Amount != nil {
			c.Hops[i].Amount = new(big.Int).Set(h.Amount)
		}
	}
	return &c
}

// Terminal reports whether role ends a trace regardless of remaining hops.
func (r Role) Terminal() bool {
	switch r {
	case RoleExchangeStrict, RoleBridgeDeposit, RoleDexRouterInteraction:
		return true
	}
	return false
}

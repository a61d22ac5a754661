package domain

import "math/big"

// AddressState is the per-address derived summary. It is fully recomputable
// by replaying that address's events in (timestamp, block, log_index) order
// and is never mutated out of band.
type AddressState struct {
	Address string

	FirstSeenTS    int64
	FirstBondTS    int64  // 0 if never bonded
	FirstUnbondTS  int64  // 0 if never unbonded
	FirstExitTS    int64  // 0 if never withdrew/redeemed
	LastActivityTS int64

	// Cumulative counters. Monotonic non-negative by construction.
	Bonded    *big.Int
	Unbonded  *big.Int
	Withdrawn *big.Int
	Claimed   *big.Int

	EventCount int

	// CurrentCounterparty is the delegate the address is currently bonded to,
	// empty after a full unbond.
	CurrentCounterparty string
}

// NewAddressState returns a zeroed state for addr.
func NewAddressState(addr string) *AddressState {
	return &AddressState{
		Address:   addr,
		Bonded:    new(big.Int),
		Unbonded:  new(big.Int),
		Withdrawn: new(big.Int),
		Claimed:   new(big.Int),
	}
}

// CurrentStake is the bonded minus unbonded cumulative amount, floored at
// zero. Used as the balance input to concentration analysis.
func (s *AddressState) CurrentStake() *big.Int {
	stake := new(big.Int).Sub(s.Bonded, s.Unbonded)
	if stake.Sign() < 0 {
		return new(big.Int)
	}
	return stake
}

// Clone returns a deep copy of the state.
func (s *AddressState) Clone() *AddressState {
	c := *s
	c.Bonded = new(big.Int).Set(s.Bonded)
	c.Unbonded = new(big.Int).Set(s.Unbonded)
	c.Withdrawn = new(big.Int).Set(s.Withdrawn)
	c.Claimed = new(big.Int).Set(s.Claimed)
	return &c
}

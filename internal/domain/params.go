package domain

import "math/big"

// RunParams are the explicit parameters of one analysis run. Every metric a
// run emits echoes these back as selection metadata, since two reports with
// identical numbers but different windows or hop limits are not comparable.
type RunParams struct {
	ChainID int64

	WindowDays          int
	MaxHops             int
	MinFirstHopTokenAbs *big.Int
	MinFirstHopFraction float64

	ChunkSize    int64
	MaxRetries   int
	MaxHalvings  int
	BridgeWindow int64 // seconds

	// BridgeAmountTolerance is the relative fee tolerance when matching a
	// source-chain burn to a destination-chain receipt (e.g. 0.01 = 1%).
	BridgeAmountTolerance float64

	LabelSetSize    int
	LabelSetVersion string
}

// WindowSeconds returns the trace window in seconds.
func (p RunParams) WindowSeconds() int64 {
	return int64(p.WindowDays) * 24 * 3600
}

// FirstHopThreshold is the qualifying amount for a trace rooted at an exit
// of exitAmount: max(MinFirstHopTokenAbs, MinFirstHopFraction * exitAmount).
func (p RunParams) FirstHopThreshold(exitAmount *big.Int) *big.Int {
	threshold := new(big.Int)
	if p.MinFirstHopTokenAbs != nil {
		threshold.Set(p.MinFirstHopTokenAbs)
	}
	if p.MinFirstHopFraction > 0 && exitAmount != nil {
		frac := new(big.Float).SetInt(exitAmount)
		frac.Mul(frac, big.NewFloat(p.MinFirstHopFraction))
		fracInt, _ := frac.Int(nil)
		if fracInt.Cmp(threshold) > 0 {
			threshold = fracInt
		}
	}
	return threshold
}

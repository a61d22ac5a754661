package domain

// ConcentrationSnapshot holds stake-concentration measures computed against
// one balance snapshot. Stateless and fully derived.
type ConcentrationSnapshot struct {
	Block       int64
	HolderCount int

	// TopNShare maps N to the share (0..1) held by the N largest balances.
	TopNShare map[int]float64

	// Nakamoto maps a threshold percentage (e.g. 33, 51) to the smallest
	// number of top holders whose combined balances reach that share.
	Nakamoto map[int]int

	Gini float64
}

// Package concentration computes stake-concentration measures over a
// balance snapshot: top-N share, Nakamoto coefficients and the Gini index.
// All measures are pure functions of the snapshot.
package concentration

import (
	"math/big"
	"sort"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
)

// holder pairs an address with its balance for deterministic ranking.
type holder struct {
	addr    string
	balance *big.Int
}

// Compute builds a concentration snapshot from per-address balances at a
// block. Zero and nil balances are not holders. Rank ties break on address
// so two runs over the same snapshot always agree.
func Compute(block int64, balances map[string]*big.Int, topNs []int, nakamotoThresholds []int) *domain.ConcentrationSnapshot {
	holders := make([]holder, 0, len(balances))
	total := new(big.Int)
	for addr, bal := range balances {
		if bal == nil || bal.Sign() <= 0 {
			continue
		}
		holders = append(holders, holder{addr: addr, balance: bal})
		total.Add(total, bal)
	}
	sort.Slice(holders, func(i, j int) bool {
		if c := holders[i].balance.Cmp(holders[j].balance); c != 0 {
			return c > 0
		}
		return holders[i].addr < holders[j].addr
	})

	snap := &domain.ConcentrationSnapshot{
		Block:       block,
		HolderCount: len(holders),
		TopNShare:   make(map[int]float64, len(topNs)),
		Nakamoto:    make(map[int]int, len(nakamotoThresholds)),
	}
	if len(holders) == 0 {
		return snap
	}

	for _, n := range topNs {
		snap.TopNShare[n] = topShare(holders, total, n)
	}
	for _, pct := range nakamotoThresholds {
		snap.Nakamoto[pct] = nakamoto(holders, total, pct)
	}
	snap.Gini = gini(holders, total)
	return snap
}

// topShare is the fraction of total stake held by the n largest holders.
func topShare(holders []holder, total *big.Int, n int) float64 {
	if n > len(holders) {
		n = len(holders)
	}
	sum := new(big.Int)
	for i := 0; i < n; i++ {
		sum.Add(sum, holders[i].balance)
	}
	return ratio(sum, total)
}

// nakamoto is the smallest count of top holders whose combined stake reaches
// pct percent of the total.
func nakamoto(holders []holder, total *big.Int, pct int) int {
	// cumulative*100 >= total*pct avoids float thresholds.
	target := new(big.Int).Mul(total, big.NewInt(int64(pct)))
	sum := new(big.Int)
	for i, h := range holders {
		sum.Add(sum, h.balance)
		if new(big.Int).Mul(sum, big.NewInt(100)).Cmp(target) >= 0 {
			return i + 1
		}
	}
	return len(holders)
}

// gini computes the discrete Gini index:
// G = (2 * sum(i * x_i)) / (n * sum(x_i)) - (n + 1) / n
// with balances sorted ascending and i counted from 1. A single holder
// yields 0.
func gini(holders []holder, total *big.Int) float64 {
	n := len(holders)
	if n <= 1 {
		return 0
	}

	asc := make([]*big.Int, n)
	for i, h := range holders {
		asc[n-1-i] = h.balance
	}

	weighted := new(big.Int)
	for i, bal := range asc {
		rank := big.NewInt(int64(i + 1))
		weighted.Add(weighted, new(big.Int).Mul(rank, bal))
	}

	num := new(big.Float).SetInt(new(big.Int).Mul(big.NewInt(2), weighted))
	den := new(big.Float).SetInt(new(big.Int).Mul(big.NewInt(int64(n)), total))
	lorenz, _ := new(big.Float).Quo(num, den).Float64()
	return lorenz - float64(n+1)/float64(n)
}

func ratio(part, total *big.Int) float64 {
	if total.Sign() == 0 {
		return 0
	}
	v, _ := new(big.Float).Quo(
		new(big.Float).SetInt(part),
		new(big.Float).SetInt(total),
	).Float64()
	return v
}

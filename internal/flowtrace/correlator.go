package flowtrace

import (
	"math/big"
	"sort"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
)

// BridgeMatch pairs a source-chain bridge burn with its destination-chain
// receipt. Lag is receipt minus burn in seconds, never negative.
type BridgeMatch struct {
	Out           domain.EventKey
	Receipt       domain.EventKey
	Recipient     string
	OutAmount     *big.Int
	ReceiptAmount *big.Int
	LagSeconds    int64
}

// CorrelationResult is the outcome of matching bridge legs. Unmatched legs
// are first-class output: they bound how much of the bridged flow the
// correlator could actually account for.
type CorrelationResult struct {
	Matches           []BridgeMatch
	UnmatchedOuts     []domain.EventKey
	UnmatchedReceipts []domain.EventKey
}

// CorrelateBridgeLegs matches bridge_out events against bridge_receipt
// events. A pair matches when the recipient agrees, the receipt follows the
// burn within windowSeconds, and the receipt amount is within tolerance of
// the burn amount. Each burn takes its earliest admissible receipt and each
// receipt matches at most once.
func CorrelateBridgeLegs(outs, receipts []*domain.Event, windowSeconds int64, tolerance float64) *CorrelationResult {
	sortedOuts := sortByOrder(outs)
	sortedReceipts := sortByOrder(receipts)

	byRecipient := make(map[string][]*domain.Event)
	for _, r := range sortedReceipts {
		byRecipient[r.ToAddr] = append(byRecipient[r.ToAddr], r)
	}

	result := &CorrelationResult{}
	taken := make(map[domain.EventKey]struct{})

	for _, out := range sortedOuts {
		var match *domain.Event
		for _, r := range byRecipient[out.ToAddr] {
			if _, used := taken[r.Key()]; used {
				continue
			}
			lag := r.Timestamp - out.Timestamp
			if lag < 0 || lag > windowSeconds {
				continue
			}
			if !amountWithinTolerance(out.Amount, r.Amount, tolerance) {
				continue
			}
			match = r
			break
		}

		if match == nil {
			result.UnmatchedOuts = append(result.UnmatchedOuts, out.Key())
			continue
		}
		taken[match.Key()] = struct{}{}
		result.Matches = append(result.Matches, BridgeMatch{
			Out:           out.Key(),
			Receipt:       match.Key(),
			Recipient:     out.ToAddr,
			OutAmount:     new(big.Int).Set(out.Amount),
			ReceiptAmount: new(big.Int).Set(match.Amount),
			LagSeconds:    match.Timestamp - out.Timestamp,
		})
	}

	for _, r := range sortedReceipts {
		if _, used := taken[r.Key()]; !used {
			result.UnmatchedReceipts = append(result.UnmatchedReceipts, r.Key())
		}
	}
	return result
}

// amountWithinTolerance accepts a receipt no larger than the burn and no
// smaller than burn * (1 - tolerance). Bridges deduct fees, never add.
func amountWithinTolerance(out, receipt *big.Int, tolerance float64) bool {
	if out == nil || receipt == nil {
		return false
	}
	if receipt.Cmp(out) > 0 {
		return false
	}
	floor := new(big.Float).SetInt(out)
	floor.Mul(floor, big.NewFloat(1-tolerance))
	floorInt, _ := floor.Int(nil)
	return receipt.Cmp(floorInt) >= 0
}

func sortByOrder(events []*domain.Event) []*domain.Event {
	out := make([]*domain.Event, len(events))
	copy(out, events)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

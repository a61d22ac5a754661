// Package aggregate derives per-address lifecycle state from event streams.
// The fold is a pure function of the deduplicated event set: feeding the
// same events twice, or in any order, produces the same states.
package aggregate

import (
	"context"
	"hash/fnv"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
)

// Fold replays events into per-address states. Events are deduplicated by
// key and applied in total event order, so the fold is idempotent and
// order-insensitive with respect to its input slice.
func Fold(events []*domain.Event) map[string]*domain.AddressState {
	states := make(map[string]*domain.AddressState)
	for _, group := range groupBySubject(events) {
		addr := subject(group[0])
		states[addr] = foldAddress(addr, group)
	}
	return states
}

// FoldParallel shards addresses across workers and folds each shard
// independently. Address-level ordering is preserved because an address
// never spans shards. shards <= 1 falls back to the sequential fold.
func FoldParallel(ctx context.Context, events []*domain.Event, shards int) (map[string]*domain.AddressState, error) {
	if shards <= 1 {
		return Fold(events), nil
	}

	groups := groupBySubject(events)
	partitions := make([][][]*domain.Event, shards)
	for _, group := range groups {
		i := shardOf(subject(group[0]), shards)
		partitions[i] = append(partitions[i], group)
	}

	results := make([]map[string]*domain.AddressState, shards)
	g, _ := errgroup.WithContext(ctx)
	for i := range partitions {
		g.Go(func() error {
			out := make(map[string]*domain.AddressState, len(partitions[i]))
			for _, group := range partitions[i] {
				addr := subject(group[0])
				out[addr] = foldAddress(addr, group)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]*domain.AddressState)
	for _, part := range results {
		for addr, state := range part {
			merged[addr] = state
		}
	}
	return merged, nil
}

// subject is the address whose lifecycle an event belongs to. Staking events
// always resolve to the delegator; raw transfers resolve to the sender.
func subject(e *domain.Event) string {
	switch e.Kind {
	case domain.KindWithdraw, domain.KindClaim, domain.KindExitRedeem:
		return e.ToAddr
	default:
		return e.FromAddr
	}
}

// groupBySubject deduplicates by event key and groups events per subject
// address, each group sorted into total event order.
func groupBySubject(events []*domain.Event) [][]*domain.Event {
	seen := make(map[domain.EventKey]struct{}, len(events))
	groups := make(map[string][]*domain.Event)
	for _, e := range events {
		key := e.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		addr := subject(e)
		groups[addr] = append(groups[addr], e)
	}

	addrs := make([]string, 0, len(groups))
	for addr := range groups {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	out := make([][]*domain.Event, 0, len(groups))
	for _, addr := range addrs {
		group := groups[addr]
		sort.Slice(group, func(i, j int) bool { return group[i].Less(group[j]) })
		out = append(out, group)
	}
	return out
}

// foldAddress replays one address's ordered events into its state.
func foldAddress(addr string, ordered []*domain.Event) *domain.AddressState {
	s := domain.NewAddressState(addr)
	for _, e := range ordered {
		apply(s, e)
	}
	return s
}

func apply(s *domain.AddressState, e *domain.Event) {
	if s.FirstSeenTS == 0 || e.Timestamp < s.FirstSeenTS {
		s.FirstSeenTS = e.Timestamp
	}
	if e.Timestamp > s.LastActivityTS {
		s.LastActivityTS = e.Timestamp
	}
	s.EventCount++

	switch e.Kind {
	case domain.KindBond:
		if s.FirstBondTS == 0 {
			s.FirstBondTS = e.Timestamp
		}
		if e.Amount != nil {
			s.Bonded.Add(s.Bonded, e.Amount)
		}
		s.CurrentCounterparty = e.ToAddr

	case domain.KindRebond:
		if s.FirstBondTS == 0 {
			s.FirstBondTS = e.Timestamp
		}
		if e.Amount != nil {
			s.Bonded.Add(s.Bonded, e.Amount)
		}
		s.CurrentCounterparty = e.ToAddr

	case domain.KindUnbond:
		if s.FirstUnbondTS == 0 {
			s.FirstUnbondTS = e.Timestamp
		}
		if e.Amount != nil {
			s.Unbonded.Add(s.Unbonded, e.Amount)
		}
		if s.CurrentStake().Sign() == 0 {
			s.CurrentCounterparty = ""
		}

	case domain.KindWithdraw, domain.KindExitRedeem:
		if s.FirstExitTS == 0 {
			s.FirstExitTS = e.Timestamp
		}
		if e.Amount != nil {
			s.Withdrawn.Add(s.Withdrawn, e.Amount)
		}

	case domain.KindClaim:
		if e.Amount != nil {
			s.Claimed.Add(s.Claimed, e.Amount)
		}
	}
}

func shardOf(addr string, shards int) int {
	h := fnv.New32a()
	h.Write([]byte(addr))
	return int(h.Sum32() % uint32(shards))
}

// Package flowtrace walks exit proceeds forward through the token transfer
// index and classifies where they went. Every classification is a lower
// bound: a trace proves what was observed, never what did not happen.
package flowtrace

import (
	"context"
	"fmt"
	"log"
	"math/big"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/idhash"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/observability"
)

// TransferSource is the windowed forward-transfer query the tracer walks.
// storage.TransferStore satisfies it.
type TransferSource interface {
	OutgoingInWindow(ctx context.Context, from string, afterTS, untilTS int64, minAmount *big.Int) ([]*domain.Event, error)
}

// ChainInfo answers the two on-chain questions classification needs.
// ethrpc.HTTPClient satisfies it.
type ChainInfo interface {
	HasCode(ctx context.Context, address string) (bool, error)
	TxCallSelector(ctx context.Context, hash string) (string, error)
}

// LabelSource is the frozen label snapshot. labels.Registry satisfies it.
type LabelSource interface {
	Lookup(addr string) domain.Label
	Version() string
}

// Options configures a Tracer.
type Options struct {
	Transfers TransferSource
	Chain     ChainInfo
	Labels    LabelSource
	Params    domain.RunParams

	// HorizonTS is the observed event horizon, the newest indexed transfer
	// timestamp. It decides hold versus not-yet-provable when no qualifying
	// first hop exists.
	HorizonTS int64

	Logger  *log.Logger
	Metrics *observability.Metrics
}

// Tracer classifies exits by multi-hop forward traversal.
type Tracer struct {
	transfers TransferSource
	chain     ChainInfo
	labels    LabelSource
	params    domain.RunParams
	horizonTS int64
	logger    *log.Logger
	metrics   *observability.Metrics
}

// New creates a Tracer. Transfers, Chain and Labels are required.
func New(opts Options) (*Tracer, error) {
	if opts.Transfers == nil {
		return nil, fmt.Errorf("flowtrace: transfer source is required")
	}
	if opts.Chain == nil {
		return nil, fmt.Errorf("flowtrace: chain info is required")
	}
	if opts.Labels == nil {
		return nil, fmt.Errorf("flowtrace: label source is required")
	}
	t := &Tracer{
		transfers: opts.Transfers,
		chain:     opts.Chain,
		labels:    opts.Labels,
		params:    opts.Params,
		horizonTS: opts.HorizonTS,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
	if t.logger == nil {
		t.logger = log.New(log.Writer(), "[flowtrace] ", log.LstdFlags)
	}
	return t, nil
}

// TraceExit walks one exit event forward up to the hop budget. The matched
// amount is min-carried hop to hop so it never exceeds what provably moved.
func (t *Tracer) TraceExit(ctx context.Context, exit *domain.Event) (*domain.FlowTrace, error) {
	if !exit.IsExit() {
		return nil, fmt.Errorf("event %s/%d is not an exit", exit.TxHash, exit.LogIndex)
	}

	trace := &domain.FlowTrace{
		TraceID: idhash.ComputeTraceID(
			exit.ChainID, exit.TxHash, exit.LogIndex,
			t.params.WindowDays, t.params.MaxHops, t.params.LabelSetVersion,
		),
		Exit:          exit.Key(),
		ExitAmount:    new(big.Int).Set(exit.Amount),
		ExitTS:        exit.Timestamp,
		Recipient:     exit.ToAddr,
		MatchedAmount: new(big.Int),
	}

	current := exit.ToAddr
	currentTS := exit.Timestamp
	carried := new(big.Int).Set(exit.Amount)
	window := t.params.WindowSeconds()
	// The qualifying floor is fixed against the exit amount for every hop.
	threshold := t.params.FirstHopThreshold(exit.Amount)
	role := domain.Role("")

	for hop := 0; hop < t.params.MaxHops; hop++ {
		if ctx.Err() != nil {
			trace.Truncated = true
			break
		}

		candidates, err := t.transfers.OutgoingInWindow(ctx, current, currentTS, currentTS+window, threshold)
		if err != nil {
			if ctx.Err() != nil {
				trace.Truncated = true
				break
			}
			return nil, fmt.Errorf("query transfers out of %s: %w", current, err)
		}
		next := firstFromOthers(candidates, current)
		if next == nil {
			break
		}

		matched := new(big.Int).Set(next.Amount)
		if matched.Cmp(carried) > 0 {
			matched.Set(carried)
		}

		hopRole, category, err := t.classify(ctx, next)
		if err != nil {
			if ctx.Err() != nil {
				trace.Truncated = true
				break
			}
			return nil, err
		}

		trace.Hops = append(trace.Hops, domain.Hop{
			Address:              next.ToAddr,
			Category:             category,
			Amount:               matched,
			ElapsedSincePrevious: next.Timestamp - currentTS,
			BlockNumber:          next.BlockNumber,
			TxHash:               next.TxHash,
			LogIndex:             next.LogIndex,
		})
		trace.MatchedAmount = new(big.Int).Set(matched)
		role = hopRole

		if role.Terminal() {
			break
		}

		current = next.ToAddr
		currentTS = next.Timestamp
		carried = matched
	}

	if len(trace.Hops) == 0 {
		// Matched amount stays zero. Absence of a first hop is only provable
		// once the whole window lies behind the observed horizon.
		if trace.ExitTS+window <= t.horizonTS {
			role = domain.RoleHoldNoFirstHop
		} else {
			role = domain.RoleNoFirstHopMeetingThreshold
		}
	}
	trace.Role = role

	if t.metrics != nil {
		t.metrics.TracesCompleted.WithLabelValues(string(trace.Role)).Inc()
		t.metrics.TraceHops.Observe(float64(len(trace.Hops)))
	}
	return trace, nil
}

// TraceAll traces every exit in order and returns the traces in exit order.
func (t *Tracer) TraceAll(ctx context.Context, exits []*domain.Event) ([]*domain.FlowTrace, error) {
	traces := make([]*domain.FlowTrace, 0, len(exits))
	for _, exit := range exits {
		trace, err := t.TraceExit(ctx, exit)
		if err != nil {
			return nil, err
		}
		traces = append(traces, trace)
	}
	return traces, nil
}

// firstFromOthers picks the earliest candidate that is not a self-transfer.
// Candidates arrive in total event order, so the first pick is deterministic.
func firstFromOthers(candidates []*domain.Event, current string) *domain.Event {
	for _, c := range candidates {
		if c.ToAddr == current {
			continue
		}
		return c
	}
	return nil
}

// classify maps a hop destination to its provisional role. The priority
// order is fixed: exchange label, bridge label, router label, router call
// selector, contract bytecode, plain account.
func (t *Tracer) classify(ctx context.Context, transfer *domain.Event) (domain.Role, domain.Category, error) {
	label := t.labels.Lookup(transfer.ToAddr)
	switch label.Category {
	case domain.CategoryExchange:
		return domain.RoleExchangeStrict, label.Category, nil
	case domain.CategoryBridge:
		return domain.RoleBridgeDeposit, label.Category, nil
	case domain.CategoryDexRouter:
		return domain.RoleDexRouterInteraction, label.Category, nil
	}

	selector, err := t.chain.TxCallSelector(ctx, transfer.TxHash)
	if err != nil {
		return "", "", fmt.Errorf("call selector of %s: %w", transfer.TxHash, err)
	}
	if IsRouterSelector(selector) {
		return domain.RoleDexRouterInteraction, label.Category, nil
	}

	hasCode, err := t.chain.HasCode(ctx, transfer.ToAddr)
	if err != nil {
		return "", "", fmt.Errorf("code check of %s: %w", transfer.ToAddr, err)
	}
	if hasCode {
		return domain.RoleUnknownContract, label.Category, nil
	}
	return domain.RoleUnknownEOA, label.Category, nil
}

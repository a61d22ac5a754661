// Package pipeline wires the analysis stages end to end: fold events into
// address states, build cohorts and retention, snapshot concentration,
// trace exits, correlate bridge legs and assemble the report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/aggregate"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/cohort"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/concentration"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/flowtrace"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/observability"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/reporting"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage"
)

// CohortWindow names one cohort entry window.
type CohortWindow struct {
	Name  string
	Start int64 // Unix seconds, inclusive
	End   int64 // Unix seconds, exclusive
}

// Options configures a pipeline run.
type Options struct {
	Events    storage.EventStore
	Transfers storage.TransferStore
	Traces    storage.TraceStore // optional; completed traces are persisted when set

	Chain  flowtrace.ChainInfo
	Labels flowtrace.LabelSource

	Params         domain.RunParams
	ExitDefinition domain.ExitDefinition
	Cohorts        []CohortWindow
	HorizonsDays   []int

	TopNs              []int
	NakamotoThresholds []int

	FoldShards int

	Logger  *log.Logger
	Metrics *observability.Metrics
}

// Pipeline executes the full analysis over stored events.
type Pipeline struct {
	opts Options
}

// New creates a Pipeline. Events, Transfers, Chain and Labels are required.
func New(opts Options) (*Pipeline, error) {
	if opts.Events == nil || opts.Transfers == nil {
		return nil, fmt.Errorf("pipeline: event and transfer stores are required")
	}
	if opts.Chain == nil || opts.Labels == nil {
		return nil, fmt.Errorf("pipeline: chain info and label source are required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[pipeline] ", log.LstdFlags)
	}
	if len(opts.HorizonsDays) == 0 {
		opts.HorizonsDays = []int{7, 30, 90}
	}
	if len(opts.TopNs) == 0 {
		opts.TopNs = []int{1, 5, 10, 50}
	}
	if len(opts.NakamotoThresholds) == 0 {
		opts.NakamotoThresholds = []int{33, 51}
	}
	return &Pipeline{opts: opts}, nil
}

// Run executes every stage and returns the assembled report. Each stage is
// a pure function of stored data, so re-running is always safe.
func (p *Pipeline) Run(ctx context.Context) (*reporting.Report, error) {
	events, err := p.opts.Events.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	p.opts.Logger.Printf("loaded %d events", len(events))

	states, err := aggregate.FoldParallel(ctx, events, p.opts.FoldShards)
	if err != nil {
		return nil, fmt.Errorf("fold events: %w", err)
	}

	horizon, err := p.opts.Transfers.LatestTimestamp(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("resolve transfer horizon: %w", err)
		}
		horizon = 0
	}
	asOf := horizon
	if eventHorizon, err := p.opts.Events.LatestTimestamp(ctx); err == nil && eventHorizon > asOf {
		asOf = eventHorizon
	}

	retention, err := p.buildRetention(states, asOf)
	if err != nil {
		return nil, err
	}

	exits, err := p.opts.Events.GetExits(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exits: %w", err)
	}
	traces, err := p.traceExits(ctx, exits, horizon)
	if err != nil {
		return nil, err
	}

	correlation, err := p.correlateBridges(ctx)
	if err != nil {
		return nil, err
	}

	report := reporting.Build(reporting.Input{
		Params:         p.opts.Params,
		ExitDefinition: p.opts.ExitDefinition,
		AsOfTS:         asOf,
		Exits:          exits,
		Traces:         traces,
		Retention:      retention,
		Concentration:  p.snapshotConcentration(events, states),
		Correlation:    correlation,
	})
	return report, nil
}

func (p *Pipeline) buildRetention(states map[string]*domain.AddressState, now int64) ([]reporting.CohortRetention, error) {
	var out []reporting.CohortRetention
	for _, w := range p.opts.Cohorts {
		c, err := cohort.Build(w.Name, states, w.Start, w.End)
		if err != nil {
			return nil, fmt.Errorf("build cohort %s: %w", w.Name, err)
		}
		points, err := cohort.Retention(c, states, p.opts.ExitDefinition, p.opts.HorizonsDays, now)
		if err != nil {
			return nil, fmt.Errorf("retention of cohort %s: %w", w.Name, err)
		}
		out = append(out, reporting.CohortRetention{Cohort: w.Name, Points: points})
	}
	return out, nil
}

func (p *Pipeline) traceExits(ctx context.Context, exits []*domain.Event, horizon int64) ([]*domain.FlowTrace, error) {
	tracer, err := flowtrace.New(flowtrace.Options{
		Transfers: p.opts.Transfers,
		Chain:     p.opts.Chain,
		Labels:    p.opts.Labels,
		Params:    p.opts.Params,
		HorizonTS: horizon,
		Logger:    p.opts.Logger,
		Metrics:   p.opts.Metrics,
	})
	if err != nil {
		return nil, err
	}

	traces, err := tracer.TraceAll(ctx, exits)
	if err != nil {
		return nil, fmt.Errorf("trace exits: %w", err)
	}

	if p.opts.Traces != nil {
		for _, t := range traces {
			if err := p.opts.Traces.Insert(ctx, t); err != nil {
				if errors.Is(err, storage.ErrDuplicateKey) {
					continue
				}
				return nil, fmt.Errorf("persist trace %s: %w", t.TraceID, err)
			}
		}
	}
	return traces, nil
}

func (p *Pipeline) correlateBridges(ctx context.Context) (*flowtrace.CorrelationResult, error) {
	outs, err := p.opts.Events.GetByKind(ctx, domain.KindBridgeOut)
	if err != nil {
		return nil, fmt.Errorf("load bridge burns: %w", err)
	}
	receipts, err := p.opts.Events.GetByKind(ctx, domain.KindBridgeReceipt)
	if err != nil {
		return nil, fmt.Errorf("load bridge receipts: %w", err)
	}
	if len(outs) == 0 && len(receipts) == 0 {
		return nil, nil
	}
	return flowtrace.CorrelateBridgeLegs(outs, receipts, p.opts.Params.BridgeWindow, p.opts.Params.BridgeAmountTolerance), nil
}

// snapshotConcentration computes concentration over the current stake of
// every address, pinned to the highest block seen in the event set.
func (p *Pipeline) snapshotConcentration(events []*domain.Event, states map[string]*domain.AddressState) *domain.ConcentrationSnapshot {
	var block int64
	for _, e := range events {
		if e.BlockNumber > block {
			block = e.BlockNumber
		}
	}
	balances := make(map[string]*big.Int, len(states))
	for addr, s := range states {
		balances[addr] = s.CurrentStake()
	}
	return concentration.Compute(block, balances, p.opts.TopNs, p.opts.NakamotoThresholds)
}

// Package reporting assembles the outputs of a run into one report. Every
// metric carries its numerator, denominator and the selection parameters it
// was computed under; a number without those is not reportable.
package reporting

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/flowtrace"
)

// Selection echoes the parameters a report was computed under. Two reports
// with different selections are not comparable and must say so.
type Selection struct {
	ChainID               int64
	WindowDays            int
	MaxHops               int
	MinFirstHopTokenAbs   string
	MinFirstHopFraction   float64
	BridgeWindowSeconds   int64
	BridgeAmountTolerance float64
	ExitDefinition        string
	LabelSetSize          int
	LabelSetVersion       string
}

// Metric is one reported ratio. Numerator and denominator are decimal
// strings so token amounts survive without precision loss.
type Metric struct {
	Name        string
	Description string
	Numerator   string
	Denominator string
	Value       float64
}

// RoleStat summarizes the traces that ended in one role.
type RoleStat struct {
	Role          domain.Role
	Count         int
	MatchedAmount string
}

// CohortRetention is one cohort's retention curve.
type CohortRetention struct {
	Cohort string
	Points []domain.RetentionPoint
}

// Report is the full output of one analysis run.
type Report struct {
	GeneratedAt time.Time
	AsOfTS      int64
	Selection   Selection

	Metrics       []Metric
	RoleBreakdown []RoleStat
	Retention     []CohortRetention
	Concentration *domain.ConcentrationSnapshot

	// Coverage caveats. A report that hides these overstates its evidence.
	ScanGaps          []domain.ScanGap
	TruncatedTraces   int
	UnmatchedOuts     int
	UnmatchedReceipts int
	Warnings          []string
}

// Input bundles everything a report is built from.
type Input struct {
	Params         domain.RunParams
	ExitDefinition domain.ExitDefinition
	AsOfTS         int64

	Exits         []*domain.Event
	Traces        []*domain.FlowTrace
	Retention     []CohortRetention
	Concentration *domain.ConcentrationSnapshot
	Correlation   *flowtrace.CorrelationResult
	ScanGaps      []domain.ScanGap
	Warnings      []string
}

// Build derives the report from run outputs. Pure; safe to rebuild any time
// from persisted traces and events.
func Build(in Input) *Report {
	r := &Report{
		GeneratedAt: time.Now().UTC(),
		AsOfTS:      in.AsOfTS,
		Selection: Selection{
			ChainID:               in.Params.ChainID,
			WindowDays:            in.Params.WindowDays,
			MaxHops:               in.Params.MaxHops,
			MinFirstHopTokenAbs:   bigString(in.Params.MinFirstHopTokenAbs),
			MinFirstHopFraction:   in.Params.MinFirstHopFraction,
			BridgeWindowSeconds:   in.Params.BridgeWindow,
			BridgeAmountTolerance: in.Params.BridgeAmountTolerance,
			ExitDefinition:        string(in.ExitDefinition),
			LabelSetSize:          in.Params.LabelSetSize,
			LabelSetVersion:       in.Params.LabelSetVersion,
		},
		Concentration: in.Concentration,
		Retention:     in.Retention,
		ScanGaps:      in.ScanGaps,
		Warnings:      in.Warnings,
	}

	totalExitAmount := new(big.Int)
	for _, e := range in.Exits {
		if e.Amount != nil {
			totalExitAmount.Add(totalExitAmount, e.Amount)
		}
	}

	byRole := make(map[domain.Role]*RoleStat)
	matchedByRole := make(map[domain.Role]*big.Int)
	for _, t := range in.Traces {
		stat, ok := byRole[t.Role]
		if !ok {
			stat = &RoleStat{Role: t.Role}
			byRole[t.Role] = stat
			matchedByRole[t.Role] = new(big.Int)
		}
		stat.Count++
		if t.MatchedAmount != nil {
			matchedByRole[t.Role].Add(matchedByRole[t.Role], t.MatchedAmount)
		}
		if t.Truncated {
			r.TruncatedTraces++
		}
	}

	roles := make([]domain.Role, 0, len(byRole))
	for role := range byRole {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	for _, role := range roles {
		stat := byRole[role]
		stat.MatchedAmount = matchedByRole[role].String()
		r.RoleBreakdown = append(r.RoleBreakdown, *stat)
	}

	r.Metrics = append(r.Metrics, countMetric(
		"exits_traced",
		"Exit events with a completed trace.",
		len(in.Traces), len(in.Exits),
	))
	for _, role := range roles {
		desc := fmt.Sprintf("Traces classified %s out of all completed traces.", role)
		if role == domain.RoleDexRouterInteraction {
			// Router-call observation only. Not proof of a completed trade,
			// so it is never folded into exchange-bound flows.
			desc = "Traces where a router call was observed, out of all completed traces. Signal: router_call_observed."
		}
		r.Metrics = append(r.Metrics, countMetric(
			fmt.Sprintf("traces_%s", role),
			desc,
			byRole[role].Count, len(in.Traces),
		))
	}
	exchangeMatched := matchedByRole[domain.RoleExchangeStrict]
	if exchangeMatched == nil {
		exchangeMatched = new(big.Int)
	}
	r.Metrics = append(r.Metrics, amountMetric(
		"exchange_bound_amount_share",
		"Matched amount that provably reached exchange-labeled addresses, over total exited amount. A lower bound.",
		exchangeMatched, totalExitAmount,
	))

	if in.Correlation != nil {
		matches := len(in.Correlation.Matches)
		outs := matches + len(in.Correlation.UnmatchedOuts)
		r.Metrics = append(r.Metrics, countMetric(
			"bridge_legs_matched",
			"Source-chain bridge burns matched to a destination receipt.",
			matches, outs,
		))
		r.UnmatchedOuts = len(in.Correlation.UnmatchedOuts)
		r.UnmatchedReceipts = len(in.Correlation.UnmatchedReceipts)
	}

	return r
}

func countMetric(name, description string, num, den int) Metric {
	m := Metric{
		Name:        name,
		Description: description,
		Numerator:   fmt.Sprintf("%d", num),
		Denominator: fmt.Sprintf("%d", den),
	}
	if den > 0 {
		m.Value = float64(num) / float64(den)
	}
	return m
}

func amountMetric(name, description string, num, den *big.Int) Metric {
	m := Metric{
		Name:        name,
		Description: description,
		Numerator:   bigString(num),
		Denominator: bigString(den),
	}
	if den != nil && den.Sign() > 0 {
		v, _ := new(big.Float).Quo(
			new(big.Float).SetInt(num),
			new(big.Float).SetInt(den),
		).Float64()
		m.Value = v
	}
	return m
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

package reporting

import (
	"math/big"
	"strings"
	"testing"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/flowtrace"
)

func sampleInput() Input {
	exit1 := &domain.Event{Kind: domain.KindWithdraw, ChainID: 1, TxHash: "0xa", Timestamp: 1000, Amount: big.NewInt(1000)}
	exit2 := &domain.Event{Kind: domain.KindWithdraw, ChainID: 1, TxHash: "0xb", Timestamp: 2000, Amount: big.NewInt(3000)}

	return Input{
		Params: domain.RunParams{
			ChainID:             42161,
			WindowDays:          30,
			MaxHops:             4,
			MinFirstHopTokenAbs: big.NewInt(10),
			MinFirstHopFraction: 0.5,
			LabelSetSize:        120,
			LabelSetVersion:     "abc123",
		},
		ExitDefinition: domain.ExitByFirstUnbond,
		AsOfTS:         5000,
		Exits:          []*domain.Event{exit1, exit2},
		Traces: []*domain.FlowTrace{
			{TraceID: "t1", Exit: exit1.Key(), ExitAmount: big.NewInt(1000), Role: domain.RoleExchangeStrict, MatchedAmount: big.NewInt(600)},
			{TraceID: "t2", Exit: exit2.Key(), ExitAmount: big.NewInt(3000), Role: domain.RoleHoldNoFirstHop, MatchedAmount: big.NewInt(0), Truncated: true},
		},
		ScanGaps: []domain.ScanGap{
			{Range: domain.BlockRange{From: 10, To: 20}, Reason: "provider limit"},
		},
	}
}

func TestBuild_MetricsCarryNumeratorAndDenominator(t *testing.T) {
	r := Build(sampleInput())

	for _, m := range r.Metrics {
		if m.Numerator == "" || m.Denominator == "" {
			t.Errorf("metric %s missing numerator or denominator", m.Name)
		}
	}

	var found bool
	for _, m := range r.Metrics {
		if m.Name == "exchange_bound_amount_share" {
			found = true
			if m.Numerator != "600" {
				t.Errorf("numerator = %s, want 600", m.Numerator)
			}
			if m.Denominator != "4000" {
				t.Errorf("denominator = %s, want 4000", m.Denominator)
			}
			if m.Value != 0.15 {
				t.Errorf("value = %f, want 0.15", m.Value)
			}
		}
	}
	if !found {
		t.Error("exchange_bound_amount_share metric missing")
	}
}

func TestBuild_SelectionEchoed(t *testing.T) {
	r := Build(sampleInput())

	if r.Selection.WindowDays != 30 || r.Selection.MaxHops != 4 {
		t.Errorf("selection = %+v", r.Selection)
	}
	if r.Selection.LabelSetVersion != "abc123" || r.Selection.LabelSetSize != 120 {
		t.Errorf("label set metadata = %s/%d", r.Selection.LabelSetVersion, r.Selection.LabelSetSize)
	}
	if r.Selection.ExitDefinition != "first_unbond" {
		t.Errorf("exit definition = %s", r.Selection.ExitDefinition)
	}
	if r.AsOfTS != 5000 {
		t.Errorf("AsOfTS = %d, want 5000", r.AsOfTS)
	}
}

func TestBuild_CaveatsSurfaced(t *testing.T) {
	in := sampleInput()
	in.Correlation = &flowtrace.CorrelationResult{
		UnmatchedOuts:     []domain.EventKey{{ChainID: 1, TxHash: "0xout"}},
		UnmatchedReceipts: []domain.EventKey{{ChainID: 2, TxHash: "0xrcpt"}},
	}
	r := Build(in)

	if r.TruncatedTraces != 1 {
		t.Errorf("TruncatedTraces = %d, want 1", r.TruncatedTraces)
	}
	if len(r.ScanGaps) != 1 {
		t.Errorf("ScanGaps = %d, want 1", len(r.ScanGaps))
	}
	if r.UnmatchedOuts != 1 || r.UnmatchedReceipts != 1 {
		t.Errorf("unmatched legs = %d/%d, want 1/1", r.UnmatchedOuts, r.UnmatchedReceipts)
	}
}

func TestRenderMarkdown_ContainsSelectionAndCaveats(t *testing.T) {
	md := RenderMarkdown(Build(sampleInput()))

	for _, want := range []string{
		"## Selection",
		"| Trace window (days) | 30 |",
		"abc123",
		"## Coverage Caveats",
		"provider limit",
		"exchange_strict",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMetricsCSV_RowPerMetric(t *testing.T) {
	r := Build(sampleInput())
	csv := RenderMetricsCSV(r)

	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != len(r.Metrics)+1 {
		t.Fatalf("csv lines = %d, want header plus %d metrics", len(lines), len(r.Metrics))
	}
	if !strings.HasPrefix(lines[0], "metric,numerator,denominator,value") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	for _, line := range lines[1:] {
		if !strings.Contains(line, "abc123") {
			t.Errorf("row missing selection columns: %s", line)
		}
	}
}

func TestRenderRetentionCSV(t *testing.T) {
	in := sampleInput()
	in.Retention = []CohortRetention{
		{Cohort: "2025-q1", Points: []domain.RetentionPoint{
			{HorizonDays: 30, Eligible: 10, Exited: 4, PctExited: 0.4},
		}},
	}
	csv := RenderRetentionCSV(Build(in))

	if !strings.Contains(csv, "2025-q1,30,10,4,0.400000") {
		t.Errorf("retention row missing:\n%s", csv)
	}
}

package pipeline

import (
	"context"
	"math/big"
	"testing"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage/memory"
)

const (
	delegator = "0x1111111111111111111111111111111111111111"
	delegate  = "0x2222222222222222222222222222222222222222"
	exchange  = "0x3333333333333333333333333333333333333333"
)

type stubChain struct{}

func (stubChain) HasCode(_ context.Context, _ string) (bool, error) { return false, nil }

func (stubChain) TxCallSelector(_ context.Context, _ string) (string, error) { return "", nil }

type stubLabels struct{}

func (stubLabels) Lookup(addr string) domain.Label {
	if addr == exchange {
		return domain.Label{Address: addr, Category: domain.CategoryExchange, Confidence: domain.ConfidenceHigh, Source: "curated"}
	}
	return domain.UnknownLabel(addr)
}

func (stubLabels) Version() string { return "stub-v1" }

func seedStores(t *testing.T) (*memory.EventStore, *memory.TransferStore, *memory.TraceStore) {
	t.Helper()
	ctx := context.Background()

	events := memory.NewEventStore()
	lifecycle := []*domain.Event{
		{Kind: domain.KindBond, ChainID: 1, BlockNumber: 10, TxHash: "0xbond", Timestamp: 1000, FromAddr: delegator, ToAddr: delegate, Amount: big.NewInt(1000)},
		{Kind: domain.KindUnbond, ChainID: 1, BlockNumber: 20, TxHash: "0xunbond", Timestamp: 2000, FromAddr: delegator, ToAddr: delegate, Amount: big.NewInt(1000)},
		{Kind: domain.KindWithdraw, ChainID: 1, BlockNumber: 30, TxHash: "0xwithdraw", Timestamp: 3000, FromAddr: "0xmanager", ToAddr: delegator, Amount: big.NewInt(1000)},
	}
	if err := events.InsertBulk(ctx, lifecycle); err != nil {
		t.Fatalf("seed events: %v", err)
	}

	transfers := memory.NewTransferStore()
	if err := transfers.InsertBulk(ctx, []*domain.Event{
		{Kind: domain.KindTransfer, ChainID: 1, BlockNumber: 31, TxHash: "0xhop", Timestamp: 3600, FromAddr: delegator, ToAddr: exchange, Amount: big.NewInt(800)},
		// Horizon marker far past every trace window.
		{Kind: domain.KindTransfer, ChainID: 1, BlockNumber: 999, TxHash: "0xlater", Timestamp: 10_000_000, FromAddr: "0xother", ToAddr: "0xsink", Amount: big.NewInt(1)},
	}); err != nil {
		t.Fatalf("seed transfers: %v", err)
	}

	return events, transfers, memory.NewTraceStore()
}

func newTestPipeline(t *testing.T) (*Pipeline, *memory.TraceStore) {
	t.Helper()
	events, transfers, traces := seedStores(t)

	p, err := New(Options{
		Events:    events,
		Transfers: transfers,
		Traces:    traces,
		Chain:     stubChain{},
		Labels:    stubLabels{},
		Params: domain.RunParams{
			ChainID:             1,
			WindowDays:          1,
			MaxHops:             3,
			MinFirstHopTokenAbs: big.NewInt(0),
			MinFirstHopFraction: 0.5,
			LabelSetSize:        1,
			LabelSetVersion:     "stub-v1",
		},
		ExitDefinition: domain.ExitByFirstUnbond,
		Cohorts:        []CohortWindow{{Name: "early", Start: 0, End: 5000}},
		HorizonsDays:   []int{1},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p, traces
}

func TestRun_EndToEnd(t *testing.T) {
	p, traceStore := newTestPipeline(t)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The single exit traced to the exchange.
	if len(report.RoleBreakdown) != 1 {
		t.Fatalf("RoleBreakdown = %d entries, want 1", len(report.RoleBreakdown))
	}
	stat := report.RoleBreakdown[0]
	if stat.Role != domain.RoleExchangeStrict || stat.Count != 1 {
		t.Errorf("role stat = %+v", stat)
	}
	if stat.MatchedAmount != "800" {
		t.Errorf("MatchedAmount = %s, want 800", stat.MatchedAmount)
	}

	// Traces were persisted.
	stored, err := traceStore.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("persisted traces = %d, want 1", len(stored))
	}

	// The cohort saw its one member exit.
	if len(report.Retention) != 1 || len(report.Retention[0].Points) != 1 {
		t.Fatalf("retention shape unexpected: %+v", report.Retention)
	}
	point := report.Retention[0].Points[0]
	if point.Eligible != 1 || point.Exited != 1 {
		t.Errorf("retention point = %+v, want 1 eligible, 1 exited", point)
	}

	// Selection metadata echoed.
	if report.Selection.LabelSetVersion != "stub-v1" || report.Selection.WindowDays != 1 {
		t.Errorf("selection = %+v", report.Selection)
	}
	if report.AsOfTS != 10_000_000 {
		t.Errorf("AsOfTS = %d, want the transfer horizon", report.AsOfTS)
	}
}

func TestRun_Rerunnable(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	first, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	// Second run hits duplicate trace IDs in the store and must not fail.
	second, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if len(first.Metrics) != len(second.Metrics) {
		t.Errorf("metric count diverged across runs: %d vs %d", len(first.Metrics), len(second.Metrics))
	}
	for i := range first.Metrics {
		if first.Metrics[i].Value != second.Metrics[i].Value {
			t.Errorf("metric %s diverged: %f vs %f",
				first.Metrics[i].Name, first.Metrics[i].Value, second.Metrics[i].Value)
		}
	}
}

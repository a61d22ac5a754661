// Package main provides the single-exit trace entry point, for inspecting
// one exit's forward flow in detail.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/ethrpc"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/flowtrace"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/labels"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage/clickhouse"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage/migrations"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage/postgres"
)

func main() {
	rpcURL := flag.String("rpc", "", "HTTP JSON-RPC endpoint (required)")
	postgresDSN := flag.String("postgres", "", "Postgres DSN holding scanned events (required)")
	clickhouseDSN := flag.String("clickhouse", "", "ClickHouse DSN holding the transfer index (required)")
	labelFile := flag.String("labels", "", "Label registry file (required)")
	txHash := flag.String("tx", "", "Exit transaction hash (required)")
	logIndex := flag.Int("log-index", 0, "Exit log index")
	chainID := flag.Int64("chain-id", 42161, "Chain ID")
	windowDays := flag.Int("window-days", 30, "Trace window in days")
	maxHops := flag.Int("max-hops", 4, "Hop budget")
	minFirstHop := flag.String("min-first-hop", "0", "Absolute qualifying transfer amount in wei")
	minFirstHopFraction := flag.Float64("min-first-hop-fraction", 0.5, "Qualifying transfer amount as a fraction of the exit")
	asJSON := flag.Bool("json", false, "Emit the trace as JSON")
	flag.Parse()

	logger := log.New(os.Stderr, "[trace] ", log.LstdFlags)

	if *rpcURL == "" || *postgresDSN == "" || *clickhouseDSN == "" || *labelFile == "" || *txHash == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()

	registry, err := labels.LoadFile(*labelFile)
	if err != nil {
		logger.Fatalf("load labels: %v", err)
	}

	pool, err := postgres.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("connect clickhouse: %v", err)
	}
	defer conn.Close()

	eventStore := postgres.NewEventStore(pool)
	transferStore := clickhouse.NewTransferStore(conn)

	exit, err := findExit(ctx, eventStore, *chainID, *txHash, *logIndex)
	if err != nil {
		logger.Fatalf("find exit: %v", err)
	}

	minAbs, ok := new(big.Int).SetString(*minFirstHop, 10)
	if !ok {
		logger.Fatalf("invalid -min-first-hop %q", *minFirstHop)
	}

	horizon, err := transferStore.LatestTimestamp(ctx)
	if err != nil {
		horizon = 0
	}

	tracer, err := flowtrace.New(flowtrace.Options{
		Transfers: transferStore,
		Chain:     ethrpc.NewHTTPClient(*rpcURL),
		Labels:    registry,
		Params: domain.RunParams{
			ChainID:             *chainID,
			WindowDays:          *windowDays,
			MaxHops:             *maxHops,
			MinFirstHopTokenAbs: minAbs,
			MinFirstHopFraction: *minFirstHopFraction,
			LabelSetSize:        registry.Size(),
			LabelSetVersion:     registry.Version(),
		},
		HorizonTS: horizon,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatalf("create tracer: %v", err)
	}

	trace, err := tracer.TraceExit(ctx, exit)
	if err != nil {
		logger.Fatalf("trace exit: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(trace); err != nil {
			logger.Fatalf("encode trace: %v", err)
		}
		return
	}

	fmt.Printf("Trace %s\n", trace.TraceID)
	fmt.Printf("  Exit:      %s/%d at %d\n", trace.Exit.TxHash, trace.Exit.LogIndex, trace.ExitTS)
	fmt.Printf("  Recipient: %s\n", trace.Recipient)
	fmt.Printf("  Amount:    %s (matched %s)\n", trace.ExitAmount, trace.MatchedAmount)
	fmt.Printf("  Role:      %s\n", trace.Role)
	for i, h := range trace.Hops {
		fmt.Printf("  Hop %d: %s (%s) amount=%s +%ds tx=%s\n",
			i+1, h.Address, h.Category, h.Amount, h.ElapsedSincePrevious, h.TxHash)
	}
	if trace.Truncated {
		fmt.Println("  (truncated)")
	}
}

func findExit(ctx context.Context, events storage.EventStore, chainID int64, txHash string, logIndex int) (*domain.Event, error) {
	exits, err := events.GetExits(ctx)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(txHash)
	for _, e := range exits {
		if e.ChainID == chainID && e.TxHash == want && e.LogIndex == logIndex {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no exit event %s/%d on chain %d", txHash, logIndex, chainID)
}

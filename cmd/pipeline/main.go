// Package main provides the analysis pipeline entry point.
// Executes: fold → cohorts → concentration → flow tracing → reporting.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/ethrpc"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/labels"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/pipeline"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/reporting"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage/clickhouse"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage/migrations"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/storage/postgres"
)

func main() {
	rpcURL := flag.String("rpc", "", "HTTP JSON-RPC endpoint (required)")
	chainID := flag.Int64("chain-id", 42161, "Chain ID")
	postgresDSN := flag.String("postgres", "", "Postgres DSN holding scanned events (required)")
	clickhouseDSN := flag.String("clickhouse", "", "ClickHouse DSN holding the transfer index (required)")
	labelFile := flag.String("labels", "", "Label registry file, .csv or .json (required)")
	windowDays := flag.Int("window-days", 30, "Trace window in days, reset at each hop")
	maxHops := flag.Int("max-hops", 4, "Hop budget per trace")
	minFirstHop := flag.String("min-first-hop", "0", "Absolute qualifying transfer amount in wei")
	minFirstHopFraction := flag.Float64("min-first-hop-fraction", 0.5, "Qualifying transfer amount as a fraction of the exit")
	bridgeWindow := flag.Int64("bridge-window", 7*24*3600, "Bridge correlation window in seconds")
	bridgeTolerance := flag.Float64("bridge-tolerance", 0.01, "Relative bridge fee tolerance")
	exitDef := flag.String("exit-definition", string(domain.ExitByFirstUnbond), "Cohort exit definition: first_unbond or first_withdraw")
	cohortStart := flag.String("cohort-start", "", "Cohort entry window start, RFC3339 (optional)")
	cohortEnd := flag.String("cohort-end", "", "Cohort entry window end, RFC3339 (optional)")
	outputDir := flag.String("output-dir", "reports", "Output directory for rendered reports")
	flag.Parse()

	logger := log.New(os.Stderr, "[pipeline] ", log.LstdFlags)

	if *rpcURL == "" || *postgresDSN == "" || *clickhouseDSN == "" || *labelFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, cancelling run", sig)
		cancel()
	}()

	registry, err := labels.LoadFile(*labelFile)
	if err != nil {
		logger.Fatalf("load labels: %v", err)
	}
	logger.Printf("label registry: %d addresses, version %s", registry.Size(), registry.Version())

	pool, err := postgres.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("postgres migrations: %v", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("clickhouse migrations: %v", err)
	}
	defer conn.Close()

	minAbs, ok := new(big.Int).SetString(*minFirstHop, 10)
	if !ok {
		logger.Fatalf("invalid -min-first-hop %q", *minFirstHop)
	}

	params := domain.RunParams{
		ChainID:               *chainID,
		WindowDays:            *windowDays,
		MaxHops:               *maxHops,
		MinFirstHopTokenAbs:   minAbs,
		MinFirstHopFraction:   *minFirstHopFraction,
		BridgeWindow:          *bridgeWindow,
		BridgeAmountTolerance: *bridgeTolerance,
		LabelSetSize:          registry.Size(),
		LabelSetVersion:       registry.Version(),
	}

	cohorts, err := parseCohorts(*cohortStart, *cohortEnd)
	if err != nil {
		logger.Fatalf("parse cohort window: %v", err)
	}

	p, err := pipeline.New(pipeline.Options{
		Events:         postgres.NewEventStore(pool),
		Transfers:      clickhouse.NewTransferStore(conn),
		Traces:         postgres.NewTraceStore(pool),
		Chain:          ethrpc.NewHTTPClient(*rpcURL),
		Labels:         registry,
		Params:         params,
		ExitDefinition: domain.ExitDefinition(*exitDef),
		Cohorts:        cohorts,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatalf("create pipeline: %v", err)
	}

	report, err := p.Run(ctx)
	if err != nil {
		logger.Fatalf("run pipeline: %v", err)
	}

	if err := writeReports(*outputDir, report); err != nil {
		logger.Fatalf("write reports: %v", err)
	}

	fmt.Printf("Report written to %s\n", *outputDir)
	fmt.Printf("  Metrics: %d | Traces roles: %d | Cohorts: %d\n",
		len(report.Metrics), len(report.RoleBreakdown), len(report.Retention))
}

func parseCohorts(start, end string) ([]pipeline.CohortWindow, error) {
	if start == "" || end == "" {
		return nil, nil
	}
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return nil, fmt.Errorf("cohort start: %w", err)
	}
	e, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return nil, fmt.Errorf("cohort end: %w", err)
	}
	name := fmt.Sprintf("%s_to_%s", s.Format("2006-01-02"), e.Format("2006-01-02"))
	return []pipeline.CohortWindow{{Name: name, Start: s.Unix(), End: e.Unix()}}, nil
}

func writeReports(dir string, report *reporting.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	files := map[string]string{
		"report.md":     reporting.RenderMarkdown(report),
		"metrics.csv":   reporting.RenderMetricsCSV(report),
		"retention.csv": reporting.RenderRetentionCSV(report),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

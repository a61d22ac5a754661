package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Delegation Flow Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Data as of: %s\n\n", time.Unix(r.AsOfTS, 0).UTC().Format(time.RFC3339)))

	sb.WriteString("## Selection\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Chain ID | %d |\n", r.Selection.ChainID))
	sb.WriteString(fmt.Sprintf("| Trace window (days) | %d |\n", r.Selection.WindowDays))
	sb.WriteString(fmt.Sprintf("| Max hops | %d |\n", r.Selection.MaxHops))
	sb.WriteString(fmt.Sprintf("| Min first-hop amount (abs) | %s |\n", r.Selection.MinFirstHopTokenAbs))
	sb.WriteString(fmt.Sprintf("| Min first-hop fraction | %.4f |\n", r.Selection.MinFirstHopFraction))
	sb.WriteString(fmt.Sprintf("| Bridge window (s) | %d |\n", r.Selection.BridgeWindowSeconds))
	sb.WriteString(fmt.Sprintf("| Bridge amount tolerance | %.4f |\n", r.Selection.BridgeAmountTolerance))
	sb.WriteString(fmt.Sprintf("| Exit definition | %s |\n", r.Selection.ExitDefinition))
	sb.WriteString(fmt.Sprintf("| Label set | %d addresses, version %s |\n", r.Selection.LabelSetSize, r.Selection.LabelSetVersion))
	sb.WriteString("\n")

	sb.WriteString("## Metrics\n\n")
	if len(r.Metrics) > 0 {
		sb.WriteString("| Metric | Numerator | Denominator | Value |\n")
		sb.WriteString("|--------|-----------|-------------|-------|\n")
		for _, m := range r.Metrics {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.4f |\n",
				m.Name, m.Numerator, m.Denominator, m.Value))
		}
	} else {
		sb.WriteString("No metrics available.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Trace Outcomes\n\n")
	if len(r.RoleBreakdown) > 0 {
		sb.WriteString("| Role | Traces | Matched Amount |\n")
		sb.WriteString("|------|--------|----------------|\n")
		for _, s := range r.RoleBreakdown {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n", s.Role, s.Count, s.MatchedAmount))
		}
	} else {
		sb.WriteString("No traces available.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Retention\n\n")
	if len(r.Retention) > 0 {
		sb.WriteString("| Cohort | Horizon (days) | Eligible | Exited | Pct Exited |\n")
		sb.WriteString("|--------|----------------|----------|--------|------------|\n")
		for _, c := range r.Retention {
			for _, p := range c.Points {
				sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.4f |\n",
					c.Cohort, p.HorizonDays, p.Eligible, p.Exited, p.PctExited))
			}
		}
	} else {
		sb.WriteString("No cohorts available.\n")
	}
	sb.WriteString("\n")

	if r.Concentration != nil {
		sb.WriteString("## Concentration\n\n")
		sb.WriteString(fmt.Sprintf("Snapshot block %d, %d holders, Gini %.4f\n\n",
			r.Concentration.Block, r.Concentration.HolderCount, r.Concentration.Gini))

		topNs := sortedKeys(r.Concentration.TopNShare)
		if len(topNs) > 0 {
			sb.WriteString("| Top N | Share |\n|-------|-------|\n")
			for _, n := range topNs {
				sb.WriteString(fmt.Sprintf("| %d | %.4f |\n", n, r.Concentration.TopNShare[n]))
			}
			sb.WriteString("\n")
		}
		thresholds := sortedKeys(r.Concentration.Nakamoto)
		if len(thresholds) > 0 {
			sb.WriteString("| Threshold %% | Nakamoto |\n|-------------|----------|\n")
			for _, pct := range thresholds {
				sb.WriteString(fmt.Sprintf("| %d | %d |\n", pct, r.Concentration.Nakamoto[pct]))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("## Coverage Caveats\n\n")
	sb.WriteString(fmt.Sprintf("- Truncated traces: %d\n", r.TruncatedTraces))
	sb.WriteString(fmt.Sprintf("- Unmatched bridge burns: %d\n", r.UnmatchedOuts))
	sb.WriteString(fmt.Sprintf("- Unmatched bridge receipts: %d\n", r.UnmatchedReceipts))
	if len(r.ScanGaps) > 0 {
		sb.WriteString("\n### Scan Gaps\n\n")
		sb.WriteString("| From Block | To Block | Reason |\n")
		sb.WriteString("|------------|----------|--------|\n")
		for _, g := range r.ScanGaps {
			sb.WriteString(fmt.Sprintf("| %d | %d | %s |\n", g.Range.From, g.Range.To, g.Reason))
		}
	} else {
		sb.WriteString("- Scan gaps: none\n")
	}
	sb.WriteString("\n")

	if len(r.Warnings) > 0 {
		sb.WriteString("### Warnings\n\n")
		for _, w := range r.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

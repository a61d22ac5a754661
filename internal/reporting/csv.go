package reporting

import (
	"fmt"
	"strings"
)

// RenderMetricsCSV renders the metric rows as a CSV string. Selection
// columns repeat on every row so each line stands alone.
func RenderMetricsCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("metric,numerator,denominator,value,")
	sb.WriteString("chain_id,window_days,max_hops,exit_definition,label_set_version\n")

	for _, m := range r.Metrics {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%.6f,%d,%d,%d,%s,%s\n",
			m.Name,
			m.Numerator,
			m.Denominator,
			m.Value,
			r.Selection.ChainID,
			r.Selection.WindowDays,
			r.Selection.MaxHops,
			r.Selection.ExitDefinition,
			r.Selection.LabelSetVersion,
		))
	}

	return sb.String()
}

// RenderRetentionCSV renders the retention curves as a CSV string.
func RenderRetentionCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("cohort,horizon_days,eligible,exited,pct_exited\n")
	for _, c := range r.Retention {
		for _, p := range c.Points {
			sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%.6f\n",
				c.Cohort, p.HorizonDays, p.Eligible, p.Exited, p.PctExited))
		}
	}

	return sb.String()
}

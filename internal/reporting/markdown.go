package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Trade Matching Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Runs: %d | Periods: %d\n\n", r.RunCount, r.PeriodCount))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Offers | %d |\n", r.Summary.TotalOffers))
	sb.WriteString(fmt.Sprintf("| Loops Found | %d |\n", r.Summary.LoopsFound))
	sb.WriteString(fmt.Sprintf("| 2-way Loops | %d |\n", r.Summary.TwoWayFound))
	sb.WriteString(fmt.Sprintf("| 3-way Loops | %d |\n", r.Summary.ThreeWayFound))
	sb.WriteString(fmt.Sprintf("| Executed | %d |\n", r.Summary.Executed))
	sb.WriteString(fmt.Sprintf("| Declined | %d |\n", r.Summary.Declined))
	sb.WriteString(fmt.Sprintf("| Execution Rate | %.4f |\n", r.Summary.ExecutionRate))
	sb.WriteString(fmt.Sprintf("| Total Watch Value | %.2f |\n", r.Summary.TotalWatchValue))
	sb.WriteString(fmt.Sprintf("| Total Cash Flow | %.2f |\n", r.Summary.TotalCashFlow))
	sb.WriteString(fmt.Sprintf("| Mean Value Efficiency | %.4f |\n", r.Summary.EfficiencyMean))
	sb.WriteString(fmt.Sprintf("| Mean Fairness | %.4f |\n", r.Summary.FairnessMean))
	sb.WriteString("\n")

	// Periods
	sb.WriteString("## Periods\n\n")
	if len(r.Periods) > 0 {
		sb.WriteString("| Run | Period | Offers | Loops | 2-way | 3-way | Executed | Declined | ExecRate | MatchedPct | Efficiency | Fairness |\n")
		sb.WriteString("|-----|--------|--------|-------|-------|-------|----------|----------|----------|------------|------------|----------|\n")
		for _, p := range r.Periods {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %d | %d | %d | %.4f | %.4f | %.4f | %.4f |\n",
				p.RunID, p.Period, p.TotalOffers, p.LoopsFound, p.TwoWayFound, p.ThreeWayFound,
				p.Executed, p.Declined, p.ExecutionRate, p.UsersMatchedPct, p.EfficiencyMean, p.FairnessMean))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No aggregated runs found.\n\n")
	}

	// Top loops
	sb.WriteString("## Top Loops\n\n")
	if len(r.TopLoops) > 0 {
		sb.WriteString("| Loop | Run | Type | Users | Value | Cash Flow | Efficiency | Fairness |\n")
		sb.WriteString("|------|-----|------|-------|-------|-----------|------------|----------|\n")
		for _, l := range r.TopLoops {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.2f | %.2f | %.4f | %.4f |\n",
				l.LoopID, l.RunID, l.LoopType, strings.Join(l.Users, ", "),
				l.TotalWatchValue, l.TotalCashFlow, l.ValueEfficiency, l.FairnessScore))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No loops discovered.\n\n")
	}

	return sb.String()
}

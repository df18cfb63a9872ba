package reporting

import (
	"fmt"
	"strings"
)

// RenderLoopsCSV renders loop rows as CSV string.
func RenderLoopsCSV(loops []LoopRow) string {
	var sb strings.Builder

	sb.WriteString("loop_id,run_id,loop_type,users,watches,")
	sb.WriteString("total_watch_value,total_cash_flow,value_efficiency,fairness_score\n")

	for _, l := range loops {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%.2f,%.2f,%.6f,%.6f\n",
			l.LoopID,
			l.RunID,
			l.LoopType,
			strings.Join(l.Users, ";"),
			strings.Join(l.Watches, ";"),
			l.TotalWatchValue,
			l.TotalCashFlow,
			l.ValueEfficiency,
			l.FairnessScore,
		))
	}

	return sb.String()
}

// RenderOutcomesCSV renders simulated decision rows as CSV string.
func RenderOutcomesCSV(outcomes []OutcomeRow) string {
	var sb strings.Builder

	sb.WriteString("outcome_id,loop_id,run_id,period,status,accept_weight,users,")
	sb.WriteString("loop_type,value_efficiency,fairness_score\n")

	for _, o := range outcomes {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%s,%.4f,%s,%s,%.6f,%.6f\n",
			o.OutcomeID,
			o.LoopID,
			o.RunID,
			o.Period,
			o.Status,
			o.AcceptWeight,
			strings.Join(o.Users, ";"),
			o.LoopType,
			o.ValueEfficiency,
			o.FairnessScore,
		))
	}

	return sb.String()
}

// RenderPeriodsCSV renders per-period rows as CSV string.
func RenderPeriodsCSV(periods []PeriodRow) string {
	var sb strings.Builder

	sb.WriteString("run_id,period,total_offers,loops_found,two_way_found,three_way_found,")
	sb.WriteString("executed,declined,execution_rate,users_matched_pct,efficiency_mean,fairness_mean\n")

	for _, p := range periods {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%d,%d,%d,%d,%.6f,%.6f,%.6f,%.6f\n",
			p.RunID,
			p.Period,
			p.TotalOffers,
			p.LoopsFound,
			p.TwoWayFound,
			p.ThreeWayFound,
			p.Executed,
			p.Declined,
			p.ExecutionRate,
			p.UsersMatchedPct,
			p.EfficiencyMean,
			p.FairnessMean,
		))
	}

	return sb.String()
}

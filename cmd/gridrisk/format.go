package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/couchcryptid/grid-risk-dashboard/internal/domain"
	"github.com/couchcryptid/grid-risk-dashboard/internal/export"
)

func printAssessments(w io.Writer, assessments []domain.Assessment, counts map[domain.RiskLevel]int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tAGE (Y)\tDAYS SINCE MAINT.\tCUSTOMERS\tSCORE\tLEVEL")
	for _, a := range assessments {
		score := fmt.Sprintf("%.3f", a.RiskScore)
		if a.ScoreDefaulted {
			score += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.0f\t%d\t%s\t%s\n",
			a.ID, a.Name, a.AgeYears, a.DaysSinceMaintenance, a.CustomersServed, score, a.RiskLevel)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nLow %d  Medium %d  High %d  Critical %d\n",
		counts[domain.RiskLow], counts[domain.RiskMedium], counts[domain.RiskHigh], counts[domain.RiskCritical])
	for _, a := range assessments {
		if a.ScoreDefaulted {
			fmt.Fprintln(w, "* score defaulted; record could not be evaluated")
			break
		}
	}
	return nil
}

func printCost(w io.Writer, age float64, customers int, cost domain.CostBreakdown, outage float64) {
	fmt.Fprintf(w, "Cost estimate (age %.1f years, %d customers)\n", age, customers)
	fmt.Fprintln(w, "-------------------------------------------")
	fmt.Fprintf(w, "  Preventative maintenance:  $%s\n", export.Money(cost.PreventativeCost))
	fmt.Fprintf(w, "  Repair after failure:      $%s\n", export.Money(cost.RepairCost))
	fmt.Fprintf(w, "  Savings:                   $%s\n", export.Money(cost.Savings))
	fmt.Fprintf(w, "  Customer outage (4h):      $%s\n", export.Money(outage))
}

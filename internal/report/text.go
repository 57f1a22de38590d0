package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/planspectre/internal/analyzer"
	"github.com/ppiankov/planspectre/internal/estimate"
)

// Generate writes the resource table, cost breakdown and security findings.
func (r *TextReporter) Generate(data Data) error {
	a := data.Analysis
	if a == nil {
		return fmt.Errorf("text report: no analysis")
	}

	fmt.Fprintf(r.Writer, "%s %s: Terraform plan analysis\n", data.Tool, data.Version)
	if data.Target.Path != "" {
		fmt.Fprintf(r.Writer, "Plan: %s\n", data.Target.Path)
	}
	fmt.Fprintf(r.Writer, "Region: %s\n", a.Region)
	if ch := a.ResourceChanges; ch.Changed() > 0 || ch.NoOp > 0 {
		fmt.Fprintf(r.Writer, "Changes: %d to add, %d to change, %d to replace, %d to destroy\n",
			ch.Create, ch.Update, ch.Replace, ch.Delete)
	}
	fmt.Fprintln(r.Writer)

	if a.NoResources {
		fmt.Fprintln(r.Writer, "No AWS resources found in plan.")
		fmt.Fprintln(r.Writer)
	}
	fmt.Fprint(r.Writer, a.ResourcesSummary.SummaryText)
	fmt.Fprintln(r.Writer)

	if err := writeCosts(r.Writer, a); err != nil {
		return err
	}
	fmt.Fprintln(r.Writer)
	return writeSecurity(r.Writer, a)
}

func writeCosts(out io.Writer, a *analyzer.AnalysisReport) error {
	ca := a.CostAnalysis
	fmt.Fprintln(out, "Estimated cost")

	services := make([]string, 0, len(ca.CostByService))
	for s := range ca.CostByService {
		services = append(services, s)
	}
	sort.Slice(services, func(i, j int) bool {
		ci, cj := ca.CostByService[services[i]], ca.CostByService[services[j]]
		if !ci.Equal(cj) {
			return ci.GreaterThan(cj)
		}
		return services[i] < services[j]
	})

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if len(ca.CostByResource) > 0 {
		fmt.Fprintln(w, "  RESOURCE\tSERVICE\tSOURCE\tMONTHLY")
		for _, c := range ca.CostByResource {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", c.ResourceAddress, c.Service, sourceLabel(c.PricingSource), usd(c.MonthlyCost))
		}
		fmt.Fprintln(w, "\t\t\t")
	}
	for _, s := range services {
		fmt.Fprintf(w, "  %s\t\t\t%s\n", s, usd(ca.CostByService[s]))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write cost table: %w", err)
	}

	fmt.Fprintf(out, "\nTotal monthly: %s\n", usd(ca.TotalMonthlyCost))
	fmt.Fprintf(out, "Total annual:  %s\n", usd(ca.TotalAnnualCost))
	return nil
}

func writeSecurity(out io.Writer, a *analyzer.AnalysisReport) error {
	sa := a.SecurityAnalysis
	fmt.Fprintf(out, "Security (score %d/100)\n", sa.SecurityScore)
	if sa.TotalIssues == 0 {
		fmt.Fprintln(out, "  No security issues found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, f := range sa.Issues {
		fmt.Fprintf(w, "  [%s]\t%s\t%s\t%s\n", strings.ToUpper(string(f.Severity)), f.RuleID, f.Resource, f.Issue)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write findings table: %w", err)
	}

	fmt.Fprintf(out, "\nSummary: %d issue(s)", sa.TotalIssues)
	for _, sev := range []string{"critical", "high", "medium", "low"} {
		if n := sa.BySeverity[sev]; n > 0 {
			fmt.Fprintf(out, ", %d %s", n, sev)
		}
	}
	fmt.Fprintln(out)
	return nil
}

func usd(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func sourceLabel(s estimate.PricingSource) string {
	if s == "" {
		return "-"
	}
	return string(s)
}

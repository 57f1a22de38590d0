package analyzer

import (
	"github.com/ppiankov/planspectre/internal/classify"
	"github.com/ppiankov/planspectre/internal/cost"
	"github.com/ppiankov/planspectre/internal/plan"
	"github.com/ppiankov/planspectre/internal/security"
	"github.com/ppiankov/planspectre/internal/summary"
)

const (
	maxScore        = 100
	penaltyPerIssue = 10
)

// Assemble composes stage outputs into a report. It performs no analysis
// of its own: costs are joined to resources by address.
func Assemble(resources []plan.Resource, costs cost.Report, findings []security.Finding, sum summary.ResourceSummary, region string) *AnalysisReport {
	byAddress := costs.ByAddress()

	details := make([]ResourceDetail, 0, len(resources))
	for _, r := range resources {
		d := ResourceDetail{
			ResourceID: r.Address,
			Type:       r.Type,
			Name:       r.Name,
			Service:    classify.Service(r.Type),
			Values:     r.Values,
		}
		if c, ok := byAddress[r.Address]; ok {
			d.EstimatedMonthlyCost = c.MonthlyCost.Round(2).InexactFloat64()
			d.PricingSource = c.PricingSource
		}
		details = append(details, d)
	}

	issues := findings
	if issues == nil {
		issues = []security.Finding{}
	}
	bySeverity := make(map[string]int)
	for _, f := range issues {
		bySeverity[string(f.Severity)]++
	}

	return &AnalysisReport{
		ResourcesSummary: sum,
		CostAnalysis:     costs,
		SecurityAnalysis: SecurityAnalysis{
			TotalIssues:   len(issues),
			Issues:        issues,
			SecurityScore: Score(len(issues)),
			BySeverity:    bySeverity,
		},
		TerraformResourcesDetail: details,
		ReadyForOptimization:     true,
		NoResources:              len(resources) == 0,
		Region:                   region,
	}
}

// Score is 100 minus 10 per issue, floored at 0.
func Score(issues int) int {
	score := maxScore - penaltyPerIssue*issues
	if score < 0 {
		return 0
	}
	return score
}

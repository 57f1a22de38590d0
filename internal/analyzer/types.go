package analyzer

import (
	"github.com/ppiankov/planspectre/internal/cost"
	"github.com/ppiankov/planspectre/internal/estimate"
	"github.com/ppiankov/planspectre/internal/plan"
	"github.com/ppiankov/planspectre/internal/security"
	"github.com/ppiankov/planspectre/internal/summary"
)

// SecurityAnalysis holds findings and the derived score.
type SecurityAnalysis struct {
	TotalIssues   int                `json:"total_issues"`
	Issues        []security.Finding `json:"issues"`
	SecurityScore int                `json:"security_score"`
	BySeverity    map[string]int     `json:"by_severity"`
}

// ResourceDetail pairs a resource's full configuration with its estimate.
type ResourceDetail struct {
	ResourceID           string                 `json:"resource_id"`
	Type                 string                 `json:"type"`
	Name                 string                 `json:"name"`
	Service              string                 `json:"service"`
	Values               plan.Values            `json:"values"`
	EstimatedMonthlyCost float64                `json:"estimated_monthly_cost"`
	PricingSource        estimate.PricingSource `json:"pricing_source,omitempty"`
}

// AnalysisReport is the complete result of one analysis run.
type AnalysisReport struct {
	ResourcesSummary         summary.ResourceSummary `json:"resources_summary"`
	CostAnalysis             cost.Report             `json:"cost_analysis"`
	SecurityAnalysis         SecurityAnalysis        `json:"security_analysis"`
	TerraformResourcesDetail []ResourceDetail        `json:"terraform_resources_detail"`
	ResourceChanges          plan.ChangeSummary      `json:"resource_changes"`
	ReadyForOptimization     bool                    `json:"ready_for_optimization"`
	NoResources              bool                    `json:"no_resources"`
	Region                   string                  `json:"region"`
	TerraformVersion         string                  `json:"terraform_version,omitempty"`
}

package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/planspectre/internal/analyzer"
)

const (
	spectreSchema    = "spectre/v1"
	spectreHubSchema = "spectrehub/v1"
)

// spectreEnvelope flattens the analysis keys next to the run metadata.
type spectreEnvelope struct {
	Schema    string       `json:"$schema"`
	Tool      string       `json:"tool"`
	Version   string       `json:"version"`
	RunID     string       `json:"run_id"`
	Timestamp time.Time    `json:"timestamp"`
	Target    Target       `json:"target"`
	Config    ReportConfig `json:"config"`
	*analyzer.AnalysisReport
}

// Generate writes the full analysis as indented JSON.
func (r *JSONReporter) Generate(data Data) error {
	env := spectreEnvelope{
		Schema:         spectreSchema,
		Tool:           data.Tool,
		Version:        data.Version,
		RunID:          data.RunID,
		Timestamp:      data.Timestamp,
		Target:         data.Target,
		Config:         data.Config,
		AnalysisReport: data.Analysis,
	}

	enc := json.NewEncoder(r.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("encode JSON report: %w", err)
	}
	return nil
}

type hubFinding struct {
	RuleID       string `json:"rule_id"`
	Severity     string `json:"severity"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Message      string `json:"message"`
}

type hubSummary struct {
	TotalResources   int     `json:"total_resources"`
	TotalFindings    int     `json:"total_findings"`
	TotalMonthlyCost float64 `json:"total_monthly_cost"`
	SecurityScore    int     `json:"security_score"`
}

type hubEnvelope struct {
	Schema    string       `json:"$schema"`
	Tool      string       `json:"tool"`
	Version   string       `json:"version"`
	RunID     string       `json:"run_id"`
	Timestamp time.Time    `json:"timestamp"`
	Target    Target       `json:"target"`
	Findings  []hubFinding `json:"findings"`
	Summary   hubSummary   `json:"summary"`
}

// Generate writes findings and headline numbers only.
func (r *SpectreHubReporter) Generate(data Data) error {
	a := data.Analysis
	if a == nil {
		return fmt.Errorf("spectrehub report: no analysis")
	}

	findings := make([]hubFinding, 0, len(a.SecurityAnalysis.Issues))
	for _, f := range a.SecurityAnalysis.Issues {
		findings = append(findings, hubFinding{
			RuleID:       f.RuleID,
			Severity:     string(f.Severity),
			ResourceType: f.ResourceType,
			ResourceID:   f.Resource,
			Message:      f.Issue,
		})
	}

	env := hubEnvelope{
		Schema:    spectreHubSchema,
		Tool:      data.Tool,
		Version:   data.Version,
		RunID:     data.RunID,
		Timestamp: data.Timestamp,
		Target:    data.Target,
		Findings:  findings,
		Summary: hubSummary{
			TotalResources:   a.ResourcesSummary.TotalResources,
			TotalFindings:    a.SecurityAnalysis.TotalIssues,
			TotalMonthlyCost: a.CostAnalysis.TotalMonthlyCost.InexactFloat64(),
			SecurityScore:    a.SecurityAnalysis.SecurityScore,
		},
	}

	enc := json.NewEncoder(r.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("encode spectrehub report: %w", err)
	}
	return nil
}

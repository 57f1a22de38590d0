package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/ppiankov/planspectre/internal/security"
)

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json"

// sarifReport is the top-level SARIF v2.1.0 structure.
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string            `json:"id"`
	ShortDescription sarifMessage      `json:"shortDescription"`
	DefaultConfig    sarifDefaultLevel `json:"defaultConfiguration"`
}

type sarifDefaultLevel struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string         `json:"ruleId"`
	Level     string         `json:"level"`
	Message   sarifMessage   `json:"message"`
	Locations []sarifLoc     `json:"locations,omitempty"`
	Props     map[string]any `json:"properties,omitempty"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhysical     `json:"physicalLocation"`
	LogicalLocations []sarifLogicalLoc `json:"logicalLocations,omitempty"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifLogicalLoc struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Generate writes SARIF v2.1.0 output. Each finding becomes a result
// located at the plan file, with the resource address as logical location.
func (r *SARIFReporter) Generate(data Data) error {
	var findings []security.Finding
	if data.Analysis != nil {
		findings = data.Analysis.SecurityAnalysis.Issues
	}

	results := make([]sarifResult, 0, len(findings))
	for _, f := range findings {
		results = append(results, sarifResult{
			RuleID:  f.RuleID,
			Level:   sarifLevel(f.Severity),
			Message: sarifMessage{Text: f.Issue},
			Locations: []sarifLoc{
				{
					PhysicalLocation: sarifPhysical{
						ArtifactLocation: sarifArtifact{URI: planURI(data.Target.Path)},
					},
					LogicalLocations: []sarifLogicalLoc{
						{Name: f.Resource, Kind: "resource"},
					},
				},
			},
			Props: map[string]any{
				"resourceType":   f.ResourceType,
				"severity":       string(f.Severity),
				"recommendation": f.Recommendation,
			},
		})
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: "2.1.0",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    data.Tool,
						Version: data.Version,
						Rules:   buildSARIFRules(security.DefaultRegistry()),
					},
				},
				Results: results,
			},
		},
	}

	enc := json.NewEncoder(r.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode SARIF report: %w", err)
	}
	return nil
}

func planURI(path string) string {
	if path == "" {
		return "plan.json"
	}
	return filepath.ToSlash(path)
}

func sarifLevel(s security.Severity) string {
	switch s {
	case security.SeverityCritical, security.SeverityHigh:
		return "error"
	case security.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

// ruleLevels is the default level of each built-in rule, by the highest
// severity it can emit.
var ruleLevels = map[string]security.Severity{
	"S3_PUBLIC_ACCESS_BLOCK_DISABLED": security.SeverityHigh,
	"S3_PUBLIC_ACL":                   security.SeverityHigh,
	"SG_OPEN_INGRESS":                 security.SeverityHigh,
	"RDS_PUBLICLY_ACCESSIBLE":         security.SeverityHigh,
	"RDS_UNENCRYPTED":                 security.SeverityMedium,
	"EBS_UNENCRYPTED":                 security.SeverityMedium,
}

func buildSARIFRules(reg *security.Registry) []sarifRule {
	rules := make([]sarifRule, 0, len(reg.All()))
	for _, rule := range reg.All() {
		sev, ok := ruleLevels[rule.ID()]
		if !ok {
			sev = security.SeverityMedium
		}
		rules = append(rules, sarifRule{
			ID:               rule.ID(),
			ShortDescription: sarifMessage{Text: rule.Name()},
			DefaultConfig:    sarifDefaultLevel{Level: sarifLevel(sev)},
		})
	}
	return rules
}

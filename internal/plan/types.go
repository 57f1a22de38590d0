package plan

import (
	"fmt"

	tfjson "github.com/hashicorp/terraform-json"
)

// Mode distinguishes managed resources from data sources.
type Mode string

const (
	ModeManaged Mode = "managed"
	ModeData    Mode = "data"
)

// Document is a parsed `terraform show -json` plan. The sections are the
// terraform-json types; the envelope itself is decoded leniently because
// tfjson.Plan rejects documents without a supported format_version.
type Document struct {
	FormatVersion    string                   `json:"format_version"`
	TerraformVersion string                   `json:"terraform_version"`
	PlannedValues    *tfjson.StateValues      `json:"planned_values"`
	ResourceChanges  []*tfjson.ResourceChange `json:"resource_changes,omitempty"`
	Configuration    *tfjson.Config           `json:"configuration,omitempty"`
}

// Region returns the constant region of the default aws provider, or "".
// Alias providers and computed regions are ignored.
func (d *Document) Region() string {
	if d == nil || d.Configuration == nil {
		return ""
	}
	for _, pc := range d.Configuration.ProviderConfigs {
		if pc == nil || pc.Name != "aws" || pc.Alias != "" {
			continue
		}
		expr, ok := pc.Expressions["region"]
		if !ok || expr == nil || expr.ExpressionData == nil {
			continue
		}
		if region, ok := expr.ConstantValue.(string); ok {
			return region
		}
	}
	return ""
}

// Resource is one managed AWS resource extracted from a plan.
// It is never mutated after extraction.
type Resource struct {
	Address  string `json:"address"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Mode     Mode   `json:"mode"`
	Values   Values `json:"values"`
}

// MalformedPlanError reports a plan that cannot be analyzed: it is not
// valid JSON or lacks the planned_values.root_module path.
type MalformedPlanError struct {
	Reason string
	Err    error
}

func (e *MalformedPlanError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed plan: %s: %v", e.Reason, e.Err)
	}
	return "malformed plan: " + e.Reason
}

func (e *MalformedPlanError) Unwrap() error {
	return e.Err
}

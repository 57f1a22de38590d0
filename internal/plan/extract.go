package plan

import (
	"log/slog"
	"strings"

	tfjson "github.com/hashicorp/terraform-json"
)

const awsTypePrefix = "aws_"

// Extract returns the managed AWS resources of the root module in plan
// order. An empty result is valid; only a missing planned_values or
// root_module is an error.
func Extract(doc *Document) ([]Resource, error) {
	root, err := rootModule(doc)
	if err != nil {
		return nil, err
	}
	return collect(nil, root.Resources), nil
}

// ExtractAll is Extract plus the resources of every child module, visited
// depth-first after the parent's own resources.
func ExtractAll(doc *Document) ([]Resource, error) {
	root, err := rootModule(doc)
	if err != nil {
		return nil, err
	}
	return walk(nil, root), nil
}

func rootModule(doc *Document) (*tfjson.StateModule, error) {
	if doc == nil || doc.PlannedValues == nil {
		return nil, &MalformedPlanError{Reason: "missing planned_values"}
	}
	if doc.PlannedValues.RootModule == nil {
		return nil, &MalformedPlanError{Reason: "missing planned_values.root_module"}
	}
	return doc.PlannedValues.RootModule, nil
}

func walk(out []Resource, m *tfjson.StateModule) []Resource {
	out = collect(out, m.Resources)
	for _, child := range m.ChildModules {
		if child != nil {
			out = walk(out, child)
		}
	}
	return out
}

func collect(out []Resource, raw []*tfjson.StateResource) []Resource {
	for _, r := range raw {
		if r == nil {
			continue
		}
		if !isManagedAWS(r.Mode, r.Type) {
			slog.Debug("Skipping resource", "address", r.Address, "mode", r.Mode, "type", r.Type)
			continue
		}
		values := Values(r.AttributeValues)
		if values == nil {
			values = Values{}
		}
		out = append(out, Resource{
			Address:  r.Address,
			Type:     r.Type,
			Name:     r.Name,
			Provider: r.ProviderName,
			Mode:     ModeManaged,
			Values:   values,
		})
	}
	return out
}

func isManagedAWS(mode tfjson.ResourceMode, typ string) bool {
	return Mode(mode) == ModeManaged && strings.HasPrefix(typ, awsTypePrefix)
}

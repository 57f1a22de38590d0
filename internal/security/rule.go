// Package security flags risky configuration in planned AWS resources.
package security

import (
	"fmt"

	"github.com/ppiankov/planspectre/internal/plan"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Finding is one detected issue on one resource.
type Finding struct {
	Resource       string   `json:"resource"`
	ResourceType   string   `json:"resource_type"`
	RuleID         string   `json:"rule_id"`
	Issue          string   `json:"issue"`
	Severity       Severity `json:"severity"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// Rule inspects resources of the types it recognises. Rules are stateless
// and read only the resource they are given.
type Rule interface {
	// ID returns the stable rule identifier, e.g. "S3_PUBLIC_ACL".
	ID() string
	// Name returns a short human-readable description.
	Name() string
	// Types returns the resource types the rule applies to.
	Types() []string
	// Evaluate returns zero or more findings for r.
	Evaluate(r plan.Resource) []Finding
}

// Registry is an ordered rule set. Rules run in registration order.
type Registry struct {
	rules  []Rule
	ids    map[string]struct{}
	byType map[string][]Rule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ids:    make(map[string]struct{}),
		byType: make(map[string][]Rule),
	}
}

// Register adds rule. It panics if the ID is already registered.
func (r *Registry) Register(rule Rule) {
	if _, exists := r.ids[rule.ID()]; exists {
		panic(fmt.Sprintf("duplicate rule ID: %q", rule.ID()))
	}
	r.ids[rule.ID()] = struct{}{}
	r.rules = append(r.rules, rule)
	for _, t := range rule.Types() {
		r.byType[t] = append(r.byType[t], rule)
	}
}

// All returns the registered rules in registration order.
func (r *Registry) All() []Rule {
	return r.rules
}

// Scan runs every applicable rule against every resource. Findings follow
// resource order, then rule order; a resource may collect several.
func (r *Registry) Scan(resources []plan.Resource) []Finding {
	var findings []Finding
	for _, res := range resources {
		for _, rule := range r.byType[res.Type] {
			findings = append(findings, rule.Evaluate(res)...)
		}
	}
	return findings
}

// DefaultRegistry returns the built-in rule set.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(PublicAccessBlockRule{})
	r.Register(PublicACLRule{})
	r.Register(OpenIngressRule{})
	r.Register(RDSPublicRule{})
	r.Register(RDSUnencryptedRule{})
	r.Register(EBSUnencryptedRule{})
	return r
}

// Scan runs the built-in rule set.
func Scan(resources []plan.Resource) []Finding {
	return DefaultRegistry().Scan(resources)
}

func newFinding(rule Rule, r plan.Resource, sev Severity, issue, recommendation string) Finding {
	return Finding{
		Resource:       r.Address,
		ResourceType:   r.Type,
		RuleID:         rule.ID(),
		Issue:          issue,
		Severity:       sev,
		Recommendation: recommendation,
	}
}

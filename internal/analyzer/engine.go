package analyzer

import (
	"context"
	"log/slog"

	"github.com/ppiankov/planspectre/internal/cost"
	"github.com/ppiankov/planspectre/internal/estimate"
	"github.com/ppiankov/planspectre/internal/plan"
	"github.com/ppiankov/planspectre/internal/security"
	"github.com/ppiankov/planspectre/internal/summary"
)

// DefaultRegion is used when neither the caller nor the plan names one.
const DefaultRegion = "us-east-1"

// EngineConfig controls an analysis run.
type EngineConfig struct {
	// Region overrides the region from the plan's aws provider.
	Region string
	// IncludeChildModules analyzes resources of nested modules too.
	IncludeChildModules bool
	// SummaryNames is the per-row name limit of the summary table.
	SummaryNames int
}

// Engine runs the full pipeline over a plan document. It keeps no state
// between runs.
type Engine struct {
	estimator *estimate.Estimator
	rules     *security.Registry
	cfg       EngineConfig
}

// NewEngine creates an engine. A nil rules registry uses the built-in rules.
func NewEngine(est *estimate.Estimator, rules *security.Registry, cfg EngineConfig) *Engine {
	if rules == nil {
		rules = security.DefaultRegistry()
	}
	if cfg.SummaryNames <= 0 {
		cfg.SummaryNames = summary.DefaultNameLimit
	}
	return &Engine{estimator: est, rules: rules, cfg: cfg}
}

// Run analyzes doc. The only error is *plan.MalformedPlanError; pricing
// problems degrade to fallback estimates.
func (e *Engine) Run(ctx context.Context, doc *plan.Document) (*AnalysisReport, error) {
	extract := plan.Extract
	if e.cfg.IncludeChildModules {
		extract = plan.ExtractAll
	}
	resources, err := extract(doc)
	if err != nil {
		return nil, err
	}

	region := ResolveRegion(e.cfg.Region, doc)
	slog.Debug("Analyzing plan", "resources", len(resources), "region", region)

	costs := e.estimator.EstimateAll(ctx, resources, region)
	report := Assemble(
		resources,
		cost.Aggregate(costs, region),
		e.rules.Scan(resources),
		summary.RenderWithLimit(resources, e.cfg.SummaryNames),
		region,
	)
	report.TerraformVersion = doc.TerraformVersion
	report.ResourceChanges = plan.SummarizeChanges(doc, e.cfg.IncludeChildModules)
	return report, nil
}

// ResolveRegion picks override, then the plan's aws provider region, then
// DefaultRegion.
func ResolveRegion(override string, doc *plan.Document) string {
	if override != "" {
		return override
	}
	if r := doc.Region(); r != "" {
		return r
	}
	return DefaultRegion
}

package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/planspectre/internal/estimate"
	"github.com/ppiankov/planspectre/internal/plan"
	"github.com/ppiankov/planspectre/internal/pricing"
)

type stubLookup struct {
	rates map[string]string
}

func (s stubLookup) Lookup(_ context.Context, service, sku, region string) (pricing.Rate, error) {
	rate, ok := s.rates[service+"/"+sku]
	if !ok {
		return pricing.Rate{}, &pricing.LookupError{Kind: pricing.KindNotFound, Service: service, SKU: sku, Region: region}
	}
	return pricing.Rate{HourlyRate: decimal.RequireFromString(rate), Currency: pricing.CurrencyUSD}, nil
}

type failingLookup struct{}

func (failingLookup) Lookup(_ context.Context, service, sku, region string) (pricing.Rate, error) {
	return pricing.Rate{}, &pricing.LookupError{Kind: pricing.KindTransport, Service: service, SKU: sku, Region: region, Err: errors.New("unreachable")}
}

const scenarioA = `{
  "terraform_version": "1.7.5",
  "planned_values": {"root_module": {"resources": [
    {"address": "aws_s3_bucket.logs", "mode": "managed", "type": "aws_s3_bucket", "name": "logs",
     "provider_name": "registry.terraform.io/hashicorp/aws", "values": {"bucket": "logs", "force_destroy": false}},
    {"address": "aws_instance.web", "mode": "managed", "type": "aws_instance", "name": "web",
     "provider_name": "registry.terraform.io/hashicorp/aws", "values": {"instance_type": "t3.medium", "ami": "ami-0abc"}}
  ]}}
}`

func newTestEngine(lookup pricing.Lookup) *Engine {
	return NewEngine(estimate.New(lookup, estimate.Options{}), nil, EngineConfig{})
}

func mustLoad(t *testing.T, s string) *plan.Document {
	t.Helper()
	doc, err := plan.Load(strings.NewReader(s))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return doc
}

func TestRun_ScenarioA(t *testing.T) {
	engine := newTestEngine(stubLookup{rates: map[string]string{"EC2/t3.medium": "0.0416"}})

	report, err := engine.Run(context.Background(), mustLoad(t, scenarioA))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ca := report.CostAnalysis
	if !ca.TotalMonthlyCost.Equal(decimal.RequireFromString("30.37")) {
		t.Fatalf("expected total 30.37, got %s", ca.TotalMonthlyCost)
	}
	if len(ca.CostByService) != 2 || !ca.CostByService["S3"].IsZero() || !ca.CostByService["EC2"].Equal(decimal.RequireFromString("30.37")) {
		t.Fatalf("unexpected cost_by_service: %v", ca.CostByService)
	}
	if report.Region != "us-east-1" || report.TerraformVersion != "1.7.5" {
		t.Fatalf("unexpected region/version: %s/%s", report.Region, report.TerraformVersion)
	}
	if report.ResourcesSummary.TotalResources != 2 {
		t.Fatalf("expected 2 resources, got %d", report.ResourcesSummary.TotalResources)
	}
	if report.SecurityAnalysis.TotalIssues != 0 || report.SecurityAnalysis.SecurityScore != 100 {
		t.Fatalf("expected a clean security analysis, got %+v", report.SecurityAnalysis)
	}
}

func TestRun_ScenarioB(t *testing.T) {
	doc := mustLoad(t, `{"planned_values": {"root_module": {"resources": [
		{"address": "aws_s3_bucket_public_access_block.pab", "mode": "managed",
		 "type": "aws_s3_bucket_public_access_block", "name": "pab",
		 "values": {"block_public_acls": false, "block_public_policy": true,
		            "ignore_public_acls": true, "restrict_public_buckets": true}}
	]}}}`)

	report, err := newTestEngine(nil).Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	issues := report.SecurityAnalysis.Issues
	if len(issues) != 1 {
		t.Fatalf("expected exactly 1 finding, got %d", len(issues))
	}
	if issues[0].Severity == "low" {
		t.Fatal("expected severity above low")
	}
	if report.SecurityAnalysis.SecurityScore != 90 {
		t.Fatalf("expected score 90, got %d", report.SecurityAnalysis.SecurityScore)
	}
}

func TestRun_ScenarioC(t *testing.T) {
	report, err := newTestEngine(nil).Run(context.Background(),
		mustLoad(t, `{"terraform_version": "1.7.5", "planned_values": {"root_module": {"resources": []}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.ResourcesSummary.TotalResources != 0 {
		t.Fatalf("expected 0 resources, got %d", report.ResourcesSummary.TotalResources)
	}
	if !report.CostAnalysis.TotalMonthlyCost.IsZero() {
		t.Fatalf("expected zero cost, got %s", report.CostAnalysis.TotalMonthlyCost)
	}
	if report.SecurityAnalysis.TotalIssues != 0 {
		t.Fatal("expected no findings")
	}
	if !strings.Contains(report.ResourcesSummary.SummaryText, "Total: 0 resources across 0 types") {
		t.Fatalf("expected empty table, got %q", report.ResourcesSummary.SummaryText)
	}
	if !report.NoResources || !report.ReadyForOptimization {
		t.Fatal("expected no_resources and ready_for_optimization")
	}
}

func TestRun_ScenarioD(t *testing.T) {
	report, err := newTestEngine(nil).Run(context.Background(), mustLoad(t, `{"terraform_version": "1.7.5"}`))
	var mpe *plan.MalformedPlanError
	if !errors.As(err, &mpe) {
		t.Fatalf("expected MalformedPlanError, got %v", err)
	}
	if report != nil {
		t.Fatal("expected no partial report")
	}
}

func TestRun_Idempotent(t *testing.T) {
	engine := newTestEngine(stubLookup{rates: map[string]string{"EC2/t3.medium": "0.0416"}})
	doc := mustLoad(t, scenarioA)

	var outputs [2][]byte
	for i := range outputs {
		report, err := engine.Run(context.Background(), doc)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		data, err := json.Marshal(report)
		if err != nil {
			t.Fatalf("marshal %d: %v", i, err)
		}
		outputs[i] = data
	}
	if !bytes.Equal(outputs[0], outputs[1]) {
		t.Fatalf("expected byte-identical reports:\n%s\n%s", outputs[0], outputs[1])
	}
}

func TestRun_FallbackGuarantee(t *testing.T) {
	doc := mustLoad(t, `{"planned_values": {"root_module": {"resources": [
		{"address": "aws_instance.a", "mode": "managed", "type": "aws_instance", "name": "a", "values": {"instance_type": "t3.large"}},
		{"address": "aws_db_instance.b", "mode": "managed", "type": "aws_db_instance", "name": "b", "values": {"instance_class": "db.unknown"}},
		{"address": "aws_glue_job.c", "mode": "managed", "type": "aws_glue_job", "name": "c", "values": {}}
	]}}}`)

	report, err := newTestEngine(failingLookup{}).Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.CostAnalysis.CostByResource) != 3 {
		t.Fatalf("expected every resource in cost_by_resource, got %d", len(report.CostAnalysis.CostByResource))
	}
	for _, c := range report.CostAnalysis.CostByResource {
		if c.PricingSource == estimate.SourceLookup {
			t.Fatalf("%s: lookup cannot succeed", c.ResourceAddress)
		}
	}
}

func TestRun_JSONKeys(t *testing.T) {
	report, err := newTestEngine(nil).Run(context.Background(), mustLoad(t, scenarioA))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"resources_summary", "cost_analysis", "security_analysis", "terraform_resources_detail", "ready_for_optimization"} {
		if _, ok := top[key]; !ok {
			t.Fatalf("missing key %s in %s", key, data)
		}
	}
	if !strings.Contains(string(top["security_analysis"]), `"issues":[]`) {
		t.Fatalf("expected empty issues array, got %s", top["security_analysis"])
	}
}

func TestRun_RegionResolution(t *testing.T) {
	withProvider := `{"configuration": {"provider_config": {"aws": {"name": "aws",
		"expressions": {"region": {"constant_value": "eu-west-1"}}}}},
		"planned_values": {"root_module": {"resources": []}}}`

	report, err := newTestEngine(nil).Run(context.Background(), mustLoad(t, withProvider))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Region != "eu-west-1" {
		t.Fatalf("expected region from provider, got %s", report.Region)
	}

	override := NewEngine(estimate.New(nil, estimate.Options{}), nil, EngineConfig{Region: "us-west-2"})
	report, err = override.Run(context.Background(), mustLoad(t, withProvider))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Region != "us-west-2" {
		t.Fatalf("expected configured region to win, got %s", report.Region)
	}
}

func TestRun_ChildModules(t *testing.T) {
	doc := mustLoad(t, `{"planned_values": {"root_module": {"resources": [],
		"child_modules": [{"address": "module.net", "resources": [
			{"address": "module.net.aws_nat_gateway.main", "mode": "managed", "type": "aws_nat_gateway", "name": "main", "values": {}}
		]}]}}}`)

	rootOnly, err := newTestEngine(nil).Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rootOnly.ResourcesSummary.TotalResources != 0 {
		t.Fatalf("expected root-only analysis to skip child modules")
	}

	all := NewEngine(estimate.New(nil, estimate.Options{}), nil, EngineConfig{IncludeChildModules: true})
	report, err := all.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.ResourcesSummary.TotalResources != 1 {
		t.Fatalf("expected 1 resource, got %d", report.ResourcesSummary.TotalResources)
	}
	if report.CostAnalysis.TotalMonthlyCost.IsZero() {
		t.Fatal("expected NAT gateway to carry a cost")
	}
}

func TestResolveRegion(t *testing.T) {
	withProvider := mustLoad(t, `{"configuration": {"provider_config": {"aws": {"name": "aws",
		"expressions": {"region": {"constant_value": "eu-west-1"}}}}}}`)

	tests := []struct {
		name     string
		override string
		doc      *plan.Document
		want     string
	}{
		{"override wins", "us-west-2", withProvider, "us-west-2"},
		{"provider region", "", withProvider, "eu-west-1"},
		{"default without provider", "", mustLoad(t, `{}`), DefaultRegion},
		{"nil document", "", nil, DefaultRegion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveRegion(tt.override, tt.doc); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRun_ResourceChanges(t *testing.T) {
	doc := mustLoad(t, `{"planned_values": {"root_module": {"resources": [
			{"address": "aws_instance.web", "mode": "managed", "type": "aws_instance", "name": "web", "values": {"instance_type": "t3.micro"}}
		]}},
		"resource_changes": [
			{"address": "aws_instance.web", "mode": "managed", "type": "aws_instance", "name": "web", "change": {"actions": ["create"]}},
			{"address": "aws_eip.old", "mode": "managed", "type": "aws_eip", "name": "old", "change": {"actions": ["delete"]}},
			{"address": "module.net.aws_nat_gateway.main", "module_address": "module.net", "mode": "managed",
			 "type": "aws_nat_gateway", "name": "main", "change": {"actions": ["create"]}}
		]}`)

	report, err := newTestEngine(nil).Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := plan.ChangeSummary{Create: 1, Delete: 1}
	if report.ResourceChanges != want {
		t.Fatalf("expected %+v, got %+v", want, report.ResourceChanges)
	}

	all := NewEngine(estimate.New(nil, estimate.Options{}), nil, EngineConfig{IncludeChildModules: true})
	report, err = all.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.ResourceChanges.Create != 2 {
		t.Fatalf("expected child module create to be counted, got %+v", report.ResourceChanges)
	}
}

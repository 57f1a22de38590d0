package estimate

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/planspectre/internal/plan"
	"github.com/ppiankov/planspectre/internal/pricing"
)

type fakeLookup struct {
	mu    sync.Mutex
	rates map[string]string
	err   error
	delay time.Duration
	calls map[string]int
}

func (f *fakeLookup) Lookup(ctx context.Context, service, sku, region string) (pricing.Rate, error) {
	key := service + "/" + sku
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[key]++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return pricing.Rate{}, &pricing.LookupError{Kind: pricing.KindTimeout, Service: service, SKU: sku, Region: region, Err: ctx.Err()}
		}
	}
	if f.err != nil {
		return pricing.Rate{}, f.err
	}
	rate, ok := f.rates[key]
	if !ok {
		return pricing.Rate{}, &pricing.LookupError{Kind: pricing.KindNotFound, Service: service, SKU: sku, Region: region}
	}
	return pricing.Rate{HourlyRate: decimal.RequireFromString(rate), Currency: pricing.CurrencyUSD}, nil
}

func (f *fakeLookup) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func res(typ, name string, values plan.Values) plan.Resource {
	if values == nil {
		values = plan.Values{}
	}
	return plan.Resource{Address: typ + "." + name, Type: typ, Name: name, Mode: plan.ModeManaged, Values: values}
}

func mustDec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEstimateAll_ScenarioA(t *testing.T) {
	lookup := &fakeLookup{rates: map[string]string{"EC2/t3.medium": "0.0416"}}
	e := New(lookup, Options{})

	costs := e.EstimateAll(context.Background(), []plan.Resource{
		res("aws_s3_bucket", "logs", plan.Values{"bucket": "logs"}),
		res("aws_instance", "web", plan.Values{"instance_type": "t3.medium", "ami": "ami-123"}),
	}, "us-east-1")

	if len(costs) != 2 {
		t.Fatalf("expected 2 costs, got %d", len(costs))
	}

	s3 := costs[0]
	if s3.Service != "S3" || !s3.MonthlyCost.IsZero() || s3.PricingSource != SourceFree {
		t.Fatalf("unexpected S3 cost: %+v", s3)
	}

	ec2 := costs[1]
	if ec2.Service != "EC2" || ec2.PricingSource != SourceLookup {
		t.Fatalf("unexpected EC2 cost: %+v", ec2)
	}
	if !ec2.MonthlyCost.Equal(mustDec("30.368")) {
		t.Fatalf("expected 30.368, got %s", ec2.MonthlyCost)
	}
	if _, ok := ec2.ConfigSnapshot["ami"]; ok {
		t.Fatal("snapshot must hold only cost-relevant keys")
	}
	if ec2.ConfigSnapshot["instance_type"] != "t3.medium" {
		t.Fatalf("expected instance_type in snapshot, got %v", ec2.ConfigSnapshot)
	}
}

func TestEstimateAll_LookupAlwaysFails(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("connection refused")}
	e := New(lookup, Options{})

	resources := []plan.Resource{
		res("aws_instance", "known", plan.Values{"instance_type": "t3.large"}),
		res("aws_instance", "unknown", plan.Values{"instance_type": "x99.mega"}),
		res("aws_db_instance", "db", plan.Values{"instance_class": "db.zz.huge"}),
		res("aws_instance", "computed", nil),
	}
	costs := e.EstimateAll(context.Background(), resources, "us-east-1")
	if len(costs) != len(resources) {
		t.Fatalf("expected %d costs, got %d", len(resources), len(costs))
	}

	tests := []struct {
		idx    int
		source PricingSource
		want   string
	}{
		{0, SourceFallback, "60.736"}, // 0.0832 * 730
		{1, SourceDefault, "73"},      // 0.10 * 730
		{2, SourceDefault, "73"},
		{3, SourceDefault, "73"},
	}
	for _, tt := range tests {
		c := costs[tt.idx]
		if c.PricingSource != tt.source {
			t.Fatalf("%s: expected source %s, got %s", c.ResourceAddress, tt.source, c.PricingSource)
		}
		if !c.MonthlyCost.Equal(mustDec(tt.want)) {
			t.Fatalf("%s: expected %s, got %s", c.ResourceAddress, tt.want, c.MonthlyCost)
		}
	}

	// x99.mega is not an EC2 instance type, so it never reaches the lookup.
	if lookup.calls["EC2/x99.mega"] != 0 {
		t.Fatal("expected unknown instance type to skip the lookup")
	}
}

func TestEstimateAll_NilLookupUsesTable(t *testing.T) {
	costs := New(nil, Options{}).EstimateAll(context.Background(), []plan.Resource{
		res("aws_instance", "web", plan.Values{"instance_type": "t3.medium"}),
	}, "us-east-1")

	if costs[0].PricingSource != SourceFallback || !costs[0].MonthlyCost.Equal(mustDec("30.368")) {
		t.Fatalf("unexpected cost: %+v", costs[0])
	}
}

func TestEstimateAll_DeduplicatesLookups(t *testing.T) {
	lookup := &fakeLookup{rates: map[string]string{"EC2/t3.micro": "0.0104", "RDS/db.t3.micro": "0.017"}}
	e := New(lookup, Options{Concurrency: 8})

	var resources []plan.Resource
	for _, name := range []string{"a", "b", "c", "d"} {
		resources = append(resources, res("aws_instance", name, plan.Values{"instance_type": "t3.micro"}))
	}
	resources = append(resources, res("aws_db_instance", "db", plan.Values{"instance_class": "db.t3.micro"}))

	e.EstimateAll(context.Background(), resources, "us-east-1")
	if lookup.totalCalls() != 2 {
		t.Fatalf("expected 2 lookups for 2 unique keys, got %d", lookup.totalCalls())
	}
}

func TestEstimateAll_SequentialMatchesParallel(t *testing.T) {
	resources := []plan.Resource{
		res("aws_instance", "a", plan.Values{"instance_type": "t3.micro"}),
		res("aws_instance", "b", plan.Values{"instance_type": "m5.large"}),
		res("aws_db_instance", "db", plan.Values{"instance_class": "db.t3.small", "multi_az": true}),
		res("aws_elasticache_cluster", "cache", plan.Values{"node_type": "cache.t3.micro", "num_cache_nodes": json.Number("2")}),
		res("aws_nat_gateway", "nat", nil),
		res("aws_lambda_function", "fn", plan.Values{"memory_size": json.Number("128")}),
	}
	rates := map[string]string{"EC2/t3.micro": "0.0104", "EC2/m5.large": "0.096", "RDS/db.t3.small": "0.034"}

	seq := New(&fakeLookup{rates: rates}, Options{Concurrency: 1}).EstimateAll(context.Background(), resources, "us-east-1")
	par := New(&fakeLookup{rates: rates}, Options{Concurrency: 16}).EstimateAll(context.Background(), resources, "us-east-1")

	a, _ := json.Marshal(seq)
	b, _ := json.Marshal(par)
	if string(a) != string(b) {
		t.Fatalf("sequential and parallel results differ:\n%s\n%s", a, b)
	}
}

func TestEstimate_Hourly(t *testing.T) {
	lookup := &fakeLookup{rates: map[string]string{
		"RDS/db.t3.medium":           "0.068",
		"ElastiCache/cache.t3.small": "0.034",
	}}
	e := New(lookup, Options{})
	ctx := context.Background()

	tests := []struct {
		name string
		r    plan.Resource
		want string
	}{
		{"rds single az", res("aws_db_instance", "a", plan.Values{"instance_class": "db.t3.medium"}), "49.64"},
		{"rds multi az doubles", res("aws_db_instance", "b", plan.Values{"instance_class": "db.t3.medium", "multi_az": true}), "99.28"},
		{"aurora instance", res("aws_rds_cluster_instance", "c", plan.Values{"instance_class": "db.t3.medium"}), "49.64"},
		{"elasticache nodes multiply", res("aws_elasticache_cluster", "d", plan.Values{"node_type": "cache.t3.small", "num_cache_nodes": json.Number("3")}), "74.46"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.Estimate(ctx, tt.r, "us-east-1")
			if !c.MonthlyCost.Equal(mustDec(tt.want)) {
				t.Fatalf("expected %s, got %s", tt.want, c.MonthlyCost)
			}
			if c.PricingSource != SourceLookup {
				t.Fatalf("expected lookup source, got %s", c.PricingSource)
			}
		})
	}
}

func TestEstimate_FixedAndUsage(t *testing.T) {
	e := New(nil, Options{UsageEstimates: map[string]decimal.Decimal{"aws_sqs_queue": mustDec("1.25")}})
	ctx := context.Background()

	tests := []struct {
		name   string
		r      plan.Resource
		want   string
		source PricingSource
	}{
		{"nat gateway", res("aws_nat_gateway", "nat", nil), "32.85", SourceFixed},
		{"application lb by default", res("aws_lb", "alb", nil), "16.43", SourceFixed},
		{"gateway lb", res("aws_lb", "gwlb", plan.Values{"load_balancer_type": "gateway"}), "9.13", SourceFixed},
		{"unknown lb type prices as alb", res("aws_lb", "x", plan.Values{"load_balancer_type": "quantum"}), "16.43", SourceFixed},
		{"classic elb", res("aws_elb", "old", nil), "18.25", SourceFixed},
		{"eip", res("aws_eip", "ip", nil), "3.65", SourceFixed},
		{"eks", res("aws_eks_cluster", "k", nil), "73", SourceFixed},
		{"gp3 volume", res("aws_ebs_volume", "v", plan.Values{"type": "gp3", "size": json.Number("100")}), "8", SourceFixed},
		{"unknown volume type prices as gp3", res("aws_ebs_volume", "w", plan.Values{"type": "weird", "size": json.Number("10")}), "0.8", SourceFixed},
		{"kinesis shards", res("aws_kinesis_stream", "s", plan.Values{"shard_count": json.Number("2")}), "21.9", SourceFixed},
		{"gateway endpoint is free", res("aws_vpc_endpoint", "s3", nil), "0", SourceFixed},
		{"interface endpoint", res("aws_vpc_endpoint", "ssm", plan.Values{"vpc_endpoint_type": "Interface"}), "7.3", SourceFixed},
		{"lambda approximation", res("aws_lambda_function", "fn", nil), "2", SourceUsage},
		{"usage override", res("aws_sqs_queue", "q", nil), "1.25", SourceUsage},
		{"dynamodb on demand", res("aws_dynamodb_table", "t", plan.Values{"billing_mode": "PAY_PER_REQUEST"}), "5", SourceUsage},
		{"dynamodb provisioned", res("aws_dynamodb_table", "p", plan.Values{"billing_mode": "PROVISIONED", "read_capacity": json.Number("10"), "write_capacity": json.Number("10")}), "5.694", SourceFixed},
		{"s3 bucket config is free", res("aws_s3_bucket_versioning", "v", nil), "0", SourceFree},
		{"iam is free", res("aws_iam_role", "r", nil), "0", SourceFree},
		{"vpc is free", res("aws_vpc", "main", nil), "0", SourceFree},
		{"unknown type is unpriced", res("aws_sagemaker_endpoint", "e", plan.Values{"instance_type": "ml.m5.large"}), "0", SourceUnpriced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.Estimate(ctx, tt.r, "us-east-1")
			if !c.MonthlyCost.Equal(mustDec(tt.want)) {
				t.Fatalf("expected %s, got %s", tt.want, c.MonthlyCost)
			}
			if c.PricingSource != tt.source {
				t.Fatalf("expected source %s, got %s", tt.source, c.PricingSource)
			}
			if c.ConfigSnapshot == nil {
				t.Fatal("snapshot must always be recorded")
			}
		})
	}
}

func TestEstimate_UnpricedKeepsSnapshot(t *testing.T) {
	c := New(nil, Options{}).Estimate(context.Background(),
		res("aws_sagemaker_endpoint", "e", plan.Values{"instance_type": "ml.m5.large", "tags": map[string]any{}}), "us-east-1")
	if c.ConfigSnapshot["instance_type"] != "ml.m5.large" {
		t.Fatalf("expected instance_type in snapshot, got %v", c.ConfigSnapshot)
	}
	if c.Service != "SAGEMAKER" {
		t.Fatalf("expected generic service label, got %s", c.Service)
	}
}

func TestEstimate_LookupTimeoutFallsBack(t *testing.T) {
	lookup := &fakeLookup{rates: map[string]string{"EC2/t3.medium": "1.00"}, delay: time.Second}
	e := New(lookup, Options{LookupTimeout: 10 * time.Millisecond})

	c := e.Estimate(context.Background(), res("aws_instance", "web", plan.Values{"instance_type": "t3.medium"}), "us-east-1")
	if c.PricingSource != SourceFallback {
		t.Fatalf("expected fallback after timeout, got %s", c.PricingSource)
	}
	if !c.MonthlyCost.Equal(mustDec("30.368")) {
		t.Fatalf("expected fallback price 30.368, got %s", c.MonthlyCost)
	}
}

func TestEstimate_HoursPerMonthOption(t *testing.T) {
	e := New(nil, Options{HoursPerMonth: 720, DefaultHourlyRate: mustDec("0.5")})
	c := e.Estimate(context.Background(), res("aws_instance", "web", plan.Values{"instance_type": "x99.mega"}), "us-east-1")
	if !c.MonthlyCost.Equal(mustDec("360")) {
		t.Fatalf("expected 360, got %s", c.MonthlyCost)
	}
}

func TestEstimate_RejectsForeignCurrency(t *testing.T) {
	e := New(currencyLookup{}, Options{})
	c := e.Estimate(context.Background(), res("aws_instance", "web", plan.Values{"instance_type": "t3.medium"}), "us-east-1")
	if c.PricingSource != SourceFallback {
		t.Fatalf("expected fallback for non-USD rate, got %s", c.PricingSource)
	}
}

type currencyLookup struct{}

func (currencyLookup) Lookup(context.Context, string, string, string) (pricing.Rate, error) {
	return pricing.Rate{HourlyRate: mustDec("0.04"), Currency: "EUR"}, nil
}

func TestResourceCost_MarshalJSON(t *testing.T) {
	c := ResourceCost{
		ResourceAddress: "aws_instance.web",
		ResourceType:    "aws_instance",
		Service:         "EC2",
		MonthlyCost:     mustDec("30.368"),
		PricingSource:   SourceLookup,
		ConfigSnapshot:  map[string]any{"instance_type": "t3.medium"},
	}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"monthly_cost":30.37`) {
		t.Fatalf("expected rounded monthly_cost, got %s", data)
	}
	if !strings.Contains(string(data), `"pricing_source":"lookup"`) {
		t.Fatalf("expected pricing_source, got %s", data)
	}
}

func TestEstimate_NegativeQuantitiesNeverGoNegative(t *testing.T) {
	e := New(nil, Options{UsageEstimates: map[string]decimal.Decimal{"aws_sqs_queue": mustDec("-3")}})
	ctx := context.Background()

	tests := []struct {
		name string
		r    plan.Resource
		want string
	}{
		{"negative volume size", res("aws_ebs_volume", "v", plan.Values{"type": "gp3", "size": json.Number("-100")}), "0"},
		{"negative read capacity", res("aws_dynamodb_table", "t", plan.Values{"billing_mode": "PROVISIONED", "read_capacity": json.Number("-50")}), "0"},
		{"negative write capacity", res("aws_dynamodb_table", "w", plan.Values{"billing_mode": "PROVISIONED", "read_capacity": json.Number("10"), "write_capacity": json.Number("-10")}), "0.949"},
		{"negative usage override keeps default", res("aws_sqs_queue", "q", nil), "0.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.Estimate(ctx, tt.r, "us-east-1")
			if c.MonthlyCost.IsNegative() {
				t.Fatalf("monthly cost must not be negative, got %s", c.MonthlyCost)
			}
			if !c.MonthlyCost.Equal(mustDec(tt.want)) {
				t.Fatalf("expected %s, got %s", tt.want, c.MonthlyCost)
			}
		})
	}
}

package estimate

import (
	"log/slog"
	"strings"
	"sync"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/shopspring/decimal"

	"github.com/ppiankov/planspectre/internal/plan"
	"github.com/ppiankov/planspectre/internal/pricing"
)

type rateKey struct {
	service string
	sku     string
	region  string
}

type resolvedRate struct {
	hourly decimal.Decimal
	source PricingSource
}

// handler prices one family of resource types. rateKey is set only for
// hourly-priced types; price receives the resolved rate for that key.
type handler struct {
	snapshot []string
	rateKey  func(r plan.Resource, region string) rateKey
	price    func(e *Estimator, r plan.Resource, region string, rate resolvedRate) (decimal.Decimal, PricingSource)
}

type rule struct {
	match   func(resourceType string) bool
	handler handler
}

func exact(types ...string) func(string) bool {
	return func(t string) bool {
		for _, want := range types {
			if t == want {
				return true
			}
		}
		return false
	}
}

func prefix(p string) func(string) bool {
	return func(t string) bool { return strings.HasPrefix(t, p) }
}

// rules is evaluated first-match-wins.
var rules = []rule{
	{exact("aws_instance"), hourly("EC2", "instance_type", one,
		"instance_type", "tenancy", "ebs_optimized", "availability_zone")},
	{exact("aws_db_instance"), hourly("RDS", "instance_class", multiAZ,
		"instance_class", "engine", "engine_version", "multi_az", "allocated_storage", "storage_type")},
	{exact("aws_rds_cluster_instance"), hourly("RDS", "instance_class", one,
		"instance_class", "engine", "cluster_identifier")},
	{exact("aws_elasticache_cluster"), hourly("ElastiCache", "node_type", cacheNodes,
		"node_type", "engine", "num_cache_nodes")},

	{exact("aws_nat_gateway"), fixed(monthlyKind(pricing.FixedNATGateway), "connectivity_type")},
	{exact("aws_lb", "aws_alb"), fixed(loadBalancer, "load_balancer_type", "internal")},
	{exact("aws_elb"), fixed(monthlyKind(pricing.FixedCLB), "internal")},
	{exact("aws_eip"), fixed(monthlyKind(pricing.FixedEIP), "domain", "instance")},
	{exact("aws_eks_cluster"), fixed(monthlyKind(pricing.FixedEKS), "version")},
	{exact("aws_ebs_volume"), fixed(ebsVolume, "type", "size", "iops", "throughput")},
	{exact("aws_kinesis_stream"), fixed(kinesisStream, "shard_count", "stream_mode_details")},
	{exact("aws_vpc_endpoint"), fixed(vpcEndpoint, "vpc_endpoint_type", "service_name")},

	{exact("aws_dynamodb_table"), usage(dynamoDB, "billing_mode", "read_capacity", "write_capacity")},
	{exact("aws_lambda_function"), usage(usageFor, "memory_size", "runtime", "timeout")},
	{exact("aws_sqs_queue"), usage(usageFor, "fifo_queue")},
	{exact("aws_sns_topic"), usage(usageFor, "fifo_topic")},
	{exact("aws_api_gateway_rest_api", "aws_apigatewayv2_api"), usage(usageFor, "protocol_type")},
	{exact("aws_cloudwatch_log_group"), usage(usageFor, "retention_in_days")},
	{exact("aws_s3_object"), usage(usageFor, "storage_class")},

	{prefix("aws_s3_"), free("bucket")},
	{prefix("aws_iam_"), free()},
	{exact(
		"aws_vpc", "aws_subnet", "aws_route", "aws_route_table", "aws_route_table_association",
		"aws_internet_gateway", "aws_egress_only_internet_gateway", "aws_network_acl", "aws_network_acl_rule",
		"aws_security_group", "aws_security_group_rule",
		"aws_vpc_security_group_ingress_rule", "aws_vpc_security_group_egress_rule",
		"aws_default_vpc", "aws_default_subnet", "aws_default_security_group", "aws_default_route_table",
		"aws_db_subnet_group", "aws_elasticache_subnet_group", "aws_key_pair", "aws_eip_association",
	), free()},
}

var unpriced = handler{
	snapshot: []string{"instance_type", "instance_class", "node_type", "size", "storage_type", "billing_mode"},
	price: func(*Estimator, plan.Resource, string, resolvedRate) (decimal.Decimal, PricingSource) {
		return decimal.Zero, SourceUnpriced
	},
}

func handlerFor(resourceType string) handler {
	for _, r := range rules {
		if r.match(resourceType) {
			return r.handler
		}
	}
	slog.Debug("No cost rule for resource type", "type", resourceType)
	return unpriced
}

func free(snapshot ...string) handler {
	return handler{
		snapshot: snapshot,
		price: func(*Estimator, plan.Resource, string, resolvedRate) (decimal.Decimal, PricingSource) {
			return decimal.Zero, SourceFree
		},
	}
}

// hourly prices always-on capacity: rate x hours x multiplier.
func hourly(service, skuKey string, multiplier func(plan.Values) decimal.Decimal, snapshot ...string) handler {
	return handler{
		snapshot: snapshot,
		rateKey: func(r plan.Resource, region string) rateKey {
			return rateKey{service: service, sku: r.Values.String(skuKey), region: region}
		},
		price: func(e *Estimator, r plan.Resource, _ string, rate resolvedRate) (decimal.Decimal, PricingSource) {
			return rate.hourly.Mul(e.hours).Mul(multiplier(r.Values)), rate.source
		},
	}
}

type monthlyFunc func(e *Estimator, v plan.Values, region string) (decimal.Decimal, bool)

func fixed(fn monthlyFunc, snapshot ...string) handler {
	return handler{
		snapshot: snapshot,
		price: func(e *Estimator, r plan.Resource, region string, _ resolvedRate) (decimal.Decimal, PricingSource) {
			cost, ok := fn(e, r.Values, region)
			if !ok {
				return decimal.Zero, SourceUnpriced
			}
			return cost, SourceFixed
		},
	}
}

type usageFunc func(e *Estimator, resourceType string, v plan.Values) (decimal.Decimal, PricingSource)

func usage(fn usageFunc, snapshot ...string) handler {
	return handler{
		snapshot: snapshot,
		price: func(e *Estimator, r plan.Resource, _ string, _ resolvedRate) (decimal.Decimal, PricingSource) {
			return fn(e, r.Type, r.Values)
		},
	}
}

func one(plan.Values) decimal.Decimal { return decimal.NewFromInt(1) }

func multiAZ(v plan.Values) decimal.Decimal {
	if on, _ := v.Bool("multi_az"); on {
		return decimal.NewFromInt(2)
	}
	return decimal.NewFromInt(1)
}

func cacheNodes(v plan.Values) decimal.Decimal {
	n := v.Int("num_cache_nodes", 1)
	if n < 1 {
		n = 1
	}
	return decimal.NewFromInt(int64(n))
}

// nonNegative clamps plan-supplied quantities so a bad value never yields
// a negative cost.
func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func monthlyKind(kind string) monthlyFunc {
	return func(e *Estimator, _ plan.Values, region string) (decimal.Decimal, bool) {
		return e.table.Monthly(kind, region)
	}
}

var lbKinds = map[elbv2types.LoadBalancerTypeEnum]string{
	elbv2types.LoadBalancerTypeEnumApplication: pricing.FixedALB,
	elbv2types.LoadBalancerTypeEnumNetwork:     pricing.FixedNLB,
	elbv2types.LoadBalancerTypeEnumGateway:     pricing.FixedGWLB,
}

func loadBalancer(e *Estimator, v plan.Values, region string) (decimal.Decimal, bool) {
	lbType := elbv2types.LoadBalancerTypeEnum(v.StringOr("load_balancer_type", string(elbv2types.LoadBalancerTypeEnumApplication)))
	kind, ok := lbKinds[lbType]
	if !ok {
		slog.Debug("Unknown load balancer type, pricing as application", "load_balancer_type", lbType, "known", lbType.Values())
		kind = pricing.FixedALB
	}
	return e.table.Monthly(kind, region)
}

const defaultVolumeType = "gp3"

func ebsVolume(e *Estimator, v plan.Values, region string) (decimal.Decimal, bool) {
	volumeType := v.StringOr("type", defaultVolumeType)
	perGiB, ok := e.table.StoragePerGiB(volumeType, region)
	if !ok {
		perGiB, ok = e.table.StoragePerGiB(defaultVolumeType, region)
		if !ok {
			return decimal.Zero, false
		}
	}
	size := nonNegative(v.Int("size", 8))
	return perGiB.Mul(decimal.NewFromInt(int64(size))), true
}

func kinesisStream(e *Estimator, v plan.Values, region string) (decimal.Decimal, bool) {
	perShard, ok := e.table.Hourly("kinesis", "shard", region)
	if !ok {
		return decimal.Zero, false
	}
	shards := v.Int("shard_count", 1)
	if shards < 1 {
		shards = 1
	}
	return perShard.Mul(e.hours).Mul(decimal.NewFromInt(int64(shards))), true
}

func vpcEndpoint(e *Estimator, v plan.Values, region string) (decimal.Decimal, bool) {
	if v.StringOr("vpc_endpoint_type", "Gateway") == "Gateway" {
		return decimal.Zero, true
	}
	return e.table.Monthly(pricing.FixedEndpoint, region)
}

var (
	ec2TypesOnce sync.Once
	ec2Types     map[string]struct{}
)

// knownInstanceType reports whether t is an instance type the EC2 SDK
// knows about.
func knownInstanceType(t string) bool {
	ec2TypesOnce.Do(func() {
		values := ec2types.InstanceType("").Values()
		ec2Types = make(map[string]struct{}, len(values))
		for _, v := range values {
			ec2Types[string(v)] = struct{}{}
		}
	})
	_, ok := ec2Types[t]
	return ok
}

// lookupEligible filters out keys that cannot succeed remotely.
func lookupEligible(k rateKey) bool {
	if k.service == "EC2" && !knownInstanceType(k.sku) {
		slog.Debug("Unknown EC2 instance type, skipping lookup", "instance_type", k.sku)
		return false
	}
	return true
}
